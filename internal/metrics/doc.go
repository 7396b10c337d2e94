// Package metrics exposes crawl progress as Prometheus metrics.
//
// A Collector is registered on a caller-supplied registry rather than the
// global default one, so several crawls (and tests) can run in one process
// without duplicate-registration panics. All Collector methods are safe to
// call on a nil *Collector, which lets the crawler treat metrics as optional.
package metrics
