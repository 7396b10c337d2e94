// Package config holds the settings of a wordcrawl run.
//
// A Config starts from NewConfig defaults, is overlaid with a crawl file
// (JSON or YAML, see LoadCrawlFile) and finally with command line flags.
// Validate is called once before any crawling begins.
package config
