// Package crawler implements the parallel, depth-limited word crawl.
//
// # Architecture
//
// A crawl is a tree of units. Each unit owns one URL and a remaining depth
// budget. A unit that passes its stop checks claims the URL in the shared
// State, fetches it through a PageSource, merges the page's word counts and
// forks one child unit per outbound link. The parent then waits for every
// child before it returns, so a root unit returning means its whole subtree
// has finished.
//
// Units run on a Pool. The pool bounds how many units fetch and merge at the
// same time; a parent waiting for its children holds no slot, which is what
// keeps deeply nested fan-out from deadlocking a small pool.
//
// # Stop conditions
//
// A unit returns immediately, in this order, when:
//  1. its remaining depth is zero
//  2. the crawl deadline has passed or the context is done
//  3. its URL fully matches an ignore pattern
//  4. its URL was already visited
//
// Running out of time is not an error. The crawl simply stops growing and
// the counts gathered so far are reported.
//
// # Usage
//
//	c, err := crawler.New(source,
//		crawler.WithMaxDepth(2),
//		crawler.WithTimeout(30*time.Second),
//	)
//	result, err := c.Crawl(ctx, []string{"https://example.com/"})
package crawler
