// Package main provides the entry point for the wordcrawl CLI.
//
// wordcrawl crawls web pages in parallel, up to a link depth and within a
// time budget, and reports the most popular words it found.
//
// Usage:
//
//	wordcrawl crawl --start-page https://example.com/
//	wordcrawl crawl crawl.yaml other.yaml --batch 2
//	wordcrawl history --compare
//
// See --help for all available options.
package main

// main is the entry point for wordcrawl.
func main() {
	Execute()
}
