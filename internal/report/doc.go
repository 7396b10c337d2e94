// Package report renders finished runs.
//
// This package contains writers for different output formats:
//   - JSONWriter: the crawl result as {"wordCounts": {...}, "urlsVisited": N}
//   - SimpleWriter: human-readable text output for terminal display
//   - MarkdownWriter: GitHub Flavored Markdown with a table and a pie chart
//
// Design decision: We separate report writing from report data structures
// (which are in the model package) so that adding an output format never
// touches the crawler.
package report
