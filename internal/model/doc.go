// Package model defines the data structures shared across wordcrawl.
//
// This package contains the following main types:
//   - PageResult: The words and outbound links extracted from one page
//   - WordCount: A single word and its aggregate occurrence count
//   - CrawlResult: The ordered top words and the number of distinct URLs visited
//   - Run: One crawl invocation with its configuration fingerprint, timing and result
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, parser, report, database and pipeline packages all
// need these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
