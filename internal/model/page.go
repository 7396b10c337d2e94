package model

// PageResult is what a page source extracts from a single page.
// The crawler merges WordCounts into the run totals and follows Links.
type PageResult struct {
	// WordCounts maps each word found on the page to its occurrence count.
	// Words are case-sensitive keys; normalization is up to the page source.
	WordCounts map[string]int `json:"word_counts"`

	// Links contains the outbound URLs in document order.
	Links []string `json:"links"`
}

// VisitState is the per-URL lifecycle inside a single crawl run.
//
// A URL moves from VisitUnseen to VisitVisiting exactly once per run, when
// its visited-set insertion succeeds. It then ends in either
// VisitWordsMerged or VisitFetchFailed. There is no transition back.
type VisitState int

const (
	// VisitUnseen means no unit has claimed the URL yet.
	VisitUnseen VisitState = iota
	// VisitVisiting means a unit won the visited-set insertion and is fetching.
	VisitVisiting
	// VisitWordsMerged means the page was fetched and its words merged.
	VisitWordsMerged
	// VisitFetchFailed means the fetch failed; the branch ends here.
	VisitFetchFailed
)

// String returns the lower-case name of the state.
func (s VisitState) String() string {
	switch s {
	case VisitUnseen:
		return "unseen"
	case VisitVisiting:
		return "visiting"
	case VisitWordsMerged:
		return "words_merged"
	case VisitFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}
