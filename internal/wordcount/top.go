package wordcount

import (
	"cmp"
	"slices"

	"github.com/nao1215/wordcrawl/internal/model"
)

// Top returns the n most popular words of counts, ordered by Compare.
//
// An empty map yields an empty (non-nil) slice without sorting anything,
// and so does n <= 0. The input map is not modified.
func Top(counts map[string]int, n int) model.WordCounts {
	if len(counts) == 0 || n <= 0 {
		return model.WordCounts{}
	}

	all := make(model.WordCounts, 0, len(counts))
	for word, count := range counts {
		all = append(all, model.WordCount{Word: word, Count: count})
	}

	slices.SortFunc(all, Compare)

	if n < len(all) {
		all = all[:n]
	}
	return slices.Clip(all)
}

// Compare orders two word counts: count descending, then word length
// descending, then word ascending. It returns a negative number when a
// sorts before b.
func Compare(a, b model.WordCount) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	if c := cmp.Compare(len(b.Word), len(a.Word)); c != 0 {
		return c
	}
	return cmp.Compare(a.Word, b.Word)
}
