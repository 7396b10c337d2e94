package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// WordCount is a word together with its aggregate occurrence count.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordCounts is an ordered list of word counts.
// It serializes as a JSON object whose key order matches the slice order,
// which keeps the "most popular first" order visible in reports.
type WordCounts []WordCount

// MarshalJSON writes the counts as an ordered JSON object.
func (wc WordCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range wc {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Word)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", c.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an ordered JSON object back into a WordCounts slice,
// preserving the key order found in the document.
func (wc *WordCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*wc = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("word counts: expected JSON object")
	}

	result := make(WordCounts, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		word, ok := keyTok.(string)
		if !ok {
			return errors.New("word counts: expected string key")
		}

		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("word counts: invalid count for %q: %w", word, err)
		}
		result = append(result, WordCount{Word: word, Count: count})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*wc = result
	return nil
}

// Map returns the counts as an unordered map.
func (wc WordCounts) Map() map[string]int {
	m := make(map[string]int, len(wc))
	for _, c := range wc {
		m[c.Word] = c.Count
	}
	return m
}

// CrawlResult is the externally visible outcome of one crawl.
//
// The JSON field names match the result files written by earlier versions
// of the crawler so existing tooling keeps reading them.
type CrawlResult struct {
	// WordCounts holds the most popular words, most frequent first.
	WordCounts WordCounts `json:"wordCounts"`

	// URLsVisited is the number of distinct URLs the crawl claimed.
	// Pages whose fetch failed are still counted as visited.
	URLsVisited int `json:"urlsVisited"`
}

// NewCrawlResult creates a CrawlResult. A nil counts slice is replaced by an
// empty one so the JSON output is always an object.
func NewCrawlResult(counts WordCounts, urlsVisited int) *CrawlResult {
	if counts == nil {
		counts = WordCounts{}
	}
	return &CrawlResult{
		WordCounts:  counts,
		URLsVisited: urlsVisited,
	}
}
