package model

import (
	"encoding/json"
	"testing"
)

// TestWordCountsMarshalJSON verifies that word counts serialize as an object
// whose key order follows the slice order.
func TestWordCountsMarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("keeps slice order", func(t *testing.T) {
		t.Parallel()

		wc := WordCounts{
			{Word: "the", Count: 5},
			{Word: "a", Count: 5},
			{Word: "fox", Count: 3},
		}

		data, err := json.Marshal(wc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := `{"the":5,"a":5,"fox":3}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})

	t.Run("empty slice is an empty object", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(WordCounts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "{}" {
			t.Errorf("expected {}, got %s", data)
		}
	})

	t.Run("escapes words", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(WordCounts{{Word: `say"hi`, Count: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"say\"hi":1}` {
			t.Errorf("unexpected output %s", data)
		}
	})
}

// TestWordCountsUnmarshalJSON verifies that decoding preserves document order.
func TestWordCountsUnmarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("preserves order", func(t *testing.T) {
		t.Parallel()

		var wc WordCounts
		if err := json.Unmarshal([]byte(`{"zebra":9,"apple":2,"mango":2}`), &wc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"zebra", "apple", "mango"}
		if len(wc) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(wc))
		}
		for i, w := range want {
			if wc[i].Word != w {
				t.Errorf("entry %d: expected %q, got %q", i, w, wc[i].Word)
			}
		}
		if wc[0].Count != 9 {
			t.Errorf("expected count 9, got %d", wc[0].Count)
		}
	})

	t.Run("rejects arrays", func(t *testing.T) {
		t.Parallel()

		var wc WordCounts
		if err := json.Unmarshal([]byte(`[1,2]`), &wc); err == nil {
			t.Error("expected error for array input")
		}
	})

	t.Run("rejects non-integer counts", func(t *testing.T) {
		t.Parallel()

		var wc WordCounts
		if err := json.Unmarshal([]byte(`{"a":"many"}`), &wc); err == nil {
			t.Error("expected error for string count")
		}
	})
}

// TestCrawlResultJSON verifies the result file format.
func TestCrawlResultJSON(t *testing.T) {
	t.Parallel()

	result := NewCrawlResult(WordCounts{{Word: "go", Count: 3}}, 7)

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"wordCounts":{"go":3},"urlsVisited":7}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	var decoded CrawlResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.URLsVisited != 7 {
		t.Errorf("expected 7 URLs visited, got %d", decoded.URLsVisited)
	}
	if decoded.WordCounts.Map()["go"] != 3 {
		t.Errorf("expected go=3, got %v", decoded.WordCounts)
	}
}

// TestNewCrawlResultNilCounts verifies that a nil slice becomes an empty object.
func TestNewCrawlResultNilCounts(t *testing.T) {
	t.Parallel()

	result := NewCrawlResult(nil, 0)
	if result.WordCounts == nil {
		t.Fatal("expected non-nil word counts")
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"wordCounts":{},"urlsVisited":0}` {
		t.Errorf("unexpected output %s", data)
	}
}
