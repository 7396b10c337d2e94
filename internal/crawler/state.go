package crawler

import (
	"hash/maphash"
	"slices"
	"sync"
	"sync/atomic"
)

// stateShards is the number of word count shards. A power of two keeps the
// shard index a mask.
const stateShards = 64

// State is the shared, mutable state of one crawl: the set of visited URLs
// and the aggregate word counts. It is created per Crawl call and discarded
// afterwards.
//
// Design decision: word counts are split across shards, each with its own
// mutex, so units merging different words do not contend on one lock. The
// visited set is a sync.Map because URLs are written once and then only read.
type State struct {
	visited      sync.Map
	visitedCount atomic.Int64

	seed   maphash.Seed
	shards [stateShards]wordShard
}

type wordShard struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewState creates an empty State.
func NewState() *State {
	s := &State{seed: maphash.MakeSeed()}
	for i := range s.shards {
		s.shards[i].counts = make(map[string]int)
	}
	return s
}

// MarkVisited inserts url into the visited set. It reports whether this call
// inserted it; for any URL exactly one caller ever observes true.
func (s *State) MarkVisited(url string) bool {
	if _, loaded := s.visited.LoadOrStore(url, struct{}{}); loaded {
		return false
	}
	s.visitedCount.Add(1)
	return true
}

// IsVisited reports whether url is in the visited set.
func (s *State) IsVisited(url string) bool {
	_, ok := s.visited.Load(url)
	return ok
}

// VisitedCount returns the number of distinct URLs marked visited.
func (s *State) VisitedCount() int {
	return int(s.visitedCount.Load())
}

// VisitedURLs returns the visited URLs in lexical order.
func (s *State) VisitedURLs() []string {
	urls := make([]string, 0, s.VisitedCount())
	s.visited.Range(func(key, _ any) bool {
		urls = append(urls, key.(string))
		return true
	})
	slices.Sort(urls)
	return urls
}

// AddWordCounts merges counts into the aggregate additively and returns the
// number of occurrences merged. Non-positive counts are ignored.
func (s *State) AddWordCounts(counts map[string]int) int {
	merged := 0
	for word, n := range counts {
		if n <= 0 {
			continue
		}
		shard := s.shard(word)
		shard.mu.Lock()
		shard.counts[word] += n
		shard.mu.Unlock()
		merged += n
	}
	return merged
}

// Count returns the aggregate count for word.
func (s *State) Count(word string) int {
	shard := s.shard(word)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return shard.counts[word]
}

// Snapshot returns a copy of the aggregate word counts.
func (s *State) Snapshot() map[string]int {
	out := make(map[string]int)
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		for word, n := range shard.counts {
			out[word] = n
		}
		shard.mu.Unlock()
	}
	return out
}

func (s *State) shard(word string) *wordShard {
	return &s.shards[maphash.String(s.seed, word)&(stateShards-1)]
}
