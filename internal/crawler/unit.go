package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/nao1215/wordcrawl/internal/metrics"
	"github.com/nao1215/wordcrawl/internal/model"
)

// run is the policy and state shared by every unit of one crawl.
// Nothing in it changes after the crawl starts except state.
type run struct {
	source   PageSource
	state    *State
	pool     *Pool
	ignore   []*regexp.Regexp
	deadline time.Time
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// expired reports whether no further fetch may begin.
func (r *run) expired(ctx context.Context) bool {
	return ctx.Err() != nil || r.now().After(r.deadline)
}

func (r *run) ignored(url string) bool {
	for _, re := range r.ignore {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// unit explores one URL and, through its children, everything reachable
// from it within remainingDepth levels.
type unit struct {
	run            *run
	url            string
	remainingDepth int
}

// explore is the unit's Task. It returns only scheduler errors; fetch
// failures and stop conditions end the branch silently.
func (u *unit) explore(ctx context.Context) error {
	if reason, stop := u.stopReason(ctx); stop {
		u.run.metrics.UnitPruned(reason)
		return nil
	}

	var page *model.PageResult
	if err := u.run.pool.Do(ctx, func() { page = u.visit(ctx) }); err != nil {
		return err
	}

	// Children of a unit with one level left would stop on depth at once.
	if page == nil || u.remainingDepth <= 1 || len(page.Links) == 0 {
		return nil
	}

	return u.run.pool.InvokeAll(ctx, u.children(page.Links))
}

// children returns one task per link worth forking. Links repeated on the
// page, ignored or already visited are dropped here so that a URL linked
// from many pages does not queue a goroutine per link. stopReason and
// MarkVisited remain the gate for links claimed after this check.
func (u *unit) children(links []string) []Task {
	tasks := make([]Task, 0, len(links))
	queued := make(map[string]struct{}, len(links))
	for _, link := range links {
		if _, dup := queued[link]; dup {
			continue
		}
		queued[link] = struct{}{}

		switch {
		case u.run.ignored(link):
			u.run.metrics.UnitPruned(metrics.PruneIgnored)
			continue
		case u.run.state.IsVisited(link):
			u.run.metrics.UnitPruned(metrics.PruneVisited)
			continue
		}

		child := &unit{
			run:            u.run,
			url:            link,
			remainingDepth: u.remainingDepth - 1,
		}
		tasks = append(tasks, child.explore)
	}
	return tasks
}

// stopReason evaluates the stop conditions in order.
func (u *unit) stopReason(ctx context.Context) (string, bool) {
	switch {
	case u.remainingDepth <= 0:
		return metrics.PruneDepth, true
	case u.run.expired(ctx):
		return metrics.PruneDeadline, true
	case u.run.ignored(u.url):
		return metrics.PruneIgnored, true
	case u.run.state.IsVisited(u.url):
		return metrics.PruneVisited, true
	}
	return "", false
}

// visit runs on a worker slot. It claims the URL, fetches it and merges its
// words. It returns nil when the page contributes nothing to follow.
func (u *unit) visit(ctx context.Context) *model.PageResult {
	// The wait for a slot may have outlasted the deadline.
	if u.run.expired(ctx) {
		u.run.metrics.UnitPruned(metrics.PruneDeadline)
		return nil
	}
	if !u.run.state.MarkVisited(u.url) {
		u.run.metrics.UnitPruned(metrics.PruneVisited)
		return nil
	}

	logger := u.run.logger.With(
		slog.String("url", u.url),
		slog.Int("remaining_depth", u.remainingDepth),
	)
	logger.Debug("page claimed", slog.Any("state", model.VisitVisiting))

	page, err := u.fetch(ctx)
	if err != nil {
		u.run.metrics.FetchFailed()
		logger.Debug("fetch failed",
			slog.Any("state", model.VisitFetchFailed),
			slog.String("error", err.Error()),
		)
		return nil
	}

	merged := u.run.state.AddWordCounts(page.WordCounts)
	u.run.metrics.PageVisited(merged)
	logger.Debug("page merged",
		slog.Any("state", model.VisitWordsMerged),
		slog.Int("words", merged),
		slog.Int("links", len(page.Links)),
	)
	return page
}

// fetch calls the page source, turning a panic or an empty answer into a
// fetch failure.
func (u *unit) fetch(ctx context.Context) (page *model.PageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			page = nil
			err = fmt.Errorf("%w: %v", ErrPageSourcePanic, r)
		}
	}()

	start := time.Now()
	page, err = u.run.source.Fetch(ctx, u.url)
	u.run.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, ErrEmptyPage
	}
	return page, nil
}
