package crawler

import "errors"

var (
	// ErrNilPageSource is returned by New when no page source is given.
	ErrNilPageSource = errors.New("page source must not be nil")

	// ErrInvalidMaxDepth is returned by New for a negative depth.
	ErrInvalidMaxDepth = errors.New("max depth must not be negative")

	// ErrInvalidTimeout is returned by New for a negative timeout.
	ErrInvalidTimeout = errors.New("timeout must not be negative")

	// ErrInvalidPopularWordCount is returned by New for a negative word count.
	ErrInvalidPopularWordCount = errors.New("popular word count must not be negative")

	// ErrInvalidIgnorePattern is returned by New when an ignore pattern
	// cannot be anchored for full-string matching.
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")

	// ErrSchedulerUnavailable wraps failures to obtain a worker slot.
	// It is the only error a crawl returns.
	ErrSchedulerUnavailable = errors.New("scheduler unavailable")

	// ErrEmptyPage is the fetch failure recorded when a page source returns
	// neither a page nor an error.
	ErrEmptyPage = errors.New("page source returned no page")

	// ErrPageSourcePanic is the fetch failure recorded when a page source panics.
	ErrPageSourcePanic = errors.New("page source panicked")
)
