package model

import "time"

// Run is a single crawl invocation as seen by the pipeline, the reports and
// the run history database.
type Run struct {
	// ID is the database identifier. Zero until the run is saved.
	ID int64 `json:"id,omitempty"`

	// StartPages are the seed URLs of the run.
	StartPages []string `json:"start_pages"`

	// ConfigHash fingerprints the crawl policy (see Fingerprint).
	// Runs with the same hash are comparable in the history view.
	ConfigHash string `json:"config_hash"`

	// StartedAt is when the crawl step began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl step returned.
	FinishedAt time.Time `json:"finished_at"`

	// Deadline is the absolute time after which no fetch was started.
	Deadline time.Time `json:"deadline"`

	// Result is the aggregated crawl result. Nil if the crawl failed.
	Result *CrawlResult `json:"result,omitempty"`

	// Error holds the fatal error of the run, if any.
	Error error `json:"-"`

	// ErrorMessage is Error rendered for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`
}

// NewRun creates a Run for the given seeds.
func NewRun(startPages []string, configHash string) *Run {
	pages := make([]string, len(startPages))
	copy(pages, startPages)
	return &Run{
		StartPages:     pages,
		ConfigHash:     configHash,
		PerformedSteps: make([]string, 0),
	}
}

// Elapsed returns the crawl duration, or zero if the crawl has not finished.
func (r *Run) Elapsed() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HitDeadline reports whether the crawl ran into its time budget.
func (r *Run) HitDeadline() bool {
	if r.Deadline.IsZero() || r.FinishedAt.IsZero() {
		return false
	}
	return r.FinishedAt.After(r.Deadline)
}

// SetError records a fatal error on the run.
func (r *Run) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}
