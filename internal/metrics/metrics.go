package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "wordcrawl"

// Prune reasons used as the "reason" label of the units pruned counter.
const (
	PruneDepth    = "depth"
	PruneDeadline = "deadline"
	PruneIgnored  = "ignored"
	PruneVisited  = "visited"
)

// Collector holds the crawl metrics.
type Collector struct {
	pagesVisited  prometheus.Counter
	fetchFailures prometheus.Counter
	wordsMerged   prometheus.Counter
	unitsPruned   *prometheus.CounterVec
	inFlight      prometheus.Gauge
	fetchDuration prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics on reg.
// It returns an error if any metric is already registered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		pagesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pages_visited_total",
			Help:      "Pages fetched successfully and merged into the word counts.",
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_failures_total",
			Help:      "Pages whose fetch failed after the URL was claimed.",
		}),
		wordsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "words_merged_total",
			Help:      "Word occurrences merged into the shared counts.",
		}),
		unitsPruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "units_pruned_total",
			Help:      "Crawl units that stopped before fetching, by reason.",
		}, []string{"reason"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "workers_in_flight",
			Help:      "Worker slots currently held by crawl units.",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent in the page source per fetch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		c.pagesVisited,
		c.fetchFailures,
		c.wordsMerged,
		c.unitsPruned,
		c.inFlight,
		c.fetchDuration,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// PageVisited records a successful fetch that contributed words occurrences.
func (c *Collector) PageVisited(words int) {
	if c == nil {
		return
	}
	c.pagesVisited.Inc()
	c.wordsMerged.Add(float64(words))
}

// FetchFailed records a failed fetch.
func (c *Collector) FetchFailed() {
	if c == nil {
		return
	}
	c.fetchFailures.Inc()
}

// UnitPruned records a unit that stopped before fetching.
func (c *Collector) UnitPruned(reason string) {
	if c == nil {
		return
	}
	c.unitsPruned.WithLabelValues(reason).Inc()
}

// WorkerAcquired records that a unit took a worker slot.
func (c *Collector) WorkerAcquired() {
	if c == nil {
		return
	}
	c.inFlight.Inc()
}

// WorkerReleased records that a unit gave its worker slot back.
func (c *Collector) WorkerReleased() {
	if c == nil {
		return
	}
	c.inFlight.Dec()
}

// ObserveFetch records the duration of one page source call.
func (c *Collector) ObserveFetch(d time.Duration) {
	if c == nil {
		return
	}
	c.fetchDuration.Observe(d.Seconds())
}

// Handler returns an HTTP handler serving the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing g at /metrics on addr.
// The caller starts and shuts down the server.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
