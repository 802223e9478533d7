package observability

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsConfig holds configuration for the metrics subsystem.
type MetricsConfig struct {
	Enabled bool
	// Namespace prefixes every metric name.
	Namespace string
	// Version is reported by the info metric.
	Version string
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "pokedex",
		Version:   "dev",
	}
}

// MetricsConfigFromEnv reads POKEDEX_METRICS_ENABLED (true/1) and
// APP_VERSION on top of DefaultMetricsConfig.
func MetricsConfigFromEnv() MetricsConfig {
	cfg := DefaultMetricsConfig()
	if v := os.Getenv("POKEDEX_METRICS_ENABLED"); v != "" {
		cfg.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("APP_VERSION"); v != "" {
		cfg.Version = v
	}
	return cfg
}

// Metrics collects counters, gauges and duration summaries and serves them in
// the Prometheus text format. A nil *Metrics is valid and records nothing.
type Metrics struct {
	namespace string
	version   string

	httpRequests  *counterVec // method, path, status
	httpDurations *summaryVec // method, path

	lookups          *counterVec // outcome
	upstreamRequests *counterVec // op, outcome
	upstreamLatency  *summaryVec // op

	rateLimitAllowed  atomic.Int64
	rateLimitRejected atomic.Int64
	activeConnections atomic.Int64
	activePages       atomic.Int64
}

// NewMetrics creates a Metrics collector.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "pokedex"
	}
	return &Metrics{
		namespace:        cfg.Namespace,
		version:          cfg.Version,
		httpRequests:     newCounterVec(),
		httpDurations:    newSummaryVec(1000),
		lookups:          newCounterVec(),
		upstreamRequests: newCounterVec(),
		upstreamLatency:  newSummaryVec(1000),
	}
}

// NoopMetrics returns the nil collector.
func NoopMetrics() *Metrics {
	return nil
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	path = normalizePath(path)
	m.httpRequests.inc(method, path, strconv.Itoa(statusCode))
	m.httpDurations.observe(duration, method, path)
}

// RecordLookup counts a completed lookup by outcome (found, not_found, error,
// stale).
func (m *Metrics) RecordLookup(outcome string) {
	if m == nil {
		return
	}
	m.lookups.inc(outcome)
}

// RecordUpstreamRequest records one GraphQL round trip.
func (m *Metrics) RecordUpstreamRequest(op, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.inc(op, outcome)
	m.upstreamLatency.observe(duration, op)
}

// RecordRateLimitAllowed counts a request let through by the rate limiter.
func (m *Metrics) RecordRateLimitAllowed() {
	if m != nil {
		m.rateLimitAllowed.Add(1)
	}
}

// RecordRateLimitRejected counts a request refused by the rate limiter.
func (m *Metrics) RecordRateLimitRejected() {
	if m != nil {
		m.rateLimitRejected.Add(1)
	}
}

// IncrementActiveConnections increments the in-flight request gauge.
func (m *Metrics) IncrementActiveConnections() {
	if m != nil {
		m.activeConnections.Add(1)
	}
}

// DecrementActiveConnections decrements the in-flight request gauge.
func (m *Metrics) DecrementActiveConnections() {
	if m != nil {
		m.activeConnections.Add(-1)
	}
}

// SetActivePages sets the live page session gauge.
func (m *Metrics) SetActivePages(n int) {
	if m != nil {
		m.activePages.Store(int64(n))
	}
}

// normalizePath keeps label cardinality bounded: session ids, numbers and
// Pokémon names are replaced by placeholders.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		switch {
		case i > 0 && parts[i-1] == "pokemon" && part != "":
			parts[i] = "{name}"
		case i > 0 && parts[i-1] == "pages" && part != "":
			parts[i] = "{id}"
		case len(part) == 36 && strings.Count(part, "-") == 4:
			parts[i] = "{id}"
		default:
			if _, err := strconv.ParseInt(part, 10, 64); err == nil {
				parts[i] = "{id}"
			}
		}
	}
	return strings.Join(parts, "/")
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		m.Expose(w)
	})
}

// Expose writes every metric in the Prometheus text format.
func (m *Metrics) Expose(w io.Writer) {
	ns := m.namespace

	header(w, ns+"_info", "gauge", "Application information")
	fmt.Fprintf(w, "%s_info{version=%q} 1\n\n", ns, m.version)

	header(w, ns+"_http_requests_total", "counter", "Total number of HTTP requests")
	m.httpRequests.write(w, ns+"_http_requests_total", "method", "path", "status")
	fmt.Fprintln(w)

	header(w, ns+"_http_request_duration_seconds", "summary", "HTTP request duration in seconds")
	m.httpDurations.write(w, ns+"_http_request_duration_seconds", "method", "path")
	fmt.Fprintln(w)

	header(w, ns+"_lookups_total", "counter", "Completed Pokémon lookups by outcome")
	m.lookups.write(w, ns+"_lookups_total", "outcome")
	fmt.Fprintln(w)

	header(w, ns+"_upstream_requests_total", "counter", "GraphQL requests sent upstream")
	m.upstreamRequests.write(w, ns+"_upstream_requests_total", "op", "outcome")
	fmt.Fprintln(w)

	header(w, ns+"_upstream_request_duration_seconds", "summary", "GraphQL round trip duration in seconds")
	m.upstreamLatency.write(w, ns+"_upstream_request_duration_seconds", "op")
	fmt.Fprintln(w)

	header(w, ns+"_rate_limit_requests_total", "counter", "Total rate limit decisions")
	fmt.Fprintf(w, "%s_rate_limit_requests_total{status=\"allowed\"} %d\n", ns, m.rateLimitAllowed.Load())
	fmt.Fprintf(w, "%s_rate_limit_requests_total{status=\"rejected\"} %d\n\n", ns, m.rateLimitRejected.Load())

	header(w, ns+"_active_connections", "gauge", "Current number of in-flight HTTP requests")
	fmt.Fprintf(w, "%s_active_connections %d\n\n", ns, m.activeConnections.Load())

	header(w, ns+"_active_pages", "gauge", "Current number of live page sessions")
	fmt.Fprintf(w, "%s_active_pages %d\n", ns, m.activePages.Load())
}

func header(w io.Writer, name, kind, help string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

// labelKey joins label values; \x00 never appears in them.
func labelKey(values []string) string { return strings.Join(values, "\x00") }

func labelPairs(names []string, key string) string {
	values := strings.Split(key, "\x00")
	pairs := make([]string, len(names))
	for i, n := range names {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		pairs[i] = fmt.Sprintf("%s=%q", n, v)
	}
	return strings.Join(pairs, ",")
}

type counterVec struct {
	mu     sync.RWMutex
	counts map[string]*atomic.Int64
}

func newCounterVec() *counterVec {
	return &counterVec{counts: make(map[string]*atomic.Int64)}
}

func (c *counterVec) inc(values ...string) {
	key := labelKey(values)
	c.mu.RLock()
	n, ok := c.counts[key]
	c.mu.RUnlock()
	if !ok {
		c.mu.Lock()
		if n, ok = c.counts[key]; !ok {
			n = &atomic.Int64{}
			c.counts[key] = n
		}
		c.mu.Unlock()
	}
	n.Add(1)
}

func (c *counterVec) get(values ...string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n, ok := c.counts[labelKey(values)]; ok {
		return n.Load()
	}
	return 0
}

func (c *counterVec) write(w io.Writer, name string, labels ...string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, key := range sortedKeys(c.counts) {
		fmt.Fprintf(w, "%s{%s} %d\n", name, labelPairs(labels, key), c.counts[key].Load())
	}
}

type summaryVec struct {
	maxSize int

	mu         sync.RWMutex
	collectors map[string]*durationCollector
}

func newSummaryVec(maxSize int) *summaryVec {
	return &summaryVec{maxSize: maxSize, collectors: make(map[string]*durationCollector)}
}

func (s *summaryVec) observe(d time.Duration, values ...string) {
	key := labelKey(values)
	s.mu.Lock()
	c, ok := s.collectors[key]
	if !ok {
		c = newDurationCollector(s.maxSize)
		s.collectors[key] = c
	}
	s.mu.Unlock()
	c.add(d)
}

func (s *summaryVec) write(w io.Writer, name string, labels ...string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range sortedKeys(s.collectors) {
		c := s.collectors[key]
		pairs := labelPairs(labels, key)
		for _, q := range []float64{0.5, 0.9, 0.99} {
			fmt.Fprintf(w, "%s{%s,quantile=\"%.2f\"} %.6f\n", name, pairs, q, c.quantile(q))
		}
		fmt.Fprintf(w, "%s_sum{%s} %.6f\n", name, pairs, c.sum())
		fmt.Fprintf(w, "%s_count{%s} %d\n", name, pairs, c.count())
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// durationCollector keeps a sliding window of samples in seconds.
type durationCollector struct {
	mu      sync.Mutex
	samples []float64
	maxSize int
}

func newDurationCollector(maxSize int) *durationCollector {
	return &durationCollector{samples: make([]float64, 0, maxSize), maxSize: maxSize}
}

func (d *durationCollector) add(duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.samples) >= d.maxSize {
		copy(d.samples, d.samples[1:])
		d.samples = d.samples[:len(d.samples)-1]
	}
	d.samples = append(d.samples, duration.Seconds())
}

// quantile interpolates linearly between the two nearest samples.
func (d *durationCollector) quantile(q float64) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), d.samples...)
	sort.Float64s(sorted)

	idx := q * float64(len(sorted)-1)
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}

func (d *durationCollector) sum() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var total float64
	for _, s := range d.samples {
		total += s
	}
	return total
}

func (d *durationCollector) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.samples)
}

// MetricsMiddleware records count, duration and in-flight gauge for every
// request except /metrics itself.
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			m.IncrementActiveConnections()
			defer m.DecrementActiveConnections()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sw, r)
			m.RecordHTTPRequest(r.Method, r.URL.Path, sw.statusCode, time.Since(start))
		})
	}
}

// RateLimitMetricsMiddleware counts 429 answers from the wrapped rate
// limiter as rejections and everything else as allowed.
func RateLimitMetricsMiddleware(m *Metrics, rateLimitEnabled bool) func(http.Handler) http.Handler {
	if m == nil || !rateLimitEnabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sw, r)
			if sw.statusCode == http.StatusTooManyRequests {
				m.RecordRateLimitRejected()
			} else {
				m.RecordRateLimitAllowed()
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
