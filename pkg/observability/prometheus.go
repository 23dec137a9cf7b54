package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
)

const namespace = "aidiagram"

// Prometheus implements every hook interface by recording Prometheus metrics.
type Prometheus struct {
	generateDuration *prometheus.HistogramVec
	renderDuration   *prometheus.HistogramVec
	blocks           *prometheus.CounterVec
	cacheEvents      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
// It panics if a collector with the same name is already registered.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		generateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generate_duration_seconds",
			Help:      "Time spent waiting for the generative service.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"mode", "outcome"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent turning generated code into a node.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode", "format", "outcome"}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Diagram blocks processed, by outcome.",
		}, []string{"mode", "outcome"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache hits, misses and writes.",
		}, []string{"key_type", "event"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests to the generative service, by status.",
		}, []string{"method", "host", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of requests to the generative service.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"method", "host", "path"}),
	}
	reg.MustRegister(
		p.generateDuration,
		p.renderDuration,
		p.blocks,
		p.cacheEvents,
		p.httpRequests,
		p.httpDuration,
	)
	return p
}

// Outcome returns "ok" for a nil error, otherwise the error's code, or
// "unknown" for errors without one.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := aerrors.GetCode(err); code != "" {
		return string(code)
	}
	return "unknown"
}

func (p *Prometheus) OnGenerateStart(context.Context, string) {}

func (p *Prometheus) OnGenerateComplete(_ context.Context, mode string, d time.Duration, err error) {
	p.generateDuration.WithLabelValues(mode, Outcome(err)).Observe(d.Seconds())
}

func (p *Prometheus) OnRenderStart(context.Context, string, string) {}

func (p *Prometheus) OnRenderComplete(_ context.Context, mode, format string, d time.Duration, err error) {
	p.renderDuration.WithLabelValues(mode, format, Outcome(err)).Observe(d.Seconds())
}

func (p *Prometheus) OnBlockComplete(_ context.Context, mode string, _ time.Duration, err error) {
	p.blocks.WithLabelValues(mode, Outcome(err)).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, _ int) {
	p.cacheEvents.WithLabelValues(keyType, "set").Inc()
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, host, path, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, host, path).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, method, host, path string, _ error) {
	p.httpRequests.WithLabelValues(method, host, path, "error").Inc()
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
)
