// Package metrics provides Prometheus instrumentation for token generation,
// key fetches and speech requests.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/book-expert/translate-tts-service/internal/tkk"
	"github.com/book-expert/translate-tts-service/internal/token"
)

const (
	namespace = "translate_tts"

	labelResult   = "result"
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, so components can be built without instrumentation.
type Metrics struct {
	registry        *prometheus.Registry
	tokensGenerated prometheus.Counter
	keyFetches      *prometheus.CounterVec
	speechRequests  *prometheus.CounterVec
	speechDuration  prometheus.Histogram
	audioBytes      prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokensGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_generated_total",
			Help:      "Number of request tokens derived.",
		}),
		keyFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_fetches_total",
			Help:      "Number of tkk key pair fetches by result.",
		}, []string{labelResult}),
		speechRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_requests_total",
			Help:      "Number of speech endpoint requests by result.",
		}, []string{labelResult}),
		speechDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speech_request_duration_seconds",
			Help:      "Latency of speech endpoint requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		audioBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Bytes of audio returned to callers.",
		}),
	}

	m.registry.MustRegister(
		m.tokensGenerated,
		m.keyFetches,
		m.speechRequests,
		m.speechDuration,
		m.audioBytes,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TokenGenerated counts one derived token.
func (m *Metrics) TokenGenerated() {
	if m == nil {
		return
	}

	m.tokensGenerated.Inc()
}

// KeyFetched records the outcome of one key pair fetch.
func (m *Metrics) KeyFetched(err error) {
	if m == nil {
		return
	}

	m.keyFetches.WithLabelValues(result(err)).Inc()
}

// SpeechCompleted records one speech request.
func (m *Metrics) SpeechCompleted(elapsed time.Duration, audioLen int, err error) {
	if m == nil {
		return
	}

	m.speechRequests.WithLabelValues(result(err)).Inc()
	m.speechDuration.Observe(elapsed.Seconds())

	if err == nil {
		m.audioBytes.Add(float64(audioLen))
	}
}

// InstrumentSupplier wraps a key supplier so every fetch is counted.
func (m *Metrics) InstrumentSupplier(next tkk.Supplier) tkk.Supplier {
	return instrumentedSupplier{next: next, metrics: m}
}

type instrumentedSupplier struct {
	next    tkk.Supplier
	metrics *Metrics
}

func (s instrumentedSupplier) FetchKeyPair(ctx context.Context) (token.KeyPair, error) {
	pair, err := s.next.FetchKeyPair(ctx)
	s.metrics.KeyFetched(err)

	return pair, err
}

func result(err error) string {
	if err != nil {
		return resultFailure
	}

	return resultSuccess
}
