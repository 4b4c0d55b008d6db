// Package metrics exposes prometheus counters for oracle traffic and the
// outcomes of constraint generation and content verification.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plotpact"

// Recorder methods are safe to call on a nil *Recorder.
type Recorder struct {
	registry      *prometheus.Registry
	oracleCalls   *prometheus.CounterVec
	generations   *prometheus.CounterVec
	verifications *prometheus.CounterVec
	submissions   *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Calls to the text-generation oracle by provider and outcome.",
		}, []string{"provider", "outcome"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Constraint generation rounds by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Content verification decisions by outcome.",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Paragraph submissions by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.oracleCalls, r.generations, r.verifications, r.submissions)
	return r
}

func (r *Recorder) OracleCall(provider, outcome string) {
	if r == nil {
		return
	}
	r.oracleCalls.WithLabelValues(provider, outcome).Inc()
}

func (r *Recorder) Generation(outcome string) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Verification(outcome string) {
	if r == nil {
		return
	}
	r.verifications.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Submission(result string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(result).Inc()
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
