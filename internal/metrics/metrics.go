// Package metrics exposes sprintai domain metrics to Prometheus.
//
// Metrics:
//   - sprintai_analysis_saves_total - analyses written
//   - sprintai_analysis_mutations_total{op,result} - single-field edits
//   - sprintai_chat_messages_total{role} - chat messages stored
//   - sprintai_inference_results_total{outcome} - ok, empty or unavailable
//   - sprintai_live_subscribers - open event streams
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Metrics holds the collectors. It implements analysis.Recorder and
// chat.Recorder.
type Metrics struct {
	AnalysisSaves     prometheus.Counter
	AnalysisMutations *prometheus.CounterVec
	ChatMessages      *prometheus.CounterVec
	InferenceResults  *prometheus.CounterVec
	LiveSubscribers   prometheus.Gauge
}

// Default returns metrics registered on the default Prometheus registry.
// Registration happens once per process.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New registers a fresh set of collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AnalysisSaves: f.NewCounter(prometheus.CounterOpts{
			Name: "sprintai_analysis_saves_total",
			Help: "Total number of analyses saved",
		}),
		AnalysisMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sprintai_analysis_mutations_total",
			Help: "Total number of analysis edits",
		}, []string{"op", "result"}),
		ChatMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sprintai_chat_messages_total",
			Help: "Total number of chat messages stored",
		}, []string{"role"}),
		InferenceResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sprintai_inference_results_total",
			Help: "Total number of inference calls by outcome",
		}, []string{"outcome"}),
		LiveSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "sprintai_live_subscribers",
			Help: "Number of open live event streams",
		}),
	}
}

// AnalysisSaved implements analysis.Recorder.
func (m *Metrics) AnalysisSaved(string) {
	m.AnalysisSaves.Inc()
}

// AnalysisMutation implements analysis.Recorder.
func (m *Metrics) AnalysisMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AnalysisMutations.WithLabelValues(op, result).Inc()
}

// ChatMessage implements chat.Recorder.
func (m *Metrics) ChatMessage(role string) {
	m.ChatMessages.WithLabelValues(role).Inc()
}

// InferenceResult implements chat.Recorder.
func (m *Metrics) InferenceResult(outcome string) {
	m.InferenceResults.WithLabelValues(outcome).Inc()
}

// SubscriberOpened counts a new live stream.
func (m *Metrics) SubscriberOpened() {
	m.LiveSubscribers.Inc()
}

// SubscriberClosed counts a finished live stream.
func (m *Metrics) SubscriberClosed() {
	m.LiveSubscribers.Dec()
}
