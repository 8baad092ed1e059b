package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks case workflow activity and registration token use.
// Each instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Transitions       *prometheus.CounterVec
	TransitionsDenied *prometheus.CounterVec
	CasesCreated      *prometheus.CounterVec
	TokenConsumptions *prometheus.CounterVec
	DashboardDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fiqhi_case_transitions_total",
			Help: "Status transitions applied, by case kind, action and target status",
		}, []string{"kind", "action", "to"}),
		TransitionsDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fiqhi_case_actions_denied_total",
			Help: "Case actions refused by the workflow, by kind, action and error code",
		}, []string{"kind", "action", "code"}),
		CasesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fiqhi_cases_created_total",
			Help: "Cases created, by kind",
		}, []string{"kind"}),
		TokenConsumptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fiqhi_registration_token_consumptions_total",
			Help: "Registration token consumption attempts, by result",
		}, []string{"result"}),
		DashboardDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fiqhi_dashboard_duration_seconds",
			Help:    "Duration of admin dashboard assembly",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementTransition records an applied action.
func (m *Metrics) IncrementTransition(kind, action, to string) {
	m.Transitions.WithLabelValues(kind, action, to).Inc()
}

// IncrementDenied records an action the workflow refused.
func (m *Metrics) IncrementDenied(kind, action, code string) {
	m.TransitionsDenied.WithLabelValues(kind, action, code).Inc()
}

func (m *Metrics) IncrementCaseCreated(kind string) {
	m.CasesCreated.WithLabelValues(kind).Inc()
}

// IncrementTokenConsumption records a consume attempt; result is "ok",
// "invalid" or "error".
func (m *Metrics) IncrementTokenConsumption(result string) {
	m.TokenConsumptions.WithLabelValues(result).Inc()
}

// ObserveDashboard records dashboard assembly time.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDashboard(start time.Time) {
	m.DashboardDuration.Observe(time.Since(start).Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
