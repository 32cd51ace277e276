package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the service.
type Metrics struct {
	TransitionsTotal *prometheus.CounterVec
	ReportsTotal     *prometheus.CounterVec
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "downtime_transitions_total",
			Help: "Status transitions applied, by target status and result.",
		}, []string{"to_status", "result"}),
		ReportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "downtime_reports_total",
			Help: "Reliability reports generated, by scope and result.",
		}, []string{"scope", "result"}),
	}
}
