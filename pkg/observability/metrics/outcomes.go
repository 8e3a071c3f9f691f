package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mock endpoint outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Outcomes counts simulated success and failure responses per endpoint.
type Outcomes struct {
	total *prometheus.CounterVec
}

func newOutcomes(factory promauto.Factory) *Outcomes {
	return &Outcomes{
		total: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validation_mock_outcomes_total",
				Help: "Simulated dependency outcomes by endpoint",
			},
			[]string{"endpoint", "outcome"},
		),
	}
}

// Record increments the counter for endpoint and outcome.
func (o *Outcomes) Record(endpoint, outcome string) {
	o.total.WithLabelValues(endpoint, outcome).Inc()
}
