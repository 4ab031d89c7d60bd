package prompt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts dialogs and their outcomes. One Metrics is shared by every
// Prompt in a process; a nil *Metrics records nothing.
type Metrics struct {
	dialogs  *prometheus.CounterVec
	outcomes *prometheus.CounterVec
}

// NewMetrics registers the prompt collectors on reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		dialogs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookings",
			Subsystem: "prompt",
			Name:      "dialogs_total",
			Help:      "Pop-ups handed to a renderer, by kind",
		}, []string{"kind"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookings",
			Subsystem: "prompt",
			Name:      "outcomes_total",
			Help:      "Custom dialog resolutions, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) dialog(kind string) {
	if m == nil {
		return
	}
	m.dialogs.WithLabelValues(kind).Inc()
}

func (m *Metrics) outcome(o outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(o)).Inc()
}
