package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics counts commission and withdrawal status transitions.
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
	amounts     *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_transitions_total",
		Help:      "Status transitions applied, by aggregate and target status.",
	}, []string{"aggregate", "from", "to"})
	amounts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_amount_total",
		Help:      "Sum of money moved by workflow transitions, by aggregate and target status.",
	}, []string{"aggregate", "to"})
	reg.MustRegister(transitions, amounts)
	return &WorkflowMetrics{transitions: transitions, amounts: amounts}
}

// ObserveTransition counts one transition. amount may be zero for status-only moves.
func (m *WorkflowMetrics) ObserveTransition(aggregate, from, to string, amount float64) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(aggregate), normalizeLabel(from), normalizeLabel(to)).Inc()
	if amount > 0 {
		m.amounts.WithLabelValues(normalizeLabel(aggregate), normalizeLabel(to)).Add(amount)
	}
}
