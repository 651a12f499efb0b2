package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks postings against virtual accounts and replay drift.
type LedgerMetrics struct {
	postings     *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	driftedTotal prometheus.Counter
	verified     prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_postings_total",
		Help:      "Ledger transactions appended, by type and direction.",
	}, []string{"type", "direction"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_rejections_total",
		Help:      "Ledger postings rejected before any write, by error code.",
	}, []string{"code"})
	drifted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_drifted_accounts_total",
		Help:      "Accounts whose replayed history disagreed with the stored balance.",
	})
	verified := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_verified_accounts_total",
		Help:      "Accounts replayed by verification.",
	})
	reg.MustRegister(postings, rejections, drifted, verified)
	return &LedgerMetrics{
		postings:     postings,
		rejections:   rejections,
		driftedTotal: drifted,
		verified:     verified,
	}
}

// IncPosting counts one appended ledger transaction.
func (m *LedgerMetrics) IncPosting(txType, direction string) {
	if m == nil || m.postings == nil {
		return
	}
	m.postings.WithLabelValues(normalizeLabel(txType), normalizeLabel(direction)).Inc()
}

// IncRejection counts a posting refused with the given error code.
func (m *LedgerMetrics) IncRejection(code string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(code)).Inc()
}

// ObserveVerification records one replayed account and whether it drifted.
func (m *LedgerMetrics) ObserveVerification(drifted bool) {
	if m == nil || m.verified == nil {
		return
	}
	m.verified.Inc()
	if drifted {
		m.driftedTotal.Inc()
	}
}
