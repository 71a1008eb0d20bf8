package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics counts workflow outcomes for Prometheus scraping.
type WorkflowMetrics struct {
	transitions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	relationships *prometheus.CounterVec
	notifyFails   *prometheus.CounterVec
}

// NewWorkflowMetrics creates the counters and registers them with reg. A nil
// reg leaves them unregistered.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	m := &WorkflowMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delta",
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Accepted approval transitions by entity type, action and resulting status",
		}, []string{"entity_type", "action", "status"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delta",
			Subsystem: "workflow",
			Name:      "rejections_total",
			Help:      "Rejected approval actions by entity type and action",
		}, []string{"entity_type", "action"}),
		relationships: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delta",
			Subsystem: "causal",
			Name:      "edits_total",
			Help:      "Causal parent edits by outcome",
		}, []string{"outcome"}),
		notifyFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delta",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Notification deliveries that failed",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.rejections, m.relationships, m.notifyFails)
	}
	return m
}

// TransitionApplied counts an accepted transition.
func (m *WorkflowMetrics) TransitionApplied(entityType, action, status string) {
	m.transitions.WithLabelValues(entityType, action, status).Inc()
}

// TransitionRejected counts a rejected action.
func (m *WorkflowMetrics) TransitionRejected(entityType, action string) {
	m.rejections.WithLabelValues(entityType, action).Inc()
}

// RelationshipEdited counts a parent edit. Outcome is "applied" or the
// rejection kind ("self_reference", "cycle", "temporal", "not_found").
func (m *WorkflowMetrics) RelationshipEdited(outcome string) {
	m.relationships.WithLabelValues(outcome).Inc()
}

// NotificationFailed counts a failed delivery.
func (m *WorkflowMetrics) NotificationFailed(kind string) {
	m.notifyFails.WithLabelValues(kind).Inc()
}
