package audit

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts decisions by operation, resource, role and outcome.
type MetricsSink struct {
	decisions *prometheus.CounterVec
}

func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	decisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_access_decisions_total",
			Help: "Access decisions taken by the visibility engine.",
		},
		[]string{"operation", "resource", "role", "granted"},
	)
	if err := reg.Register(decisions); err != nil {
		return nil, err
	}
	return &MetricsSink{decisions: decisions}, nil
}

func (s *MetricsSink) Record(_ context.Context, d Decision) {
	role := d.Role.String()
	// unknown roles come from token claims; keep label cardinality bounded
	if !d.Role.IsKnown() {
		role = "UNKNOWN"
	}
	s.decisions.WithLabelValues(d.Operation, d.Resource, role, strconv.FormatBool(d.Granted)).Inc()
}
