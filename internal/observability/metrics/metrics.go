package metrics

import "github.com/prometheus/client_golang/prometheus"

// SubmissionMetrics exposes counters/histograms for the submission pipeline.
type SubmissionMetrics struct {
	submissionsTotal   *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	submitDuration     prometheus.Histogram
}

func NewSubmissionMetrics(reg prometheus.Registerer) *SubmissionMetrics {
	m := &SubmissionMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepform",
			Subsystem: "submissions",
			Name:      "total",
			Help:      "Total form submissions by outcome",
		}, []string{"outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepform",
			Subsystem: "submissions",
			Name:      "validation_failures_total",
			Help:      "Total validation rejections by reason",
		}, []string{"reason"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepform",
			Subsystem: "notifications",
			Name:      "total",
			Help:      "Total notification emails by kind and status",
		}, []string{"kind", "status"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stepform",
			Subsystem: "submissions",
			Name:      "submit_duration_seconds",
			Help:      "End-to-end latency of submission processing",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.validationFailures, m.notificationsTotal, m.submitDuration)
	return m
}

func (m *SubmissionMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *SubmissionMetrics) ObserveValidationFailure(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "other"
	}
	m.validationFailures.WithLabelValues(reason).Inc()
}

func (m *SubmissionMetrics) ObserveNotification(kind, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, status).Inc()
}

func (m *SubmissionMetrics) ObserveSubmitDuration(seconds float64) {
	if m == nil {
		return
	}
	m.submitDuration.Observe(seconds)
}
