package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSubmissionMetricsObserve(t *testing.T) {
	m := NewSubmissionMetrics(prometheus.NewRegistry())
	m.ObserveSubmission("success")
	m.ObserveValidationFailure("required")
	m.ObserveValidationFailure("")
	m.ObserveNotification("admin_email", "sent")
	m.ObserveSubmitDuration(0.5)
}

func TestSubmissionMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSubmissionMetrics(reg)
	m.ObserveSubmission("rejected")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families registered")
	}
}

func TestSubmissionMetricsNilSafe(t *testing.T) {
	var m *SubmissionMetrics
	m.ObserveSubmission("success")
	m.ObserveValidationFailure("required")
	m.ObserveNotification("user_email", "failed")
	m.ObserveSubmitDuration(0.1)
}
