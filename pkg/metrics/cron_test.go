package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	m.ObserveRun("cart-expiry", 250*time.Millisecond, nil)
	m.ObserveRun("cart-expiry", 100*time.Millisecond, errors.New("db down"))
	m.ObserveRun("cart-expiry", 50*time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	success, err := counterValue(mfs, "bookstore_cron_job_runs_total", map[string]string{"job": "cart-expiry", "result": "success"})
	if err != nil || success != 2 {
		t.Fatalf("expected 2 successes, got %f (%v)", success, err)
	}
	failure, err := counterValue(mfs, "bookstore_cron_job_runs_total", map[string]string{"job": "cart-expiry", "result": "failure"})
	if err != nil || failure != 1 {
		t.Fatalf("expected 1 failure, got %f (%v)", failure, err)
	}

	mf := findMetricFamily(mfs, "bookstore_cron_job_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
		t.Fatalf("expected 3 duration samples")
	}

	gauge := findMetricFamily(mfs, "bookstore_cron_job_last_success_timestamp_seconds")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 1_700_000_000 {
		t.Fatalf("expected last success timestamp to be set")
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("job", time.Second, nil)
	NewCronJobMetrics(nil).ObserveRun("", time.Second, errors.New("boom"))
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	return counterValue(mfs, name, map[string]string{label: value})
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q has no series for %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok {
			if v != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
