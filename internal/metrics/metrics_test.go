package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は名前とラベルが一致するメトリクスを返す。見つからない場合はnil。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	if c := NewCollector(prometheus.NewRegistry()); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordSwipe_CountsByModeAndDecision はスワイプがモードと判定ごとに数えられることを検証する。
func TestRecordSwipe_CountsByModeAndDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSwipe("archive", "like")
	c.RecordSwipe("archive", "like")
	c.RecordSwipe("recent", "pass")

	m := findMetric(t, reg, "fundswap_swipes_total", map[string]string{"mode": "archive", "decision": "like"})
	if m == nil {
		t.Fatal("fundswap_swipes_total{archive,like} not found")
	}
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("archive/like = %v, want 2", v)
	}

	m = findMetric(t, reg, "fundswap_swipes_total", map[string]string{"mode": "recent", "decision": "pass"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Error("expected recent/pass = 1")
	}
}

func TestRecordMatchCreated_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMatchCreated("recent")

	m := findMetric(t, reg, "fundswap_matches_created_total", map[string]string{"mode": "recent"})
	if m == nil {
		t.Fatal("fundswap_matches_created_total not found")
	}
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("matches_created = %v, want 1", v)
	}
}

// TestRecordFeedServed_SetsSizeGauge はフィード件数が最後の値で上書きされることを検証する。
func TestRecordFeedServed_SetsSizeGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFeedServed("archive", 120)
	c.RecordFeedServed("archive", 80)

	served := findMetric(t, reg, "fundswap_feed_served_total", map[string]string{"mode": "archive"})
	if served == nil || served.GetCounter().GetValue() != 2 {
		t.Errorf("feed_served_total = %v, want 2", served)
	}
	size := findMetric(t, reg, "fundswap_feed_size", map[string]string{"mode": "archive"})
	if size == nil || size.GetGauge().GetValue() != 80 {
		t.Errorf("feed_size = %v, want 80", size)
	}
}

func TestRecordDatasetLoaded_RecordsSizeAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDatasetLoaded("archive", 1500, 250*time.Millisecond)

	size := findMetric(t, reg, "fundswap_dataset_records", map[string]string{"mode": "archive"})
	if size == nil || size.GetGauge().GetValue() != 1500 {
		t.Errorf("dataset_records = %v, want 1500", size)
	}
	load := findMetric(t, reg, "fundswap_dataset_load_seconds", map[string]string{"mode": "archive"})
	if load == nil {
		t.Fatal("fundswap_dataset_load_seconds not found")
	}
	if n := load.GetHistogram().GetSampleCount(); n != 1 {
		t.Errorf("sample_count = %d, want 1", n)
	}
	if s := load.GetHistogram().GetSampleSum(); s < 0.24 || s > 0.26 {
		t.Errorf("sample_sum = %v, want ~0.25", s)
	}
}

func TestRecordDatasetLoadFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDatasetLoadFailure("recent")

	m := findMetric(t, reg, "fundswap_dataset_load_fail_total", map[string]string{"mode": "recent"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("dataset_load_fail_total = %v, want 1", m)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はステータスコード別にカウントされることを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	ok := findMetric(t, reg, "fundswap_http_status_total", map[string]string{"status_code": "200"})
	if ok == nil || ok.GetCounter().GetValue() != 2 {
		t.Errorf("status 200 = %v, want 2", ok)
	}
	notFound := findMetric(t, reg, "fundswap_http_status_total", map[string]string{"status_code": "404"})
	if notFound == nil || notFound.GetCounter().GetValue() != 1 {
		t.Errorf("status 404 = %v, want 1", notFound)
	}
}

func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(30 * time.Millisecond)

	m := findMetric(t, reg, "fundswap_http_request_duration_seconds", nil)
	if m == nil {
		t.Fatal("fundswap_http_request_duration_seconds not found")
	}
	if n := m.GetHistogram().GetSampleCount(); n != 1 {
		t.Errorf("sample_count = %d, want 1", n)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSwipe("archive", "like")
	c.RecordMatchCreated("archive")
	c.RecordHTTPStatus(200)
	c.RecordRequestLatency(5 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, metric := range []string{
		"fundswap_swipes_total",
		"fundswap_matches_created_total",
		"fundswap_http_status_total",
		"fundswap_http_request_duration_seconds",
	} {
		if !strings.Contains(string(body), metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	var _ MetricsCollector = NewCollector(prometheus.NewRegistry())
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordMatchCreated("archive")
	c2.RecordMatchCreated("archive")
	c2.RecordMatchCreated("archive")

	m1 := findMetric(t, reg1, "fundswap_matches_created_total", nil)
	m2 := findMetric(t, reg2, "fundswap_matches_created_total", nil)
	if m1 == nil || m1.GetCounter().GetValue() != 1 {
		t.Errorf("reg1 matches = %v, want 1", m1)
	}
	if m2 == nil || m2.GetCounter().GetValue() != 2 {
		t.Errorf("reg2 matches = %v, want 2", m2)
	}
}
