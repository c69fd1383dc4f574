package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandler_ServesRecordedMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRequest(http.MethodGet, "/api/tasks", http.StatusOK, 5*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "checklist_http_requests_total") {
		t.Error("response should contain checklist_http_requests_total")
	}
	if !strings.Contains(bodyStr, "checklist_http_request_duration_seconds") {
		t.Error("response should contain checklist_http_request_duration_seconds")
	}
}

func TestRecordRequest_CountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest(http.MethodPost, "/api/tasks", http.StatusCreated, time.Millisecond)
	c.RecordRequest(http.MethodPost, "/api/tasks", http.StatusCreated, time.Millisecond)
	c.RecordRequest(http.MethodPost, "/api/tasks", http.StatusBadRequest, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, fam := range families {
		if fam.GetName() != "checklist_http_requests_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == "201" {
					found = true
					if got := m.GetCounter().GetValue(); got != 2 {
						t.Errorf("201 counter = %v, want 2", got)
					}
				}
			}
		}
	}
	if !found {
		t.Error("no counter series recorded for status 201")
	}
}
