package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/v1/documents/abc":          "/v1/documents/{document_id}",
		"/v1/clients/ACME/documents": "/v1/clients/{client_id}/documents",
		"/v1/clients/ACME/report":    "/v1/clients/{client_id}/report",
		"/v1/clients/ACME":           "/v1/clients/{client_id}",
		"/v1/validate":               "/v1/validate",
		"/healthz":                   "/healthz",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestObserveVerdictCountsTypeAndIssues(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.ObserveVerdict(domain.DocumentVerdict{
		Document:       domain.RawDocumentRef{ExtractionMethod: domain.ExtractionOCR},
		Classification: domain.ClassificationResult{DocumentType: domain.DocTypeUtilityBill},
		Quality: domain.QualityAssessment{
			QualityScore: 85,
			Issues:       []domain.Issue{{Code: domain.IssueStale}},
		},
		Status: domain.VerdictNeedsReview,
	})

	got := testutil.ToFloat64(m.verdictsTotal.WithLabelValues("worker", "utility_bill", "needs_review", "ocr"))
	if got != 1 {
		t.Fatalf("verdicts_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.issuesTotal.WithLabelValues("worker", "stale")); got != 1 {
		t.Fatalf("issues_total = %v, want 1", got)
	}
}

func TestObserveBreakerState(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveBreakerState("nats.publish", "open")
	if got := testutil.ToFloat64(m.breakerStateGauge.WithLabelValues("api", "nats.publish")); got != 2 {
		t.Fatalf("breaker_state = %v, want 2", got)
	}
	m.ObserveBreakerState("nats.publish", "closed")
	if got := testutil.ToFloat64(m.breakerStateGauge.WithLabelValues("api", "nats.publish")); got != 0 {
		t.Fatalf("breaker_state = %v, want 0", got)
	}
}

func TestFinishDocumentClassifiesErrors(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartDocument()
	m.FinishDocument("worker", time.Millisecond, domain.WrapError(domain.ErrTemporary, "nats", errors.New("down")))
	m.StartDocument()
	m.FinishDocument("worker", time.Millisecond, nil)

	if got := testutil.ToFloat64(m.processTotal.WithLabelValues("worker", "temporary")); got != 1 {
		t.Fatalf("temporary = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.processTotal.WithLabelValues("worker", "success")); got != 1 {
		t.Fatalf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.processInFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
}

func TestObserveOCRFallbackAndQueueLag(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.ObserveOCRFallback("thin_text")
	m.ObserveOCRFallback("thin_text")
	m.ObserveOCRFallback("invalid_pdf")
	m.ObserveQueueLag("worker", -time.Second)

	if got := testutil.ToFloat64(m.ocrFallbacks.WithLabelValues("worker", "thin_text")); got != 2 {
		t.Fatalf("thin_text = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ocrFallbacks.WithLabelValues("worker", "invalid_pdf")); got != 1 {
		t.Fatalf("invalid_pdf = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.queueLag); got != 0 {
		t.Fatalf("negative lag must be dropped, got %d series", got)
	}
}

func TestMiddlewareExposesRequestMetrics(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	h := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/clients/ACME/documents", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	want := `kyc_http_requests_total{method="POST",path="/v1/clients/{client_id}/documents",service="api",status="202"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics output missing %q:\n%s", want, body)
	}
}
