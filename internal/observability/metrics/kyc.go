package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

const namespace = "kyc"

// kycCollectors are shared by the api and worker registries. They satisfy
// ports.VerdictObserver and resilience.Observer.
type kycCollectors struct {
	service string

	verdictsTotal     *prometheus.CounterVec
	qualityScore      *prometheus.HistogramVec
	issuesTotal       *prometheus.CounterVec
	complianceTotal   *prometheus.CounterVec
	retriesTotal      *prometheus.CounterVec
	breakerStateGauge *prometheus.GaugeVec
}

func newKYCCollectors(registry *prometheus.Registry, service string) *kycCollectors {
	c := &kycCollectors{
		service: service,
		verdictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "verdicts_total",
				Help:      "Document verdicts by detected type and status.",
			},
			[]string{"service", "document_type", "status", "extraction_method"},
		),
		qualityScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "quality_score",
				Help:      "Distribution of document quality scores.",
				Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"service", "document_type"},
		),
		issuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "issues_total",
				Help:      "Quality issues raised, by issue code.",
			},
			[]string{"service", "code"},
		),
		complianceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "compliance",
				Name:      "checks_total",
				Help:      "Client compliance checks by outcome.",
			},
			[]string{"service", "client_type", "overall_status", "risk_level"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "retries_total",
				Help:      "Retried calls to external dependencies.",
			},
			[]string{"service", "operation"},
		),
		breakerStateGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"service", "operation"},
		),
	}
	registry.MustRegister(
		c.verdictsTotal,
		c.qualityScore,
		c.issuesTotal,
		c.complianceTotal,
		c.retriesTotal,
		c.breakerStateGauge,
	)
	return c
}

func (c *kycCollectors) ObserveVerdict(verdict domain.DocumentVerdict) {
	docType := string(verdict.Classification.DocumentType)
	method := string(verdict.Document.ExtractionMethod)
	if method == "" {
		method = "unknown"
	}
	c.verdictsTotal.WithLabelValues(c.service, docType, string(verdict.Status), method).Inc()
	c.qualityScore.WithLabelValues(c.service, docType).Observe(verdict.Quality.QualityScore)
	for _, issue := range verdict.Quality.Issues {
		c.issuesTotal.WithLabelValues(c.service, string(issue.Code)).Inc()
	}
}

func (c *kycCollectors) ObserveCompliance(verdict domain.ComplianceVerdict) {
	c.complianceTotal.WithLabelValues(
		c.service,
		string(verdict.ClientType),
		string(verdict.OverallStatus),
		string(verdict.RiskLevel),
	).Inc()
}

func (c *kycCollectors) ObserveRetry(operation string, _ int) {
	c.retriesTotal.WithLabelValues(c.service, operation).Inc()
}

func (c *kycCollectors) ObserveBreakerState(operation string, state string) {
	value := 0.0
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	c.breakerStateGauge.WithLabelValues(c.service, operation).Set(value)
}
