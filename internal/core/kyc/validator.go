package kyc

import (
	"time"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

type statusRule struct {
	status  domain.VerdictStatus
	matches func(domain.ClassificationResult, domain.QualityAssessment, rules.Thresholds) bool
}

// statusLadder is evaluated top to bottom; the first matching rule decides.
var statusLadder = []statusRule{
	{
		status: domain.VerdictRejected,
		matches: func(c domain.ClassificationResult, q domain.QualityAssessment, th rules.Thresholds) bool {
			return q.QualityScore < th.HardFloor || c.DocumentType == domain.DocTypeUnknown
		},
	},
	{
		status: domain.VerdictNeedsReview,
		matches: func(_ domain.ClassificationResult, q domain.QualityAssessment, th rules.Thresholds) bool {
			return q.QualityScore < th.SoftFloor || len(q.Issues) > 0
		},
	},
	{
		status: domain.VerdictValid,
		matches: func(domain.ClassificationResult, domain.QualityAssessment, rules.Thresholds) bool {
			return true
		},
	},
}

type DocumentValidator struct {
	rules      *rules.Rules
	classifier *Classifier
	extractor  *FieldExtractor
	assessor   *QualityAssessor
}

func NewDocumentValidator(r *rules.Rules, now func() time.Time) *DocumentValidator {
	return &DocumentValidator{
		rules:      r,
		classifier: NewClassifier(r),
		extractor:  NewFieldExtractor(r),
		assessor:   NewQualityAssessor(r, now),
	}
}

// Rules exposes the rule set the validator was built with.
func (v *DocumentValidator) Rules() *rules.Rules {
	return v.rules
}

// Validate classifies, extracts and assesses raw. Empty or unreadable text
// yields a rejected verdict rather than an error.
func (v *DocumentValidator) Validate(raw domain.RawDocument) domain.DocumentVerdict {
	classification := v.classifier.Classify(raw.Text)
	fields := v.extractor.Extract(classification.DocumentType, raw.Text)
	quality := v.assessor.Assess(raw.Text, classification, fields)

	return domain.DocumentVerdict{
		Document:        raw.Ref(),
		Classification:  classification,
		Fields:          fields,
		Quality:         quality,
		Status:          decideStatus(classification, quality, v.rules.Thresholds()),
		Recommendations: v.recommend(quality.Issues),
	}
}

func decideStatus(c domain.ClassificationResult, q domain.QualityAssessment, th rules.Thresholds) domain.VerdictStatus {
	for _, rule := range statusLadder {
		if rule.matches(c, q, th) {
			return rule.status
		}
	}
	return domain.VerdictRejected
}

func (v *DocumentValidator) recommend(issues []domain.Issue) []string {
	out := make([]string, 0, len(issues))
	seen := make(map[domain.IssueCode]struct{}, len(issues))
	for _, issue := range issues {
		if _, dup := seen[issue.Code]; dup {
			continue
		}
		seen[issue.Code] = struct{}{}
		if text := v.rules.Recommendation(issue.Code); text != "" {
			out = append(out, text)
		}
	}
	return out
}
