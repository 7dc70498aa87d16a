// Package kyc holds the document validation pipeline: classification, field
// extraction, quality assessment, per-document verdicts and client compliance.
// Every stage is a pure function of its input and the injected rule set.
package kyc

import (
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

type Classifier struct {
	rules *rules.Rules
}

func NewClassifier(r *rules.Rules) *Classifier {
	return &Classifier{rules: r}
}

// Classify scores every known type by the share of its keywords present in
// text. The earliest declared type wins ties. A best score under the
// confidence threshold yields unknown while keeping the score.
func (c *Classifier) Classify(text string) domain.ClassificationResult {
	lowered := strings.ToLower(text)

	best := domain.ClassificationResult{
		DocumentType:    domain.DocTypeUnknown,
		MatchedKeywords: []string{},
	}
	if strings.TrimSpace(lowered) == "" {
		return best
	}

	for _, docType := range domain.KnownDocumentTypes() {
		keywords := c.rules.Keywords(docType)
		if len(keywords) == 0 {
			continue
		}
		matched := matchKeywords(lowered, keywords)
		confidence := clampScore(float64(len(matched)) / float64(len(keywords)) * 100)
		if confidence > best.ConfidenceScore {
			best = domain.ClassificationResult{
				DocumentType:    docType,
				ConfidenceScore: confidence,
				MatchedKeywords: matched,
			}
		}
	}

	if best.ConfidenceScore < c.rules.Thresholds().ConfidenceThreshold {
		best.DocumentType = domain.DocTypeUnknown
	}
	return best
}

func matchKeywords(lowered string, keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	matched := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	sort.Strings(matched)
	return matched
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return math.Round(v*100) / 100
}
