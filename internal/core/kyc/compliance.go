package kyc

import (
	"fmt"
	"strings"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

// crossCheckedFields are compared pairwise across a client's documents.
var crossCheckedFields = []string{domain.FieldName, domain.FieldAddress}

type ComplianceEngine struct {
	rules *rules.Rules
}

func NewComplianceEngine(r *rules.Rules) *ComplianceEngine {
	return &ComplianceEngine{rules: r}
}

// Check aggregates a client's verdicts. It must be called with every verdict
// of the client; only valid and needs_review verdicts satisfy a requirement.
func (e *ComplianceEngine) Check(profile domain.ClientProfile, verdicts []domain.DocumentVerdict) (domain.ComplianceVerdict, error) {
	required, ok := e.rules.RequiredDocuments(profile.ClientType)
	if !ok {
		return domain.ComplianceVerdict{}, domain.WrapError(
			domain.ErrInvalidInput, "check compliance",
			fmt.Errorf("unsupported client type %q", profile.ClientType),
		)
	}

	submitted := submittedTypes(verdicts)
	missing := difference(required, submitted)
	crossIssues := crossDocumentIssues(verdicts)

	return domain.ComplianceVerdict{
		ClientID:            profile.ClientID,
		ClientType:          profile.ClientType,
		Required:            append([]domain.DocumentType(nil), required...),
		Submitted:           submitted,
		Missing:             missing,
		CrossDocumentIssues: crossIssues,
		RiskLevel:           riskLevel(missing, crossIssues, verdicts),
		OverallStatus:       overallStatus(missing, crossIssues, verdicts),
	}, nil
}

func submittedTypes(verdicts []domain.DocumentVerdict) []domain.DocumentType {
	types := make([]domain.DocumentType, 0, len(verdicts))
	for _, v := range verdicts {
		if v.CountsAsSubmitted() {
			types = append(types, v.Classification.DocumentType)
		}
	}
	return domain.SortDocumentTypes(types)
}

func difference(required, submitted []domain.DocumentType) []domain.DocumentType {
	have := make(map[domain.DocumentType]struct{}, len(submitted))
	for _, t := range submitted {
		have[t] = struct{}{}
	}
	missing := make([]domain.DocumentType, 0)
	for _, t := range required {
		if _, ok := have[t]; !ok {
			missing = append(missing, t)
		}
	}
	return domain.SortDocumentTypes(missing)
}

func crossDocumentIssues(verdicts []domain.DocumentVerdict) []string {
	issues := make([]string, 0)
	for _, field := range crossCheckedFields {
		for i := 0; i < len(verdicts); i++ {
			left, ok := verdicts[i].Fields.Get(field)
			if !ok {
				continue
			}
			for j := i + 1; j < len(verdicts); j++ {
				right, ok := verdicts[j].Fields.Get(field)
				if !ok {
					continue
				}
				if normalizeForComparison(left) == normalizeForComparison(right) {
					continue
				}
				issues = append(issues, fmt.Sprintf(
					"%s mismatch between %s and %s: %q vs %q",
					field,
					verdicts[i].Classification.DocumentType,
					verdicts[j].Classification.DocumentType,
					left, right,
				))
			}
		}
	}
	return issues
}

func normalizeForComparison(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

func riskLevel(missing []domain.DocumentType, crossIssues []string, verdicts []domain.DocumentVerdict) domain.RiskLevel {
	switch {
	case len(missing) > 0 || anyStatus(verdicts, domain.VerdictRejected):
		return domain.RiskHigh
	case len(crossIssues) > 0:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func overallStatus(missing []domain.DocumentType, crossIssues []string, verdicts []domain.DocumentVerdict) domain.ComplianceStatus {
	switch {
	case len(missing) > 0:
		return domain.ComplianceNonCompliant
	case len(crossIssues) > 0 || anyStatus(verdicts, domain.VerdictNeedsReview):
		return domain.ComplianceIncomplete
	default:
		return domain.ComplianceCompliant
	}
}

func anyStatus(verdicts []domain.DocumentVerdict, status domain.VerdictStatus) bool {
	for _, v := range verdicts {
		if v.Status == status {
			return true
		}
	}
	return false
}
