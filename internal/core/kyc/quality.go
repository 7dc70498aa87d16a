package kyc

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

type QualityAssessor struct {
	rules *rules.Rules
	now   func() time.Time
}

// NewQualityAssessor builds an assessor reading the current date from now.
// A nil clock means time.Now.
func NewQualityAssessor(r *rules.Rules, now func() time.Time) *QualityAssessor {
	if now == nil {
		now = time.Now
	}
	return &QualityAssessor{rules: r, now: now}
}

// Assess deducts from a 100-point baseline. Issues keep detection order:
// text length, classification, required fields, then dates.
func (a *QualityAssessor) Assess(text string, classification domain.ClassificationResult, fields domain.ExtractedFields) domain.QualityAssessment {
	th := a.rules.Thresholds()
	ded := a.rules.Deductions()

	score := 100.0
	issues := make([]domain.Issue, 0)
	add := func(issue domain.Issue, deduction float64) {
		issues = append(issues, issue)
		score -= deduction
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < th.MinTextLength {
		add(domain.Issue{
			Code:    domain.IssueTextTooShort,
			Message: "document appears incomplete or unreadable",
		}, ded.ShortText)
	}

	if classification.ConfidenceScore < th.ConfidenceThreshold {
		add(domain.Issue{
			Code:    domain.IssueLowConfidence,
			Message: "document type uncertain - possible quality issue",
		}, ded.LowConfidence)
	}

	for _, field := range a.rules.RequiredFields(classification.DocumentType) {
		if _, ok := fields.Get(field); ok {
			continue
		}
		add(domain.Issue{
			Code:    domain.IssueMissingField,
			Field:   field,
			Message: fmt.Sprintf("required field %s is missing", field),
		}, ded.MissingField)
	}

	for _, dc := range a.checkDates(classification.DocumentType, fields) {
		add(dc.issue, dc.deduction)
	}

	score = clampScore(score)
	return domain.QualityAssessment{
		QualityScore: score,
		Issues:       issues,
		IsReadable:   score > th.ReadabilityThreshold,
	}
}

type dateFinding struct {
	issue     domain.Issue
	deduction float64
}

// checkDates visits date fields in name order so the result does not depend
// on map iteration.
func (a *QualityAssessor) checkDates(docType domain.DocumentType, fields domain.ExtractedFields) []dateFinding {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if a.rules.IsDateField(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	today := truncateToDay(a.now())
	ded := a.rules.Deductions()

	var findings []dateFinding
	for _, name := range names {
		raw := fields[name]
		parsed, ok := ParseDate(raw)
		if !ok {
			findings = append(findings, dateFinding{
				issue: domain.Issue{
					Code:    domain.IssueInvalidDate,
					Field:   name,
					Message: fmt.Sprintf("%s %q could not be parsed as a date", name, raw),
				},
				deduction: ded.InvalidDate,
			})
			continue
		}

		if reason, implausible := a.implausible(name, parsed, today); implausible {
			findings = append(findings, dateFinding{
				issue: domain.Issue{
					Code:    domain.IssueImplausibleDate,
					Field:   name,
					Message: fmt.Sprintf("%s %s is implausible: %s", name, parsed.Format(domain.DateLayout), reason),
				},
				deduction: ded.ImplausibleDate,
			})
			continue
		}

		if name == domain.FieldExpiryDate && parsed.Before(today) {
			findings = append(findings, dateFinding{
				issue: domain.Issue{
					Code:    domain.IssueExpired,
					Field:   name,
					Message: fmt.Sprintf("document expired on %s", parsed.Format(domain.DateLayout)),
				},
				deduction: ded.Expired,
			})
			continue
		}

		for _, w := range a.rules.RecencyWindows(docType) {
			if w.Field != name {
				continue
			}
			if parsed.Before(today.AddDate(0, 0, -w.MaxAgeDays)) {
				findings = append(findings, dateFinding{
					issue: domain.Issue{
						Code:    domain.IssueStale,
						Field:   name,
						Message: fmt.Sprintf("document is stale: %s %s is older than %d days", name, parsed.Format(domain.DateLayout), w.MaxAgeDays),
					},
					deduction: ded.Stale,
				})
				break
			}
		}
	}
	return findings
}

func (a *QualityAssessor) implausible(field string, d, today time.Time) (string, bool) {
	switch field {
	case domain.FieldDateOfBirth:
		if d.After(today) {
			return "date of birth is in the future", true
		}
		maxAge := a.rules.Thresholds().MaxAgeYears
		if d.Before(today.AddDate(-maxAge, 0, 0)) {
			return fmt.Sprintf("date of birth is more than %d years ago", maxAge), true
		}
	case domain.FieldExpiryDate:
		// Expiry dates are expected to lie in the future.
	default:
		if d.After(today) {
			return "date is in the future", true
		}
	}
	return "", false
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
