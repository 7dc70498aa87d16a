package kyc

import (
	"strings"
	"testing"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

func assessText(t *testing.T, r *rules.Rules, text string) (domain.ClassificationResult, domain.QualityAssessment) {
	t.Helper()
	c := NewClassifier(r).Classify(text)
	fields := NewFieldExtractor(r).Extract(c.DocumentType, text)
	return c, NewQualityAssessor(r, fixedNow).Assess(text, c, fields)
}

func TestAssessCleanPassport(t *testing.T) {
	_, q := assessText(t, rules.MustDefault(), passportText)

	if q.QualityScore != 100 {
		t.Fatalf("score = %v, want 100 (issues: %v)", q.QualityScore, q.Issues)
	}
	if len(q.Issues) != 0 || !q.IsReadable {
		t.Fatalf("unexpected assessment: %+v", q)
	}
}

func TestAssessStaleUtilityBill(t *testing.T) {
	_, q := assessText(t, rules.MustDefault(), staleUtilityBillText)

	if !hasIssue(q.Issues, domain.IssueStale, domain.FieldServiceDate) {
		t.Fatalf("expected stale service_date issue, got %v", q.Issues)
	}
	var msg string
	for _, issue := range q.Issues {
		if issue.Code == domain.IssueStale {
			msg = issue.Message
		}
	}
	if !strings.Contains(msg, "stale") {
		t.Fatalf("stale issue message should mention staleness: %q", msg)
	}
	if q.QualityScore != 85 {
		t.Fatalf("score = %v, want 85", q.QualityScore)
	}
}

func TestAssessIssueOrder(t *testing.T) {
	r := rules.MustDefault()
	text := "Passport\nDate of Birth: 31/31/1990"
	c := NewClassifier(r).Classify(text)
	fields := NewFieldExtractor(r).Extract(domain.DocTypePassport, text)
	c.DocumentType = domain.DocTypePassport

	q := NewQualityAssessor(r, fixedNow).Assess(text, c, fields)

	var codes []string
	for _, issue := range q.Issues {
		codes = append(codes, string(issue.Code))
	}
	want := []string{
		string(domain.IssueTextTooShort),
		string(domain.IssueMissingField), // name
		string(domain.IssueMissingField), // document_number
		string(domain.IssueMissingField), // expiry_date
		string(domain.IssueInvalidDate),
	}
	if strings.Join(codes, ",") != strings.Join(want, ",") {
		t.Fatalf("issue codes = %v, want %v", codes, want)
	}
	if q.Issues[1].Field != domain.FieldName || q.Issues[3].Field != domain.FieldExpiryDate {
		t.Fatalf("missing fields out of order: %v", q.Issues)
	}
}

func TestAssessDateChecks(t *testing.T) {
	r := rules.MustDefault()
	a := NewQualityAssessor(r, fixedNow)
	passport := domain.ClassificationResult{DocumentType: domain.DocTypePassport, ConfidenceScore: 100}
	base := func(overrides map[string]string) domain.ExtractedFields {
		f := domain.ExtractedFields{
			domain.FieldName:           "John Smith",
			domain.FieldDocumentNumber: "X12345678",
			domain.FieldDateOfBirth:    "1985-04-12",
			domain.FieldExpiryDate:     "2030-01-15",
		}
		for k, v := range overrides {
			f[k] = v
		}
		return f
	}
	longText := strings.Repeat("passport text ", 10)

	tests := []struct {
		name  string
		field string
		value string
		code  domain.IssueCode
	}{
		{"expired", domain.FieldExpiryDate, "2020-01-01", domain.IssueExpired},
		{"birth in future", domain.FieldDateOfBirth, "2030-01-01", domain.IssueImplausibleDate},
		{"birth too old", domain.FieldDateOfBirth, "1850-01-01", domain.IssueImplausibleDate},
		{"unparsable", domain.FieldExpiryDate, "next year", domain.IssueInvalidDate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := a.Assess(longText, passport, base(map[string]string{tc.field: tc.value}))
			if !hasIssue(q.Issues, tc.code, tc.field) {
				t.Fatalf("expected %s on %s, got %v", tc.code, tc.field, q.Issues)
			}
			if len(q.Issues) != 1 {
				t.Fatalf("expected a single issue, got %v", q.Issues)
			}
		})
	}
}

func TestAssessFutureServiceDateIsImplausibleNotStale(t *testing.T) {
	r := rules.MustDefault()
	bill := domain.ClassificationResult{DocumentType: domain.DocTypeUtilityBill, ConfidenceScore: 50}
	fields := domain.ExtractedFields{
		domain.FieldName:        "John Smith",
		domain.FieldAddress:     "12 High Street",
		domain.FieldServiceDate: "2027-01-01",
	}

	q := NewQualityAssessor(r, fixedNow).Assess(staleUtilityBillText, bill, fields)
	if !hasIssue(q.Issues, domain.IssueImplausibleDate, domain.FieldServiceDate) {
		t.Fatalf("expected implausible service_date, got %v", q.Issues)
	}
	if hasIssue(q.Issues, domain.IssueStale, "") {
		t.Fatalf("future date must not be stale: %v", q.Issues)
	}
}

func TestAssessLenientModeSkipsExpiry(t *testing.T) {
	strict := rules.MustDefault()
	lenient := strict.WithStrictMode(false)
	passport := domain.ClassificationResult{DocumentType: domain.DocTypePassport, ConfidenceScore: 100}
	fields := domain.ExtractedFields{
		domain.FieldName:           "John Smith",
		domain.FieldDocumentNumber: "X12345678",
		domain.FieldDateOfBirth:    "1985-04-12",
	}
	text := strings.Repeat("passport text ", 10)

	q := NewQualityAssessor(strict, fixedNow).Assess(text, passport, fields)
	if !hasIssue(q.Issues, domain.IssueMissingField, domain.FieldExpiryDate) {
		t.Fatalf("strict mode should require expiry_date: %v", q.Issues)
	}
	q = NewQualityAssessor(lenient, fixedNow).Assess(text, passport, fields)
	if len(q.Issues) != 0 {
		t.Fatalf("lenient mode should not flag anything: %v", q.Issues)
	}
}

func TestAssessScoreIsClamped(t *testing.T) {
	r := rules.MustDefault()
	c := domain.ClassificationResult{DocumentType: domain.DocTypePassport}
	fields := domain.ExtractedFields{
		domain.FieldDateOfBirth: "bad",
		domain.FieldExpiryDate:  "2000-01-01",
	}

	q := NewQualityAssessor(r, fixedNow).Assess("", c, fields)
	if q.QualityScore != 0 {
		t.Fatalf("score = %v, want 0", q.QualityScore)
	}
	if q.IsReadable {
		t.Fatalf("score 0 must not be readable")
	}
}
