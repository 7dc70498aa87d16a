package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

const batchPassportText = `PASSPORT
Full Name: John Smith
Passport No: X12345678
Nationality: British
Date of Birth: 1985-04-12
Place of Birth: London`

func TestValidateBatchStrictOverride(t *testing.T) {
	uc := NewBatchUseCase(rules.MustDefault(), 2, 10)
	docs := []domain.RawDocument{{ID: "p", Filename: "passport.txt", Text: batchPassportText}}

	strict, err := uc.ValidateBatch(context.Background(), ports.BatchRequest{
		ClientID:   "ACME",
		ClientType: domain.ClientIndividual,
		Documents:  docs,
	})
	if err != nil {
		t.Fatalf("ValidateBatch() error = %v", err)
	}
	if strict.Verdicts[0].Status != domain.VerdictNeedsReview {
		t.Fatalf("strict status = %s, want needs_review (issues: %v)", strict.Verdicts[0].Status, strict.Verdicts[0].Quality.Issues)
	}

	lenientMode := false
	lenient, err := uc.ValidateBatch(context.Background(), ports.BatchRequest{
		ClientID:   "ACME",
		ClientType: domain.ClientIndividual,
		StrictMode: &lenientMode,
		Documents:  docs,
	})
	if err != nil {
		t.Fatalf("ValidateBatch() error = %v", err)
	}
	if lenient.Verdicts[0].Status != domain.VerdictValid {
		t.Fatalf("lenient status = %s, want valid (issues: %v)", lenient.Verdicts[0].Status, lenient.Verdicts[0].Quality.Issues)
	}
	if lenient.Verdicts[0].Document.ClientID != "ACME" || lenient.Verdicts[0].Document.ExtractionMethod != domain.ExtractionNative {
		t.Fatalf("unexpected document ref: %+v", lenient.Verdicts[0].Document)
	}
	if lenient.Compliance.OverallStatus != domain.ComplianceNonCompliant {
		t.Fatalf("overall = %s, want non_compliant", lenient.Compliance.OverallStatus)
	}
}

func TestValidateBatchRejectsBadRequests(t *testing.T) {
	uc := NewBatchUseCase(rules.MustDefault(), 2, 2)
	one := []domain.RawDocument{{Text: "x"}}

	tests := []struct {
		name string
		req  ports.BatchRequest
	}{
		{"missing client id", ports.BatchRequest{ClientType: domain.ClientIndividual, Documents: one}},
		{"unknown client type", ports.BatchRequest{ClientID: "A", ClientType: "trust", Documents: one}},
		{"no documents", ports.BatchRequest{ClientID: "A", ClientType: domain.ClientIndividual}},
		{"too many documents", ports.BatchRequest{ClientID: "A", ClientType: domain.ClientIndividual, Documents: make([]domain.RawDocument, 3)}},
		{"bad extraction method", ports.BatchRequest{ClientID: "A", ClientType: domain.ClientIndividual, Documents: []domain.RawDocument{{ExtractionMethod: "scan"}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := uc.ValidateBatch(context.Background(), tc.req); !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestValidateBatchAssignsIDs(t *testing.T) {
	uc := NewBatchUseCase(rules.MustDefault(), 1, 0)

	res, err := uc.ValidateBatch(context.Background(), ports.BatchRequest{
		ClientID:   "ACME",
		ClientType: domain.ClientBusiness,
		Documents:  []domain.RawDocument{{Filename: "empty.txt"}},
	})
	if err != nil {
		t.Fatalf("ValidateBatch() error = %v", err)
	}
	if res.Verdicts[0].Document.ID == "" {
		t.Fatalf("expected generated document id")
	}
	if res.Verdicts[0].Status != domain.VerdictRejected {
		t.Fatalf("empty document should be rejected, got %s", res.Verdicts[0].Status)
	}
	if res.Summary.TotalDocuments != 1 || res.Summary.ProcessedSuccessfully != 0 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
}

func TestValidateBatchNotifiesObserver(t *testing.T) {
	observer := &observerFake{}
	uc := NewBatchUseCase(rules.MustDefault(), 2, 10).WithObserver(observer)

	_, err := uc.ValidateBatch(context.Background(), ports.BatchRequest{
		ClientID:   "ACME",
		ClientType: domain.ClientIndividual,
		Documents: []domain.RawDocument{
			{Filename: "a.txt", Text: batchPassportText},
			{Filename: "b.txt", Text: ""},
		},
	})
	if err != nil {
		t.Fatalf("ValidateBatch() error = %v", err)
	}
	if len(observer.verdicts) != 2 || len(observer.compliance) != 1 {
		t.Fatalf("observed %d verdicts and %d compliance results", len(observer.verdicts), len(observer.compliance))
	}
	if observer.compliance[0].ClientID != "ACME" {
		t.Fatalf("unexpected compliance client %q", observer.compliance[0].ClientID)
	}
}
