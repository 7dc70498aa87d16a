package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

func TestWriteProducesThreeSheets(t *testing.T) {
	verdicts := []domain.DocumentVerdict{{
		Document:        domain.RawDocumentRef{ID: "d1", ClientID: "ACME", Filename: "ACME_passport.pdf", ExtractionMethod: domain.ExtractionNative},
		Classification:  domain.ClassificationResult{DocumentType: domain.DocTypePassport, ConfidenceScore: 80},
		Fields:          domain.ExtractedFields{domain.FieldName: "John Smith", domain.FieldDocumentNumber: "A12345678"},
		Quality:         domain.QualityAssessment{QualityScore: 85, Issues: []domain.Issue{{Code: domain.IssueStale, Message: "document is stale"}}},
		Status:          domain.VerdictNeedsReview,
		Recommendations: []string{"Request a recent document"},
	}}
	compliance := []domain.ComplianceVerdict{{
		ClientID:      "ACME",
		ClientType:    domain.ClientIndividual,
		Required:      []domain.DocumentType{domain.DocTypePassport, domain.DocTypeUtilityBill},
		Submitted:     []domain.DocumentType{domain.DocTypePassport},
		Missing:       []domain.DocumentType{domain.DocTypeUtilityBill},
		RiskLevel:     domain.RiskHigh,
		OverallStatus: domain.ComplianceNonCompliant,
	}}
	summary := domain.BatchSummary{TotalDocuments: 1, ProcessedSuccessfully: 1, ComplianceRate: 50, GeneratedAt: time.Unix(0, 0)}

	var buf bytes.Buffer
	if err := NewWriter().Write(&buf, verdicts, compliance, summary); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	docs, err := f.GetRows(documentsSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", documentsSheet, err)
	}
	if len(docs) != 2 || docs[1][0] != "d1" || docs[1][4] != "passport" || docs[1][7] != "needs_review" {
		t.Fatalf("unexpected documents sheet: %v", docs)
	}
	if docs[1][10] != "document_number=A12345678; name=John Smith" {
		t.Fatalf("unexpected fields cell %q", docs[1][10])
	}

	checklist, err := f.GetRows(complianceSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", complianceSheet, err)
	}
	// header, two requirements, overall
	if len(checklist) != 4 {
		t.Fatalf("unexpected compliance sheet: %v", checklist)
	}
	if checklist[1][2] != "passport" || checklist[1][3] != "submitted" || checklist[2][3] != "missing" {
		t.Fatalf("unexpected checklist rows: %v", checklist)
	}
	if checklist[3][5] != "non_compliant" {
		t.Fatalf("unexpected overall row: %v", checklist[3])
	}

	summaryRows, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", summarySheet, err)
	}
	if summaryRows[3][0] != "Compliance Rate (%)" || summaryRows[3][1] != "50" {
		t.Fatalf("unexpected summary rows: %v", summaryRows)
	}
}
