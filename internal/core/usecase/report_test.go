package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/kyc"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

type reportWriterFake struct {
	verdicts   []domain.DocumentVerdict
	compliance []domain.ComplianceVerdict
	summary    domain.BatchSummary
	err        error
}

func (f *reportWriterFake) Write(w io.Writer, verdicts []domain.DocumentVerdict, compliance []domain.ComplianceVerdict, summary domain.BatchSummary) error {
	if f.err != nil {
		return f.err
	}
	f.verdicts = verdicts
	f.compliance = compliance
	f.summary = summary
	_, err := w.Write([]byte("report"))
	return err
}

func TestExportClientWritesReport(t *testing.T) {
	repo := &docRepoFake{clientDocs: []domain.Document{
		processedDoc("p", domain.DocTypePassport, domain.VerdictValid),
	}}
	writer := &reportWriterFake{}
	uc := NewReportUseCase(repo, kyc.NewComplianceEngine(rules.MustDefault()), writer)

	var buf bytes.Buffer
	if err := uc.ExportClient(context.Background(), "ACME", domain.ClientIndividual, &buf); err != nil {
		t.Fatalf("ExportClient() error = %v", err)
	}
	if buf.String() != "report" {
		t.Fatalf("expected writer output, got %q", buf.String())
	}
	if len(writer.verdicts) != 1 || len(writer.compliance) != 1 {
		t.Fatalf("unexpected writer input: %d verdicts, %d compliance", len(writer.verdicts), len(writer.compliance))
	}
	if writer.compliance[0].OverallStatus != domain.ComplianceNonCompliant {
		t.Fatalf("overall = %s, want non_compliant", writer.compliance[0].OverallStatus)
	}
	if writer.summary.ComplianceRate != 50 {
		t.Fatalf("compliance rate = %v, want 50", writer.summary.ComplianceRate)
	}
}

func TestExportClientPropagatesWriterError(t *testing.T) {
	repo := &docRepoFake{}
	uc := NewReportUseCase(repo, kyc.NewComplianceEngine(rules.MustDefault()), &reportWriterFake{err: errors.New("disk full")})

	if err := uc.ExportClient(context.Background(), "ACME", domain.ClientBusiness, io.Discard); err == nil {
		t.Fatalf("expected writer error")
	}
}
