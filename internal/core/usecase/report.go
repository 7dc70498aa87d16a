package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/kyc"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
)

// ReportUseCase renders a client's stored verdicts and a fresh compliance
// result without persisting anything.
type ReportUseCase struct {
	docs   ports.DocumentRepository
	engine ports.ComplianceEngine
	writer ports.ReportWriter
	now    func() time.Time
}

func NewReportUseCase(docs ports.DocumentRepository, engine ports.ComplianceEngine, writer ports.ReportWriter) *ReportUseCase {
	return &ReportUseCase{
		docs:   docs,
		engine: engine,
		writer: writer,
		now:    time.Now,
	}
}

func (uc *ReportUseCase) ExportClient(ctx context.Context, clientID string, clientType domain.ClientType, w io.Writer) error {
	verdicts, err := loadClientVerdicts(ctx, uc.docs, clientID, clientType)
	if err != nil {
		return err
	}

	compliance, err := uc.engine.Check(profileFor(clientID, clientType, verdicts), verdicts)
	if err != nil {
		return fmt.Errorf("check compliance: %w", err)
	}

	summary := kyc.Summarize(verdicts, []domain.ComplianceVerdict{compliance}, uc.now())
	if err := uc.writer.Write(w, verdicts, []domain.ComplianceVerdict{compliance}, summary); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
