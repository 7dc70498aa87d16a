package ports

import (
	"context"
	"io"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

// DocumentRepository persists document intake state and verdicts.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveVerdict(ctx context.Context, id string, verdict domain.DocumentVerdict) error
	ListByClient(ctx context.Context, clientID string) ([]domain.Document, error)
}

// ComplianceRepository stores compliance check results.
type ComplianceRepository interface {
	SaveCompliance(ctx context.Context, check *domain.ComplianceCheck) error
}

// ObjectStorage holds uploaded files until they are processed.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns a stored document into text. Unsupported or corrupt
// files fail with domain.ErrInvalidInput.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error)
}

// ReportWriter renders verdicts and compliance results.
type ReportWriter interface {
	Write(w io.Writer, verdicts []domain.DocumentVerdict, compliance []domain.ComplianceVerdict, summary domain.BatchSummary) error
}

// DocumentValidator turns extracted text into a per-document verdict.
type DocumentValidator interface {
	Validate(raw domain.RawDocument) domain.DocumentVerdict
}

// ComplianceEngine aggregates every verdict of one client.
type ComplianceEngine interface {
	Check(profile domain.ClientProfile, verdicts []domain.DocumentVerdict) (domain.ComplianceVerdict, error)
}

// VerdictObserver is told about every verdict and compliance result the
// service produces.
type VerdictObserver interface {
	ObserveVerdict(verdict domain.DocumentVerdict)
	ObserveCompliance(verdict domain.ComplianceVerdict)
}
