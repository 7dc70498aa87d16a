package ports

import (
	"context"
	"io"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

// DocumentIngestor is the inbound contract for client document uploads.
type DocumentIngestor interface {
	Upload(ctx context.Context, clientID, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// ComplianceChecker runs and persists a client compliance check over stored verdicts.
type ComplianceChecker interface {
	CheckClient(ctx context.Context, clientID string, clientType domain.ClientType) (*domain.ComplianceCheck, error)
}

// ReportExporter renders a client's verdicts and compliance checklist.
type ReportExporter interface {
	ExportClient(ctx context.Context, clientID string, clientType domain.ClientType, w io.Writer) error
}

// BatchValidator validates already extracted documents synchronously.
type BatchValidator interface {
	ValidateBatch(ctx context.Context, req BatchRequest) (*domain.BatchResult, error)
}

type BatchRequest struct {
	ClientID   string
	ClientType domain.ClientType
	// StrictMode overrides the configured strict flag when set.
	StrictMode *bool
	Documents  []domain.RawDocument
}
