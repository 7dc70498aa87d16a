package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
)

const maxStoredNameLen = 128

// IngestDocumentUseCase accepts a client's file, parks it in temporary
// storage and hands the document id to the workers.
type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload registers the document as uploaded. When the ingestion event cannot
// be published the document is marked failed right away, so it never holds
// up a compliance check as pending.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	clientID, filename, mimeType string,
	body io.Reader,
) (doc *domain.Document, err error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("client id is required"))
	}

	ctx, span := startSpan(ctx, "kyc.upload_document",
		attribute.String("client.id", clientID),
		attribute.String("document.mime_type", mimeType),
	)
	defer func() { endSpan(span, err) }()

	now := time.Now().UTC()
	doc = &domain.Document{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Filename:  filename,
		MimeType:  mimeType,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.StoragePath = doc.ID + "_" + sanitizeFilename(filename)
	span.SetAttributes(attribute.String("document.id", doc.ID))

	if err := uc.storage.Save(ctx, doc.StoragePath, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		if delErr := uc.storage.Delete(ctx, doc.StoragePath); delErr != nil {
			return nil, fmt.Errorf("create document metadata: %w; remove stored file: %v", err, delErr)
		}
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		publishErr := fmt.Errorf("publish ingestion event: %w", err)
		if failErr := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, publishErr.Error()); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", publishErr, failErr)
		}
		return nil, publishErr
	}

	return doc, nil
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] so the result is a valid single-segment storage key.
func sanitizeFilename(name string) string {
	base := strings.Map(safeFilenameRune, filepath.Base(name))
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	if len(base) > maxStoredNameLen {
		ext := filepath.Ext(base)
		if len(ext) > 16 {
			ext = ""
		}
		base = base[:maxStoredNameLen-len(ext)] + ext
	}
	return base
}

func safeFilenameRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	case r == '.', r == '-', r == '_':
		return r
	default:
		return '_'
	}
}
