package usecase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	validator ports.DocumentValidator
	observer  ports.VerdictObserver
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	validator ports.DocumentValidator,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		validator: validator,
		observer:  nopObserver{},
	}
}

func (uc *ProcessDocumentUseCase) WithObserver(observer ports.VerdictObserver) *ProcessDocumentUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

// ProcessByID extracts, validates and stores the verdict of one uploaded
// document. Files the extractor rejects as unsupported still get a (rejected)
// verdict; other failures leave the document in status failed.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) (err error) {
	ctx, span := startSpan(ctx, "kyc.process_document", attribute.String("document.id", documentID))
	defer func() { endSpan(span, err) }()

	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	doc, verdict, note, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}
	span.SetAttributes(
		attribute.String("kyc.document_type", string(verdict.Classification.DocumentType)),
		attribute.String("kyc.verdict", string(verdict.Status)),
	)

	if err := uc.persistVerdict(ctx, doc.ID, verdict); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusProcessed, note); err != nil {
		return fmt.Errorf("set status=processed: %w", err)
	}
	uc.observer.ObserveVerdict(verdict)

	if err := uc.storage.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete source document: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (*domain.Document, domain.DocumentVerdict, string, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return nil, domain.DocumentVerdict{}, "", err
	}

	var note string
	extracted, err := uc.extractText(ctx, doc)
	if err != nil {
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			return nil, domain.DocumentVerdict{}, "", err
		}
		note = err.Error()
		extracted = domain.ExtractedText{Method: domain.ExtractionNative}
	}

	verdict := uc.validator.Validate(domain.RawDocument{
		ID:               doc.ID,
		ClientID:         doc.ClientID,
		Filename:         doc.Filename,
		Text:             extracted.Text,
		ExtractionMethod: extracted.Method,
	})
	return doc, verdict, note, nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	extracted, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("extract text: %w", err)
	}
	if !extracted.Method.Valid() {
		extracted.Method = domain.ExtractionNative
	}
	return extracted, nil
}

func (uc *ProcessDocumentUseCase) persistVerdict(ctx context.Context, documentID string, verdict domain.DocumentVerdict) error {
	if err := uc.repo.SaveVerdict(ctx, documentID, verdict); err != nil {
		return fmt.Errorf("save verdict: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
