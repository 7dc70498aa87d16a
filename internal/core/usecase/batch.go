package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/kyc"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

// BatchUseCase validates client documents whose text is supplied by the
// caller. Nothing is stored.
type BatchUseCase struct {
	defaultStrict bool
	byStrictMode  map[bool]*kyc.BatchValidator
	maxDocuments  int
	observer      ports.VerdictObserver
}

func NewBatchUseCase(r *rules.Rules, concurrency, maxDocuments int) *BatchUseCase {
	build := func(strict bool) *kyc.BatchValidator {
		scoped := r.WithStrictMode(strict)
		return kyc.NewBatchValidator(
			kyc.NewDocumentValidator(scoped, nil),
			kyc.NewComplianceEngine(scoped),
			concurrency,
			func() time.Time { return time.Now().UTC() },
		)
	}
	return &BatchUseCase{
		defaultStrict: r.StrictMode(),
		byStrictMode: map[bool]*kyc.BatchValidator{
			true:  build(true),
			false: build(false),
		},
		maxDocuments: maxDocuments,
		observer:     nopObserver{},
	}
}

func (uc *BatchUseCase) WithObserver(observer ports.VerdictObserver) *BatchUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

func (uc *BatchUseCase) ValidateBatch(ctx context.Context, req ports.BatchRequest) (result *domain.BatchResult, err error) {
	ctx, span := startSpan(ctx, "kyc.validate_batch",
		attribute.String("client.id", req.ClientID),
		attribute.Int("kyc.documents", len(req.Documents)),
	)
	defer func() { endSpan(span, err) }()

	raws, err := uc.normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	strict := uc.defaultStrict
	if req.StrictMode != nil {
		strict = *req.StrictMode
	}

	profile := domain.ClientProfile{ClientID: req.ClientID, ClientType: req.ClientType}
	out, err := uc.byStrictMode[strict].ValidateClient(ctx, profile, raws)
	if err != nil {
		return nil, fmt.Errorf("validate batch: %w", err)
	}
	for _, verdict := range out.Verdicts {
		uc.observer.ObserveVerdict(verdict)
	}
	uc.observer.ObserveCompliance(out.Compliance)
	span.SetAttributes(attribute.String("kyc.overall_status", string(out.Compliance.OverallStatus)))
	return &out, nil
}

func (uc *BatchUseCase) normalizeRequest(req ports.BatchRequest) ([]domain.RawDocument, error) {
	const op = "validate batch"
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, errors.New("client_id is required"))
	}
	if !req.ClientType.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("unsupported client_type %q", req.ClientType))
	}
	if len(req.Documents) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, errors.New("documents are required"))
	}
	if uc.maxDocuments > 0 && len(req.Documents) > uc.maxDocuments {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("at most %d documents per batch", uc.maxDocuments))
	}

	raws := make([]domain.RawDocument, 0, len(req.Documents))
	for i, doc := range req.Documents {
		switch {
		case doc.ExtractionMethod == "":
			doc.ExtractionMethod = domain.ExtractionNative
		case !doc.ExtractionMethod.Valid():
			return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("documents[%d]: unsupported extraction_method %q", i, doc.ExtractionMethod))
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		doc.ClientID = req.ClientID
		raws = append(raws, doc)
	}
	return raws, nil
}
