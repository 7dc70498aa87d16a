package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
)

type ComplianceUseCase struct {
	docs     ports.DocumentRepository
	checks   ports.ComplianceRepository
	engine   ports.ComplianceEngine
	now      func() time.Time
	observer ports.VerdictObserver

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewComplianceUseCase(
	docs ports.DocumentRepository,
	checks ports.ComplianceRepository,
	engine ports.ComplianceEngine,
) *ComplianceUseCase {
	return &ComplianceUseCase{
		docs:     docs,
		checks:   checks,
		engine:   engine,
		now:      func() time.Time { return time.Now().UTC() },
		observer: nopObserver{},
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

func (uc *ComplianceUseCase) WithObserver(observer ports.VerdictObserver) *ComplianceUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

// CheckClient runs the compliance engine over every stored verdict of the
// client. It refuses to run while any of the client's documents is pending.
func (uc *ComplianceUseCase) CheckClient(ctx context.Context, clientID string, clientType domain.ClientType) (check *domain.ComplianceCheck, err error) {
	ctx, span := startSpan(ctx, "kyc.check_compliance",
		attribute.String("client.id", clientID),
		attribute.String("client.type", string(clientType)),
	)
	defer func() { endSpan(span, err) }()

	verdicts, err := loadClientVerdicts(ctx, uc.docs, clientID, clientType)
	if err != nil {
		return nil, err
	}

	verdict, err := uc.engine.Check(profileFor(clientID, clientType, verdicts), verdicts)
	if err != nil {
		return nil, fmt.Errorf("check compliance: %w", err)
	}

	checkedAt := uc.now()
	check = &domain.ComplianceCheck{
		ID:        uc.newID(checkedAt),
		CheckedAt: checkedAt,
		Verdict:   verdict,
	}
	if err := uc.checks.SaveCompliance(ctx, check); err != nil {
		return nil, fmt.Errorf("save compliance check: %w", err)
	}
	uc.observer.ObserveCompliance(verdict)
	span.SetAttributes(attribute.String("kyc.overall_status", string(verdict.OverallStatus)))
	return check, nil
}

func (uc *ComplianceUseCase) newID(at time.Time) string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), uc.entropy).String()
}

// loadClientVerdicts returns the verdicts of a client whose documents have all
// finished processing. Failed documents have no verdict and are skipped.
func loadClientVerdicts(ctx context.Context, repo ports.DocumentRepository, clientID string, clientType domain.ClientType) ([]domain.DocumentVerdict, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load client verdicts", errors.New("client id is required"))
	}
	if !clientType.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load client verdicts", fmt.Errorf("unsupported client type %q", clientType))
	}

	docs, err := repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client documents: %w", err)
	}

	verdicts := make([]domain.DocumentVerdict, 0, len(docs))
	var pending int
	for _, doc := range docs {
		if doc.Status.Pending() {
			pending++
			continue
		}
		if doc.Verdict != nil {
			verdicts = append(verdicts, *doc.Verdict)
		}
	}
	if pending > 0 {
		return nil, domain.WrapError(
			domain.ErrPendingDocuments, "load client verdicts",
			fmt.Errorf("%d of %d documents for client %s are still processing", pending, len(docs), clientID),
		)
	}
	return verdicts, nil
}

func profileFor(clientID string, clientType domain.ClientType, verdicts []domain.DocumentVerdict) domain.ClientProfile {
	declared := make([]domain.DocumentType, 0, len(verdicts))
	for _, v := range verdicts {
		declared = append(declared, v.Classification.DocumentType)
	}
	return domain.ClientProfile{
		ClientID:           clientID,
		ClientType:         clientType,
		SubmittedDocuments: domain.SortDocumentTypes(declared),
	}
}
