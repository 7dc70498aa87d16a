package kyc

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

const defaultBatchConcurrency = 4

type BatchValidator struct {
	validator   *DocumentValidator
	engine      *ComplianceEngine
	concurrency int
	now         func() time.Time
}

func NewBatchValidator(validator *DocumentValidator, engine *ComplianceEngine, concurrency int, now func() time.Time) *BatchValidator {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	if now == nil {
		now = time.Now
	}
	return &BatchValidator{
		validator:   validator,
		engine:      engine,
		concurrency: concurrency,
		now:         now,
	}
}

// ValidateClient validates raws in parallel and runs the compliance check
// once every verdict is in. Verdicts keep the order of raws. The context is
// only consulted before each document starts.
func (b *BatchValidator) ValidateClient(ctx context.Context, profile domain.ClientProfile, raws []domain.RawDocument) (domain.BatchResult, error) {
	verdicts := make([]domain.DocumentVerdict, len(raws))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verdicts[i] = b.validator.Validate(raws[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BatchResult{}, err
	}

	compliance, err := b.engine.Check(profile, verdicts)
	if err != nil {
		return domain.BatchResult{}, err
	}

	return domain.BatchResult{
		Verdicts:   verdicts,
		Compliance: compliance,
		Summary:    Summarize(verdicts, []domain.ComplianceVerdict{compliance}, b.now()),
	}, nil
}

// Summarize aggregates verdicts and compliance results across one or more
// clients. ComplianceRate is the share of required document slots covered by
// a non-rejected verdict.
func Summarize(verdicts []domain.DocumentVerdict, compliance []domain.ComplianceVerdict, at time.Time) domain.BatchSummary {
	summary := domain.BatchSummary{
		TotalDocuments: len(verdicts),
		GeneratedAt:    at.UTC(),
	}

	var confidence float64
	for _, v := range verdicts {
		if v.Status != domain.VerdictRejected {
			summary.ProcessedSuccessfully++
		}
		confidence += v.Classification.ConfidenceScore
		summary.IssuesFound += len(v.Quality.Issues)
	}
	if len(verdicts) > 0 {
		summary.AverageConfidence = clampScore(confidence / float64(len(verdicts)))
	}

	var required, satisfied int
	for _, c := range compliance {
		required += len(c.Required)
		satisfied += len(c.Required) - len(c.Missing)
	}
	if required > 0 {
		summary.ComplianceRate = clampScore(float64(satisfied) / float64(required) * 100)
	}
	return summary
}

// GuessClientID takes the client id from a "<client>_<rest>" file name. Names
// without a usable prefix get a random CLIENT_XXXXXX id.
func GuessClientID(filename string) string {
	base := filepath.Base(filename)
	if prefix, _, found := strings.Cut(base, "_"); found && len(prefix) >= 3 {
		return prefix
	}
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CLIENT_" + strings.ToUpper(hex[:6])
}
