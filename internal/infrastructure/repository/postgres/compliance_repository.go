package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

// ComplianceRepository appends compliance checks. Rows are never updated;
// every run is kept as an audit record.
type ComplianceRepository struct {
	db *sql.DB
}

func NewComplianceRepository(db *sql.DB) *ComplianceRepository {
	return &ComplianceRepository{db: db}
}

func (r *ComplianceRepository) SaveCompliance(ctx context.Context, check *domain.ComplianceCheck) error {
	payload, err := json.Marshal(check.Verdict)
	if err != nil {
		return fmt.Errorf("marshal compliance verdict: %w", err)
	}
	v := check.Verdict
	_, err = r.db.ExecContext(ctx, `
INSERT INTO compliance_checks (id, client_id, client_type, overall_status, risk_level, verdict, checked_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, check.ID, v.ClientID, string(v.ClientType), string(v.OverallStatus), string(v.RiskLevel), payload, check.CheckedAt)
	if err != nil {
		return fmt.Errorf("insert compliance check: %w", err)
	}
	return nil
}
