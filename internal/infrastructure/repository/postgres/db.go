package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/resilience"
)

// OpenDB connects and pings. When an executor is given the ping is retried,
// so api and worker can start before the database accepts connections.
func OpenDB(ctx context.Context, dsn string, executor *resilience.Executor) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ping := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return domain.WrapError(domain.ErrTemporary, "db ping", err)
		}
		return nil
	}
	if executor != nil {
		err = executor.Execute(ctx, "postgres.ping", ping, resilience.RetryTemporary)
	} else {
		err = ping(ctx)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the document and compliance tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS kyc_documents (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	document_type TEXT,
	verdict_status TEXT,
	verdict JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_kyc_documents_client ON kyc_documents(client_id, created_at);
CREATE INDEX IF NOT EXISTS idx_kyc_documents_status ON kyc_documents(status);

CREATE TABLE IF NOT EXISTS compliance_checks (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	client_type TEXT NOT NULL,
	overall_status TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	verdict JSONB NOT NULL,
	checked_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_compliance_checks_client ON compliance_checks(client_id, checked_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const schemaLockID int64 = 2026061001
