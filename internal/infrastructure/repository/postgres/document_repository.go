package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, client_id, filename, mime_type, storage_path, status, error_message, verdict, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO kyc_documents (
	id, client_id, filename, mime_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		doc.ID, doc.ClientID, doc.Filename, doc.MimeType, doc.StoragePath,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM kyc_documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return doc, nil
}

// ListByClient returns the client's documents oldest first.
func (r *DocumentRepository) ListByClient(ctx context.Context, clientID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM kyc_documents
WHERE client_id = $1
ORDER BY created_at ASC, id ASC
`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE kyc_documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(res, "update document status", id)
}

// SaveVerdict stores the verdict as JSONB with its type and status copied to
// plain columns for filtering.
func (r *DocumentRepository) SaveVerdict(ctx context.Context, id string, verdict domain.DocumentVerdict) error {
	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE kyc_documents
SET document_type = $2, verdict_status = $3, verdict = $4, updated_at = $5
WHERE id = $1
`, id, string(verdict.Classification.DocumentType), string(verdict.Status), payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save verdict: %w", err)
	}
	return requireRow(res, "save verdict", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc        domain.Document
		status     string
		verdictRaw []byte
	)
	err := row.Scan(
		&doc.ID, &doc.ClientID, &doc.Filename, &doc.MimeType, &doc.StoragePath,
		&status, &doc.Error, &verdictRaw, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)

	if len(verdictRaw) > 0 {
		var verdict domain.DocumentVerdict
		if err := json.Unmarshal(verdictRaw, &verdict); err != nil {
			return nil, fmt.Errorf("unmarshal verdict of %s: %w", doc.ID, err)
		}
		doc.Verdict = &verdict
	}
	return &doc, nil
}

func requireRow(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}
