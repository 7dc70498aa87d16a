package plaintext

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

type memStorage map[string][]byte

func (m memStorage) Save(context.Context, string, io.Reader) error { return nil }

func (m memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m memStorage) Delete(context.Context, string) error { return nil }

func TestExtractTrimsText(t *testing.T) {
	ex := NewExtractor(memStorage{"k": []byte("  PASSPORT\nSurname: SMITH \n")})

	got, err := ex.Extract(context.Background(), &domain.Document{StoragePath: "k", Filename: "p.txt"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "PASSPORT\nSurname: SMITH" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if got.Method != domain.ExtractionNative {
		t.Fatalf("expected native method, got %s", got.Method)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	ex := NewExtractor(memStorage{"k": {0xff, 0xfe, 0x00, 0x81}})

	_, err := ex.Extract(context.Background(), &domain.Document{StoragePath: "k", Filename: "scan.bin"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExtractStorageError(t *testing.T) {
	ex := NewExtractor(memStorage{})

	_, err := ex.Extract(context.Background(), &domain.Document{StoragePath: "absent"})
	if err == nil || domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected plain storage error, got %v", err)
	}
}
