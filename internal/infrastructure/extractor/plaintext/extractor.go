package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "extract plain text",
			fmt.Errorf("%s is not valid utf-8 text", doc.Filename))
	}

	return domain.ExtractedText{
		Text:   strings.TrimSpace(string(raw)),
		Method: domain.ExtractionNative,
		Pages:  1,
	}, nil
}
