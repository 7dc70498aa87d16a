package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
)

// Router picks an extractor by content type. PDFs whose text layer is
// thinner than MinNativeChars are retried through OCR when it is enabled.
type Router struct {
	plain ports.TextExtractor
	pdf   ports.TextExtractor
	ocr   ports.TextExtractor

	minNativeChars int
	fallbacks      FallbackObserver
	logger         *slog.Logger
}

// Reasons passed to FallbackObserver.
const (
	FallbackThinText   = "thin_text"
	FallbackInvalidPDF = "invalid_pdf"
)

// FallbackObserver counts PDFs that had to go through OCR.
type FallbackObserver interface {
	ObserveOCRFallback(reason string)
}

type RouterOptions struct {
	Plain ports.TextExtractor
	PDF   ports.TextExtractor
	// OCR is optional; without it images are rejected and thin PDFs keep
	// their native text.
	OCR            ports.TextExtractor
	MinNativeChars int
	Fallbacks      FallbackObserver
	Logger         *slog.Logger
}

func NewRouter(opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		plain:          opts.Plain,
		pdf:            opts.PDF,
		ocr:            opts.OCR,
		minNativeChars: opts.MinNativeChars,
		fallbacks:      opts.Fallbacks,
		logger:         logger,
	}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	mimeType, _, _ := strings.Cut(doc.MimeType, ";")
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case mimeType == "application/pdf":
		return r.extractPDF(ctx, doc)
	case strings.HasPrefix(mimeType, "image/"):
		if r.ocr == nil {
			return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "extract text",
				fmt.Errorf("ocr disabled, cannot read %s", mimeType))
		}
		return r.ocr.Extract(ctx, doc)
	case strings.HasPrefix(mimeType, "text/"):
		return r.plain.Extract(ctx, doc)
	default:
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "extract text",
			fmt.Errorf("unsupported content type %q", doc.MimeType))
	}
}

func (r *Router) extractPDF(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	native, err := r.pdf.Extract(ctx, doc)
	if err != nil && !domain.IsKind(err, domain.ErrInvalidInput) {
		return domain.ExtractedText{}, err
	}
	if r.ocr == nil {
		return native, err
	}
	if err == nil && utf8.RuneCountInString(strings.TrimSpace(native.Text)) >= r.minNativeChars {
		return native, nil
	}

	reason := FallbackThinText
	if err != nil {
		reason = FallbackInvalidPDF
	}
	r.logger.Info("ocr_fallback",
		"document_id", doc.ID,
		"reason", reason,
		"native_chars", utf8.RuneCountInString(native.Text),
		"native_error", errString(err),
	)
	if r.fallbacks != nil {
		r.fallbacks.ObserveOCRFallback(reason)
	}
	scanned, ocrErr := r.ocr.Extract(ctx, doc)
	if ocrErr != nil {
		if err == nil && domain.IsKind(ocrErr, domain.ErrInvalidInput) {
			return native, nil
		}
		return domain.ExtractedText{}, ocrErr
	}
	if scanned.Pages == 0 {
		scanned.Pages = native.Pages
	}
	return scanned, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
