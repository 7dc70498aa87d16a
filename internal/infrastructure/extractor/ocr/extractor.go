package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
)

type Config struct {
	Tesseract string
	Pdftoppm  string
	Lang      string
	DPI       int
	MaxPages  int
	Timeout   time.Duration
}

func (c Config) normalize() Config {
	out := c
	if out.Tesseract == "" {
		out.Tesseract = "tesseract"
	}
	if out.Pdftoppm == "" {
		out.Pdftoppm = "pdftoppm"
	}
	if out.Lang == "" {
		out.Lang = "eng"
	}
	if out.DPI <= 0 {
		out.DPI = 300
	}
	if out.Timeout <= 0 {
		out.Timeout = 60 * time.Second
	}
	return out
}

// Extractor runs tesseract over images, and over PDFs rendered page by page
// with pdftoppm. The stored file is copied to a scratch directory that is
// removed before Extract returns.
type Extractor struct {
	storage ports.ObjectStorage
	runner  Runner
	cfg     Config
}

func NewExtractor(storage ports.ObjectStorage, runner Runner, cfg Config) *Extractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Extractor{storage: storage, runner: runner, cfg: cfg.normalize()}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "kyc-ocr-*")
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("create ocr scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	src := filepath.Join(tmpDir, "source"+filepath.Ext(doc.Filename))
	if err := e.copyToFile(ctx, doc.StoragePath, src); err != nil {
		return domain.ExtractedText{}, err
	}

	var (
		text  string
		pages int
	)
	if isPDF(doc) {
		text, pages, err = e.pdfToText(ctx, src, tmpDir)
	} else {
		text, err = e.imageToText(ctx, src)
		pages = 1
	}
	if err != nil {
		return domain.ExtractedText{}, err
	}
	return domain.ExtractedText{
		Text:   strings.TrimSpace(text),
		Method: domain.ExtractionOCR,
		Pages:  pages,
	}, nil
}

func (e *Extractor) copyToFile(ctx context.Context, key, dst string) error {
	reader, err := e.storage.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create ocr input: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("write ocr input: %w", err)
	}
	return nil
}

func (e *Extractor) pdfToText(ctx context.Context, path, tmpDir string) (string, int, error) {
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <prefix>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, e.toolError(ctx, "pdftoppm", errb, err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, domain.WrapError(domain.ErrInvalidInput, "ocr pdf", errors.New("pdftoppm rendered no pages"))
	}

	parts := make([]string, 0, len(matches))
	for _, img := range matches {
		txt, err := e.imageToText(ctx, img)
		if err != nil {
			return "", 0, err
		}
		parts = append(parts, strings.TrimSpace(txt))
	}
	return strings.Join(parts, "\n"), len(matches), nil
}

func (e *Extractor) imageToText(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Lang)
	if err != nil {
		return "", e.toolError(ctx, "tesseract", errb, err)
	}
	return string(out), nil
}

// toolError separates a missing or timed-out tool from a file the tool
// could not read. Only the latter degrades to an empty-text verdict.
func (e *Extractor) toolError(ctx context.Context, tool string, stderr []byte, err error) error {
	wrapped := fmt.Errorf("%s: %w: %s", tool, err, strings.TrimSpace(truncate(string(stderr), 512)))
	switch {
	case ctx.Err() != nil:
		return domain.WrapError(domain.ErrTemporary, "ocr", fmt.Errorf("%w: %w", ctx.Err(), wrapped))
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("ocr tool unavailable: %w", wrapped)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "ocr", wrapped)
	}
}

func isPDF(doc *domain.Document) bool {
	return strings.EqualFold(doc.MimeType, "application/pdf") ||
		strings.EqualFold(filepath.Ext(doc.Filename), ".pdf")
}
