package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/kyc-validator/internal/bootstrap"
	"github.com/kirillkom/kyc-validator/internal/config"
	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/kyc"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
	"github.com/kirillkom/kyc-validator/internal/core/usecase"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/kyc-validator/internal/observability/logging"
)

type output struct {
	Clients []domain.BatchResult `json:"clients"`
	Summary domain.BatchSummary  `json:"summary"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "kyc-validate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("kyc-validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		clientType = fs.String("client-type", string(domain.ClientIndividual), "client type: individual, business or high_net_worth")
		clientID   = fs.String("client-id", "", "client id for every file (default: guessed from <client>_<name> file names)")
		rulesPath  = fs.String("rules", cfg.RulesPath, "YAML rules file overlaid on the built-in rules")
		xlsxOut    = fs.String("xlsx", "", "write an XLSX report to this path")
		ocrEnabled = fs.Bool("ocr", cfg.OCREnabled, "OCR images and PDFs without a usable text layer")
		logLevel   = fs.String("log-level", "warn", "log level written to stderr")
	)
	strict := cfg.StrictMode
	fs.Func("strict", "override strict_mode from the rules (true or false)", func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		strict = &b
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return errors.New("at least one file is required")
	}

	cfg.RulesPath = *rulesPath
	cfg.OCREnabled = *ocrEnabled
	logger := logging.New(stderr, "kyc-validate", *logLevel)

	kycRules, err := config.LoadRules(cfg.RulesPath, strict)
	if err != nil {
		return err
	}
	batch := usecase.NewBatchUseCase(kycRules, cfg.ValidateConcurrency, 0)

	groups, order, err := extractFiles(ctx, cfg, logger, files, *clientID)
	if err != nil {
		return err
	}

	var (
		out        output
		verdicts   []domain.DocumentVerdict
		compliance []domain.ComplianceVerdict
	)
	for _, id := range order {
		result, err := batch.ValidateBatch(ctx, ports.BatchRequest{
			ClientID:   id,
			ClientType: domain.ClientType(*clientType),
			Documents:  groups[id],
		})
		if err != nil {
			return fmt.Errorf("validate client %s: %w", id, err)
		}
		out.Clients = append(out.Clients, *result)
		verdicts = append(verdicts, result.Verdicts...)
		compliance = append(compliance, result.Compliance)
	}
	out.Summary = kyc.Summarize(verdicts, compliance, time.Now())

	if *xlsxOut != "" {
		if err := writeReport(*xlsxOut, verdicts, compliance, out.Summary); err != nil {
			return err
		}
		logger.Info("report_written", "path", *xlsxOut)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// extractFiles turns every file into a raw document grouped by client id.
// Files the extractors reject still produce a document with empty text so
// they show up as rejected.
func extractFiles(ctx context.Context, cfg config.Config, logger *slog.Logger, files []string, clientID string) (map[string][]domain.RawDocument, []string, error) {
	extractors := make(map[string]ports.TextExtractor)
	groups := make(map[string][]domain.RawDocument)
	var order []string

	for _, path := range files {
		dir, name := filepath.Split(filepath.Clean(path))
		if dir == "" {
			dir = "."
		}
		extractor, ok := extractors[dir]
		if !ok {
			storage, err := localfs.New(dir)
			if err != nil {
				return nil, nil, fmt.Errorf("open %s: %w", dir, err)
			}
			extractor = bootstrap.NewTextExtractor(cfg, storage, logger, nil)
			extractors[dir] = extractor
		}

		mimeType, err := detectMimeType(path)
		if err != nil {
			return nil, nil, err
		}
		doc := &domain.Document{
			ID:          uuid.NewString(),
			Filename:    name,
			MimeType:    mimeType,
			StoragePath: name,
		}
		extracted, err := extractor.Extract(ctx, doc)
		if err != nil {
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				return nil, nil, fmt.Errorf("extract %s: %w", path, err)
			}
			logger.Warn("extract_rejected", "file", path, "error", err)
			extracted = domain.ExtractedText{Method: domain.ExtractionNative}
		}

		owner := clientID
		if owner == "" {
			owner = kyc.GuessClientID(name)
		}
		if !slices.Contains(order, owner) {
			order = append(order, owner)
		}
		groups[owner] = append(groups[owner], domain.RawDocument{
			ID:               doc.ID,
			Filename:         name,
			Text:             extracted.Text,
			ExtractionMethod: extracted.Method,
		})
	}
	return groups, order, nil
}

func detectMimeType(path string) (string, error) {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return http.DetectContentType(head[:n]), nil
}

func writeReport(path string, verdicts []domain.DocumentVerdict, compliance []domain.ComplianceVerdict, summary domain.BatchSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := xlsx.NewWriter().Write(f, verdicts, compliance, summary); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
