package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/kirillkom/kyc-validator/internal/config"
	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
	"github.com/kirillkom/kyc-validator/internal/observability/metrics"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// multipartOverhead covers boundaries and part headers around the file.
	multipartOverhead = 1 << 20
	maxJSONBodyBytes  = 32 << 20
)

// Dependencies are the inbound ports the HTTP API drives. Metrics and Ready
// are optional.
type Dependencies struct {
	Ingestor   ports.DocumentIngestor
	Documents  ports.DocumentReader
	Compliance ports.ComplianceChecker
	Reports    ports.ReportExporter
	Batch      ports.BatchValidator
	Metrics    *metrics.HTTPServerMetrics
	Ready      func(ctx context.Context) error
	Logger     *slog.Logger
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}
	mux.HandleFunc("POST /v1/clients/{client_id}/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/{document_id}", rt.getDocument)
	mux.HandleFunc("POST /v1/clients/{client_id}/compliance", rt.checkCompliance)
	mux.HandleFunc("GET /v1/clients/{client_id}/report", rt.exportReport)
	mux.HandleFunc("POST /v1/validate", rt.validateBatch)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(rt.deps.Logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Ready != nil {
		if err := rt.deps.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.PathValue("client_id"))
	if clientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id is required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartOverhead)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if rt.cfg.MaxUploadBytes > 0 && fileHeader.Size > rt.cfg.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("file exceeds %d bytes", rt.cfg.MaxUploadBytes),
		})
		return
	}

	mimeType, body, err := detectMimeType(fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read uploaded file"})
		return
	}
	if !rt.mimeAllowed(mimeType) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{
			"error": fmt.Sprintf("unsupported mime type %q", mimeType),
		})
		return
	}

	doc, err := rt.deps.Ingestor.Upload(r.Context(), clientID, fileHeader.Filename, mimeType, body)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordUpload(mimeType, fileHeader.Size)
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("document_id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.deps.Documents.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type complianceRequest struct {
	ClientType domain.ClientType `json:"client_type"`
}

func (rt *Router) checkCompliance(w http.ResponseWriter, r *http.Request) {
	var req complianceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	check, err := rt.deps.Compliance.CheckClient(r.Context(), r.PathValue("client_id"), req.ClientType)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (rt *Router) exportReport(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("client_id")
	clientType := domain.ClientType(r.URL.Query().Get("client_type"))

	// Rendered into memory first so a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := rt.deps.Reports.ExportClient(r.Context(), clientID, clientType, &buf); err != nil {
		rt.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": clientID + "_kyc_report.xlsx",
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type batchRequest struct {
	ClientID   string               `json:"client_id"`
	ClientType domain.ClientType    `json:"client_type"`
	StrictMode *bool                `json:"strict_mode,omitempty"`
	Documents  []domain.RawDocument `json:"documents"`
}

func (rt *Router) validateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	result, err := rt.deps.Batch.ValidateBatch(r.Context(), ports.BatchRequest{
		ClientID:   req.ClientID,
		ClientType: req.ClientType,
		StrictMode: req.StrictMode,
		Documents:  req.Documents,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordBatch(len(req.Documents))
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) mimeAllowed(mimeType string) bool {
	if len(rt.cfg.AllowedMimeTypes) == 0 {
		return true
	}
	return slices.Contains(rt.cfg.AllowedMimeTypes, mimeType)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		rt.deps.Logger.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

// detectMimeType trusts the part's declared type unless it is missing or
// generic, in which case the leading bytes are sniffed. The returned reader
// replays everything consumed while sniffing.
func detectMimeType(declared string, body io.Reader) (string, io.Reader, error) {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return strings.ToLower(mediaType), body, nil
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]

	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head))
	if err != nil {
		mediaType = "application/octet-stream"
	}
	return mediaType, io.MultiReader(bytes.NewReader(head), body), nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write_json_failed", "error", err)
	}
}
