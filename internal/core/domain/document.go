package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

// Pending reports whether the document has not produced a verdict yet.
func (s DocumentStatus) Pending() bool {
	return s == StatusUploaded || s == StatusProcessing
}

// Document is the intake record of an uploaded file. The file itself lives in
// temporary storage only until processing finishes.
type Document struct {
	ID          string           `json:"id"`
	ClientID    string           `json:"client_id"`
	Filename    string           `json:"filename"`
	MimeType    string           `json:"mime_type"`
	StoragePath string           `json:"storage_path,omitempty"`
	Status      DocumentStatus   `json:"status"`
	Error       string           `json:"error,omitempty"`
	Verdict     *DocumentVerdict `json:"verdict,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type ExtractionMethod string

const (
	ExtractionNative ExtractionMethod = "native"
	ExtractionOCR    ExtractionMethod = "ocr"
)

func (m ExtractionMethod) Valid() bool {
	return m == ExtractionNative || m == ExtractionOCR
}

// ExtractedText is what a text extractor hands to the validation pipeline.
type ExtractedText struct {
	Text   string           `json:"text"`
	Method ExtractionMethod `json:"method"`
	Pages  int              `json:"pages,omitempty"`
}

// RawDocument is the pipeline input: text already materialized by an extractor.
type RawDocument struct {
	ID               string           `json:"id"`
	ClientID         string           `json:"client_id,omitempty"`
	Filename         string           `json:"filename"`
	Text             string           `json:"text"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
}

// Ref drops the text so verdicts never carry document content.
func (d RawDocument) Ref() RawDocumentRef {
	return RawDocumentRef{
		ID:               d.ID,
		ClientID:         d.ClientID,
		Filename:         d.Filename,
		ExtractionMethod: d.ExtractionMethod,
	}
}

type RawDocumentRef struct {
	ID               string           `json:"id"`
	ClientID         string           `json:"client_id,omitempty"`
	Filename         string           `json:"filename"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
}
