package domain

import "sort"

type DocumentType string

// Declaration order matters: it breaks classification ties and orders sets.
const (
	DocTypePassport      DocumentType = "passport"
	DocTypeDriverLicense DocumentType = "driver_license"
	DocTypeUtilityBill   DocumentType = "utility_bill"
	DocTypeBankStatement DocumentType = "bank_statement"
	DocTypeTaxDocument   DocumentType = "tax_document"
	DocTypeIDCard        DocumentType = "id_card"
	DocTypeProofOfIncome DocumentType = "proof_of_income"
	DocTypeUnknown       DocumentType = "unknown"
)

var documentTypes = []DocumentType{
	DocTypePassport,
	DocTypeDriverLicense,
	DocTypeUtilityBill,
	DocTypeBankStatement,
	DocTypeTaxDocument,
	DocTypeIDCard,
	DocTypeProofOfIncome,
	DocTypeUnknown,
}

// DocumentTypes returns every type in declaration order, unknown last.
func DocumentTypes() []DocumentType {
	out := make([]DocumentType, len(documentTypes))
	copy(out, documentTypes)
	return out
}

// KnownDocumentTypes is DocumentTypes without unknown.
func KnownDocumentTypes() []DocumentType {
	return DocumentTypes()[:len(documentTypes)-1]
}

func (t DocumentType) Valid() bool {
	return t.Rank() >= 0
}

// Rank is the declaration position, or -1 for values outside the enum.
func (t DocumentType) Rank() int {
	for i, candidate := range documentTypes {
		if candidate == t {
			return i
		}
	}
	return -1
}

// SortDocumentTypes orders types by declaration and drops duplicates.
func SortDocumentTypes(types []DocumentType) []DocumentType {
	seen := make(map[DocumentType]struct{}, len(types))
	out := make([]DocumentType, 0, len(types))
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}

type ClassificationResult struct {
	DocumentType    DocumentType `json:"document_type"`
	ConfidenceScore float64      `json:"confidence_score"`
	MatchedKeywords []string     `json:"matched_keywords"`
}

// ExtractedFields maps field names to values. A missing key means the field
// was not found; it is never stored as an empty string.
type ExtractedFields map[string]string

const (
	FieldName           = "name"
	FieldAddress        = "address"
	FieldDateOfBirth    = "date_of_birth"
	FieldDocumentNumber = "document_number"
	FieldExpiryDate     = "expiry_date"
	FieldNationality    = "nationality"
	FieldAccountNumber  = "account_number"
	FieldServiceDate    = "service_date"
	FieldStatementDate  = "statement_date"
	FieldTaxID          = "tax_id"
	FieldTaxYear        = "tax_year"
	FieldEmployer       = "employer"
	FieldPayDate        = "pay_date"
)

// DateLayout is the canonical format for date-valued fields.
const DateLayout = "2006-01-02"

func (f ExtractedFields) Get(field string) (string, bool) {
	v, ok := f[field]
	return v, ok
}

type IssueCode string

const (
	IssueTextTooShort    IssueCode = "text_too_short"
	IssueLowConfidence   IssueCode = "low_confidence"
	IssueMissingField    IssueCode = "missing_field"
	IssueInvalidDate     IssueCode = "invalid_date"
	IssueImplausibleDate IssueCode = "implausible_date"
	IssueExpired         IssueCode = "expired"
	IssueStale           IssueCode = "stale"
)

func IssueCodes() []IssueCode {
	return []IssueCode{
		IssueTextTooShort,
		IssueLowConfidence,
		IssueMissingField,
		IssueInvalidDate,
		IssueImplausibleDate,
		IssueExpired,
		IssueStale,
	}
}

type Issue struct {
	Code    IssueCode `json:"code"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (i Issue) String() string { return i.Message }

type QualityAssessment struct {
	QualityScore float64 `json:"quality_score"`
	Issues       []Issue `json:"issues"`
	IsReadable   bool    `json:"is_readable"`
}

type VerdictStatus string

const (
	VerdictValid       VerdictStatus = "valid"
	VerdictNeedsReview VerdictStatus = "needs_review"
	VerdictRejected    VerdictStatus = "rejected"
)

type DocumentVerdict struct {
	Document        RawDocumentRef       `json:"document"`
	Classification  ClassificationResult `json:"classification"`
	Fields          ExtractedFields      `json:"fields"`
	Quality         QualityAssessment    `json:"quality"`
	Status          VerdictStatus        `json:"status"`
	Recommendations []string             `json:"recommendations"`
}

// CountsAsSubmitted reports whether the verdict can satisfy a requirement.
func (v DocumentVerdict) CountsAsSubmitted() bool {
	return v.Status == VerdictValid || v.Status == VerdictNeedsReview
}
