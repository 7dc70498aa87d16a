package rules

import (
	"fmt"
	"strings"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

// Config is the overridable form of the rule tables. Use New to validate and
// compile it.
type Config struct {
	Keywords          map[domain.DocumentType][]string            `yaml:"keywords" json:"keywords"`
	FieldRules        map[domain.DocumentType][]FieldRuleConfig   `yaml:"field_rules" json:"field_rules"`
	GenericFieldRules []FieldRuleConfig                           `yaml:"generic_field_rules" json:"generic_field_rules"`
	RequiredFields    map[domain.DocumentType][]string            `yaml:"required_fields" json:"required_fields"`
	StrictOnlyFields  []string                                    `yaml:"strict_only_fields" json:"strict_only_fields"`
	DateFields        []string                                    `yaml:"date_fields" json:"date_fields"`
	RecencyWindows    []RecencyWindow                             `yaml:"recency_windows" json:"recency_windows"`
	RequiredDocuments map[domain.ClientType][]domain.DocumentType `yaml:"required_documents" json:"required_documents"`
	Recommendations   map[domain.IssueCode]string                 `yaml:"recommendations" json:"recommendations"`
	Thresholds        Thresholds                                  `yaml:"thresholds" json:"thresholds"`
	Deductions        Deductions                                  `yaml:"deductions" json:"deductions"`
	StrictMode        bool                                        `yaml:"strict_mode" json:"strict_mode"`
}

// FieldRuleConfig lists patterns tried in order; the first capture group of the
// first matching pattern becomes the field value. When Stop is set the value is
// cut where Stop first matches inside it.
type FieldRuleConfig struct {
	Field    string   `yaml:"field" json:"field"`
	Patterns []string `yaml:"patterns" json:"patterns"`
	Stop     string   `yaml:"stop,omitempty" json:"stop,omitempty"`
}

type RecencyWindow struct {
	DocumentType domain.DocumentType `yaml:"document_type" json:"document_type"`
	Field        string              `yaml:"field" json:"field"`
	MaxAgeDays   int                 `yaml:"max_age_days" json:"max_age_days"`
}

type Thresholds struct {
	// ConfidenceThreshold is the minimum keyword confidence for a typed result.
	ConfidenceThreshold  float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	MinTextLength        int     `yaml:"min_text_length" json:"min_text_length"`
	ReadabilityThreshold float64 `yaml:"readability_threshold" json:"readability_threshold"`
	// HardFloor and SoftFloor bound the rejected and needs_review bands.
	HardFloor   float64 `yaml:"hard_floor" json:"hard_floor"`
	SoftFloor   float64 `yaml:"soft_floor" json:"soft_floor"`
	MaxAgeYears int     `yaml:"max_age_years" json:"max_age_years"`
}

type Deductions struct {
	ShortText       float64 `yaml:"short_text" json:"short_text"`
	LowConfidence   float64 `yaml:"low_confidence" json:"low_confidence"`
	MissingField    float64 `yaml:"missing_field" json:"missing_field"`
	InvalidDate     float64 `yaml:"invalid_date" json:"invalid_date"`
	ImplausibleDate float64 `yaml:"implausible_date" json:"implausible_date"`
	Expired         float64 `yaml:"expired" json:"expired"`
	Stale           float64 `yaml:"stale" json:"stale"`
}

const datePattern = `(\d{4}-\d{2}-\d{2}|\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4}|\d{1,2}\s+[a-z]{3,9}\.?,?\s+\d{4}|[a-z]{3,9}\.?\s+\d{1,2},?\s+\d{4})`

// Labels that can follow a value on the same line, as in single-line PDF text.
const (
	nameStop     = `(?i)\b(?:date|dob|born|birth|place|sex|gender|nationality|passport|document|licen[cs]e|card|id|no|number|expiry|expires|expiration|issued|issue|address|service|billing|residential|residence|account|acct|statement|period|tax|ssn|tin|employer|pay|amount|phone|email)\b`
	employerStop = `(?i)\b(?:pay date|payment date|date paid|pay period|period ending|gross pay|net pay|employee name|employee id|name|salary|amount)\b`
	addressStop  = `(?i)\b(?:service date|billing date|statement date|bill date|due date|date of birth|issue date|account|acct|amount|balance|period|name|phone|email|dob)\b`
)

var (
	nameRule = FieldRuleConfig{
		Field: domain.FieldName,
		Patterns: []string{
			`(?i)\b(?:full name|account holder|customer name|taxpayer name|employee name|name)\s*:\s*(\p{L}[\p{L}'\-]+(?:[ \t]+\p{L}[\p{L}'\-]+){1,3})`,
		},
		Stop: nameStop,
	}
	addressRule = FieldRuleConfig{
		Field: domain.FieldAddress,
		Patterns: []string{
			`(?i)\b(?:service address|billing address|residential address|address|residence)\s*:\s*([^\n]{5,120})`,
		},
		Stop: addressStop,
	}
	dateOfBirthRule = FieldRuleConfig{
		Field: domain.FieldDateOfBirth,
		Patterns: []string{
			`(?i)\b(?:date of birth|birth date|dob|born)\s*:?\s*` + datePattern,
		},
	}
	expiryDateRule = FieldRuleConfig{
		Field: domain.FieldExpiryDate,
		Patterns: []string{
			`(?i)\b(?:expiry date|expiration date|date of expiry|expires on|expires|expiry|exp)\.?\s*:?\s*` + datePattern,
		},
	}
	documentNumberRule = FieldRuleConfig{
		Field: domain.FieldDocumentNumber,
		Patterns: []string{
			`(?i)\b(?:passport|document|licen[cs]e|card|id)\s*(?:no\.?|number|#)\s*:?\s*([a-z0-9]{6,12})\b`,
			`\b(` + mixedToken(9) + `|[0-9]{9})\b`,
		},
	}
	nationalityRule = FieldRuleConfig{
		Field: domain.FieldNationality,
		Patterns: []string{
			`(?i)\bnationality\s*:\s*(\p{L}+(?:[ \t]+\p{L}+)?)`,
		},
		Stop: nameStop,
	}
	accountNumberRule = FieldRuleConfig{
		Field: domain.FieldAccountNumber,
		Patterns: []string{
			`(?i)\b(?:account|acct|acc)\.?\s*(?:no\.?|number|#)\s*:?\s*(\d{6,20})\b`,
		},
	}
)

// mixedToken matches an uppercase token of n characters holding at least one
// letter and one digit, spelled out by the position of the first switch
// between the two.
func mixedToken(n int) string {
	alts := make([]string, 0, 2*(n-1))
	for k := 1; k < n; k++ {
		alts = append(alts,
			fmt.Sprintf("[A-Z]{%d}[0-9][A-Z0-9]{%d}", k, n-k-1),
			fmt.Sprintf("[0-9]{%d}[A-Z][A-Z0-9]{%d}", k, n-k-1),
		)
	}
	return strings.Join(alts, "|")
}

func idDocumentRules(extra ...FieldRuleConfig) []FieldRuleConfig {
	out := []FieldRuleConfig{nameRule, dateOfBirthRule, documentNumberRule, expiryDateRule}
	return append(out, extra...)
}

// DefaultConfig returns the built-in rule tables. Maps are rebuilt on every
// call; pattern slices are shared and must not be modified in place.
func DefaultConfig() Config {
	return Config{
		Keywords: map[domain.DocumentType][]string{
			domain.DocTypePassport:      {"passport", "date of birth", "expiry date", "nationality", "place of birth"},
			domain.DocTypeDriverLicense: {"driver license", "driving licence", "driver's license", "dmv", "motor vehicle", "license class"},
			domain.DocTypeUtilityBill:   {"utility bill", "electricity", "water bill", "gas bill", "internet bill", "phone bill", "amount due", "service address"},
			domain.DocTypeBankStatement: {"bank statement", "account statement", "balance", "transaction", "deposit", "statement period"},
			domain.DocTypeTaxDocument:   {"tax return", "tax certificate", "internal revenue service", "revenue service", "w-2", "1099", "taxpayer"},
			domain.DocTypeIDCard:        {"identity card", "national id", "citizen card", "id card", "identification number"},
			domain.DocTypeProofOfIncome: {"salary", "payslip", "employment letter", "income statement", "gross pay", "net pay", "employer"},
		},
		FieldRules: map[domain.DocumentType][]FieldRuleConfig{
			domain.DocTypePassport:      idDocumentRules(nationalityRule),
			domain.DocTypeDriverLicense: idDocumentRules(),
			domain.DocTypeIDCard:        idDocumentRules(),
			domain.DocTypeUtilityBill: {
				nameRule,
				addressRule,
				accountNumberRule,
				{
					Field: domain.FieldServiceDate,
					Patterns: []string{
						`(?i)\b(?:service date|bill date|billing date|statement date|issue date|date of issue|invoice date)\s*:?\s*` + datePattern,
					},
				},
			},
			domain.DocTypeBankStatement: {
				nameRule,
				addressRule,
				accountNumberRule,
				{
					Field: domain.FieldStatementDate,
					Patterns: []string{
						`(?i)\b(?:statement date|period ending|closing date|as of)\s*:?\s*` + datePattern,
						`(?i)\bdate\s*:\s*` + datePattern,
					},
				},
			},
			domain.DocTypeTaxDocument: {
				nameRule,
				{
					Field: domain.FieldTaxID,
					Patterns: []string{
						`(?i)\b(?:taxpayer id|tax id|tin|ssn|ein)\s*(?:no\.?|number|#)?\s*:?\s*([0-9][0-9\-]{7,12}[0-9])\b`,
					},
				},
				{
					Field: domain.FieldTaxYear,
					Patterns: []string{
						`(?i)\b(?:tax year|for the year|year)\s*:?\s*((?:19|20)\d{2})\b`,
						`(?i)\b((?:19|20)\d{2})\s+tax return`,
					},
				},
			},
			domain.DocTypeProofOfIncome: {
				nameRule,
				{
					Field: domain.FieldEmployer,
					Patterns: []string{
						`(?i)\b(?:employer name|employer|company)\s*:\s*([^\n]{2,80})`,
					},
					Stop: employerStop,
				},
				{
					Field: domain.FieldPayDate,
					Patterns: []string{
						`(?i)\b(?:pay date|payment date|date paid|pay period ending|period ending)\s*:?\s*` + datePattern,
					},
				},
			},
		},
		GenericFieldRules: []FieldRuleConfig{nameRule},
		RequiredFields: map[domain.DocumentType][]string{
			domain.DocTypePassport:      {domain.FieldName, domain.FieldDateOfBirth, domain.FieldDocumentNumber, domain.FieldExpiryDate},
			domain.DocTypeDriverLicense: {domain.FieldName, domain.FieldDateOfBirth, domain.FieldDocumentNumber, domain.FieldExpiryDate},
			domain.DocTypeIDCard:        {domain.FieldName, domain.FieldDateOfBirth, domain.FieldDocumentNumber},
			domain.DocTypeUtilityBill:   {domain.FieldName, domain.FieldAddress, domain.FieldServiceDate},
			domain.DocTypeBankStatement: {domain.FieldName, domain.FieldAccountNumber, domain.FieldStatementDate},
			domain.DocTypeTaxDocument:   {domain.FieldName, domain.FieldTaxID},
			domain.DocTypeProofOfIncome: {domain.FieldName, domain.FieldEmployer},
		},
		StrictOnlyFields: []string{domain.FieldExpiryDate},
		DateFields: []string{
			domain.FieldDateOfBirth,
			domain.FieldExpiryDate,
			domain.FieldServiceDate,
			domain.FieldStatementDate,
			domain.FieldPayDate,
		},
		RecencyWindows: []RecencyWindow{
			{DocumentType: domain.DocTypeUtilityBill, Field: domain.FieldServiceDate, MaxAgeDays: 90},
			{DocumentType: domain.DocTypeBankStatement, Field: domain.FieldStatementDate, MaxAgeDays: 90},
			{DocumentType: domain.DocTypeProofOfIncome, Field: domain.FieldPayDate, MaxAgeDays: 90},
		},
		RequiredDocuments: map[domain.ClientType][]domain.DocumentType{
			domain.ClientIndividual: {domain.DocTypePassport, domain.DocTypeUtilityBill},
			domain.ClientBusiness: {
				domain.DocTypePassport, domain.DocTypeUtilityBill,
				domain.DocTypeBankStatement, domain.DocTypeTaxDocument,
			},
			domain.ClientHighNetWorth: {
				domain.DocTypePassport, domain.DocTypeUtilityBill,
				domain.DocTypeBankStatement, domain.DocTypeTaxDocument,
				domain.DocTypeProofOfIncome,
			},
		},
		Recommendations: map[domain.IssueCode]string{
			domain.IssueTextTooShort:    "Re-upload a complete, legible copy of the document",
			domain.IssueLowConfidence:   "Confirm the document type manually or upload a clearer copy",
			domain.IssueMissingField:    "Request a copy where all required details are visible",
			domain.IssueInvalidDate:     "Verify the dates on the document manually",
			domain.IssueImplausibleDate: "Check the document for tampering or data-entry errors",
			domain.IssueExpired:         "Request a currently valid document",
			domain.IssueStale:           "Request a document issued within the last 3 months",
		},
		Thresholds: Thresholds{
			ConfidenceThreshold:  20,
			MinTextLength:        50,
			ReadabilityThreshold: 40,
			HardFloor:            25,
			SoftFloor:            60,
			MaxAgeYears:          120,
		},
		Deductions: Deductions{
			ShortText:       50,
			LowConfidence:   20,
			MissingField:    15,
			InvalidDate:     10,
			ImplausibleDate: 15,
			Expired:         30,
			Stale:           15,
		},
		StrictMode: true,
	}
}
