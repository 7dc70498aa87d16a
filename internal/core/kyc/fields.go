package kyc

import (
	"strings"
	"time"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

// Accepted input layouts for date fields, tried in order. Numeric dates are
// read month-first.
var dateLayouts = []string{
	domain.DateLayout,
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01.02.2006",
	"1.2.2006",
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan. 2006",
	"2 Jan, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan. 2, 2006",
}

type FieldExtractor struct {
	rules *rules.Rules
}

func NewFieldExtractor(r *rules.Rules) *FieldExtractor {
	return &FieldExtractor{rules: r}
}

// Extract applies the rule list for docType. Fields without a match are left
// out. Date fields are rewritten to domain.DateLayout when they parse and kept
// verbatim otherwise, so the quality check can report them.
func (e *FieldExtractor) Extract(docType domain.DocumentType, text string) domain.ExtractedFields {
	fields := domain.ExtractedFields{}
	for _, rule := range e.rulesFor(docType) {
		if _, done := fields[rule.Field]; done {
			continue
		}
		value, ok := firstCapture(rule, text)
		if !ok {
			continue
		}
		if e.rules.IsDateField(rule.Field) {
			if normalized, ok := NormalizeDate(value); ok {
				value = normalized
			}
		}
		fields[rule.Field] = value
	}
	return fields
}

func (e *FieldExtractor) rulesFor(docType domain.DocumentType) []rules.FieldRule {
	switch docType {
	case domain.DocTypePassport,
		domain.DocTypeDriverLicense,
		domain.DocTypeUtilityBill,
		domain.DocTypeBankStatement,
		domain.DocTypeTaxDocument,
		domain.DocTypeIDCard,
		domain.DocTypeProofOfIncome:
		if typed := e.rules.FieldRules(docType); len(typed) > 0 {
			return typed
		}
		return e.rules.GenericFieldRules()
	case domain.DocTypeUnknown:
		return e.rules.GenericFieldRules()
	default:
		return e.rules.GenericFieldRules()
	}
}

func firstCapture(rule rules.FieldRule, text string) (string, bool) {
	for _, re := range rule.Patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, group := range m[1:] {
			if rule.Stop != nil {
				if loc := rule.Stop.FindStringIndex(group); loc != nil {
					group = group[:loc[0]]
				}
			}
			value := cleanValue(group)
			if value != "" {
				return value, true
			}
		}
	}
	return "", false
}

func cleanValue(raw string) string {
	value := strings.Join(strings.Fields(raw), " ")
	return strings.TrimRight(value, " ,;.")
}

// NormalizeDate parses raw with the accepted layouts and formats it as
// domain.DateLayout.
func NormalizeDate(raw string) (string, bool) {
	parsed, ok := ParseDate(raw)
	if !ok {
		return "", false
	}
	return parsed.Format(domain.DateLayout), true
}

func ParseDate(raw string) (time.Time, bool) {
	value := strings.Join(strings.Fields(raw), " ")
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
