package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

type FieldRule struct {
	Field    string
	Patterns []*regexp.Regexp
	Stop     *regexp.Regexp
}

// Rules is the compiled, validated rule set. It is read-only after New and
// safe for concurrent use.
type Rules struct {
	keywords          map[domain.DocumentType][]string
	fieldRules        map[domain.DocumentType][]FieldRule
	genericFieldRules []FieldRule
	requiredFields    map[domain.DocumentType][]string
	strictOnly        map[string]struct{}
	dateFields        map[string]struct{}
	recency           map[domain.DocumentType][]RecencyWindow
	requiredDocuments map[domain.ClientType][]domain.DocumentType
	recommendations   map[domain.IssueCode]string
	thresholds        Thresholds
	deductions        Deductions
	strictMode        bool
}

// New validates cfg and compiles it. Malformed tables fail with
// domain.ErrConfiguration; a broken client tiering fails with
// domain.ErrConsistency.
func New(cfg Config) (*Rules, error) {
	r := &Rules{
		keywords:          make(map[domain.DocumentType][]string),
		fieldRules:        make(map[domain.DocumentType][]FieldRule),
		requiredFields:    make(map[domain.DocumentType][]string),
		strictOnly:        toSet(cfg.StrictOnlyFields),
		dateFields:        toSet(cfg.DateFields),
		recency:           make(map[domain.DocumentType][]RecencyWindow),
		requiredDocuments: make(map[domain.ClientType][]domain.DocumentType),
		recommendations:   make(map[domain.IssueCode]string),
		thresholds:        cfg.Thresholds,
		deductions:        cfg.Deductions,
		strictMode:        cfg.StrictMode,
	}

	var problems []error
	problems = append(problems, r.compileKeywords(cfg.Keywords)...)
	problems = append(problems, r.compileFieldRules(cfg.FieldRules, cfg.GenericFieldRules)...)
	problems = append(problems, r.compileRequiredFields(cfg.RequiredFields)...)
	problems = append(problems, r.compileRecency(cfg.RecencyWindows)...)
	problems = append(problems, r.compileRequiredDocuments(cfg.RequiredDocuments)...)
	problems = append(problems, r.compileRecommendations(cfg.Recommendations)...)
	problems = append(problems, validateThresholds(cfg.Thresholds)...)
	problems = append(problems, validateDeductions(cfg.Deductions)...)
	if len(problems) > 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "validate rules", errors.Join(problems...))
	}

	if err := r.checkTiering(); err != nil {
		return nil, domain.WrapError(domain.ErrConsistency, "validate rules", err)
	}
	return r, nil
}

// MustDefault compiles DefaultConfig and panics if the built-in tables are
// broken.
func MustDefault() *Rules {
	r, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Rules) compileKeywords(table map[domain.DocumentType][]string) []error {
	var problems []error
	for docType := range table {
		if !docType.Valid() || docType == domain.DocTypeUnknown {
			problems = append(problems, fmt.Errorf("keywords: unsupported document type %q", docType))
		}
	}
	for _, docType := range domain.KnownDocumentTypes() {
		var keywords []string
		for _, kw := range table[docType] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			problems = append(problems, fmt.Errorf("keywords: document type %q has no keywords", docType))
			continue
		}
		r.keywords[docType] = keywords
	}
	return problems
}

func (r *Rules) compileFieldRules(table map[domain.DocumentType][]FieldRuleConfig, generic []FieldRuleConfig) []error {
	var problems []error
	for docType, configs := range table {
		if !docType.Valid() {
			problems = append(problems, fmt.Errorf("field_rules: unsupported document type %q", docType))
			continue
		}
		compiled, errs := compileFieldRuleList(string(docType), configs)
		problems = append(problems, errs...)
		r.fieldRules[docType] = compiled
	}
	compiled, errs := compileFieldRuleList("generic", generic)
	problems = append(problems, errs...)
	r.genericFieldRules = compiled
	return problems
}

func compileFieldRuleList(scope string, configs []FieldRuleConfig) ([]FieldRule, []error) {
	var problems []error
	out := make([]FieldRule, 0, len(configs))
	for _, cfg := range configs {
		field := strings.TrimSpace(cfg.Field)
		if field == "" {
			problems = append(problems, fmt.Errorf("field_rules[%s]: rule without field name", scope))
			continue
		}
		if len(cfg.Patterns) == 0 {
			problems = append(problems, fmt.Errorf("field_rules[%s].%s: no patterns", scope, field))
			continue
		}
		rule := FieldRule{Field: field}
		for _, raw := range cfg.Patterns {
			re, err := regexp.Compile(raw)
			if err != nil {
				problems = append(problems, fmt.Errorf("field_rules[%s].%s: %w", scope, field, err))
				continue
			}
			if re.NumSubexp() < 1 {
				problems = append(problems, fmt.Errorf("field_rules[%s].%s: pattern %q has no capture group", scope, field, raw))
				continue
			}
			rule.Patterns = append(rule.Patterns, re)
		}
		if cfg.Stop != "" {
			stop, err := regexp.Compile(cfg.Stop)
			if err != nil {
				problems = append(problems, fmt.Errorf("field_rules[%s].%s: stop: %w", scope, field, err))
			} else {
				rule.Stop = stop
			}
		}
		out = append(out, rule)
	}
	return out, problems
}

func (r *Rules) compileRequiredFields(table map[domain.DocumentType][]string) []error {
	var problems []error
	for docType, fields := range table {
		if !docType.Valid() {
			problems = append(problems, fmt.Errorf("required_fields: unsupported document type %q", docType))
			continue
		}
		r.requiredFields[docType] = append([]string(nil), fields...)
	}
	return problems
}

func (r *Rules) compileRecency(windows []RecencyWindow) []error {
	var problems []error
	for _, w := range windows {
		switch {
		case !w.DocumentType.Valid():
			problems = append(problems, fmt.Errorf("recency_windows: unsupported document type %q", w.DocumentType))
		case !r.IsDateField(w.Field):
			problems = append(problems, fmt.Errorf("recency_windows: %q is not a date field", w.Field))
		case w.MaxAgeDays <= 0:
			problems = append(problems, fmt.Errorf("recency_windows: %s.%s max_age_days must be positive", w.DocumentType, w.Field))
		default:
			r.recency[w.DocumentType] = append(r.recency[w.DocumentType], w)
		}
	}
	return problems
}

func (r *Rules) compileRequiredDocuments(table map[domain.ClientType][]domain.DocumentType) []error {
	var problems []error
	for clientType := range table {
		if !clientType.Valid() {
			problems = append(problems, fmt.Errorf("required_documents: unsupported client type %q", clientType))
		}
	}
	for _, clientType := range domain.ClientTypes() {
		docs := table[clientType]
		if len(docs) == 0 {
			problems = append(problems, fmt.Errorf("required_documents: client type %q has no required set", clientType))
			continue
		}
		for _, docType := range docs {
			if !docType.Valid() || docType == domain.DocTypeUnknown {
				problems = append(problems, fmt.Errorf("required_documents[%s]: unsupported document type %q", clientType, docType))
			}
		}
		r.requiredDocuments[clientType] = domain.SortDocumentTypes(docs)
	}
	return problems
}

func (r *Rules) compileRecommendations(table map[domain.IssueCode]string) []error {
	var problems []error
	for _, code := range domain.IssueCodes() {
		text := strings.TrimSpace(table[code])
		if text == "" {
			problems = append(problems, fmt.Errorf("recommendations: no recommendation for issue %q", code))
			continue
		}
		r.recommendations[code] = text
	}
	return problems
}

func validateThresholds(t Thresholds) []error {
	var problems []error
	percent := []struct {
		name  string
		value float64
	}{
		{"confidence_threshold", t.ConfidenceThreshold},
		{"readability_threshold", t.ReadabilityThreshold},
		{"hard_floor", t.HardFloor},
		{"soft_floor", t.SoftFloor},
	}
	for _, p := range percent {
		if p.value < 0 || p.value > 100 {
			problems = append(problems, fmt.Errorf("thresholds.%s must be within [0,100], got %v", p.name, p.value))
		}
	}
	if t.ConfidenceThreshold <= 0 {
		problems = append(problems, fmt.Errorf("thresholds.confidence_threshold must be greater than 0, got %v", t.ConfidenceThreshold))
	}
	if t.HardFloor > t.SoftFloor {
		problems = append(problems, fmt.Errorf("thresholds.hard_floor (%v) exceeds soft_floor (%v)", t.HardFloor, t.SoftFloor))
	}
	if t.MinTextLength < 0 {
		problems = append(problems, fmt.Errorf("thresholds.min_text_length must not be negative"))
	}
	if t.MaxAgeYears <= 0 {
		problems = append(problems, fmt.Errorf("thresholds.max_age_years must be positive"))
	}
	return problems
}

func validateDeductions(d Deductions) []error {
	values := map[string]float64{
		"short_text":       d.ShortText,
		"low_confidence":   d.LowConfidence,
		"missing_field":    d.MissingField,
		"invalid_date":     d.InvalidDate,
		"implausible_date": d.ImplausibleDate,
		"expired":          d.Expired,
		"stale":            d.Stale,
	}
	var problems []error
	for name, v := range values {
		if v < 0 || v > 100 {
			problems = append(problems, fmt.Errorf("deductions.%s must be within [0,100], got %v", name, v))
		}
	}
	return problems
}

// checkTiering asserts individual ⊂ business ⊂ high_net_worth, each strict.
func (r *Rules) checkTiering() error {
	tiers := domain.ClientTypes()
	for i := 1; i < len(tiers); i++ {
		lower, upper := tiers[i-1], tiers[i]
		upperSet := make(map[domain.DocumentType]struct{}, len(r.requiredDocuments[upper]))
		for _, t := range r.requiredDocuments[upper] {
			upperSet[t] = struct{}{}
		}
		for _, t := range r.requiredDocuments[lower] {
			if _, ok := upperSet[t]; !ok {
				return fmt.Errorf("%s requires %s but %s does not", lower, t, upper)
			}
		}
		if len(upperSet) <= len(r.requiredDocuments[lower]) {
			return fmt.Errorf("%s must require strictly more documents than %s", upper, lower)
		}
	}
	return nil
}

// WithStrictMode returns a view of r with the strict flag replaced.
func (r *Rules) WithStrictMode(strict bool) *Rules {
	clone := *r
	clone.strictMode = strict
	return &clone
}

func (r *Rules) StrictMode() bool { return r.strictMode }

func (r *Rules) Keywords(docType domain.DocumentType) []string {
	return r.keywords[docType]
}

func (r *Rules) FieldRules(docType domain.DocumentType) []FieldRule {
	return r.fieldRules[docType]
}

func (r *Rules) GenericFieldRules() []FieldRule {
	return r.genericFieldRules
}

// RequiredFields lists the fields the quality check expects for docType,
// skipping strict-only fields when strict mode is off.
func (r *Rules) RequiredFields(docType domain.DocumentType) []string {
	fields := r.requiredFields[docType]
	if r.strictMode {
		return fields
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, strictOnly := r.strictOnly[f]; !strictOnly {
			out = append(out, f)
		}
	}
	return out
}

func (r *Rules) IsDateField(field string) bool {
	_, ok := r.dateFields[field]
	return ok
}

func (r *Rules) RecencyWindows(docType domain.DocumentType) []RecencyWindow {
	return r.recency[docType]
}

// RequiredDocuments returns the required set ordered by document type.
func (r *Rules) RequiredDocuments(clientType domain.ClientType) ([]domain.DocumentType, bool) {
	docs, ok := r.requiredDocuments[clientType]
	return docs, ok
}

func (r *Rules) Recommendation(code domain.IssueCode) string {
	return r.recommendations[code]
}

func (r *Rules) Thresholds() Thresholds { return r.thresholds }

func (r *Rules) Deductions() Deductions { return r.deductions }

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}
