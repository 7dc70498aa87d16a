package rules

import (
	"testing"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

func TestDefaultConfigCompiles(t *testing.T) {
	r, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New(DefaultConfig()) error = %v", err)
	}
	for _, docType := range domain.KnownDocumentTypes() {
		if len(r.Keywords(docType)) == 0 {
			t.Fatalf("expected keywords for %s", docType)
		}
	}
	if len(r.Keywords(domain.DocTypeUnknown)) != 0 {
		t.Fatalf("unknown must not carry keywords")
	}
}

func TestDefaultRequiredSetsAreTiered(t *testing.T) {
	r := MustDefault()

	individual, _ := r.RequiredDocuments(domain.ClientIndividual)
	business, _ := r.RequiredDocuments(domain.ClientBusiness)
	hnw, _ := r.RequiredDocuments(domain.ClientHighNetWorth)

	if !isSubset(individual, business) || !isSubset(business, hnw) {
		t.Fatalf("expected individual ⊆ business ⊆ high_net_worth, got %v / %v / %v", individual, business, hnw)
	}
	if len(individual) >= len(business) || len(business) >= len(hnw) {
		t.Fatalf("expected strictly growing tiers, got %d/%d/%d", len(individual), len(business), len(hnw))
	}
}

func TestNewRejectsTypeWithoutKeywords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Keywords[domain.DocTypeTaxDocument] = []string{"  "}

	_, err := New(cfg)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestNewRejectsClientTypeWithoutRequiredSet(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.RequiredDocuments, domain.ClientBusiness)

	_, err := New(cfg)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestNewRejectsBrokenTiering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequiredDocuments[domain.ClientBusiness] = []domain.DocumentType{
		domain.DocTypeDriverLicense,
		domain.DocTypeUtilityBill,
		domain.DocTypeBankStatement,
	}

	_, err := New(cfg)
	if !domain.IsKind(err, domain.ErrConsistency) {
		t.Fatalf("expected ErrConsistency, got %v", err)
	}
	if domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("tiering failure must not be reported as a configuration error: %v", err)
	}
}

func TestNewRejectsEqualTiers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequiredDocuments[domain.ClientHighNetWorth] = cfg.RequiredDocuments[domain.ClientBusiness]

	_, err := New(cfg)
	if !domain.IsKind(err, domain.ErrConsistency) {
		t.Fatalf("expected ErrConsistency, got %v", err)
	}
}

func TestNewRejectsMalformedTables(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad regex", func(c *Config) {
			c.GenericFieldRules = []FieldRuleConfig{{Field: "name", Patterns: []string{"(unclosed"}}}
		}},
		{"pattern without capture group", func(c *Config) {
			c.GenericFieldRules = []FieldRuleConfig{{Field: "name", Patterns: []string{`name:\s*\w+`}}}
		}},
		{"unknown keyword type", func(c *Config) {
			c.Keywords["visa"] = []string{"visa"}
		}},
		{"required set with unknown", func(c *Config) {
			c.RequiredDocuments[domain.ClientIndividual] = []domain.DocumentType{domain.DocTypeUnknown}
		}},
		{"missing recommendation", func(c *Config) {
			delete(c.Recommendations, domain.IssueStale)
		}},
		{"threshold out of range", func(c *Config) {
			c.Thresholds.ConfidenceThreshold = 140
		}},
		{"zero confidence threshold", func(c *Config) {
			c.Thresholds.ConfidenceThreshold = 0
		}},
		{"bad stop pattern", func(c *Config) {
			c.GenericFieldRules = []FieldRuleConfig{{Field: "name", Patterns: []string{`name:\s*(\w+)`}, Stop: "(unclosed"}}
		}},
		{"hard floor above soft floor", func(c *Config) {
			c.Thresholds.HardFloor = 80
		}},
		{"recency on non-date field", func(c *Config) {
			c.RecencyWindows = append(c.RecencyWindows, RecencyWindow{DocumentType: domain.DocTypePassport, Field: "name", MaxAgeDays: 10})
		}},
		{"negative deduction", func(c *Config) {
			c.Deductions.Stale = -1
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			_, err := New(cfg)
			if !domain.IsKind(err, domain.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestRequiredFieldsHonoursStrictMode(t *testing.T) {
	r := MustDefault()

	strict := r.RequiredFields(domain.DocTypePassport)
	if !contains(strict, domain.FieldExpiryDate) {
		t.Fatalf("expected expiry_date in strict mode, got %v", strict)
	}

	lenient := r.WithStrictMode(false).RequiredFields(domain.DocTypePassport)
	if contains(lenient, domain.FieldExpiryDate) {
		t.Fatalf("expected expiry_date dropped in lenient mode, got %v", lenient)
	}
	if !r.StrictMode() {
		t.Fatalf("WithStrictMode must not mutate the receiver")
	}
}

func isSubset(a, b []domain.DocumentType) bool {
	set := make(map[domain.DocumentType]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	for _, t := range a {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
