package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/core/rules"
)

//go:embed rules_schema.json
var rulesSchema []byte

// LoadRules overlays the YAML file at path onto the built-in rule tables and
// compiles the result. Top-level sections and map entries present in the file
// replace the defaults; everything else is kept. An empty path uses the
// defaults. A non-nil strict overrides strict_mode from the file.
func LoadRules(path string, strict *bool) (*rules.Rules, error) {
	cfg := rules.DefaultConfig()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "read rules file", err)
		}
		if err := validateRulesDocument(data); err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "validate rules file "+path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "decode rules file "+path, err)
		}
	}
	if strict != nil {
		cfg.StrictMode = *strict
	}

	return rules.New(cfg)
}

func validateRulesDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return nil
	}

	// Round-trip through JSON so the validator sees plain JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert yaml to json: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.schema.json", bytes.NewReader(rulesSchema)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("rules.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("rules file does not match schema: %w", err)
	}
	return nil
}
