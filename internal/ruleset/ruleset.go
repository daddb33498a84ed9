// Package ruleset loads rule packs and sheet grids from disk for the CLI
// and other embedding callers. The engine itself never reads files; it
// receives rules and grids through these loaders.
package ruleset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/regsuite/filings/core/errors"
	"github.com/regsuite/filings/core/rules"
	"github.com/regsuite/filings/core/sheet"
)

// Pack is a rule pack document: the rule set for one report template.
type Pack struct {
	// TemplateID names the report template the pack applies to.
	TemplateID string `yaml:"template_id" json:"template_id"`

	// Description is free-form pack documentation.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Rules is the ordered rule set.
	Rules []rules.Rule `yaml:"rules" json:"rules"`
}

// LoadPack reads a YAML rule pack from disk.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule pack: %w", err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, &apperrors.ParseError{Format: "rule pack", Path: path, Message: err.Error(), Err: err}
	}

	for i := range pack.Rules {
		rule := &pack.Rules[i]
		if rule.TemplateID == "" {
			rule.TemplateID = pack.TemplateID
		}
		if rule.Severity == "" {
			rule.Severity = rules.SeverityError
		}
		if !rule.Severity.IsValid() {
			return nil, fmt.Errorf("rule pack %s: rule %s: %w", path, rule.ID,
				apperrors.NewValidation("severity", fmt.Sprintf("%q is not a valid severity", rule.Severity)))
		}
		if rule.Type != "" && !rule.Type.IsValid() {
			return nil, fmt.Errorf("rule pack %s: rule %s: %w", path, rule.ID,
				apperrors.NewValidation("rule_type", fmt.Sprintf("%q is not a valid rule type", rule.Type)))
		}
	}

	return &pack, nil
}

// LoadGridCSV reads a sheet grid from a CSV file. The sheet name defaults
// to the file's base name without extension.
func LoadGridCSV(path, sheetName string) (*sheet.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are normal in submitted sheets
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse sheet %s: %w", path, err)
	}

	if sheetName == "" {
		base := filepath.Base(path)
		sheetName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return sheet.NewGrid(sheetName, records), nil
}
