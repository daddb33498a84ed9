// Package rules defines validation rules for tabular report submissions:
// the rule schema, range addressing, and per-cell condition evaluation.
package rules

// Severity classifies how a failed rule affects a submission.
type Severity string

// Severity constants.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// validSeverities is the set of valid severities.
var validSeverities = map[Severity]bool{
	SeverityError:   true,
	SeverityWarning: true,
}

// IsValid returns true if the severity is valid.
func (s Severity) IsValid() bool {
	return validSeverities[s]
}

// RuleType represents the category of a validation rule.
type RuleType string

// Rule type constants.
const (
	TypeRequired RuleType = "required"
	TypeFormat   RuleType = "format"
	TypeRange    RuleType = "range"
	TypeCustom   RuleType = "custom"
	TypeCell     RuleType = "cell"
)

// validRuleTypes is the set of valid rule types.
var validRuleTypes = map[RuleType]bool{
	TypeRequired: true,
	TypeFormat:   true,
	TypeRange:    true,
	TypeCustom:   true,
	TypeCell:     true,
}

// IsValid returns true if the rule type is valid.
func (t RuleType) IsValid() bool {
	return validRuleTypes[t]
}

// Rule is one addressable validation rule supplied by the rule source.
// At most one addressing mode is authoritative at evaluation time:
// CellRange takes precedence over RowRange/ColumnRange, which take
// precedence over ApplyToAllRows. A rule with no addressing and
// ApplyToAllRows=false applies to the single named Field only.
type Rule struct {
	// ID is the unique identifier of the rule.
	ID string `json:"id" yaml:"id"`

	// TemplateID names the report template this rule belongs to.
	TemplateID string `json:"template_id,omitempty" yaml:"template_id,omitempty"`

	// SheetID restricts the rule to one sheet; empty means all sheets.
	SheetID string `json:"sheet_id,omitempty" yaml:"sheet_id,omitempty"`

	// Type is the rule category (required, format, range, custom, cell).
	Type RuleType `json:"rule_type" yaml:"rule_type"`

	// Field names the target: a column header, a column letter, or a
	// fixed cell reference such as "A27".
	Field string `json:"field" yaml:"field"`

	// Condition is the rule's condition expression (see Condition).
	Condition string `json:"condition" yaml:"condition"`

	// ErrorMessage is reported when the condition fails.
	ErrorMessage string `json:"error_message" yaml:"error_message"`

	// Severity is error or warning.
	Severity Severity `json:"severity" yaml:"severity"`

	// RowRange addresses rows: "2-100", "5", or "10-*" (open-ended).
	RowRange string `json:"row_range,omitempty" yaml:"row_range,omitempty"`

	// ColumnRange addresses columns by letter: "A-Z", "B", "C-E".
	ColumnRange string `json:"column_range,omitempty" yaml:"column_range,omitempty"`

	// CellRange addresses an inclusive rectangle: "A2:Z100" or "B5".
	CellRange string `json:"cell_range,omitempty" yaml:"cell_range,omitempty"`

	// ApplyToAllRows scans every row of the field's column when no
	// range fields are set.
	ApplyToAllRows bool `json:"apply_to_all_rows,omitempty" yaml:"apply_to_all_rows,omitempty"`
}

// AppliesToSheet reports whether the rule targets the named sheet.
func (r *Rule) AppliesToSheet(sheetName string) bool {
	return r.SheetID == "" || r.SheetID == sheetName
}
