package xbrl

import "strings"

// Concept is a taxonomy-defined reportable item.
type Concept struct {
	// Name is the concept name, e.g. "TotalAssets".
	Name string `json:"name"`

	// Type is the schema type, e.g. "xbrli:monetaryItemType".
	Type string `json:"type,omitempty"`

	// Label is the human-readable label.
	Label string `json:"label,omitempty"`

	// Documentation is optional explanatory text.
	Documentation string `json:"documentation,omitempty"`

	// Abstract concepts are structural grouping nodes and never carry
	// reported values.
	Abstract bool `json:"abstract,omitempty"`

	// PeriodType is "instant" or "duration" when declared.
	PeriodType string `json:"period_type,omitempty"`

	// Balance is "debit" or "credit" when declared.
	Balance string `json:"balance,omitempty"`
}

// IsMonetary reports whether the concept's type is a monetary item type.
func (c Concept) IsMonetary() bool {
	return strings.Contains(strings.ToLower(c.Type), "monetary")
}

// PresentationConcept is one concept's slot within a presentation role.
type PresentationConcept struct {
	Name   string  `json:"name"`
	Order  float64 `json:"order,omitempty"`
	Parent string  `json:"parent,omitempty"`
}

// Presentation is a presentation relationship group for one link role.
type Presentation struct {
	Role     string                `json:"role"`
	Concepts []PresentationConcept `json:"concepts,omitempty"`
}

// Taxonomy is the schema defining the valid concepts and their presentation
// relationships for a reporting domain.
type Taxonomy struct {
	Concepts      []Concept      `json:"concepts"`
	Presentations []Presentation `json:"presentations,omitempty"`
}

// ConceptByName returns the named concept, or nil.
func (t *Taxonomy) ConceptByName(name string) *Concept {
	for i := range t.Concepts {
		if t.Concepts[i].Name == name {
			return &t.Concepts[i]
		}
	}
	return nil
}

// ConceptRule binds one validation rule to one concept for template
// validation. Rule is "numeric" or "required".
type ConceptRule struct {
	Concept string `json:"concept"`
	Rule    string `json:"rule"`
	Message string `json:"message,omitempty"`
}

// Template is the validation template derived from a taxonomy: the set of
// required concepts and the per-concept rules an instance must satisfy.
type Template struct {
	// Taxonomy is the source taxonomy.
	Taxonomy *Taxonomy `json:"-"`

	// RequiredConcepts lists every non-abstract concept name, each
	// exactly once. Abstract concepts are grouping nodes and excluded.
	RequiredConcepts []string `json:"required_concepts"`

	// Rules holds per-concept validation rules: monetary concepts get a
	// numeric rule, every other concept a required rule.
	Rules []ConceptRule `json:"rules"`

	// ReportingPeriods and Currencies carried for template metadata.
	ReportingPeriods []string `json:"reporting_periods,omitempty"`
	Currencies       []string `json:"currencies,omitempty"`
}

// DeriveTemplate builds the validation template for a taxonomy.
func DeriveTemplate(t *Taxonomy) *Template {
	tmpl := &Template{Taxonomy: t}

	seen := make(map[string]bool, len(t.Concepts))
	for _, concept := range t.Concepts {
		if concept.Abstract || concept.Name == "" || seen[concept.Name] {
			continue
		}
		seen[concept.Name] = true
		tmpl.RequiredConcepts = append(tmpl.RequiredConcepts, concept.Name)

		rule := ConceptRule{Concept: concept.Name}
		if concept.IsMonetary() {
			rule.Rule = "numeric"
			rule.Message = concept.Name + " must be a numeric value"
		} else {
			rule.Rule = "required"
			rule.Message = concept.Name + " is required"
		}
		tmpl.Rules = append(tmpl.Rules, rule)
	}

	return tmpl
}
