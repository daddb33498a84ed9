// Package xbrl implements the typed XBRL document model and its parser,
// validator, and generator. It covers the XBRL 2.1 instance and schema
// vocabularies as used for regulatory report interchange; dimensional
// extensions, inline XBRL, and calculation/definition linkbases are out of
// scope.
package xbrl

import (
	"fmt"
	"strings"
)

// Period is a reporting period: either a single instant or a start/end
// duration. Exactly one of the two shapes is populated. Dates are ISO-8601
// strings as they appear on the wire.
type Period struct {
	// Instant is set for instant periods.
	Instant string `json:"instant,omitempty"`

	// StartDate and EndDate are set together for duration periods.
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// IsInstant reports whether the period is an instant.
func (p Period) IsInstant() bool {
	return p.Instant != ""
}

// IsDuration reports whether the period is a start/end duration.
func (p Period) IsDuration() bool {
	return p.StartDate != "" && p.EndDate != ""
}

// IsValid reports whether exactly one period shape is populated.
func (p Period) IsValid() bool {
	if p.IsInstant() {
		return p.StartDate == "" && p.EndDate == ""
	}
	return p.IsDuration()
}

// Context groups the entity and reporting period that facts apply to.
// ID is unique within an instance document and is the join key used by
// facts via their contextRef.
type Context struct {
	// ID is the context identifier, unique within the instance.
	ID string `json:"id"`

	// Entity is the reporting entity identifier.
	Entity string `json:"entity"`

	// Scheme is the entity identifier scheme URI.
	Scheme string `json:"scheme,omitempty"`

	// Period is the context's reporting period.
	Period Period `json:"period"`
}

// Unit is the measurement unit a numeric fact is expressed in, joined to
// facts via their unitRef.
type Unit struct {
	// ID is the unit identifier, unique within the instance.
	ID string `json:"id"`

	// Measure is the unit measure, e.g. "iso4217:USD".
	Measure string `json:"measure"`
}

// Currency returns the ISO-4217 code of a currency measure, or "" when the
// measure is not a currency.
func (u Unit) Currency() string {
	if idx := strings.Index(u.Measure, ":"); idx >= 0 {
		code := u.Measure[idx+1:]
		if strings.HasPrefix(strings.ToLower(u.Measure[:idx]), "iso4217") {
			return strings.ToUpper(code)
		}
		return ""
	}
	return ""
}

// Fact is one reported value of a taxonomy concept in a specific context.
// Facts are immutable once constructed, whether parsed from a document or
// synthesized from validated submission fields.
type Fact struct {
	// Name is the concept name, taken from the element's tag.
	Name string `json:"name"`

	// Namespace is the concept's namespace prefix, when present.
	Namespace string `json:"namespace,omitempty"`

	// Value is the fact's text content.
	Value string `json:"value"`

	// ContextRef joins the fact to a Context.ID; required.
	ContextRef string `json:"context_ref"`

	// UnitRef joins numeric facts to a Unit.ID; optional.
	UnitRef string `json:"unit_ref,omitempty"`

	// Decimals is the declared decimal precision; optional.
	Decimals string `json:"decimals,omitempty"`
}

// Metadata is instance-level information derived from the document itself:
// the reporting entity from the first context and the currency from the
// first currency-typed unit measure. It is never populated from hardcoded
// defaults.
type Metadata struct {
	Entity   string `json:"entity,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// Instance is a complete XBRL instance document in memory.
type Instance struct {
	// SchemaRef is the taxonomy schema reference (xlink:href).
	SchemaRef string `json:"schema_ref,omitempty"`

	// Contexts, Units, and Facts in document order.
	Contexts []Context `json:"contexts"`
	Units    []Unit    `json:"units"`
	Facts    []Fact    `json:"facts"`

	// FactNamespaces maps the namespace prefixes facts use to their URIs,
	// collected from the parsed document. The generator declares each of
	// them on the root element so regenerated output stays well-formed.
	FactNamespaces map[string]string `json:"fact_namespaces,omitempty"`

	// Metadata is derived from the parsed document.
	Metadata Metadata `json:"metadata,omitempty"`
}

// ContextByID returns the context with the given id, or nil.
func (inst *Instance) ContextByID(id string) *Context {
	for i := range inst.Contexts {
		if inst.Contexts[i].ID == id {
			return &inst.Contexts[i]
		}
	}
	return nil
}

// UnitByID returns the unit with the given id, or nil.
func (inst *Instance) UnitByID(id string) *Unit {
	for i := range inst.Units {
		if inst.Units[i].ID == id {
			return &inst.Units[i]
		}
	}
	return nil
}

// ModelError is a structural problem found in an in-memory instance.
type ModelError struct {
	Ref     string
	Message string
}

func (e *ModelError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s: %s", e.Ref, e.Message)
	}
	return e.Message
}

// newModelError creates a new ModelError.
func newModelError(ref, message string) error {
	return &ModelError{Ref: ref, Message: message}
}

// Validate checks the instance's structural invariants and returns all
// problems found: unique context and unit ids, exactly one period shape per
// context, and referential integrity of contextRef/unitRef joins.
func (inst *Instance) Validate() []error {
	var errs []error

	contextIDs := make(map[string]bool, len(inst.Contexts))
	for i, ctx := range inst.Contexts {
		ref := fmt.Sprintf("contexts[%d]", i)
		if ctx.ID == "" {
			errs = append(errs, newModelError(ref, "context ID is required"))
		} else if contextIDs[ctx.ID] {
			errs = append(errs, newModelError(ref,
				fmt.Sprintf("duplicate context ID %q", ctx.ID)))
		}
		contextIDs[ctx.ID] = true
		if !ctx.Period.IsValid() {
			errs = append(errs, newModelError(ref,
				"period must be an instant or a start/end duration"))
		}
	}

	unitIDs := make(map[string]bool, len(inst.Units))
	for i, unit := range inst.Units {
		ref := fmt.Sprintf("units[%d]", i)
		if unit.ID == "" {
			errs = append(errs, newModelError(ref, "unit ID is required"))
		} else if unitIDs[unit.ID] {
			errs = append(errs, newModelError(ref,
				fmt.Sprintf("duplicate unit ID %q", unit.ID)))
		}
		unitIDs[unit.ID] = true
		if unit.Measure == "" {
			errs = append(errs, newModelError(ref, "unit measure is required"))
		}
	}

	for i, fact := range inst.Facts {
		ref := fmt.Sprintf("facts[%d](%s)", i, fact.Name)
		if fact.Name == "" {
			errs = append(errs, newModelError(ref, "fact name is required"))
		}
		if fact.ContextRef == "" {
			errs = append(errs, newModelError(ref, "contextRef is required"))
		} else if !contextIDs[fact.ContextRef] {
			errs = append(errs, newModelError(ref,
				fmt.Sprintf("contextRef %q does not match any context", fact.ContextRef)))
		}
		if fact.UnitRef != "" && !unitIDs[fact.UnitRef] {
			errs = append(errs, newModelError(ref,
				fmt.Sprintf("unitRef %q does not match any unit", fact.UnitRef)))
		}
	}

	return errs
}

// DeriveMetadata fills Metadata from the instance's own contexts and units.
func (inst *Instance) DeriveMetadata() {
	if len(inst.Contexts) > 0 {
		inst.Metadata.Entity = inst.Contexts[0].Entity
	}
	for _, u := range inst.Units {
		if code := u.Currency(); code != "" {
			inst.Metadata.Currency = code
			break
		}
	}
}
