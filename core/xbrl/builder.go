package xbrl

import "fmt"

// BuildOptions carries the submission-level settings for synthesizing an
// instance document from validated field values.
type BuildOptions struct {
	// Entity is the reporting entity identifier.
	Entity string

	// Scheme is the entity identifier scheme; defaults to the LEI scheme.
	Scheme string

	// Period is the reporting period for the single shared context.
	Period Period

	// Currency is the ISO-4217 code for the shared monetary unit;
	// empty means no unit is emitted and no fact carries a unitRef.
	Currency string

	// SchemaRef is the taxonomy schema reference for link:schemaRef.
	SchemaRef string

	// Decimals is the declared precision for monetary facts.
	Decimals string
}

// BuildInstance synthesizes an Instance from validated submission field
// values keyed by concept name. Facts are emitted in the template's
// required-concept order so generation is deterministic; concepts without a
// value are skipped (the validator reports them as missing). Monetary
// concepts reference the shared currency unit.
func BuildInstance(tmpl *Template, values map[string]string, opts BuildOptions) (*Instance, error) {
	if opts.Entity == "" {
		return nil, fmt.Errorf("build instance: entity is required")
	}
	if !opts.Period.IsValid() {
		return nil, fmt.Errorf("build instance: period must be an instant or a start/end duration")
	}

	const contextID = "c-1"
	const unitID = "u-1"

	inst := &Instance{
		SchemaRef: opts.SchemaRef,
		Contexts: []Context{{
			ID:     contextID,
			Entity: opts.Entity,
			Scheme: opts.Scheme,
			Period: opts.Period,
		}},
		Units: []Unit{},
		Facts: []Fact{},
	}

	if opts.Currency != "" {
		inst.Units = append(inst.Units, Unit{
			ID:      unitID,
			Measure: "iso4217:" + opts.Currency,
		})
	}

	for _, name := range tmpl.RequiredConcepts {
		value, ok := values[name]
		if !ok {
			continue
		}
		fact := Fact{
			Name:       name,
			Value:      value,
			ContextRef: contextID,
		}
		if concept := tmpl.Taxonomy.ConceptByName(name); concept != nil && concept.IsMonetary() && opts.Currency != "" {
			fact.UnitRef = unitID
			fact.Decimals = opts.Decimals
		}
		inst.Facts = append(inst.Facts, fact)
	}

	inst.DeriveMetadata()
	return inst, nil
}
