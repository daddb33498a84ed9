package xbrl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/regsuite/filings/core/encoding"
	"github.com/regsuite/filings/internal/logging"
)

// ErrSubmissionNotPassed is returned when document generation is requested
// for a submission that has not passed validation.
var ErrSubmissionNotPassed = errors.New("submission has not passed validation")

// defaultScheme is the entity identifier scheme written when a context
// does not carry one (ISO 17442, the LEI scheme).
const defaultScheme = "http://standards.iso.org/iso/17442"

// Generator serializes an Instance to a well-formed, pretty-printed XBRL
// document. Element order is deterministic: schemaRef, then contexts, then
// units, then facts, each in source order. Namespace declarations for fact
// prefixes come from the instance's recorded bindings, overridable through
// Extra.
type Generator struct {
	NS Namespaces

	// Extra maps additional namespace prefixes to their URIs; each is
	// declared on the root element and overrides a binding of the same
	// prefix recorded on the instance.
	Extra map[string]string
}

// NewGenerator returns a Generator with the standard namespace bindings.
func NewGenerator() *Generator {
	return &Generator{NS: DefaultNamespaces()}
}

// Generate builds the document as UTF-8 XML bytes. The instance is checked
// against its structural invariants first; an invalid model is an error,
// not a malformed document.
func (g *Generator) Generate(inst *Instance) ([]byte, error) {
	if errs := inst.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("instance model invalid: %w", errors.Join(errs...))
	}

	decls, err := g.namespaceDecls(inst)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")

	b.WriteString(`<xbrli:xbrl xmlns:xbrli="` + encoding.EscapeXMLAttr(g.NS.XBRLI) + `"`)
	b.WriteString("\n    ")
	b.WriteString(`xmlns:link="` + encoding.EscapeXMLAttr(g.NS.Link) + `"`)
	b.WriteString("\n    ")
	b.WriteString(`xmlns:xlink="` + encoding.EscapeXMLAttr(g.NS.XLink) + `"`)
	b.WriteString("\n    ")
	b.WriteString(`xmlns:xsi="` + encoding.EscapeXMLAttr(g.NS.XSI) + `"`)
	if needsISO4217(inst) {
		b.WriteString("\n    ")
		b.WriteString(`xmlns:iso4217="` + encoding.EscapeXMLAttr(g.NS.ISO4217) + `"`)
	}
	for _, prefix := range sortedKeys(decls) {
		b.WriteString("\n    ")
		b.WriteString(`xmlns:` + prefix + `="` + encoding.EscapeXMLAttr(decls[prefix]) + `"`)
	}
	b.WriteString(">\n")

	if inst.SchemaRef != "" {
		b.WriteString(`  <link:schemaRef xlink:type="simple" xlink:href="`)
		b.WriteString(encoding.EscapeXMLAttr(inst.SchemaRef))
		b.WriteString("\"/>\n")
	}

	for _, ctx := range inst.Contexts {
		writeContext(&b, ctx)
	}

	for _, unit := range inst.Units {
		b.WriteString(`  <xbrli:unit id="` + encoding.EscapeXMLAttr(unit.ID) + `">`)
		b.WriteString("\n")
		b.WriteString("    <xbrli:measure>" + encoding.EscapeXMLText(unit.Measure) + "</xbrli:measure>\n")
		b.WriteString("  </xbrli:unit>\n")
	}

	for _, fact := range inst.Facts {
		writeFact(&b, fact)
	}

	b.WriteString("</xbrli:xbrl>\n")
	return []byte(b.String()), nil
}

// namespaceDecls merges the instance's recorded fact bindings with Extra
// and checks that every prefix the facts use is covered, either by a merged
// binding or by a namespace already declared on the root. An unbound prefix
// is an error: emitting it would produce a document that is not
// namespace-well-formed.
func (g *Generator) namespaceDecls(inst *Instance) (map[string]string, error) {
	declared := map[string]bool{"xbrli": true, "link": true, "xlink": true, "xsi": true}
	if needsISO4217(inst) {
		declared["iso4217"] = true
	}

	decls := make(map[string]string, len(inst.FactNamespaces)+len(g.Extra))
	for prefix, uri := range inst.FactNamespaces {
		if !declared[prefix] {
			decls[prefix] = uri
		}
	}
	for prefix, uri := range g.Extra {
		if !declared[prefix] {
			decls[prefix] = uri
		}
	}

	for _, fact := range inst.Facts {
		if fact.Namespace == "" || declared[fact.Namespace] {
			continue
		}
		if decls[fact.Namespace] == "" {
			return nil, fmt.Errorf("fact %s: no namespace binding for prefix %q", fact.Name, fact.Namespace)
		}
	}
	return decls, nil
}

// writeContext renders one xbrli:context; the period is an instant or a
// start/end duration depending on which fields are populated.
func writeContext(b *strings.Builder, ctx Context) {
	b.WriteString(`  <xbrli:context id="` + encoding.EscapeXMLAttr(ctx.ID) + `">`)
	b.WriteString("\n")

	scheme := ctx.Scheme
	if scheme == "" {
		scheme = defaultScheme
	}
	b.WriteString("    <xbrli:entity>\n")
	b.WriteString(`      <xbrli:identifier scheme="` + encoding.EscapeXMLAttr(scheme) + `">`)
	b.WriteString(encoding.EscapeXMLText(ctx.Entity))
	b.WriteString("</xbrli:identifier>\n")
	b.WriteString("    </xbrli:entity>\n")

	b.WriteString("    <xbrli:period>\n")
	if ctx.Period.IsInstant() {
		b.WriteString("      <xbrli:instant>" + encoding.EscapeXMLText(ctx.Period.Instant) + "</xbrli:instant>\n")
	} else {
		b.WriteString("      <xbrli:startDate>" + encoding.EscapeXMLText(ctx.Period.StartDate) + "</xbrli:startDate>\n")
		b.WriteString("      <xbrli:endDate>" + encoding.EscapeXMLText(ctx.Period.EndDate) + "</xbrli:endDate>\n")
	}
	b.WriteString("    </xbrli:period>\n")
	b.WriteString("  </xbrli:context>\n")
}

// writeFact renders one fact element named after its concept.
func writeFact(b *strings.Builder, fact Fact) {
	name := fact.Name
	if fact.Namespace != "" {
		name = fact.Namespace + ":" + fact.Name
	}
	b.WriteString("  <" + name)
	b.WriteString(` contextRef="` + encoding.EscapeXMLAttr(fact.ContextRef) + `"`)
	if fact.UnitRef != "" {
		b.WriteString(` unitRef="` + encoding.EscapeXMLAttr(fact.UnitRef) + `"`)
	}
	if fact.Decimals != "" {
		b.WriteString(` decimals="` + encoding.EscapeXMLAttr(fact.Decimals) + `"`)
	}
	b.WriteString(">")
	b.WriteString(encoding.EscapeXMLText(fact.Value))
	b.WriteString("</" + name + ">\n")
}

// GenerateToFile writes the document to path. The write is atomic from the
// caller's perspective: the bytes land in a temp file first and are renamed
// into place, so an aborted write never leaves a partial report.
func (g *Generator) GenerateToFile(ctx context.Context, inst *Instance, path string) error {
	data, err := g.Generate(inst)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".xbrl-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize report: %w", err)
	}

	logging.DocumentGenerated(path, len(data))
	return nil
}

// needsISO4217 reports whether any unit uses an iso4217 measure.
func needsISO4217(inst *Instance) bool {
	for _, u := range inst.Units {
		if strings.HasPrefix(strings.ToLower(u.Measure), "iso4217:") {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
