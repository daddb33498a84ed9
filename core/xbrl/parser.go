package xbrl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/regsuite/filings/core/errors"
	"github.com/regsuite/filings/core/xmldoc"
	"github.com/regsuite/filings/internal/logging"
)

// Namespaces is the static namespace binding configuration for the XBRL
// vocabularies. It is passed into the parser and generator explicitly
// rather than living in ambient state.
type Namespaces struct {
	XBRLI   string
	Link    string
	XLink   string
	XSI     string
	XS      string
	ISO4217 string
}

// DefaultNamespaces returns the standard XBRL 2.1 namespace bindings.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		XBRLI:   "http://www.xbrl.org/2003/instance",
		Link:    "http://www.xbrl.org/2003/linkbase",
		XLink:   "http://www.w3.org/1999/xlink",
		XSI:     "http://www.w3.org/2001/XMLSchema-instance",
		XS:      "http://www.w3.org/2001/XMLSchema",
		ISO4217: "http://www.xbrl.org/2003/iso4217",
	}
}

// Parser reads XBRL instance and taxonomy schema documents into the typed
// model. Element matching is by local name: producers vary in the prefixes
// they declare, and a fact in an unknown taxonomy namespace is still a fact.
type Parser struct {
	NS Namespaces
}

// NewParser returns a Parser with the standard namespace bindings.
func NewParser() *Parser {
	return &Parser{NS: DefaultNamespaces()}
}

// IsFactElement is the predicate of the permissive fact scan: any element
// bearing a contextRef attribute is treated as a fact, whatever its
// namespace. Structural elements (context, unit, schemaRef) never carry
// contextRef, so they are excluded naturally.
func IsFactElement(n *xmldoc.Node) bool {
	return n.HasAttr("contextRef")
}

// ParseInstance parses an XBRL instance document. Malformed XML is fatal
// for the whole call; a well-formed document missing expected sub-elements
// yields empty collections instead of failing.
func (p *Parser) ParseInstance(data []byte) (*Instance, error) {
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, &apperrors.ParseError{Format: "XBRL instance", Message: err.Error(), Err: err}
	}

	inst := &Instance{
		Contexts: []Context{},
		Units:    []Unit{},
		Facts:    []Fact{},
	}

	if ref := firstByLocal(doc, "schemaRef"); ref != nil {
		inst.SchemaRef = ref.Attr("href")
	}

	for _, node := range doc.ElementsByLocal("context") {
		inst.Contexts = append(inst.Contexts, parseContext(node))
	}

	for _, node := range doc.ElementsByLocal("unit") {
		unit := Unit{ID: node.Attr("id")}
		if measure := node.ChildByLocal("measure"); measure != nil {
			unit.Measure = measure.Text()
		} else if measures := node.FindByLocal("measure"); len(measures) > 0 {
			unit.Measure = measures[0].Text()
		}
		inst.Units = append(inst.Units, unit)
	}

	// Two-pass fact scan: collect every element, then filter by the
	// explicit predicate.
	for _, node := range doc.Elements() {
		if !IsFactElement(node) {
			continue
		}
		inst.Facts = append(inst.Facts, Fact{
			Name:       node.LocalName(),
			Namespace:  node.Prefix(),
			Value:      node.Text(),
			ContextRef: node.Attr("contextRef"),
			UnitRef:    node.Attr("unitRef"),
			Decimals:   node.Attr("decimals"),
		})
		if prefix := node.Prefix(); prefix != "" {
			if uri := node.NamespaceURI(); uri != "" {
				if inst.FactNamespaces == nil {
					inst.FactNamespaces = map[string]string{}
				}
				if _, ok := inst.FactNamespaces[prefix]; !ok {
					inst.FactNamespaces[prefix] = uri
				}
			}
		}
	}

	inst.DeriveMetadata()
	return inst, nil
}

// ParseInstanceFile reads and parses an instance document from disk. The
// context allows the caller to abort before the read starts; parsing itself
// is deterministic and not retryable.
func (p *Parser) ParseInstanceFile(ctx context.Context, path string) (*Instance, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	inst, err := p.ParseInstance(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.DocumentParsed(path, "instance", len(inst.Facts), len(inst.Contexts), len(inst.Units))
	return inst, nil
}

// parseContext extracts one Context from an xbrli:context element.
func parseContext(node *xmldoc.Node) Context {
	ctx := Context{ID: node.Attr("id")}

	if entity := node.ChildByLocal("entity"); entity != nil {
		if ident := entity.ChildByLocal("identifier"); ident != nil {
			ctx.Entity = ident.Text()
			ctx.Scheme = ident.Attr("scheme")
		}
	}

	if period := node.ChildByLocal("period"); period != nil {
		if instant := period.ChildByLocal("instant"); instant != nil {
			ctx.Period.Instant = instant.Text()
		} else {
			if start := period.ChildByLocal("startDate"); start != nil {
				ctx.Period.StartDate = start.Text()
			}
			if end := period.ChildByLocal("endDate"); end != nil {
				ctx.Period.EndDate = end.Text()
			}
		}
	}

	return ctx
}

// ParseTaxonomy parses a taxonomy schema document into a Taxonomy. Concepts
// come from xs:element declarations; presentation relationships are
// extracted best-effort from embedded presentation links.
func (p *Parser) ParseTaxonomy(data []byte) (*Taxonomy, error) {
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, &apperrors.ParseError{Format: "taxonomy schema", Message: err.Error(), Err: err}
	}

	tax := &Taxonomy{Concepts: []Concept{}}

	for _, node := range doc.ElementsByLocal("element") {
		name := node.Attr("name")
		if name == "" {
			continue
		}
		concept := Concept{
			Name:       name,
			Type:       node.Attr("type"),
			Label:      labelFromName(name),
			Abstract:   node.Attr("abstract") == "true",
			PeriodType: node.Attr("periodType"),
			Balance:    node.Attr("balance"),
		}
		// xs:documentation nests under xs:annotation when present.
		if docs := node.FindByLocal("documentation"); len(docs) > 0 {
			concept.Documentation = docs[0].Text()
		}
		tax.Concepts = append(tax.Concepts, concept)
	}

	for _, link := range doc.ElementsByLocal("presentationLink") {
		tax.Presentations = append(tax.Presentations, parsePresentationLink(link))
	}

	return tax, nil
}

// ParseTaxonomyFile reads and parses a taxonomy schema from disk.
func (p *Parser) ParseTaxonomyFile(ctx context.Context, path string) (*Taxonomy, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	tax, err := p.ParseTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.DocumentParsed(path, "taxonomy", 0, 0, 0, "concepts", len(tax.Concepts))
	return tax, nil
}

// parsePresentationLink extracts one presentation group. Locators map
// xlink labels to concept names; arcs supply ordering and parentage.
func parsePresentationLink(link *xmldoc.Node) Presentation {
	pres := Presentation{Role: link.Attr("role")}

	labelToConcept := make(map[string]string)
	for _, loc := range link.FindByLocal("loc") {
		label := loc.Attr("label")
		href := loc.Attr("href")
		if label == "" || href == "" {
			continue
		}
		labelToConcept[label] = conceptFromHref(href)
	}

	seen := make(map[string]bool)
	for _, arc := range link.FindByLocal("presentationArc") {
		to := labelToConcept[arc.Attr("to")]
		if to == "" {
			continue
		}
		order, _ := strconv.ParseFloat(arc.Attr("order"), 64)
		pres.Concepts = append(pres.Concepts, PresentationConcept{
			Name:   to,
			Order:  order,
			Parent: labelToConcept[arc.Attr("from")],
		})
		seen[to] = true
	}

	// Locators without arcs still belong to the group.
	for _, name := range labelToConcept {
		if !seen[name] {
			pres.Concepts = append(pres.Concepts, PresentationConcept{Name: name})
			seen[name] = true
		}
	}

	return pres
}

// conceptFromHref extracts the concept name from a locator href fragment
// such as "schema.xsd#ns_TotalAssets".
func conceptFromHref(href string) string {
	frag := href
	if idx := strings.Index(href, "#"); idx >= 0 {
		frag = href[idx+1:]
	}
	if idx := strings.Index(frag, "_"); idx >= 0 {
		return frag[idx+1:]
	}
	return frag
}

// labelFromName derives a readable label by splitting a CamelCase concept
// name into words ("TotalAssets" becomes "Total Assets").
func labelFromName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(name[i-1])
			if prev >= 'a' && prev <= 'z' {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// firstByLocal returns the first element with the given local name.
func firstByLocal(doc *xmldoc.Document, local string) *xmldoc.Node {
	nodes := doc.ElementsByLocal(local)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// readFile is the boundary file read: fallible and abortable before the
// read begins. No in-memory state is touched until the read completes.
func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
