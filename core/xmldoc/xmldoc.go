// Package xmldoc provides pure Go XML parsing and formatting on top of
// xmlquery, tailored to namespace-heavy regulatory documents where elements
// must be matched by local name regardless of the prefix a producer chose.
//
// Security Notes:
//   - XXE (External Entity) attacks are mitigated by using Go's xml.Decoder
//     which doesn't fetch external entities by default, and we explicitly
//     disable entity expansion when checking well-formedness.
//   - The xmlquery library is used for parsing, which uses Go's encoding/xml
//     internally and inherits its security properties.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/regsuite/filings/core/encoding"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node represents an XML element node.
type Node struct {
	node *xmlquery.Node
}

// FormatOptions controls XML formatting behavior.
type FormatOptions struct {
	Indent string // Indentation string (e.g., "  " or "\t")
}

// Parse parses XML data and returns a Document. Malformed XML is a fatal
// error for the whole parse; no partial document is returned.
func Parse(data []byte) (*Document, error) {
	if err := checkWellFormed(data); err != nil {
		return nil, err
	}
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return &Document{root: root}, nil
}

// checkWellFormed walks every token with entity expansion disabled.
func checkWellFormed(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	// XXE Protection (CWE-611): Go's xml.Decoder doesn't fetch external
	// entities by default; disable internal expansion as well.
	decoder.Entity = map[string]string{}

	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed XML: %w", err)
		}
	}
}

// Root returns the root element of the document.
func (d *Document) Root() *Node {
	if d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// Elements returns every element node of the document in document order.
// This is the first pass of permissive scans that filter by an explicit
// predicate afterwards.
func (d *Document) Elements() []*Node {
	if d.root == nil {
		return nil
	}
	var out []*Node
	collectElements(d.root, &out)
	return out
}

func collectElements(n *xmlquery.Node, out *[]*Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			*out = append(*out, &Node{node: child})
		}
		collectElements(child, out)
	}
}

// ElementsByLocal returns every element whose local name matches, in
// document order, regardless of namespace prefix.
func (d *Document) ElementsByLocal(local string) []*Node {
	var out []*Node
	for _, n := range d.Elements() {
		if n.LocalName() == local {
			out = append(out, n)
		}
	}
	return out
}

// LocalName returns the element name without its namespace prefix.
func (n *Node) LocalName() string {
	if n.node == nil {
		return ""
	}
	return n.node.Data
}

// Prefix returns the element's namespace prefix, if any.
func (n *Node) Prefix() string {
	if n.node == nil {
		return ""
	}
	return n.node.Prefix
}

// NamespaceURI returns the namespace URI the element's prefix resolves to,
// or "" when the element is unprefixed or the prefix is undeclared.
func (n *Node) NamespaceURI() string {
	if n.node == nil {
		return ""
	}
	if n.node.NamespaceURI == n.node.Prefix {
		// encoding/xml passes undeclared prefixes through verbatim.
		return ""
	}
	return n.node.NamespaceURI
}

// Name returns the element name including its prefix when present.
func (n *Node) Name() string {
	if n.node == nil {
		return ""
	}
	if n.node.Prefix != "" {
		return n.node.Prefix + ":" + n.node.Data
	}
	return n.node.Data
}

// Text returns the trimmed text content of the node and its descendants.
func (n *Node) Text() string {
	if n.node == nil {
		return ""
	}
	return strings.TrimSpace(n.node.InnerText())
}

// Attr returns the value of the attribute with the given local name,
// ignoring any namespace prefix ("xlink:href" matches local "href").
func (n *Node) Attr(local string) string {
	if n.node == nil {
		return ""
	}
	for _, attr := range n.node.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}

// HasAttr reports whether an attribute with the given local name exists.
func (n *Node) HasAttr(local string) bool {
	if n.node == nil {
		return false
	}
	for _, attr := range n.node.Attr {
		if attr.Name.Local == local {
			return true
		}
	}
	return false
}

// Children returns the direct child element nodes.
func (n *Node) Children() []*Node {
	if n.node == nil {
		return nil
	}
	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// ChildByLocal returns the first direct child element with the given local
// name, or nil.
func (n *Node) ChildByLocal(local string) *Node {
	for _, child := range n.Children() {
		if child.LocalName() == local {
			return child
		}
	}
	return nil
}

// FindByLocal returns all descendant elements with the given local name in
// document order.
func (n *Node) FindByLocal(local string) []*Node {
	if n.node == nil {
		return nil
	}
	var all []*Node
	collectElements(n.node, &all)
	var out []*Node
	for _, e := range all {
		if e.LocalName() == local {
			out = append(out, e)
		}
	}
	return out
}

// XPath executes an XPath query and returns matching element nodes.
func (d *Document) XPath(expr string) ([]*Node, error) {
	// Compile the expression to check for errors
	_, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	nodes, err := xmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query failed: %w", err)
	}

	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result, nil
}

// XPathFirst executes an XPath query and returns the first matching node,
// or nil when nothing matches.
func (d *Document) XPathFirst(expr string) (*Node, error) {
	_, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	node, err := xmlquery.Query(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query failed: %w", err)
	}
	if node == nil {
		return nil, nil
	}
	return &Node{node: node}, nil
}

// Format formats/pretty-prints XML data. A declaration is emitted only when
// the input carries one; xmlquery synthesizes a declaration node for inputs
// that lack it, and that synthetic node is skipped.
func Format(data []byte, opts FormatOptions) ([]byte, error) {
	if opts.Indent == "" {
		opts.Indent = "  "
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	hasDecl := bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("<?xml"))

	var buf bytes.Buffer
	for child := doc.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.DeclarationNode && !hasDecl {
			continue
		}
		if err := formatNode(&buf, child, 0, opts.Indent); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// formatNode recursively formats an XML node.
func formatNode(w *bytes.Buffer, n *xmlquery.Node, depth int, indent string) error {
	switch n.Type {
	case xmlquery.DeclarationNode:
		w.WriteString("<?xml")
		for _, attr := range n.Attr {
			w.WriteString(" ")
			w.WriteString(attr.Name.Local)
			w.WriteString("=\"")
			w.WriteString(encoding.EscapeXMLAttr(attr.Value))
			w.WriteString("\"")
		}
		w.WriteString("?>\n")

	case xmlquery.ElementNode:
		writeIndent(w, depth, indent)
		w.WriteString("<")
		if n.Prefix != "" {
			w.WriteString(n.Prefix)
			w.WriteString(":")
		}
		w.WriteString(n.Data)

		for _, attr := range n.Attr {
			w.WriteString(" ")
			if attr.Name.Space != "" {
				w.WriteString("xmlns:")
				w.WriteString(attr.Name.Local)
			} else if attr.Name.Local != "" {
				w.WriteString(attr.Name.Local)
			}
			w.WriteString("=\"")
			w.WriteString(encoding.EscapeXMLAttr(attr.Value))
			w.WriteString("\"")
		}

		hasChildren := n.FirstChild != nil
		hasElementChildren := false
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.ElementNode {
				hasElementChildren = true
				break
			}
		}

		if !hasChildren {
			w.WriteString("/>\n")
		} else {
			w.WriteString(">")
			if hasElementChildren {
				w.WriteString("\n")
			}

			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type == xmlquery.ElementNode {
					if err := formatNode(w, child, depth+1, indent); err != nil {
						return err
					}
				} else if child.Type == xmlquery.TextNode {
					text := strings.TrimSpace(child.Data)
					if text != "" {
						if hasElementChildren {
							writeIndent(w, depth+1, indent)
						}
						w.WriteString(encoding.EscapeXMLText(child.Data))
						if hasElementChildren {
							w.WriteString("\n")
						}
					}
				} else if child.Type == xmlquery.CharDataNode {
					w.WriteString("<![CDATA[")
					w.WriteString(child.Data)
					w.WriteString("]]>")
				}
			}

			if hasElementChildren {
				writeIndent(w, depth, indent)
			}
			w.WriteString("</")
			if n.Prefix != "" {
				w.WriteString(n.Prefix)
				w.WriteString(":")
			}
			w.WriteString(n.Data)
			w.WriteString(">\n")
		}

	case xmlquery.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			w.WriteString(encoding.EscapeXMLText(text))
		}

	case xmlquery.CommentNode:
		writeIndent(w, depth, indent)
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->\n")
	}

	return nil
}

func writeIndent(w *bytes.Buffer, depth int, indent string) {
	for i := 0; i < depth; i++ {
		w.WriteString(indent)
	}
}
