package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Node is an element of a generic XML tree. Name.Space holds the resolved
// namespace URI and Prefix the prefix used in the source document.
type Node struct {
	Name     xml.Name
	Prefix   string
	Attrs    []xml.Attr
	Children []*Node
	Text     string
}

// ParseTree builds a generic element tree from arbitrary markup. The decoder
// is lenient about HTML entities and undeclared prefixes. Elements are never
// closed implicitly, since RSS gives <link> a text body.
func ParseTree(data []byte) (*Node, error) {
	return parseTree(data, false)
}

func parseTree(data []byte, strict bool) (*Node, error) {
	d := newDecoder(bytes.NewReader(data))
	if !strict {
		d.Strict = false
		d.Entity = xml.HTMLEntity
	}

	var root *Node
	var stack []*Node
	var scopes []map[string]string // namespace URI -> prefix

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			scope := map[string]string{}
			if len(scopes) > 0 {
				for uri, prefix := range scopes[len(scopes)-1] {
					scope[uri] = prefix
				}
			}
			for _, attr := range t.Attr {
				switch {
				case attr.Name.Space == "xmlns":
					scope[attr.Value] = attr.Name.Local
				case attr.Name.Space == "" && attr.Name.Local == "xmlns":
					scope[attr.Value] = ""
				}
			}
			scopes = append(scopes, scope)

			node := &Node{
				Name:   t.Name,
				Prefix: scope[t.Name.Space],
				Attrs:  t.Copy().Attr,
			}
			if t.Name.Space != "" {
				if _, known := scope[t.Name.Space]; !known {
					// Undeclared prefix: the decoder leaves it in Space.
					node.Prefix = t.Name.Space
				}
			}

			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			} else if root == nil {
				root = node
			} else {
				return nil, fmt.Errorf("failed to parse XML: multiple root elements")
			}
			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
				scopes = scopes[:len(scopes)-1]
			}

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			} else if strict && strings.TrimSpace(string(t)) != "" {
				return nil, fmt.Errorf("failed to parse XML: text outside the root element")
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("failed to parse XML: no root element")
	}

	return root, nil
}

func newDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.CharsetReader = charsetReader
	return d
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// Tag returns the element name as written, with its prefix.
func (n *Node) Tag() string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Name.Local
	}
	return n.Name.Local
}

// Attr returns the value of the attribute with the given local name.
func (n *Node) Attr(name string) (string, bool) {
	for _, attr := range n.Attrs {
		if attr.Name.Local == name && attr.Name.Space != "xmlns" {
			return attr.Value, true
		}
	}
	return "", false
}

// FindAll returns every descendant whose tag matches, in document order.
func (n *Node) FindAll(tag string) []*Node {
	var found []*Node
	for _, child := range n.Children {
		if child.Tag() == tag {
			found = append(found, child)
		}
		found = append(found, child.FindAll(tag)...)
	}
	return found
}

// Find returns the first descendant whose tag matches, or nil.
func (n *Node) Find(tag string) *Node {
	for _, child := range n.Children {
		if child.Tag() == tag {
			return child
		}
		if found := child.Find(tag); found != nil {
			return found
		}
	}
	return nil
}

// FindText returns the trimmed text of the first matching descendant.
func (n *Node) FindText(tag string) string {
	if found := n.Find(tag); found != nil {
		return strings.TrimSpace(found.Text)
	}
	return ""
}

// Child returns the first direct child whose tag matches, or nil.
func (n *Node) Child(tag string) *Node {
	for _, child := range n.Children {
		if child.Tag() == tag {
			return child
		}
	}
	return nil
}

// ChildText returns the trimmed text of the first matching direct child.
func (n *Node) ChildText(tag string) string {
	if child := n.Child(tag); child != nil {
		return strings.TrimSpace(child.Text)
	}
	return ""
}
