package feed

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed schema/rss25.yml
var defaultSchema []byte

// SchemaViolation describes the first structural problem found in a document.
type SchemaViolation struct {
	Path    string
	Message string
}

func (v *SchemaViolation) Error() string {
	if v.Path == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Schema definition file types

type schemaFile struct {
	Namespace string             `yaml:"namespace"`
	Version   string             `yaml:"version"`
	Root      particleDef        `yaml:"root"`
	Types     map[string]typeDef `yaml:"types"`
}

type typeDef struct {
	Text       *valueDef     `yaml:"text"`
	Attributes []attrDef     `yaml:"attributes"`
	Sequence   []particleDef `yaml:"sequence"`
}

type attrDef struct {
	Name     string `yaml:"name"`
	valueDef `yaml:",inline"`
}

type valueDef struct {
	Required        bool     `yaml:"required"`
	Fixed           string   `yaml:"fixed"`
	Pattern         string   `yaml:"pattern"`
	MaxLength       int      `yaml:"maxLength"`
	Enum            []string `yaml:"enum"`
	CaseInsensitive bool     `yaml:"caseInsensitive"`
}

type particleDef struct {
	Name   string        `yaml:"name"`
	Type   string        `yaml:"type"`
	Occurs string        `yaml:"occurs"`
	Choice []particleDef `yaml:"choice"`
}

// Compiled schema types

// Schema is a compiled, immutable rss25 schema. It is safe for concurrent use.
type Schema struct {
	namespace string
	version   string
	root      *particle
	types     map[string]*elementType
}

type elementType struct {
	name       string
	text       *valueRule
	attributes []attrRule
	sequence   []*particle
}

type attrRule struct {
	name string
	valueRule
}

type valueRule struct {
	required        bool
	fixed           string
	pattern         *regexp.Regexp
	maxLength       int
	enum            []string
	caseInsensitive bool
}

type particle struct {
	min, max     int // max < 0 means unbounded
	alternatives map[string]*elementType
	names        []string
}

// LoadSchema compiles the schema definition at path, or the embedded rss25
// schema when path is empty.
func LoadSchema(path string) (*Schema, error) {
	data := defaultSchema
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %w", err)
		}
	}

	var def schemaFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	return compileSchema(def)
}

func compileSchema(def schemaFile) (*Schema, error) {
	if def.Namespace == "" {
		return nil, fmt.Errorf("schema namespace is required")
	}

	c := &schemaCompiler{defs: def.Types, types: make(map[string]*elementType)}

	root, err := c.particle(def.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid root: %w", err)
	}
	if len(root.names) != 1 {
		return nil, fmt.Errorf("root must name exactly one element")
	}
	root.min, root.max = 1, 1

	return &Schema{namespace: def.Namespace, version: def.Version, root: root, types: c.types}, nil
}

type schemaCompiler struct {
	defs  map[string]typeDef
	types map[string]*elementType
}

func (c *schemaCompiler) elementType(name string) (*elementType, error) {
	if t, ok := c.types[name]; ok {
		return t, nil
	}

	def, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	if def.Text != nil && len(def.Sequence) > 0 {
		return nil, fmt.Errorf("type %q cannot have both text and a sequence", name)
	}

	t := &elementType{name: name}
	// Registered before children compile so recursive types resolve.
	c.types[name] = t

	if def.Text != nil {
		rule, err := compileValue(def.Text)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", name, err)
		}
		t.text = &rule
	}

	for _, a := range def.Attributes {
		if a.Name == "" {
			return nil, fmt.Errorf("type %q: attribute without a name", name)
		}
		rule, err := compileValue(&a.valueDef)
		if err != nil {
			return nil, fmt.Errorf("type %q attribute %q: %w", name, a.Name, err)
		}
		t.attributes = append(t.attributes, attrRule{name: a.Name, valueRule: rule})
	}

	for _, p := range def.Sequence {
		compiled, err := c.particle(p)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", name, err)
		}
		t.sequence = append(t.sequence, compiled)
	}

	return t, nil
}

func (c *schemaCompiler) particle(def particleDef) (*particle, error) {
	min, max, err := parseOccurs(def.Occurs)
	if err != nil {
		return nil, err
	}

	p := &particle{min: min, max: max, alternatives: make(map[string]*elementType)}

	options := def.Choice
	if len(options) == 0 {
		options = []particleDef{def}
	} else if def.Name != "" {
		return nil, fmt.Errorf("particle %q cannot be both an element and a choice", def.Name)
	}

	for _, opt := range options {
		if opt.Name == "" || opt.Type == "" {
			return nil, fmt.Errorf("particle needs both a name and a type")
		}
		t, err := c.elementType(opt.Type)
		if err != nil {
			return nil, err
		}
		p.alternatives[opt.Name] = t
		p.names = append(p.names, opt.Name)
	}

	return p, nil
}

func parseOccurs(s string) (int, int, error) {
	if s == "" {
		return 1, 1, nil
	}

	lo, hi, isRange := strings.Cut(s, "..")
	min, err := strconv.Atoi(lo)
	if err != nil || min < 0 {
		return 0, 0, fmt.Errorf("invalid occurs %q", s)
	}
	if !isRange {
		return min, min, nil
	}
	if hi == "*" {
		return min, -1, nil
	}
	max, err := strconv.Atoi(hi)
	if err != nil || max < min {
		return 0, 0, fmt.Errorf("invalid occurs %q", s)
	}
	return min, max, nil
}

func compileValue(def *valueDef) (valueRule, error) {
	rule := valueRule{
		required:        def.Required,
		fixed:           def.Fixed,
		maxLength:       def.MaxLength,
		enum:            def.Enum,
		caseInsensitive: def.CaseInsensitive,
	}
	if def.Pattern != "" {
		re, err := regexp.Compile(def.Pattern)
		if err != nil {
			return valueRule{}, fmt.Errorf("invalid pattern: %w", err)
		}
		rule.pattern = re
	}
	return rule, nil
}

// Version returns the fixed format version declared by the schema.
func (s *Schema) Version() string {
	return s.version
}

// Validate checks that xmlText is well-formed and conforms to the schema.
// It returns nil or a *SchemaViolation describing the first problem found.
func (s *Schema) Validate(xmlText []byte) error {
	root, err := parseTree(xmlText, true)
	if err != nil {
		return &SchemaViolation{Message: "document is not well-formed: " + err.Error()}
	}

	rootName := s.root.names[0]
	path := "/" + root.Name.Local
	if root.Name.Local != rootName {
		return &SchemaViolation{Path: path, Message: fmt.Sprintf("expected root element <%s>", rootName)}
	}
	if root.Name.Space != s.namespace {
		return &SchemaViolation{Path: path, Message: fmt.Sprintf("root element must be in namespace %q", s.namespace)}
	}

	return s.validateElement(root, s.root.alternatives[rootName], path)
}

// ValidateItem renders item as a standalone document and checks it against
// the schema type named "item".
func (s *Schema) ValidateItem(item Item) error {
	t, ok := s.types["item"]
	if !ok {
		return fmt.Errorf("schema declares no item type")
	}

	doc, err := NewGenerator().RunItem(item)
	if err != nil {
		return &SchemaViolation{Path: "/item", Message: err.Error()}
	}

	root, err := parseTree([]byte(doc), true)
	if err != nil {
		return &SchemaViolation{Message: "document is not well-formed: " + err.Error()}
	}

	return s.validateElement(root, t, "/item")
}

func (s *Schema) validateElement(n *Node, t *elementType, path string) error {
	if err := validateAttributes(n, t, path); err != nil {
		return err
	}

	if t.text != nil {
		if len(n.Children) > 0 {
			return &SchemaViolation{Path: path, Message: fmt.Sprintf("unexpected element <%s> in text-only element", n.Children[0].Name.Local)}
		}
		if msg := t.text.check(strings.TrimSpace(n.Text), true); msg != "" {
			return &SchemaViolation{Path: path, Message: msg}
		}
		return nil
	}

	if strings.TrimSpace(n.Text) != "" {
		return &SchemaViolation{Path: path, Message: "unexpected text content"}
	}

	idx := 0
	counts := make(map[string]int)
	for _, p := range t.sequence {
		matched := 0
		for idx < len(n.Children) && (p.max < 0 || matched < p.max) {
			child := n.Children[idx]
			childType, ok := p.alternatives[child.Name.Local]
			if !ok || child.Name.Space != s.namespace {
				break
			}

			counts[child.Name.Local]++
			childPath := fmt.Sprintf("%s/%s[%d]", path, child.Name.Local, counts[child.Name.Local])
			if err := s.validateElement(child, childType, childPath); err != nil {
				return err
			}
			matched++
			idx++
		}

		if matched < p.min {
			return &SchemaViolation{Path: path, Message: fmt.Sprintf("missing required element <%s>", strings.Join(p.names, "> or <"))}
		}
	}

	if idx < len(n.Children) {
		child := n.Children[idx]
		if child.Name.Space != s.namespace {
			return &SchemaViolation{Path: path, Message: fmt.Sprintf("element <%s> is not in namespace %q", child.Tag(), s.namespace)}
		}
		return &SchemaViolation{Path: path, Message: fmt.Sprintf("unexpected element <%s>", child.Name.Local)}
	}

	return nil
}

func validateAttributes(n *Node, t *elementType, path string) error {
	declared := make(map[string]*attrRule, len(t.attributes))
	for i := range t.attributes {
		declared[t.attributes[i].name] = &t.attributes[i]
	}

	seen := make(map[string]bool)
	for _, attr := range n.Attrs {
		if isNamespaceAttr(attr.Name.Space, attr.Name.Local) {
			continue
		}
		rule, ok := declared[attr.Name.Local]
		if !ok || attr.Name.Space != "" {
			return &SchemaViolation{Path: path, Message: fmt.Sprintf("unexpected attribute %q", attr.Name.Local)}
		}
		seen[attr.Name.Local] = true
		if msg := rule.check(attr.Value, false); msg != "" {
			return &SchemaViolation{Path: path + "/@" + attr.Name.Local, Message: msg}
		}
	}

	for _, rule := range t.attributes {
		if rule.required && !seen[rule.name] {
			return &SchemaViolation{Path: path, Message: fmt.Sprintf("missing required attribute %q", rule.name)}
		}
	}

	return nil
}

func isNamespaceAttr(space, local string) bool {
	return space == "xmlns" || (space == "" && local == "xmlns") ||
		space == "http://www.w3.org/XML/1998/namespace" ||
		space == "http://www.w3.org/2001/XMLSchema-instance"
}

// check returns a violation message, or "" when value satisfies the rule.
// An optional attribute that is present is still checked.
func (r *valueRule) check(value string, isText bool) string {
	if strings.TrimSpace(value) == "" {
		if r.required {
			if isText {
				return "value is required"
			}
			return "value must not be blank"
		}
		if isText {
			return ""
		}
	}

	if r.fixed != "" && value != r.fixed {
		return fmt.Sprintf("value must be %q, got %q", r.fixed, value)
	}

	if r.maxLength > 0 && utf8.RuneCountInString(value) > r.maxLength {
		return fmt.Sprintf("value exceeds %d characters", r.maxLength)
	}

	if len(r.enum) > 0 && !r.inEnum(value) {
		return fmt.Sprintf("value %q is not one of %s", value, strings.Join(r.enum, ", "))
	}

	if r.pattern != nil && !r.pattern.MatchString(value) {
		return fmt.Sprintf("value %q does not match pattern %s", value, r.pattern.String())
	}

	return ""
}

func (r *valueRule) inEnum(value string) bool {
	for _, allowed := range r.enum {
		if value == allowed || (r.caseInsensitive && strings.EqualFold(value, allowed)) {
			return true
		}
	}
	return false
}
