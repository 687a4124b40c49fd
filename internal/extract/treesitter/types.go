// Package treesitter is the fast, in-process code-unit extractor used by
// the interactive editor hook, where LSP round-trip latency is
// unacceptable. It parses a single file with tree-sitter and extracts
// function-like symbols together with their enclosing type's
// field/property declarations.
package treesitter

// Point is a position in source, 0-indexed as tree-sitter reports it.
// Callers crossing into model.CodeUnit convert to 1-based lines.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is our own thin mirror of a tree-sitter node, decoupled from the
// smacker bindings so the extraction logic can be tested without a parser.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// GetContent returns the source slice spanned by n.
func (n *Node) GetContent(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// FindChildByType returns the first direct child of the given type.
func (n *Node) FindChildByType(nodeType string) *Node {
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c
		}
	}
	return nil
}

// FindChildrenByType returns every direct child of the given type.
func (n *Node) FindChildrenByType(nodeType string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == nodeType {
			out = append(out, c)
		}
	}
	return out
}

// FindAllByType recursively collects every node of the given type.
func (n *Node) FindAllByType(nodeType string) []*Node {
	var out []*Node
	if n.Type == nodeType {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, c.FindAllByType(nodeType)...)
	}
	return out
}

// Walk traverses the tree depth-first, calling fn for each node. fn
// returning false stops descent into that node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Tree is a parsed file.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// FuncKind mirrors model.Kind without importing internal/model.
type FuncKind string

const (
	FuncKindFunction    FuncKind = "function"
	FuncKindMethod      FuncKind = "method"
	FuncKindConstructor FuncKind = "constructor"
)

// LanguageConfig declares which tree-sitter node types carry which meaning
// for a given language.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// FunctionTypes are top-level, free-standing function declarations.
	FunctionTypes []string
	// MethodTypes are functions declared inside a type (impl/class body).
	MethodTypes []string
	// ConstructorTypes are initializer node types (Swift `init`). A TS/JS
	// `constructor` is a method node reclassified by its name; Rust's
	// associated `fn new` is NOT structurally distinguishable so it is
	// treated as a method.
	ConstructorTypes []string
	// TypeTypes are nodes that introduce a struct/class/enum the extractor
	// treats as an "enclosing type" for method qualification and field
	// prefacing.
	TypeTypes []string
	// FieldContainerType is the node type wrapping a type's field/property
	// list (e.g. Rust's field_declaration_list, Swift's class_body).
	FieldContainerType string
	// FieldTypes are the declaration node types within FieldContainerType
	// that represent a single field/property.
	FieldTypes []string
	// FieldPreface is the exact comment line prepended before a type's
	// field declarations: "// Struct fields:" for Rust,
	// "// Class properties:" for Swift/TS/JS. Changing it invalidates
	// every cached embedding, since the preface is part of the embedded
	// body.
	FieldPreface string

	// NameField is the node type carrying a declaration's identifier.
	NameField string
}
