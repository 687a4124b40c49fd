package treesitter

import (
	"strings"
)

// Unit is a function-like symbol extracted from a single parsed file,
// already carrying its property/field-context preface. Callers (the hook)
// turn this into a model.CodeUnit by adding qualified_name, project_id,
// and hashes.
type Unit struct {
	Name            string
	EnclosingType   string // "" for top-level functions
	Kind            FuncKind
	StartLine       int // 1-based, inclusive
	EndLine         int // 1-based, inclusive
	SelectionLine   int // 0-based, LSP-style
	SelectionColumn int // 0-based, LSP-style
	Body            string // contextualized: field preface (if any) + original body
}

// Extractor walks a parsed Tree and produces Units.
type Extractor struct {
	registry *LanguageRegistry
}

// NewExtractor creates an Extractor backed by the default registry.
func NewExtractor() *Extractor {
	return &Extractor{registry: DefaultRegistry()}
}

// Extract returns every function-like Unit in tree, each prefaced with its
// enclosing type's field/property declarations.
func (e *Extractor) Extract(tree *Tree) []Unit {
	if tree == nil || tree.Root == nil {
		return nil
	}
	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return nil
	}

	fieldPrefaceByType := e.buildFieldPrefaces(tree.Root, tree.Source, config)

	var units []Unit
	var walkForFunctions func(n *Node, enclosingType string)
	walkForFunctions = func(n *Node, enclosingType string) {
		if isType(n.Type, config.TypeTypes) {
			enclosingType = typeName(n, tree.Source, config)
		}

		if unit, ok := e.tryExtractFunction(n, tree.Source, config, enclosingType, fieldPrefaceByType); ok {
			units = append(units, unit)
		}

		for _, child := range n.Children {
			walkForFunctions(child, enclosingType)
		}
	}
	walkForFunctions(tree.Root, "")

	return units
}

// buildFieldPrefaces maps enclosing-type name -> the "// Struct fields:" /
// "// Class properties:" comment block for that type, built once per file
// so every method inside the type reuses the same preface text.
func (e *Extractor) buildFieldPrefaces(root *Node, source []byte, config *LanguageConfig) map[string]string {
	prefaces := make(map[string]string)
	if config.FieldContainerType == "" {
		return prefaces
	}

	for _, typeType := range config.TypeTypes {
		for _, typeNode := range root.FindAllByType(typeType) {
			name := typeName(typeNode, source, config)
			if name == "" {
				continue
			}
			container := typeNode.FindChildByType(config.FieldContainerType)
			if container == nil {
				continue
			}

			var lines []string
			for _, fieldType := range config.FieldTypes {
				for _, field := range container.FindChildrenByType(fieldType) {
					lines = append(lines, strings.TrimSpace(field.GetContent(source)))
				}
			}
			if len(lines) == 0 {
				continue
			}

			prefaces[name] = config.FieldPreface + "\n" + strings.Join(lines, "\n") + "\n\n"
		}
	}
	return prefaces
}

func (e *Extractor) tryExtractFunction(n *Node, source []byte, config *LanguageConfig, enclosingType string, prefaces map[string]string) (Unit, bool) {
	kind, isFunc := classify(n.Type, enclosingType, config)
	if !isFunc {
		return Unit{}, false
	}

	name := e.extractName(n, source, config)
	if name == "" && kind == FuncKindConstructor {
		// Swift's init_declaration has no identifier child; its name is
		// the init keyword itself.
		name = "init"
	}
	if name == "" {
		return Unit{}, false
	}
	switch config.Name {
	case "typescript", "tsx", "javascript", "jsx":
		if kind == FuncKindMethod && name == "constructor" {
			kind = FuncKindConstructor
		}
	}

	selLine, selCol := e.findNameSelection(n, source, config)

	body := n.GetContent(source)
	if enclosingType != "" {
		if preface, ok := prefaces[enclosingType]; ok {
			body = preface + body
		}
	}

	return Unit{
		Name:            name,
		EnclosingType:   enclosingType,
		Kind:            kind,
		StartLine:       int(n.StartPoint.Row) + 1,
		EndLine:         int(n.EndPoint.Row) + 1,
		SelectionLine:   selLine,
		SelectionColumn: selCol,
		Body:            body,
	}, true
}

// classify decides whether node type nt is a function the extractor should
// emit, and if so which Kind it is. A method inside a type is a
// constructor if its name matches a language's constructor convention
// (checked by the caller, tryExtractFunction), otherwise method; a bare
// function at top level is FuncKindFunction.
func classify(nt, enclosingType string, config *LanguageConfig) (FuncKind, bool) {
	for _, ct := range config.ConstructorTypes {
		if nt == ct {
			return FuncKindConstructor, true
		}
	}
	if enclosingType != "" {
		for _, mt := range config.MethodTypes {
			if nt == mt {
				return FuncKindMethod, true
			}
		}
	}
	for _, ft := range config.FunctionTypes {
		if nt == ft {
			return FuncKindFunction, true
		}
	}
	return "", false
}

func isType(nt string, typeTypes []string) bool {
	for _, tt := range typeTypes {
		if nt == tt {
			return true
		}
	}
	return false
}

func typeName(n *Node, source []byte, config *LanguageConfig) string {
	for _, child := range n.Children {
		if child.Type == config.NameField || child.Type == "type_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

// extractName finds a function-like node's identifier child, checking the
// language's declared NameField first and falling back to common
// identifier node types used across the supported grammars.
func (e *Extractor) extractName(n *Node, source []byte, config *LanguageConfig) string {
	candidates := []string{config.NameField, "identifier", "field_identifier", "simple_identifier", "property_identifier"}
	for _, candidate := range candidates {
		if child := n.FindChildByType(candidate); child != nil {
			return child.GetContent(source)
		}
	}
	return ""
}

// findNameSelection returns the 0-based (line, column) of the function's
// identifier, the point later used for prepareCallHierarchy.
func (e *Extractor) findNameSelection(n *Node, source []byte, config *LanguageConfig) (int, int) {
	candidates := []string{config.NameField, "identifier", "field_identifier", "simple_identifier", "property_identifier"}
	for _, candidate := range candidates {
		if child := n.FindChildByType(candidate); child != nil {
			return int(child.StartPoint.Row), int(child.StartPoint.Column)
		}
	}
	return int(n.StartPoint.Row), int(n.StartPoint.Column)
}
