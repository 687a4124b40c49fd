package lsp

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/vimo-dev/akin/internal/model"
)

// Unit is a function-like symbol extracted from one file's document-symbol
// tree, carrying its enclosing type (if any) and the field/property
// preface that will be prepended to its body before embedding.
type Unit struct {
	Name            string
	EnclosingType   string
	Kind            model.Kind
	StartLine       int // 1-based, inclusive
	EndLine         int // 1-based, inclusive
	SelectionLine   int // 0-based, LSP-native - feeds prepareCallHierarchy
	SelectionColumn int
	Body            string
}

// fieldKinds are the symbol kinds considered "fields/properties" when
// building a type's "// Struct fields:" / "// Class properties:" preface.
var fieldKinds = map[protocol.SymbolKind]bool{
	protocol.SymbolKindField:    true,
	protocol.SymbolKindProperty: true,
}

var containerKinds = map[protocol.SymbolKind]bool{
	protocol.SymbolKindClass:     true,
	protocol.SymbolKindStruct:    true,
	protocol.SymbolKindInterface: true,
	protocol.SymbolKindEnum:      true,
}

var functionKinds = map[protocol.SymbolKind]bool{
	protocol.SymbolKindFunction:    true,
	protocol.SymbolKindMethod:      true,
	protocol.SymbolKindConstructor: true,
}

// ExtractUnits walks a file's hierarchical document-symbol tree and
// returns every function/method/constructor it finds, each prefaced with
// its enclosing type's field/property declarations where source is the
// full file text (needed because DocumentSymbol carries ranges, not body
// text).
func ExtractUnits(symbols []protocol.DocumentSymbol, source string, lang model.Language) []Unit {
	lines := strings.Split(source, "\n")

	// A Rust struct's fields and its impl block are separate top-level
	// symbols, so prefaces are also looked up by type name.
	prefaceByType := make(map[string]string)
	for _, sym := range symbols {
		if !containerKinds[sym.Kind] {
			continue
		}
		if p := buildFieldPreface(sym.Children, lines, lang); p != "" && prefaceByType[sym.Name] == "" {
			prefaceByType[sym.Name] = p
		}
	}

	var units []Unit
	var walk func(sym protocol.DocumentSymbol, enclosingType, preface string)
	walk = func(sym protocol.DocumentSymbol, enclosingType, preface string) {
		if containerKinds[sym.Kind] {
			childPreface := buildFieldPreface(sym.Children, lines, lang)
			if childPreface == "" {
				childPreface = prefaceByType[sym.Name]
			}
			for _, child := range sym.Children {
				walk(child, sym.Name, childPreface)
			}
			return
		}

		if functionKinds[sym.Kind] {
			body := sliceRange(lines, sym.Range)
			fullBody := body
			if enclosingType != "" && preface != "" {
				fullBody = preface + body
			}
			units = append(units, Unit{
				Name:            sym.Name,
				EnclosingType:   enclosingType,
				Kind:            classifyKind(sym, lang),
				StartLine:       int(sym.Range.Start.Line) + 1,
				EndLine:         int(sym.Range.End.Line) + 1,
				SelectionLine:   int(sym.SelectionRange.Start.Line),
				SelectionColumn: int(sym.SelectionRange.Start.Character),
				Body:            fullBody,
			})
		}

		for _, child := range sym.Children {
			walk(child, enclosingType, preface)
		}
	}

	for _, sym := range symbols {
		walk(sym, "", "")
	}
	return units
}

// classifyKind maps an LSP SymbolKind plus naming convention to akin's
// Kind taxonomy. Swift's `init` and a TS/JS method literally named
// "constructor" are both surfaced by servers as SymbolKindConstructor, but
// some servers under-report this, so the name is checked too.
func classifyKind(sym protocol.DocumentSymbol, lang model.Language) model.Kind {
	if sym.Kind == protocol.SymbolKindConstructor {
		return model.KindConstructor
	}
	switch lang {
	case model.LangSwift:
		if sym.Name == "init" {
			return model.KindConstructor
		}
	case model.LangTypeScript, model.LangJavaScript:
		if sym.Name == "constructor" {
			return model.KindConstructor
		}
	}
	if sym.Kind == protocol.SymbolKindMethod {
		return model.KindMethod
	}
	return model.KindFunction
}

// fieldPrefaceMarker picks the comment marker per language: Rust gets
// "// Struct fields:", everything else (Swift classes, TS/JS classes)
// gets "// Class properties:". The marker is part of the embedded body,
// so changing it invalidates every cached embedding.
func fieldPrefaceMarker(lang model.Language) string {
	if lang == model.LangRust {
		return "// Struct fields:"
	}
	return "// Class properties:"
}

func buildFieldPreface(children []protocol.DocumentSymbol, lines []string, lang model.Language) string {
	var decls []string
	for _, child := range children {
		if !fieldKinds[child.Kind] {
			continue
		}
		decls = append(decls, strings.TrimSpace(sliceRange(lines, child.Range)))
	}
	if len(decls) == 0 {
		return ""
	}
	return fieldPrefaceMarker(lang) + "\n" + strings.Join(decls, "\n") + "\n\n"
}

// sliceRange returns the 0-based inclusive-line text of rng out of lines.
func sliceRange(lines []string, rng protocol.Range) string {
	start := int(rng.Start.Line)
	end := int(rng.End.Line)
	if start < 0 {
		start = 0
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if start > end || start >= len(lines) {
		return ""
	}
	return strings.Join(lines[start:end+1], "\n")
}
