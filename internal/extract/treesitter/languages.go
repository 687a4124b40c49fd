package treesitter

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageRegistry manages the languages the hook's fast path understands:
// Rust, Swift, and TypeScript/JavaScript.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

// NewLanguageRegistry builds a registry with Rust, Swift, TypeScript, TSX,
// JavaScript, and JSX registered.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}
	r.registerRust()
	r.registerSwift()
	r.registerTypeScript()
	r.registerJavaScript()
	return r
}

func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	langName, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	config, ok := r.configs[langName]
	return config, ok
}

func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[name]
	return config, ok
}

func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions returns every registered file extension.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

func (r *LanguageRegistry) registerLanguage(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang
	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

func (r *LanguageRegistry) registerRust() {
	config := &LanguageConfig{
		Name:               "rust",
		Extensions:         []string{".rs"},
		FunctionTypes:      []string{"function_item"},
		MethodTypes:        []string{"function_item"}, // disambiguated by parent impl_item during extraction
		ConstructorTypes:   nil,                        // Rust has no ctor grammar node; `fn new` is a plain method
		TypeTypes:          []string{"struct_item", "impl_item"},
		FieldContainerType: "field_declaration_list",
		FieldTypes:         []string{"field_declaration"},
		FieldPreface:       "// Struct fields:",
		NameField:          "identifier",
	}
	r.registerLanguage(config, rust.GetLanguage())
}

func (r *LanguageRegistry) registerSwift() {
	config := &LanguageConfig{
		Name:               "swift",
		Extensions:         []string{".swift"},
		FunctionTypes:      []string{"function_declaration"},
		MethodTypes:        []string{"function_declaration"},
		ConstructorTypes:   []string{"init_declaration"},
		TypeTypes:          []string{"class_declaration"},
		FieldContainerType: "class_body",
		FieldTypes:         []string{"property_declaration"},
		FieldPreface:       "// Class properties:",
		NameField:          "simple_identifier",
	}
	r.registerLanguage(config, swift.GetLanguage())
}

func (r *LanguageRegistry) registerTypeScript() {
	tsConfig := &LanguageConfig{
		Name:               "typescript",
		Extensions:         []string{".ts"},
		FunctionTypes:      []string{"function_declaration"},
		MethodTypes:        []string{"method_definition"},
		ConstructorTypes:   nil, // constructor is a method_definition named "constructor"
		TypeTypes:          []string{"class_declaration"},
		FieldContainerType: "class_body",
		FieldTypes:         []string{"public_field_definition", "property_declaration"},
		FieldPreface:       "// Class properties:",
		NameField:          "identifier",
	}
	r.registerLanguage(tsConfig, typescript.GetLanguage())

	tsxConfig := *tsConfig
	tsxConfig.Name = "tsx"
	tsxConfig.Extensions = []string{".tsx"}
	r.registerLanguage(&tsxConfig, tsx.GetLanguage())
}

func (r *LanguageRegistry) registerJavaScript() {
	jsConfig := &LanguageConfig{
		Name:               "javascript",
		Extensions:         []string{".js", ".mjs", ".cjs"},
		FunctionTypes:      []string{"function_declaration", "function"},
		MethodTypes:        []string{"method_definition"},
		ConstructorTypes:   nil,
		TypeTypes:          []string{"class_declaration"},
		FieldContainerType: "class_body",
		FieldTypes:         []string{"field_definition"},
		FieldPreface:       "// Class properties:",
		NameField:          "identifier",
	}
	r.registerLanguage(jsConfig, javascript.GetLanguage())

	jsxConfig := *jsConfig
	jsxConfig.Name = "jsx"
	jsxConfig.Extensions = []string{".jsx"}
	r.registerLanguage(&jsxConfig, javascript.GetLanguage())
}

var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the process-wide language registry.
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}
