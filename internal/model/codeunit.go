// Package model defines the relational and vector-index data model shared
// by every akin subsystem: projects, code units, similarity pairs, and
// similarity groups.
package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
)

// Kind distinguishes the flavor of callable a CodeUnit represents.
type Kind string

const (
	KindFunction    Kind = "function"
	KindMethod      Kind = "method"
	KindConstructor Kind = "constructor"
)

// PairStatus tracks the human-reviewed lifecycle of a SimilarPair.
type PairStatus string

const (
	StatusNew       PairStatus = "new"
	StatusConfirmed PairStatus = "confirmed"
	StatusRedundant PairStatus = "redundant"
	StatusIgnored   PairStatus = "ignored"
)

// Language identifies a supported source language.
type Language string

const (
	LangRust       Language = "rust"
	LangSwift      Language = "swift"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
)

// Project is a single indexed source tree.
type Project struct {
	ID            int64
	Name          string
	RootPath      string
	Language      Language
	LastIndexedAt *int64 // unix seconds, nil if never indexed
}

// CodeUnit is a single extracted function, method, or constructor.
//
// RangeStart and RangeEnd are 1-based, inclusive line numbers: a unit that
// occupies exactly one line has RangeStart == RangeEnd. Callers converting
// from 0-based LSP positions or tree-sitter rows must add 1 at the
// extractor boundary, never downstream.
type CodeUnit struct {
	QualifiedName string
	ProjectID     int64
	FilePath      string
	Kind          Kind
	RangeStart    int
	RangeEnd      int

	// SelectionLine/SelectionColumn are 0-based LSP-style coordinates
	// pointing at the unit's identifier, preserved verbatim for
	// prepareCallHierarchy requests - they are not subject to the
	// 1-based convention above.
	SelectionLine   int
	SelectionColumn int

	Body          string // contextualized text: property/field preface + original body
	ContentHash   string // hex SHA-256 over Body
	StructureHash string // hex SHA-256 over the structure-normalized body
	Embedding     []byte // little-endian f32[d], nil if not yet embedded
	GroupID       *int64
}

// LineCount returns the closed-interval line count used by min_lines
// filtering: range_end - range_start + 1.
func (u *CodeUnit) LineCount() int {
	return u.RangeEnd - u.RangeStart + 1
}

// QualifiedName builds the `<lang>:<file_path>::<enclosing_type>::<func_name>`
// identifier. enclosingType is empty for top-level functions.
func QualifiedName(lang Language, filePath, enclosingType, funcName string) string {
	if enclosingType == "" {
		return string(lang) + ":" + filePath + "::" + funcName
	}
	return string(lang) + ":" + filePath + "::" + enclosingType + "::" + funcName
}

// ContentHash returns the hex SHA-256 digest of body, used as CodeUnit.ContentHash.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

var (
	commentLineRE  = regexp.MustCompile(`(?m)//[^\n]*$`)
	blockCommentRE = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLitRE    = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
	numberLitRE    = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	whitespaceRE   = regexp.MustCompile(`\s+`)
)

// StructureHash computes the hex SHA-256 digest of body after full
// AST-agnostic structural normalization: strip line and block comments,
// replace string and numeric literals with placeholders, and collapse all
// whitespace runs to a single space. This is the single normalization
// method used everywhere structure_hash is computed - see the
// structure_hash decision in DESIGN.md; no line-filter shortcut exists.
func StructureHash(body string) string {
	normalized := blockCommentRE.ReplaceAllString(body, "")
	normalized = commentLineRE.ReplaceAllString(normalized, "")
	normalized = stringLitRE.ReplaceAllString(normalized, `"STR"`)
	normalized = numberLitRE.ReplaceAllString(normalized, "NUM")
	normalized = whitespaceRE.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// CosineSimilarity returns 1 - cosine_distance(a, b), i.e. (a·b)/(‖a‖‖b‖).
// Returns 0 for a zero-length vector on either side rather than NaN.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EncodeEmbedding serializes a float32 vector to the little-endian blob
// format used for CodeUnit.Embedding.
func EncodeEmbedding(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeEmbedding deserializes a little-endian f32 blob. A blob whose
// length is not divisible by 4 is invalid and returns (nil, false),
// treated everywhere as "no embedding".
func DecodeEmbedding(blob []byte) ([]float32, bool) {
	if len(blob) == 0 {
		return nil, false
	}
	if len(blob)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, true
}
