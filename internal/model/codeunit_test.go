package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity_IdentityIsOne(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarity_OrthogonalIsZero(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	b := []float32{0, 1, 0, 0}
	assert.Less(t, math.Abs(CosineSimilarity(a, b)), 1e-6)
}

func TestCosineSimilarity_OppositeIsMinusOne(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, -2, -3}
	assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-6)
}

func TestCosineSimilarity_ZeroOrMismatchedVectorsAreZero(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestEmbeddingRoundTrip(t *testing.T) {
	v := []float32{0, 1.5, -2.25, math.MaxFloat32, math.SmallestNonzeroFloat32}

	decoded, ok := DecodeEmbedding(EncodeEmbedding(v))

	require.True(t, ok)
	require.Len(t, decoded, len(v))
	for i := range v {
		assert.Equal(t, v[i], decoded[i])
	}
}

func TestDecodeEmbedding_LengthNotDivisibleByFourMeansNoEmbedding(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 7} {
		_, ok := DecodeEmbedding(make([]byte, n))
		assert.False(t, ok, "length %d should decode as no embedding", n)
	}
}

func TestDecodeEmbedding_EmptyMeansNoEmbedding(t *testing.T) {
	_, ok := DecodeEmbedding(nil)
	assert.False(t, ok)
	_, ok = DecodeEmbedding([]byte{})
	assert.False(t, ok)
}

func TestQualifiedName_WithAndWithoutEnclosingType(t *testing.T) {
	assert.Equal(t, "rust:src/lib.rs::FileManager::establish",
		QualifiedName(LangRust, "src/lib.rs", "FileManager", "establish"))
	assert.Equal(t, "swift:Sources/App.swift::main",
		QualifiedName(LangSwift, "Sources/App.swift", "", "main"))
}

func TestCanonicalPair_AlwaysOrdersLexicographically(t *testing.T) {
	a, b := CanonicalPair("zzz", "aaa")
	assert.Equal(t, "aaa", a)
	assert.Equal(t, "zzz", b)

	a, b = CanonicalPair("aaa", "zzz")
	assert.Equal(t, "aaa", a)
	assert.Equal(t, "zzz", b)
}

func TestContentHash_DiffersOnAnyByteChange(t *testing.T) {
	assert.NotEqual(t, ContentHash("fn foo() {}"), ContentHash("fn foo() { }"))
	assert.Equal(t, ContentHash("fn foo() {}"), ContentHash("fn foo() {}"))
}

func TestStructureHash_IgnoresCommentsWhitespaceAndLiterals(t *testing.T) {
	a := `fn greet() {
	// say hello
	let name = "world";
	let count = 42;
	println!("{} {}", name, count);
}`
	b := `fn greet() { /* different comment */ let name = "mars";   let count = 7; println!("{} {}", name, count); }`

	assert.Equal(t, StructureHash(a), StructureHash(b))
}

func TestStructureHash_DiffersOnStructuralChange(t *testing.T) {
	a := `fn add(x: i32, y: i32) -> i32 { x + y }`
	b := `fn add(x: i32, y: i32) -> i32 { x * y }`
	assert.NotEqual(t, StructureHash(a), StructureHash(b))
}

func TestLineCount_ClosedInterval(t *testing.T) {
	u := CodeUnit{RangeStart: 10, RangeEnd: 10}
	assert.Equal(t, 1, u.LineCount())
	u.RangeEnd = 14
	assert.Equal(t, 5, u.LineCount())
}
