package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundingKeyStrategy_Deterministic(t *testing.T) {
	s := NewRoundingKeyStrategy(6)

	k1 := s.GenerateKey([]byte(`{"prompt":"hello","temperature":0.7}`))
	k2 := s.GenerateKey([]byte(`{"prompt":"hello","temperature":0.7}`))
	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "inferflow:cache:"))
}

func TestRoundingKeyStrategy_ObjectKeyOrderIrrelevant(t *testing.T) {
	s := NewRoundingKeyStrategy(6)

	k1 := s.GenerateKey([]byte(`{"a":1,"b":2}`))
	k2 := s.GenerateKey([]byte(`{"b":2,"a":1}`))
	assert.Equal(t, k1, k2, "canonical form sorts object keys")
}

func TestRoundingKeyStrategy_FloatNoiseBelowPrecision(t *testing.T) {
	s := NewRoundingKeyStrategy(6)

	// Differences past the 6th decimal place collapse to the same key.
	k1 := s.GenerateKey([]byte(`{"x":1.00000004}`))
	k2 := s.GenerateKey([]byte(`{"x":1.00000002}`))
	assert.Equal(t, k1, k2)

	// Differences within precision must stay distinct.
	k3 := s.GenerateKey([]byte(`{"x":1.000002}`))
	assert.NotEqual(t, k1, k3)
}

func TestRoundingKeyStrategy_Precision(t *testing.T) {
	coarse := NewRoundingKeyStrategy(2)

	k1 := coarse.GenerateKey([]byte(`{"x":0.123}`))
	k2 := coarse.GenerateKey([]byte(`{"x":0.1198}`))
	assert.Equal(t, k1, k2, "both round to 0.12 at precision 2")
}

func TestRoundingKeyStrategy_NestedStructures(t *testing.T) {
	s := NewRoundingKeyStrategy(6)

	k1 := s.GenerateKey([]byte(`{"inputs":[{"x":1.00000001},{"y":"a"}],"flag":true}`))
	k2 := s.GenerateKey([]byte(`{"flag":true,"inputs":[{"x":1.0},{"y":"a"}]}`))
	assert.Equal(t, k1, k2, "canonicalization recurses into arrays and nested objects")
}

func TestRoundingKeyStrategy_ArrayOrderSignificant(t *testing.T) {
	s := NewRoundingKeyStrategy(6)

	k1 := s.GenerateKey([]byte(`[1,2,3]`))
	k2 := s.GenerateKey([]byte(`[3,2,1]`))
	assert.NotEqual(t, k1, k2, "array order carries meaning, only object keys are sorted")
}

func TestRoundingKeyStrategy_NonJSONInput(t *testing.T) {
	s := NewRoundingKeyStrategy(6)

	k1 := s.GenerateKey([]byte("raw bytes, not json"))
	k2 := s.GenerateKey([]byte("raw bytes, not json"))
	k3 := s.GenerateKey([]byte("different raw bytes"))

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestRawKeyStrategy_NoCanonicalization(t *testing.T) {
	s := NewRawKeyStrategy()

	// Raw strategy treats byte-different JSON as different keys.
	k1 := s.GenerateKey([]byte(`{"a":1,"b":2}`))
	k2 := s.GenerateKey([]byte(`{"b":2,"a":1}`))
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, "raw", s.Name())
}
