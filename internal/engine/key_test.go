package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareKeys_Order(t *testing.T) {
	epoch := time.Unix(0, 0)

	tests := []struct {
		name string
		less any
		more any
	}{
		{"negative numbers", -2, -1},
		{"negative before zero", -1, 0},
		{"zero before fraction", 0, 1.5},
		{"negative infinity", math.Inf(-1), -1e300},
		{"positive infinity", 1e300, math.Inf(1)},
		{"numeric not lexical", 2, 100},
		{"number before date", 1e20, epoch},
		{"dates", epoch, epoch.Add(time.Second)},
		{"date before string", epoch.Add(time.Hour), ""},
		{"empty string first", "", "a"},
		{"prefix string", "a", "ab"},
		{"embedded zero", "a", "a\x00"},
		{"embedded zero before one", "a\x00", "a\x01"},
		{"lexical strings", "ab", "b"},
		{"string before binary", "zzz", []byte{}},
		{"binary prefix", []byte{0}, []byte{0, 0}},
		{"binary bytes", []byte{1}, []byte{2}},
		{"binary before array", []byte{0xFF, 0xFF}, []any{}},
		{"empty array first", []any{}, []any{1}},
		{"array prefix", []any{1}, []any{1, 1}},
		{"array element order", []any{1, "z"}, []any{2}},
		{"array string prefix", []any{"a"}, []any{"a", 1}},
		{"array escaped string", []any{"a", 1}, []any{"a\x00"}},
		{"nested arrays", []any{[]any{1}}, []any{[]any{2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp, err := CompareKeys(tt.less, tt.more)
			require.NoError(t, err)
			assert.Equal(t, -1, cmp)

			cmp, err = CompareKeys(tt.more, tt.less)
			require.NoError(t, err)
			assert.Equal(t, 1, cmp)
		})
	}
}

func TestCompareKeys_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"int and float", 5, 5.0},
		{"int64 and uint8", int64(7), uint8(7)},
		{"negative zero", math.Copysign(0, -1), 0},
		{"string slice and any slice", []string{"a", "b"}, []any{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp, err := CompareKeys(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, 0, cmp)
		})
	}
}

func TestNormalizeKey_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  any
	}{
		{"nil", nil},
		{"bool", true},
		{"map", map[string]any{"a": 1}},
		{"NaN", math.NaN()},
		{"array with bool", []any{1, false}},
		{"struct", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeKey(tt.key)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrData)
		})
	}
}

func TestNormalizeKey_CopiesBinary(t *testing.T) {
	in := []byte{1, 2, 3}

	out, err := NormalizeKey(in)
	require.NoError(t, err)

	in[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, out)
}
