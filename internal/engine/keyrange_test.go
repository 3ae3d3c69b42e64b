package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRange_Includes(t *testing.T) {
	closed, err := Bound(2, 4, false, false)
	require.NoError(t, err)

	halfOpen, err := Bound(2, 4, true, true)
	require.NoError(t, err)

	lower, err := LowerBound("m", false)
	require.NoError(t, err)

	upper, err := UpperBound("m", true)
	require.NoError(t, err)

	only, err := Only("x")
	require.NoError(t, err)

	tests := []struct {
		name string
		r    KeyRange
		key  any
		want bool
	}{
		{"closed lower edge", closed, 2, true},
		{"closed upper edge", closed, 4, true},
		{"closed inside", closed, 3.5, true},
		{"closed below", closed, 1, false},
		{"closed above", closed, 5, false},
		{"open lower edge", halfOpen, 2, false},
		{"open upper edge", halfOpen, 4, false},
		{"open inside", halfOpen, 3, true},
		{"lower bound strings", lower, "z", true},
		{"lower bound below", lower, "a", false},
		{"lower bound other type", lower, []any{}, true},
		{"upper bound open edge", upper, "m", false},
		{"upper bound numbers", upper, 1, true},
		{"only match", only, "x", true},
		{"only mismatch", only, "y", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.r.Includes(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyRange_InvalidBounds(t *testing.T) {
	_, err := Bound(5, 1, false, false)
	assert.ErrorIs(t, err, ErrData)

	_, err = Bound(1, 1, true, false)
	assert.ErrorIs(t, err, ErrData)

	_, err = LowerBound(nil, false)
	assert.ErrorIs(t, err, ErrData)

	r, err := Bound(1, 1, false, false)
	require.NoError(t, err)

	lo, ok := r.Lower()
	assert.True(t, ok)
	assert.Equal(t, 1.0, lo)
	assert.False(t, r.LowerOpen())
}
