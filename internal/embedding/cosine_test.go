package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineIdenticalVectors(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}
	got, err := Cosine(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestCosineOrthogonalVectors(t *testing.T) {
	got, err := Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestCosineOppositeVectors(t *testing.T) {
	got, err := Cosine([]float32{2, -3, 1}, []float32{-2, 3, -1})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, got, 1e-9)
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCosineZeroVector(t *testing.T) {
	got, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCosineSymmetric(t *testing.T) {
	a := []float32{0.5, 1.5, -2.5}
	b := []float32{3.1, -0.2, 0.7}
	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosineWithinBounds(t *testing.T) {
	a := []float32{12.5, -7.2, 3.3, 0.4}
	b := []float32{-1.1, 9.8, -4.4, 2.2}
	got, err := Cosine(a, b)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, -1.0)
	assert.LessOrEqual(t, got, 1.0)
}
