package embedding

import (
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when two vectors cannot be compared.
var ErrDimensionMismatch = errors.New("embedding vectors have different dimensions")

// Cosine returns the cosine similarity of a and b in [-1, 1]. A pair
// involving a zero vector scores 0 instead of dividing by zero.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
