package model

import "fmt"

// FeatureVector is a sparse vector. Indices are strictly increasing and
// every index is below Dim.
type FeatureVector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// NNZ returns the number of stored entries.
func (v FeatureVector) NNZ() int {
	return len(v.Indices)
}

// IsZero reports whether the vector has no non-zero weight.
func (v FeatureVector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Dense expands the vector to a slice of length Dim.
func (v FeatureVector) Dense() []float64 {
	out := make([]float64, v.Dim)
	for i, idx := range v.Indices {
		out[idx] = v.Values[i]
	}
	return out
}

// Dot returns the inner product with a dense weight slice.
func (v FeatureVector) Dot(weights []float64) (float64, error) {
	if len(weights) != v.Dim {
		return 0, fmt.Errorf("dimension mismatch: vector has %d features, weights have %d", v.Dim, len(weights))
	}
	if len(v.Indices) != len(v.Values) {
		return 0, fmt.Errorf("malformed vector: %d indices, %d values", len(v.Indices), len(v.Values))
	}
	var sum float64
	for i, idx := range v.Indices {
		if idx < 0 || idx >= v.Dim {
			return 0, fmt.Errorf("feature index %d out of range [0,%d)", idx, v.Dim)
		}
		sum += v.Values[i] * weights[idx]
	}
	return sum, nil
}
