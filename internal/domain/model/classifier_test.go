package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(dim int, entries map[int]float64) FeatureVector {
	dense := make([]float64, dim)
	for i, x := range entries {
		dense[i] = x
	}
	fv := FeatureVector{Dim: dim}
	for i, x := range dense {
		if x != 0 {
			fv.Indices = append(fv.Indices, i)
			fv.Values = append(fv.Values, x)
		}
	}
	return fv
}

func TestLogisticRegression(t *testing.T) {
	m, err := NewModel(&ModelSpec{
		Kind:      KindLogisticRegression,
		Classes:   []int{0, 1},
		Coef:      []float64{2, -2, 0},
		Intercept: -0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, KindLogisticRegression, m.Kind())
	assert.Equal(t, 3, m.Dim())

	t.Run("spam side", func(t *testing.T) {
		x := vec(3, map[int]float64{0: 1})

		label, err := m.PredictLabel(x)
		require.NoError(t, err)
		assert.Equal(t, LabelSpam, label)

		proba, err := m.PredictProba(x)
		require.NoError(t, err)
		assert.InDelta(t, 1/(1+math.Exp(-1.5)), proba[LabelSpam], 1e-12)
		assert.InDelta(t, 1.0, proba[0]+proba[1], 1e-12)
	})

	t.Run("zero vector scores the intercept", func(t *testing.T) {
		x := vec(3, nil)

		label, err := m.PredictLabel(x)
		require.NoError(t, err)
		assert.Equal(t, LabelHam, label)

		proba, err := m.PredictProba(x)
		require.NoError(t, err)
		assert.InDelta(t, 1/(1+math.Exp(0.5)), proba[LabelSpam], 1e-12)
	})

	t.Run("extreme scores stay finite", func(t *testing.T) {
		x := vec(3, map[int]float64{1: 1e6})

		proba, err := m.PredictProba(x)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(proba[0]))
		assert.InDelta(t, 1.0, proba[LabelHam], 1e-12)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := m.PredictLabel(vec(5, nil))
		assert.Error(t, err)

		_, err = m.PredictProba(vec(5, nil))
		assert.Error(t, err)
	})
}

func TestMultinomialNB(t *testing.T) {
	m, err := NewModel(&ModelSpec{
		Kind:          KindMultinomialNB,
		Classes:       []int{0, 1},
		ClassLogPrior: []float64{math.Log(0.5), math.Log(0.5)},
		FeatureLogProb: [][]float64{
			{math.Log(0.8), math.Log(0.2)},
			{math.Log(0.2), math.Log(0.8)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, KindMultinomialNB, m.Kind())
	assert.Equal(t, 2, m.Dim())

	x := vec(2, map[int]float64{1: 1})

	label, err := m.PredictLabel(x)
	require.NoError(t, err)
	assert.Equal(t, LabelSpam, label)

	proba, err := m.PredictProba(x)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, proba[LabelSpam], 1e-12)
	assert.InDelta(t, 0.2, proba[LabelHam], 1e-12)

	t.Run("ties resolve to ham", func(t *testing.T) {
		label, err := m.PredictLabel(vec(2, nil))
		require.NoError(t, err)
		assert.Equal(t, LabelHam, label)
	})
}

func TestNewModel_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec *ModelSpec
	}{
		{"nil", nil},
		{"unknown kind", &ModelSpec{Kind: "svm", Classes: []int{0, 1}}},
		{"bad classes", &ModelSpec{Kind: KindLogisticRegression, Classes: []int{1, 0}, Coef: []float64{1}}},
		{"no coef", &ModelSpec{Kind: KindLogisticRegression, Classes: []int{0, 1}}},
		{"nan coef", &ModelSpec{Kind: KindLogisticRegression, Classes: []int{0, 1}, Coef: []float64{math.NaN()}}},
		{"nb missing rows", &ModelSpec{Kind: KindMultinomialNB, Classes: []int{0, 1}, ClassLogPrior: []float64{0, 0}}},
		{"nb ragged rows", &ModelSpec{
			Kind:           KindMultinomialNB,
			Classes:        []int{0, 1},
			ClassLogPrior:  []float64{0, 0},
			FeatureLogProb: [][]float64{{0, 0}, {0}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewModel(tt.spec)

			assert.Error(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestFeatureVector(t *testing.T) {
	fv := vec(4, map[int]float64{1: 0.5, 3: 2})

	assert.Equal(t, 2, fv.NNZ())
	assert.False(t, fv.IsZero())
	assert.Equal(t, []float64{0, 0.5, 0, 2}, fv.Dense())

	dot, err := fv.Dot([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 9.0, dot)

	_, err = fv.Dot([]float64{1})
	assert.Error(t, err)

	bad := FeatureVector{Dim: 2, Indices: []int{5}, Values: []float64{1}}
	_, err = bad.Dot([]float64{1, 1})
	assert.Error(t, err)
}
