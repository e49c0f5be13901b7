package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorizer(t *testing.T, mutate func(*VectorizerSpec)) *TFIDFVectorizer {
	t.Helper()
	spec := &VectorizerSpec{
		Kind:       KindTFIDF,
		Vocabulary: map[string]int{"free": 0, "prize": 1, "number": 2, "meet": 3},
		IDF:        []float64{2, 1, 1, 3},
	}
	if mutate != nil {
		mutate(spec)
	}
	v, err := NewTFIDFVectorizer(spec)
	require.NoError(t, err)
	return v
}

func TestTFIDFVectorizer_Transform(t *testing.T) {
	t.Run("empty text yields zero vector", func(t *testing.T) {
		v := newTestVectorizer(t, nil)
		fv := v.Transform("")

		assert.Equal(t, 4, fv.Dim)
		assert.Equal(t, 0, fv.NNZ())
		assert.True(t, fv.IsZero())
	})

	t.Run("unknown tokens contribute nothing", func(t *testing.T) {
		v := newTestVectorizer(t, nil)
		fv := v.Transform("hello world unknown")

		assert.True(t, fv.IsZero())
	})

	t.Run("l2 normalized tf-idf", func(t *testing.T) {
		v := newTestVectorizer(t, nil)
		fv := v.Transform("prize free prize other")

		// free: 1*2 = 2, prize: 2*1 = 2, norm = sqrt(8)
		require.Equal(t, []int{0, 1}, fv.Indices)
		assert.InDelta(t, 2/math.Sqrt(8), fv.Values[0], 1e-12)
		assert.InDelta(t, 2/math.Sqrt(8), fv.Values[1], 1e-12)

		var sq float64
		for _, x := range fv.Values {
			sq += x * x
		}
		assert.InDelta(t, 1.0, sq, 1e-12)
	})

	t.Run("l1 norm", func(t *testing.T) {
		v := newTestVectorizer(t, func(s *VectorizerSpec) { s.Norm = ExplicitNorm(NormL1) })
		fv := v.Transform("free meet")

		// free: 2, meet: 3
		assert.Equal(t, []float64{0.4, 0.6}, fv.Values)
	})

	t.Run("no norm", func(t *testing.T) {
		v := newTestVectorizer(t, func(s *VectorizerSpec) { s.Norm = ExplicitNorm(NormNone) })
		fv := v.Transform("free free meet")

		assert.Equal(t, []float64{4, 3}, fv.Values)
	})

	t.Run("sublinear tf", func(t *testing.T) {
		v := newTestVectorizer(t, func(s *VectorizerSpec) {
			s.Norm = ExplicitNorm(NormNone)
			s.SublinearTF = true
		})
		fv := v.Transform("prize prize prize")

		assert.InDelta(t, 1+math.Log(3), fv.Values[0], 1e-12)
	})

	t.Run("binary tf", func(t *testing.T) {
		v := newTestVectorizer(t, func(s *VectorizerSpec) {
			s.Norm = ExplicitNorm(NormNone)
			s.Binary = true
		})
		fv := v.Transform("free free free")

		assert.Equal(t, []float64{2}, fv.Values)
	})

	t.Run("single character tokens are ignored", func(t *testing.T) {
		v := newTestVectorizer(t, func(s *VectorizerSpec) {
			s.Vocabulary = map[string]int{"a": 0, "ab": 1}
			s.IDF = []float64{1, 1}
		})
		fv := v.Transform("a ab a")

		assert.Equal(t, []int{1}, fv.Indices)
	})
}

func TestTFIDFVectorizer_Analyze(t *testing.T) {
	t.Run("bigrams", func(t *testing.T) {
		v := newTestVectorizer(t, func(s *VectorizerSpec) { s.NgramRange = []int{1, 2} })

		assert.Equal(t,
			[]string{"claim", "your", "prize", "claim your", "your prize"},
			v.Analyze("claim your prize"),
		)
	})

	t.Run("bigrams only", func(t *testing.T) {
		v := newTestVectorizer(t, func(s *VectorizerSpec) { s.NgramRange = []int{2, 2} })

		assert.Equal(t, []string{"free prize"}, v.Analyze("free prize"))
	})

	t.Run("capture group selects token", func(t *testing.T) {
		v := newTestVectorizer(t, func(s *VectorizerSpec) { s.TokenPattern = `#(\w+)` })

		assert.Equal(t, []string{"free", "prize"}, v.Analyze("#free and #prize"))
	})
}

func TestNewTFIDFVectorizer_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*VectorizerSpec)
	}{
		{"idf length mismatch", func(s *VectorizerSpec) { s.IDF = []float64{1} }},
		{"index out of range", func(s *VectorizerSpec) { s.Vocabulary["meet"] = 9 }},
		{"duplicate index", func(s *VectorizerSpec) { s.Vocabulary["meet"] = 0 }},
		{"non-finite idf", func(s *VectorizerSpec) { s.IDF[0] = math.Inf(1) }},
		{"bad norm", func(s *VectorizerSpec) { s.Norm = ExplicitNorm("max") }},
		{"bad pattern", func(s *VectorizerSpec) { s.TokenPattern = `(` }},
		{"two capture groups", func(s *VectorizerSpec) { s.TokenPattern = `(a)(b)` }},
		{"bad ngram range", func(s *VectorizerSpec) { s.NgramRange = []int{2, 1} }},
		{"wrong kind", func(s *VectorizerSpec) { s.Kind = "count" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &VectorizerSpec{
				Vocabulary: map[string]int{"free": 0, "prize": 1, "meet": 2},
				IDF:        []float64{1, 1, 1},
			}
			tt.mutate(spec)

			v, err := NewTFIDFVectorizer(spec)

			assert.Error(t, err)
			assert.Nil(t, v)
		})
	}
}
