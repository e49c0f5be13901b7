package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamguardian/spam-guardian/internal/domain/model"
	"github.com/spamguardian/spam-guardian/internal/domain/normalize"
)

const (
	spamEmail = "CONGRATULATIONS! You've won $1,000,000! Click here immediately to claim your prize!"
	hamEmail  = "Hi Sarah, hope you're doing well. Let me know if you need help with the quarterly report."
)

func loadFixture(t *testing.T, modelFile string) *Pipeline {
	t.Helper()
	loader := NewLoader(LoaderConfig{
		ModelPath:      "testdata/" + modelFile,
		VectorizerPath: "testdata/vectorizer.json",
	}, nil)
	p, err := loader.Load(context.Background())
	require.NoError(t, err)
	return p
}

func TestPipeline_Classify(t *testing.T) {
	for _, modelFile := range []string{"model.json", "model_nb.json"} {
		t.Run(modelFile, func(t *testing.T) {
			p := loadFixture(t, modelFile)

			t.Run("spam example", func(t *testing.T) {
				result, err := p.Classify(spamEmail)

				require.NoError(t, err)
				assert.True(t, result.IsSpam)
				assert.Equal(t, "spam", result.Label())
				assert.GreaterOrEqual(t, result.Confidence, 0.5)
				assert.Equal(t, result.Confidence, result.SpamProbability)
			})

			t.Run("ham example", func(t *testing.T) {
				result, err := p.Classify(hamEmail)

				require.NoError(t, err)
				assert.False(t, result.IsSpam)
				assert.Equal(t, "ham", result.Label())
				assert.GreaterOrEqual(t, result.Confidence, 0.5)
				assert.InDelta(t, 1-result.Confidence, result.SpamProbability, 1e-12)
			})

			t.Run("whitespace and empty input", func(t *testing.T) {
				for _, text := range []string{"", "   ", "\n\t "} {
					result, err := p.Classify(text)

					require.NoError(t, err)
					require.NotNil(t, result)
					assert.GreaterOrEqual(t, result.Confidence, 0.5)
					assert.LessOrEqual(t, result.Confidence, 1.0)
				}
			})

			t.Run("confidence is the larger class probability", func(t *testing.T) {
				texts := []string{
					spamEmail,
					hamEmail,
					"Win $1,000,000 NOW http://x.co",
					"FREE prize, click the link to claim",
					"thanks, see you at the meeting",
					"the of and",
					"¡¿§¶•ªº–≠!",
				}
				for _, text := range texts {
					result, err := p.Classify(text)

					require.NoError(t, err, text)
					assert.GreaterOrEqual(t, result.Confidence, 0.5, text)
					assert.LessOrEqual(t, result.Confidence, 1.0, text)
					if result.IsSpam {
						assert.GreaterOrEqual(t, result.SpamProbability, 0.5, text)
					} else {
						assert.LessOrEqual(t, result.SpamProbability, 0.5, text)
					}
				}
			})

			t.Run("deterministic", func(t *testing.T) {
				a, err := p.Classify(spamEmail)
				require.NoError(t, err)
				b, err := p.Classify(spamEmail)
				require.NoError(t, err)

				assert.Equal(t, a, b)
			})
		})
	}
}

func TestPipeline_NormalizeAndInfo(t *testing.T) {
	p := loadFixture(t, "model.json")

	vecData, err := os.ReadFile("testdata/vectorizer.json")
	require.NoError(t, err)
	modelData, err := os.ReadFile("testdata/model.json")
	require.NoError(t, err)

	assert.Equal(t, "win number number number link", p.Normalize("Win $1,000,000 NOW http://x.co"))
	assert.Equal(t, model.Info{
		ModelKind:      model.KindLogisticRegression,
		VectorizerKind: model.KindTFIDF,
		VocabularySize: 13,
		Features:       13,
		Digest:         ArtifactDigest(vecData, modelData),
	}, p.Info())
}

func TestArtifactDigest(t *testing.T) {
	a := ArtifactDigest([]byte("vec"), []byte("model"))

	assert.Len(t, a, 64)
	assert.Equal(t, a, ArtifactDigest([]byte("vec"), []byte("model")))
	assert.NotEqual(t, a, ArtifactDigest([]byte("vec"), []byte("model2")))
	assert.NotEqual(t, a, ArtifactDigest([]byte("ve"), []byte("cmodel")))
	assert.NotEqual(t, a, ArtifactDigest([]byte("model"), []byte("vec")))
}

func TestPipeline_DigestFollowsArtifacts(t *testing.T) {
	lr := loadFixture(t, "model.json")
	nb := loadFixture(t, "model_nb.json")

	assert.NotEmpty(t, lr.Info().Digest)
	assert.NotEqual(t, lr.Info().Digest, nb.Info().Digest)
	assert.Equal(t, lr.Info().Digest, loadFixture(t, "model.json").Info().Digest)

	inMemory, err := New(nil, &stubVectorizer{dim: 2}, &stubModel{dim: 2})
	require.NoError(t, err)
	assert.Empty(t, inMemory.Info().Digest)
}

type stubVectorizer struct {
	dim       int
	transform func(string) model.FeatureVector
}

func (s *stubVectorizer) Kind() string        { return "stub" }
func (s *stubVectorizer) Dim() int            { return s.dim }
func (s *stubVectorizer) VocabularySize() int { return s.dim }
func (s *stubVectorizer) Transform(text string) model.FeatureVector {
	return s.transform(text)
}

type stubModel struct {
	dim      int
	labelErr error
	proba    [2]float64
}

func (s *stubModel) Kind() string { return "stub" }
func (s *stubModel) Dim() int     { return s.dim }
func (s *stubModel) PredictLabel(model.FeatureVector) (int, error) {
	return model.LabelHam, s.labelErr
}
func (s *stubModel) PredictProba(model.FeatureVector) ([2]float64, error) {
	return s.proba, nil
}

func zeroTransform(dim int) func(string) model.FeatureVector {
	return func(string) model.FeatureVector { return model.FeatureVector{Dim: dim} }
}

func TestNew(t *testing.T) {
	t.Run("dimension mismatch", func(t *testing.T) {
		p, err := New(nil, &stubVectorizer{dim: 3, transform: zeroTransform(3)}, &stubModel{dim: 4})

		assert.Error(t, err)
		assert.Nil(t, p)
	})

	t.Run("missing parts", func(t *testing.T) {
		_, err := New(nil, nil, &stubModel{dim: 1})
		assert.Error(t, err)
	})

	t.Run("custom normalizer", func(t *testing.T) {
		n := normalize.New([]normalize.TextStage{{Name: "lowercase", Apply: normalize.Lowercase}}, nil)
		p, err := New(n, &stubVectorizer{dim: 1, transform: zeroTransform(1)}, &stubModel{dim: 1, proba: [2]float64{1, 0}})

		require.NoError(t, err)
		assert.Equal(t, "the prize", p.Normalize("The Prize"))
	})
}

func TestPipeline_ClassificationErrors(t *testing.T) {
	t.Run("prediction failure", func(t *testing.T) {
		p, err := New(nil,
			&stubVectorizer{dim: 2, transform: zeroTransform(2)},
			&stubModel{dim: 2, labelErr: errors.New("boom")},
		)
		require.NoError(t, err)

		result, err := p.Classify("anything")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrClassification)
		assert.NotErrorIs(t, err, ErrLoad)
		var ce *ClassificationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, StagePredict, ce.Stage)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("vectorizer panic", func(t *testing.T) {
		p, err := New(nil,
			&stubVectorizer{dim: 2, transform: func(string) model.FeatureVector { panic("bad input") }},
			&stubModel{dim: 2},
		)
		require.NoError(t, err)

		result, err := p.Classify("anything")

		assert.Nil(t, result)
		var ce *ClassificationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, StageTransform, ce.Stage)
	})

	t.Run("invalid probabilities", func(t *testing.T) {
		p, err := New(nil,
			&stubVectorizer{dim: 1, transform: zeroTransform(1)},
			&stubModel{dim: 1, proba: [2]float64{1.5, -0.5}},
		)
		require.NoError(t, err)

		_, err = p.Classify("anything")

		assert.ErrorIs(t, err, ErrClassification)
	})
}
