// Package pipeline classifies email text as spam or ham with a fitted
// vectorizer and model.
package pipeline

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/spamguardian/spam-guardian/internal/domain/model"
	"github.com/spamguardian/spam-guardian/internal/domain/normalize"
	"github.com/spamguardian/spam-guardian/internal/domain/service"
)

// Classification stages reported by ClassificationError.
const (
	StageNormalize = "normalize"
	StageTransform = "transform"
	StagePredict   = "predict"
)

// Pipeline is an immutable normalizer, vectorizer and model triple. It is
// safe for concurrent use without locking.
type Pipeline struct {
	normalizer *normalize.Normalizer
	vectorizer model.Vectorizer
	model      model.Model
	digest     string
}

var _ service.Classifier = (*Pipeline)(nil)

// New assembles a pipeline. A nil normalizer selects normalize.Default().
func New(n *normalize.Normalizer, v model.Vectorizer, m model.Model) (*Pipeline, error) {
	if v == nil || m == nil {
		return nil, errors.New("pipeline needs a vectorizer and a model")
	}
	if v.Dim() != m.Dim() {
		return nil, fmt.Errorf("vectorizer produces %d features but model expects %d", v.Dim(), m.Dim())
	}
	if n == nil {
		n = normalize.Default()
	}
	return &Pipeline{normalizer: n, vectorizer: v, model: m}, nil
}

// Normalize returns the normalized token string for text.
func (p *Pipeline) Normalize(text string) string {
	return p.normalizer.Normalize(text)
}

// Stages lists the normalizer stage names in order.
func (p *Pipeline) Stages() []string {
	return p.normalizer.Stages()
}

// Info describes the loaded artifacts.
func (p *Pipeline) Info() model.Info {
	info := model.Describe(p.vectorizer, p.model)
	info.Digest = p.digest
	return info
}

// ArtifactDigest returns the hex SHA-256 over the vectorizer bytes followed
// by the model bytes. Each part is length-prefixed so the pair boundary is
// unambiguous.
func ArtifactDigest(vectorizer, model []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{vectorizer, model} {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		h.Write(size[:])
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Classify returns the spam verdict for text. Empty text is accepted and
// classified from the zero feature vector.
func (p *Pipeline) Classify(text string) (result *service.ClassificationResult, err error) {
	stage := StageNormalize
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ClassificationError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	normalized := p.normalizer.Normalize(text)

	stage = StageTransform
	features := p.vectorizer.Transform(normalized)

	stage = StagePredict
	label, err := p.model.PredictLabel(features)
	if err != nil {
		return nil, &ClassificationError{Stage: stage, Err: err}
	}
	proba, err := p.model.PredictProba(features)
	if err != nil {
		return nil, &ClassificationError{Stage: stage, Err: err}
	}
	for _, x := range proba {
		if math.IsNaN(x) || x < 0 || x > 1 {
			return nil, &ClassificationError{Stage: stage, Err: fmt.Errorf("invalid probabilities %v", proba)}
		}
	}

	return &service.ClassificationResult{
		IsSpam:          label == model.LabelSpam,
		Confidence:      math.Max(proba[model.LabelHam], proba[model.LabelSpam]),
		SpamProbability: proba[model.LabelSpam],
	}, nil
}
