package model

import (
	"errors"
	"fmt"
	"math"
)

// Class labels.
const (
	LabelHam  = 0
	LabelSpam = 1
)

// Artifact kinds.
const (
	KindTFIDF              = "tfidf"
	KindLogisticRegression = "logistic_regression"
	KindMultinomialNB      = "multinomial_nb"
)

// Model is a fitted binary classifier. Implementations are immutable and
// safe for concurrent use.
type Model interface {
	// Kind names the algorithm, e.g. "logistic_regression".
	Kind() string

	// Dim is the feature dimensionality the model was fitted on.
	Dim() int

	// PredictLabel returns LabelSpam or LabelHam.
	PredictLabel(x FeatureVector) (int, error)

	// PredictProba returns the class probabilities indexed by label.
	PredictProba(x FeatureVector) ([2]float64, error)
}

// ModelSpec is the serialized form of a fitted classifier.
type ModelSpec struct {
	Kind    string `json:"kind"`
	Classes []int  `json:"classes"`

	// logistic_regression
	Coef      []float64 `json:"coef,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`

	// multinomial_nb
	ClassLogPrior  []float64   `json:"class_log_prior,omitempty"`
	FeatureLogProb [][]float64 `json:"feature_log_prob,omitempty"`
}

// NewModel validates spec and builds the classifier it describes.
func NewModel(spec *ModelSpec) (Model, error) {
	if spec == nil {
		return nil, errors.New("nil model spec")
	}
	if len(spec.Classes) != 2 || spec.Classes[0] != LabelHam || spec.Classes[1] != LabelSpam {
		return nil, fmt.Errorf("classes must be [0 1], got %v", spec.Classes)
	}

	switch spec.Kind {
	case KindLogisticRegression:
		if len(spec.Coef) == 0 {
			return nil, errors.New("logistic regression has no coefficients")
		}
		if err := checkFinite("coef", spec.Coef); err != nil {
			return nil, err
		}
		if err := checkFinite("intercept", []float64{spec.Intercept}); err != nil {
			return nil, err
		}
		return &LogisticRegression{
			coef:      append([]float64(nil), spec.Coef...),
			intercept: spec.Intercept,
		}, nil

	case KindMultinomialNB:
		if len(spec.ClassLogPrior) != 2 || len(spec.FeatureLogProb) != 2 {
			return nil, errors.New("naive bayes needs two class priors and two feature rows")
		}
		if len(spec.FeatureLogProb[0]) == 0 || len(spec.FeatureLogProb[0]) != len(spec.FeatureLogProb[1]) {
			return nil, errors.New("naive bayes feature rows must be non-empty and of equal length")
		}
		if err := checkFinite("class_log_prior", spec.ClassLogPrior); err != nil {
			return nil, err
		}
		nb := &MultinomialNB{}
		for c := 0; c < 2; c++ {
			if err := checkFinite(fmt.Sprintf("feature_log_prob[%d]", c), spec.FeatureLogProb[c]); err != nil {
				return nil, err
			}
			nb.classLogPrior[c] = spec.ClassLogPrior[c]
			nb.featureLogProb[c] = append([]float64(nil), spec.FeatureLogProb[c]...)
		}
		return nb, nil

	default:
		return nil, fmt.Errorf("unsupported model kind %q", spec.Kind)
	}
}

func checkFinite(name string, xs []float64) error {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%s[%d] is not finite", name, i)
		}
	}
	return nil
}

// LogisticRegression scores sigmoid(coef·x + intercept) as P(spam).
type LogisticRegression struct {
	coef      []float64
	intercept float64
}

// Kind implements Model.
func (m *LogisticRegression) Kind() string { return KindLogisticRegression }

// Dim implements Model.
func (m *LogisticRegression) Dim() int { return len(m.coef) }

func (m *LogisticRegression) decision(x FeatureVector) (float64, error) {
	z, err := x.Dot(m.coef)
	if err != nil {
		return 0, err
	}
	return z + m.intercept, nil
}

// PredictLabel implements Model. A decision value of exactly zero is ham.
func (m *LogisticRegression) PredictLabel(x FeatureVector) (int, error) {
	z, err := m.decision(x)
	if err != nil {
		return 0, err
	}
	if z > 0 {
		return LabelSpam, nil
	}
	return LabelHam, nil
}

// PredictProba implements Model.
func (m *LogisticRegression) PredictProba(x FeatureVector) ([2]float64, error) {
	z, err := m.decision(x)
	if err != nil {
		return [2]float64{}, err
	}
	p := sigmoid(z)
	return [2]float64{1 - p, p}, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// MultinomialNB scores the joint log likelihood of each class.
type MultinomialNB struct {
	classLogPrior  [2]float64
	featureLogProb [2][]float64
}

// Kind implements Model.
func (m *MultinomialNB) Kind() string { return KindMultinomialNB }

// Dim implements Model.
func (m *MultinomialNB) Dim() int { return len(m.featureLogProb[0]) }

func (m *MultinomialNB) jointLogLikelihood(x FeatureVector) ([2]float64, error) {
	var jll [2]float64
	for c := 0; c < 2; c++ {
		s, err := x.Dot(m.featureLogProb[c])
		if err != nil {
			return jll, err
		}
		jll[c] = m.classLogPrior[c] + s
	}
	return jll, nil
}

// PredictLabel implements Model. Ties resolve to ham.
func (m *MultinomialNB) PredictLabel(x FeatureVector) (int, error) {
	jll, err := m.jointLogLikelihood(x)
	if err != nil {
		return 0, err
	}
	if jll[LabelSpam] > jll[LabelHam] {
		return LabelSpam, nil
	}
	return LabelHam, nil
}

// PredictProba implements Model.
func (m *MultinomialNB) PredictProba(x FeatureVector) ([2]float64, error) {
	jll, err := m.jointLogLikelihood(x)
	if err != nil {
		return [2]float64{}, err
	}
	hi := math.Max(jll[0], jll[1])
	e0, e1 := math.Exp(jll[0]-hi), math.Exp(jll[1]-hi)
	sum := e0 + e1
	return [2]float64{e0 / sum, e1 / sum}, nil
}
