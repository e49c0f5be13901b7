package service

// Verdict labels
const (
	LabelSpam = "spam"
	LabelHam  = "ham"
)

// ClassificationResult represents the verdict for a single text
type ClassificationResult struct {
	IsSpam bool `json:"is_spam"`
	// Confidence is the probability of the predicted class, in [0.5, 1]
	Confidence      float64 `json:"confidence"`
	SpamProbability float64 `json:"spam_probability"`
}

// Label returns "spam" or "ham"
func (r *ClassificationResult) Label() string {
	if r.IsSpam {
		return LabelSpam
	}
	return LabelHam
}

// Classifier defines the interface for spam classification
type Classifier interface {
	// Classify classifies a single text
	Classify(text string) (*ClassificationResult, error)

	// Normalize returns the token string the classifier sees for text
	Normalize(text string) string
}
