package client

import (
	"context"
	"strings"

	"github.com/spamguardian/spam-guardian/internal/domain/service"
)

// RemoteClassifier adapts APIClient to the classifier shape used by the CLI
type RemoteClassifier struct {
	client *APIClient
}

// NewRemoteClassifier creates a new RemoteClassifier
func NewRemoteClassifier(client *APIClient) *RemoteClassifier {
	return &RemoteClassifier{client: client}
}

// Classify classifies a single text on the server
func (c *RemoteClassifier) Classify(ctx context.Context, text string) (*service.ClassificationResult, error) {
	v, err := c.client.Classify(ctx, text, "")
	if err != nil {
		return nil, err
	}
	return toResult(v), nil
}

// ClassifyBatch classifies texts on the server, preserving order
func (c *RemoteClassifier) ClassifyBatch(ctx context.Context, texts []string) ([]*service.ClassificationResult, error) {
	resp, err := c.client.ClassifyBatch(ctx, texts, "")
	if err != nil {
		return nil, err
	}

	results := make([]*service.ClassificationResult, len(resp.Results))
	for i := range resp.Results {
		results[i] = toResult(&resp.Results[i])
	}
	return results, nil
}

// Normalize returns the server's normalized form of text
func (c *RemoteClassifier) Normalize(ctx context.Context, text string) (string, error) {
	n, err := c.client.Normalize(ctx, text)
	if err != nil {
		return "", err
	}
	if n.Normalized == "" && len(n.Tokens) > 0 {
		return strings.Join(n.Tokens, " "), nil
	}
	return n.Normalized, nil
}

func toResult(v *Verdict) *service.ClassificationResult {
	return &service.ClassificationResult{
		IsSpam:          v.IsSpam,
		Confidence:      v.Confidence,
		SpamProbability: v.SpamProbability,
	}
}
