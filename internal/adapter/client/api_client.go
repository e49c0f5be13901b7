package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrNotReady is returned while the server is still loading its model
var ErrNotReady = errors.New("spam guardian service not ready")

// DefaultReadyInterval is the WaitReady poll interval when none is given
const DefaultReadyInterval = 500 * time.Millisecond

// APIError is a non-2xx answer from the service
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("service returned status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Verdict is one classification as returned by the service
type Verdict struct {
	VerdictID       string  `json:"verdict_id"`
	IsSpam          bool    `json:"is_spam"`
	Label           string  `json:"label"`
	Confidence      float64 `json:"confidence"`
	SpamProbability float64 `json:"spam_probability"`
	ModelKind       string  `json:"model_kind,omitempty"`
	Cached          bool    `json:"cached"`
}

// BatchResult holds verdicts in request order
type BatchResult struct {
	Results   []Verdict `json:"results"`
	Total     int       `json:"total"`
	SpamCount int       `json:"spam_count"`
}

// Normalized is the token form of a text
type Normalized struct {
	Normalized string   `json:"normalized"`
	Tokens     []string `json:"tokens"`
	Stages     []string `json:"stages"`
}

// ModelInfo describes the artifacts the server loaded
type ModelInfo struct {
	ModelKind      string   `json:"model_kind"`
	VectorizerKind string   `json:"vectorizer_kind"`
	VocabularySize int      `json:"vocabulary_size"`
	Features       int      `json:"features"`
	Stages         []string `json:"normalizer_stages"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIClient is an HTTP client for the spam guardian API
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify sends a single text for classification
func (c *APIClient) Classify(ctx context.Context, text, requestID string) (*Verdict, error) {
	var out Verdict
	if err := c.call(ctx, http.MethodPost, "/api/v1/classify", requestID, map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClassifyBatch sends multiple texts for classification
func (c *APIClient) ClassifyBatch(ctx context.Context, texts []string, requestID string) (*BatchResult, error) {
	var out BatchResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/classify/batch", requestID, map[string][]string{"texts": texts}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Normalize returns the server's normalized form of text
func (c *APIClient) Normalize(ctx context.Context, text string) (*Normalized, error) {
	var out Normalized
	if err := c.call(ctx, http.MethodPost, "/api/v1/normalize", "", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ModelInfo describes the loaded model
func (c *APIClient) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	var out ModelInfo
	if err := c.call(ctx, http.MethodGet, "/api/v1/model", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the service health
func (c *APIClient) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.send(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// Ready checks if the service is ready, returning ErrNotReady on 503
func (c *APIClient) Ready(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/ready", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusServiceUnavailable:
		return ErrNotReady
	default:
		return &APIError{StatusCode: resp.StatusCode}
	}
}

// WaitReady polls Ready every interval until the service is ready or ctx ends
func (c *APIClient) WaitReady(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultReadyInterval
	}
	return retry.Do(ctx, retry.NewConstant(interval), func(ctx context.Context) error {
		err := c.Ready(ctx)
		if errors.Is(err, ErrNotReady) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *APIClient) call(ctx context.Context, method, path, requestID string, in, out any) error {
	resp, err := c.send(ctx, method, path, requestID, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode/100 != 2 {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode/100 != 2 || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func (c *APIClient) send(ctx context.Context, method, path, requestID string, in any) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}
