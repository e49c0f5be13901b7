package artifact

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spamguardian/spam-guardian/internal/infrastructure/config"
	"github.com/spamguardian/spam-guardian/internal/pipeline"
)

// NewStoreFromConfig builds a Store for the configured artifact source
func NewStoreFromConfig(cfg *config.ArtifactsConfig, observer FetchObserver, logger *zap.Logger) (*Store, error) {
	source, err := NewSource(cfg, &http.Client{})
	if err != nil {
		return nil, err
	}
	return NewStore(StoreConfig{
		Source:   source,
		Timeout:  cfg.FetchTimeout,
		Retries:  cfg.FetchRetries,
		Backoff:  cfg.FetchBackoff,
		Observer: observer,
	}, logger), nil
}

// NewSource returns the Source named by cfg.Source, or nil for "none"
func NewSource(cfg *config.ArtifactsConfig, httpClient *http.Client) (Source, error) {
	switch cfg.Source {
	case "", "none":
		return nil, nil
	case "http":
		return NewHTTPSource(map[string]string{
			pipeline.ArtifactModel:      cfg.ModelURL,
			pipeline.ArtifactVectorizer: cfg.VectorizerURL,
		}, httpClient), nil
	case "gdrive":
		return NewDriveSource(map[string]string{
			pipeline.ArtifactModel:      cfg.ModelDriveID,
			pipeline.ArtifactVectorizer: cfg.VectorizerDriveID,
		}, httpClient), nil
	case "s3":
		client := ConnectS3(S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		source, err := NewS3Source(client, cfg.S3.Bucket, map[string]string{
			pipeline.ArtifactModel:      cfg.S3.ModelKey,
			pipeline.ArtifactVectorizer: cfg.S3.VectorizerKey,
		})
		if err != nil {
			return nil, err
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unknown artifact source %q", cfg.Source)
	}
}
