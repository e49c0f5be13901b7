package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spamguardian/spam-guardian/internal/domain/model"
	"github.com/spamguardian/spam-guardian/internal/domain/normalize"
)

// Artifact names
const (
	ArtifactModel      = "model"
	ArtifactVectorizer = "vectorizer"
)

// Fetcher makes an artifact available at a local path, downloading it when
// it is missing.
type Fetcher interface {
	Ensure(ctx context.Context, artifact, path string) error
}

// LoaderConfig configures a Loader
type LoaderConfig struct {
	ModelPath      string
	VectorizerPath string

	// Fetcher is optional; without one, artifacts must already exist locally.
	Fetcher Fetcher

	// Normalizer defaults to normalize.Default().
	Normalizer *normalize.Normalizer
}

// Loader loads a Pipeline exactly once and hands the same instance, or the
// same LoadError, to every caller. Independent loaders do not share state.
type Loader struct {
	cfg    LoaderConfig
	logger *zap.Logger

	once     sync.Once
	loaded   atomic.Bool
	pipeline *Pipeline
	err      error
}

// NewLoader creates a new Loader
func NewLoader(cfg LoaderConfig, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// Load returns the shared pipeline, loading it on first use. The first
// caller's context bounds the load; later callers never block on I/O.
func (l *Loader) Load(ctx context.Context) (*Pipeline, error) {
	l.once.Do(func() {
		l.pipeline, l.err = l.load(ctx)
		if l.err == nil {
			l.loaded.Store(true)
		}
	})
	return l.pipeline, l.err
}

// Loaded reports whether a pipeline has been loaded successfully.
func (l *Loader) Loaded() bool {
	return l.loaded.Load()
}

func (l *Loader) load(ctx context.Context) (*Pipeline, error) {
	start := time.Now()

	if l.cfg.ModelPath == "" || l.cfg.VectorizerPath == "" {
		return nil, &LoadError{Artifact: ArtifactModel, Err: errors.New("artifact paths are not configured")}
	}

	if l.cfg.Fetcher != nil {
		g, gctx := errgroup.WithContext(ctx)
		for _, a := range []struct{ name, path string }{
			{ArtifactVectorizer, l.cfg.VectorizerPath},
			{ArtifactModel, l.cfg.ModelPath},
		} {
			g.Go(func() error {
				if err := l.cfg.Fetcher.Ensure(gctx, a.name, a.path); err != nil {
					return &LoadError{Artifact: a.name, Path: a.path, Err: err}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			l.logger.Error("Failed to fetch artifacts", zap.Error(err))
			return nil, err
		}
	}

	vecData, err := os.ReadFile(l.cfg.VectorizerPath)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactVectorizer, Path: l.cfg.VectorizerPath, Err: err}
	}
	vec, err := model.DecodeVectorizer(vecData)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactVectorizer, Path: l.cfg.VectorizerPath, Err: err}
	}

	modelData, err := os.ReadFile(l.cfg.ModelPath)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactModel, Path: l.cfg.ModelPath, Err: err}
	}
	m, err := model.DecodeModel(modelData)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactModel, Path: l.cfg.ModelPath, Err: err}
	}

	p, err := New(l.cfg.Normalizer, vec, m)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactModel, Path: l.cfg.ModelPath, Err: err}
	}
	p.digest = ArtifactDigest(vecData, modelData)

	info := p.Info()
	l.logger.Info("Pipeline loaded",
		zap.String("model_kind", info.ModelKind),
		zap.Int("vocabulary_size", info.VocabularySize),
		zap.String("digest", info.Digest),
		zap.Duration("elapsed", time.Since(start)),
	)
	return p, nil
}
