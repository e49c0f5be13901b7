// Package artifact keeps the fitted model and vectorizer files available on
// local disk, downloading them from a remote source when they are missing.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultBackoff = 250 * time.Millisecond

var (
	// ErrNoSource is returned when an artifact is missing locally and no
	// remote location is configured for it.
	ErrNoSource = errors.New("no remote source configured")
	// ErrNotFound is returned when the remote source does not have the artifact.
	ErrNotFound = errors.New("artifact not found at source")
	// ErrEmpty is returned when the remote source served zero bytes.
	ErrEmpty = errors.New("downloaded artifact is empty")
)

// Destination receives downloaded bytes. *os.File satisfies it.
type Destination interface {
	io.Writer
	io.WriterAt
}

// Source downloads a named artifact
type Source interface {
	Name() string
	Fetch(ctx context.Context, artifact string, dst Destination) error
}

// FetchObserver is notified after every download, successful or not
type FetchObserver interface {
	ObserveFetch(artifact, source string, err error, elapsed time.Duration)
}

// StoreConfig configures a Store
type StoreConfig struct {
	// Source may be nil, in which case artifacts must already exist.
	Source Source
	// Timeout bounds a single download attempt. Zero means no limit.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transient failure.
	Retries uint64
	Backoff time.Duration

	Observer FetchObserver
}

// Store implements fetch-if-missing for artifact files
type Store struct {
	cfg    StoreConfig
	logger *zap.Logger
	group  singleflight.Group
}

// NewStore creates a new Store
func NewStore(cfg StoreConfig, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	return &Store{cfg: cfg, logger: logger}
}

// SourceName returns the configured source name, or "none"
func (s *Store) SourceName() string {
	if s.cfg.Source == nil {
		return "none"
	}
	return s.cfg.Source.Name()
}

// Ensure makes artifact available at path. An existing file is never
// re-downloaded. Concurrent calls for the same path share one download, and
// the file only appears at path once it is complete.
func (s *Store) Ensure(ctx context.Context, artifact, path string) error {
	if exists(path) {
		return nil
	}

	_, err, _ := s.group.Do(path, func() (any, error) {
		if exists(path) {
			return nil, nil
		}
		return nil, s.download(ctx, artifact, path)
	})
	return err
}

func (s *Store) download(ctx context.Context, artifact, path string) error {
	if s.cfg.Source == nil {
		return fmt.Errorf("%s missing at %s: %w", artifact, path, ErrNoSource)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	source := s.cfg.Source.Name()
	logger := s.logger.With(
		zap.String("artifact", artifact),
		zap.String("source", source),
		zap.String("path", path),
	)
	logger.Info("Downloading artifact")

	start := time.Now()
	attempt := 0
	backoff := retry.WithMaxRetries(s.cfg.Retries, retry.NewExponential(s.cfg.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.fetchOnce(ctx, artifact, path)
		if err == nil || !retryable(err) {
			return err
		}
		logger.Warn("Artifact download failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		return retry.RetryableError(err)
	})
	elapsed := time.Since(start)

	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveFetch(artifact, source, err, elapsed)
	}
	if err != nil {
		logger.Error("Artifact download failed", zap.Int("attempts", attempt), zap.Error(err))
		return fmt.Errorf("failed to download %s from %s: %w", artifact, source, err)
	}

	logger.Info("Artifact downloaded", zap.Int("attempts", attempt), zap.Duration("elapsed", elapsed))
	return nil
}

// fetchOnce downloads into a temp file next to path and renames it into place
func (s *Store) fetchOnce(ctx context.Context, artifact, path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	fetchCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	fetchErr := s.cfg.Source.Fetch(fetchCtx, artifact, tmp)
	info, statErr := tmp.Stat()
	closeErr := tmp.Close()
	switch {
	case fetchErr != nil:
		return fetchErr
	case statErr != nil:
		return statErr
	case closeErr != nil:
		return closeErr
	case info.Size() == 0:
		return ErrEmpty
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmpty) || errors.Is(err, ErrNoSource) || errors.Is(err, errNotArtifact) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
