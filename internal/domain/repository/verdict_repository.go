package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/spamguardian/spam-guardian/internal/domain/entity"
)

// VerdictRepository defines the interface for verdict history operations
type VerdictRepository interface {
	// Create stores one verdict
	Create(ctx context.Context, verdict *entity.Verdict) error

	// CreateBatch stores several verdicts at once
	CreateBatch(ctx context.Context, verdicts []*entity.Verdict) error

	// GetByID retrieves a verdict by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Verdict, error)

	// List retrieves verdicts newest first with pagination
	List(ctx context.Context, filter entity.VerdictFilter, limit, offset int) ([]*entity.Verdict, int64, error)

	// Stats summarizes verdicts matching filter
	Stats(ctx context.Context, filter entity.VerdictFilter) (*entity.VerdictStats, error)
}

// VerdictCache stores classification results under entity.CacheKey keys
type VerdictCache interface {
	// Get returns the cached verdict, or nil on a miss
	Get(ctx context.Context, key string) (*entity.Verdict, error)

	// Set stores a verdict under key
	Set(ctx context.Context, key string, verdict *entity.Verdict) error
}
