package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spamguardian/spam-guardian/internal/domain/entity"
	"github.com/spamguardian/spam-guardian/internal/domain/repository"
)

const insertBatchSize = 100

type verdictRepository struct {
	db *gorm.DB
}

// NewVerdictRepository creates a new verdict repository
func NewVerdictRepository(db *gorm.DB) repository.VerdictRepository {
	return &verdictRepository{db: db}
}

func (r *verdictRepository) Create(ctx context.Context, verdict *entity.Verdict) error {
	return r.db.WithContext(ctx).Create(verdict).Error
}

func (r *verdictRepository) CreateBatch(ctx context.Context, verdicts []*entity.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(verdicts, insertBatchSize).Error
}

func (r *verdictRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Verdict, error) {
	var verdict entity.Verdict
	err := r.db.WithContext(ctx).First(&verdict, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &verdict, nil
}

func (r *verdictRepository) List(ctx context.Context, filter entity.VerdictFilter, limit, offset int) ([]*entity.Verdict, int64, error) {
	var verdicts []*entity.Verdict
	var total int64

	if err := r.db.WithContext(ctx).Model(&entity.Verdict{}).Scopes(filterScope(filter)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Scopes(filterScope(filter)).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&verdicts).Error
	if err != nil {
		return nil, 0, err
	}

	return verdicts, total, nil
}

func (r *verdictRepository) Stats(ctx context.Context, filter entity.VerdictFilter) (*entity.VerdictStats, error) {
	var row struct {
		Total     int64
		SpamCount int64
	}
	err := r.db.WithContext(ctx).
		Model(&entity.Verdict{}).
		Scopes(filterScope(filter)).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_spam THEN 1 ELSE 0 END), 0) AS spam_count").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &entity.VerdictStats{
		Total:     row.Total,
		SpamCount: row.SpamCount,
		HamCount:  row.Total - row.SpamCount,
	}, nil
}

func filterScope(filter entity.VerdictFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.IsSpam != nil {
			db = db.Where("is_spam = ?", *filter.IsSpam)
		}
		if filter.Since != nil {
			db = db.Where("created_at >= ?", *filter.Since)
		}
		return db
	}
}
