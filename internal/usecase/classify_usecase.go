package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spamguardian/spam-guardian/internal/domain/entity"
	"github.com/spamguardian/spam-guardian/internal/domain/repository"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/metrics"
	"github.com/spamguardian/spam-guardian/internal/pipeline"
)

// Error definitions for classify usecase
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrEmptyText       = errors.New("text must not be empty")
	ErrBatchTooLarge   = errors.New("batch exceeds the maximum size")
	ErrVerdictNotFound = errors.New("verdict not found")
	ErrHistoryDisabled = errors.New("verdict history is not enabled")
)

// Pagination bounds for verdict listings
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// DefaultMaxBatchSize caps batch requests when no limit is configured
const DefaultMaxBatchSize = 100

// ClassifyInput represents the input for classifying one text
type ClassifyInput struct {
	Text      string `json:"text"`
	RequestID string `json:"-"`
}

// ClassifyBatchInput represents the input for classifying several texts
type ClassifyBatchInput struct {
	Texts     []string `json:"texts" binding:"required"`
	RequestID string   `json:"-"`
}

// NormalizeInput represents the input for the normalize operation
type NormalizeInput struct {
	Text string `json:"text"`
}

// VerdictOutput represents one classification verdict
type VerdictOutput struct {
	VerdictID       uuid.UUID `json:"verdict_id"`
	IsSpam          bool      `json:"is_spam"`
	Label           string    `json:"label"`
	Confidence      float64   `json:"confidence"`
	SpamProbability float64   `json:"spam_probability"`
	TextSHA256      string    `json:"text_sha256"`
	TextLength      int       `json:"text_length"`
	ModelKind       string    `json:"model_kind,omitempty"`
	Cached          bool      `json:"cached"`
	LatencyMs       int64     `json:"latency_ms"`
	CreatedAt       string    `json:"created_at,omitempty"`
}

// BatchOutput represents the verdicts of a batch, in input order
type BatchOutput struct {
	Results   []*VerdictOutput `json:"results"`
	Total     int              `json:"total"`
	SpamCount int              `json:"spam_count"`
}

// NormalizeOutput represents the normalized form of a text
type NormalizeOutput struct {
	Normalized string   `json:"normalized"`
	Tokens     []string `json:"tokens"`
	Stages     []string `json:"stages"`
}

// VerdictListOutput represents a paginated verdict history
type VerdictListOutput struct {
	Verdicts []*VerdictOutput `json:"verdicts"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	HasMore  bool             `json:"has_more"`
}

// StatsOutput summarizes the verdict history
type StatsOutput struct {
	Total     int64   `json:"total"`
	SpamCount int64   `json:"spam_count"`
	HamCount  int64   `json:"ham_count"`
	SpamRate  float64 `json:"spam_rate"`
}

// ModelOutput describes the loaded artifacts
type ModelOutput struct {
	ModelKind      string   `json:"model_kind"`
	VectorizerKind string   `json:"vectorizer_kind"`
	VocabularySize int      `json:"vocabulary_size"`
	Features       int      `json:"features"`
	Digest         string   `json:"artifact_digest,omitempty"`
	Stages         []string `json:"normalizer_stages"`
}

// ClassifyUsecase defines the interface for classification business logic
type ClassifyUsecase interface {
	Classify(ctx context.Context, input *ClassifyInput) (*VerdictOutput, error)
	ClassifyBatch(ctx context.Context, input *ClassifyBatchInput) (*BatchOutput, error)
	Normalize(ctx context.Context, input *NormalizeInput) (*NormalizeOutput, error)
	ListVerdicts(ctx context.Context, filter entity.VerdictFilter, limit, offset int) (*VerdictListOutput, error)
	GetVerdict(ctx context.Context, id uuid.UUID) (*VerdictOutput, error)
	Stats(ctx context.Context, filter entity.VerdictFilter) (*StatsOutput, error)
	ModelInfo(ctx context.Context) (*ModelOutput, error)
}

// ClassifyOptions tunes the usecase
type ClassifyOptions struct {
	MaxBatchSize int
	// Workers bounds batch parallelism; zero means GOMAXPROCS.
	Workers int
}

type classifyUsecase struct {
	engines     EngineProvider
	verdictRepo repository.VerdictRepository
	cache       repository.VerdictCache
	metrics     *metrics.Metrics
	opts        ClassifyOptions
	logger      *zap.Logger
}

// NewClassifyUsecase creates a new classify usecase. verdictRepo, cache and
// m are optional.
func NewClassifyUsecase(
	engines EngineProvider,
	verdictRepo repository.VerdictRepository,
	cache repository.VerdictCache,
	m *metrics.Metrics,
	opts ClassifyOptions,
	logger *zap.Logger,
) ClassifyUsecase {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = DefaultMaxBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &classifyUsecase{
		engines:     engines,
		verdictRepo: verdictRepo,
		cache:       cache,
		metrics:     m,
		opts:        opts,
		logger:      logger,
	}
}

func (u *classifyUsecase) Classify(ctx context.Context, input *ClassifyInput) (*VerdictOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrEmptyText
	}

	engine, err := u.engines.Engine(ctx)
	if err != nil {
		return nil, err
	}

	verdict, err := u.classify(ctx, engine, input.Text)
	if err != nil {
		return nil, err
	}
	verdict.RequestID = input.RequestID

	if u.verdictRepo != nil {
		if err := u.verdictRepo.Create(ctx, verdict); err != nil {
			u.logger.Warn("Failed to record verdict", zap.String("verdict_id", verdict.ID.String()), zap.Error(err))
		}
	}

	return toVerdictOutput(verdict), nil
}

func (u *classifyUsecase) ClassifyBatch(ctx context.Context, input *ClassifyBatchInput) (*BatchOutput, error) {
	if len(input.Texts) == 0 {
		return nil, fmt.Errorf("%w: texts must not be empty", ErrInvalidRequest)
	}
	if len(input.Texts) > u.opts.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d texts, limit %d", ErrBatchTooLarge, len(input.Texts), u.opts.MaxBatchSize)
	}
	for i, text := range input.Texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("texts[%d]: %w", i, ErrEmptyText)
		}
	}

	engine, err := u.engines.Engine(ctx)
	if err != nil {
		return nil, err
	}

	verdicts := make([]*entity.Verdict, len(input.Texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.Workers)
	for i, text := range input.Texts {
		g.Go(func() error {
			v, err := u.classify(gctx, engine, text)
			if err != nil {
				return fmt.Errorf("texts[%d]: %w", i, err)
			}
			v.RequestID = input.RequestID
			verdicts[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if u.verdictRepo != nil {
		if err := u.verdictRepo.CreateBatch(ctx, verdicts); err != nil {
			u.logger.Warn("Failed to record batch verdicts", zap.Int("count", len(verdicts)), zap.Error(err))
		}
	}

	out := &BatchOutput{Results: make([]*VerdictOutput, len(verdicts)), Total: len(verdicts)}
	for i, v := range verdicts {
		out.Results[i] = toVerdictOutput(v)
		if v.IsSpam {
			out.SpamCount++
		}
	}
	return out, nil
}

// classify consults the cache, then the engine. Cache failures only log.
// Engines without an artifact digest bypass the cache.
func (u *classifyUsecase) classify(ctx context.Context, engine Engine, text string) (*entity.Verdict, error) {
	digest := entity.TextDigest(text)
	info := engine.Info()

	var cacheKey string
	if u.cache != nil && info.Digest != "" {
		cacheKey = entity.CacheKey(info.Digest, digest)
	}

	if cacheKey != "" {
		cached, err := u.cache.Get(ctx, cacheKey)
		if err != nil {
			u.logger.Warn("Verdict cache lookup failed", zap.Error(err))
		}
		u.metrics.ObserveCache(cached != nil)
		if cached != nil {
			cached.ID = uuid.New()
			cached.Cached = true
			cached.LatencyMs = 0
			cached.CreatedAt = time.Time{}
			return cached, nil
		}
	}

	start := time.Now()
	result, err := engine.Classify(text)
	elapsed := time.Since(start)
	if err != nil {
		reason := "internal"
		if errors.Is(err, pipeline.ErrClassification) {
			reason = "classification_error"
		}
		u.metrics.ObserveFailure(reason)
		u.logger.Error("Classification failed", zap.String("text_sha256", digest), zap.Error(err))
		return nil, err
	}

	verdict := entity.NewVerdict(text, result.IsSpam, result.Confidence, result.SpamProbability)
	verdict.ModelKind = info.ModelKind
	verdict.LatencyMs = elapsed.Milliseconds()
	u.metrics.ObserveClassification(verdict.Label, elapsed)

	if cacheKey != "" {
		if err := u.cache.Set(ctx, cacheKey, verdict); err != nil {
			u.logger.Warn("Failed to cache verdict", zap.Error(err))
		}
	}

	return verdict, nil
}

func (u *classifyUsecase) Normalize(ctx context.Context, input *NormalizeInput) (*NormalizeOutput, error) {
	engine, err := u.engines.Engine(ctx)
	if err != nil {
		return nil, err
	}

	normalized := engine.Normalize(input.Text)
	tokens := strings.Fields(normalized)
	if tokens == nil {
		tokens = []string{}
	}
	return &NormalizeOutput{
		Normalized: normalized,
		Tokens:     tokens,
		Stages:     engine.Stages(),
	}, nil
}

func (u *classifyUsecase) ListVerdicts(ctx context.Context, filter entity.VerdictFilter, limit, offset int) (*VerdictListOutput, error) {
	if u.verdictRepo == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	verdicts, total, err := u.verdictRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	outputs := make([]*VerdictOutput, len(verdicts))
	for i, v := range verdicts {
		outputs[i] = toVerdictOutput(v)
	}

	return &VerdictListOutput{
		Verdicts: outputs,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		HasMore:  int64(offset+limit) < total,
	}, nil
}

func (u *classifyUsecase) GetVerdict(ctx context.Context, id uuid.UUID) (*VerdictOutput, error) {
	if u.verdictRepo == nil {
		return nil, ErrHistoryDisabled
	}
	verdict, err := u.verdictRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if verdict == nil {
		return nil, ErrVerdictNotFound
	}
	return toVerdictOutput(verdict), nil
}

func (u *classifyUsecase) Stats(ctx context.Context, filter entity.VerdictFilter) (*StatsOutput, error) {
	if u.verdictRepo == nil {
		return nil, ErrHistoryDisabled
	}
	stats, err := u.verdictRepo.Stats(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{
		Total:     stats.Total,
		SpamCount: stats.SpamCount,
		HamCount:  stats.HamCount,
		SpamRate:  stats.SpamRate(),
	}, nil
}

func (u *classifyUsecase) ModelInfo(ctx context.Context) (*ModelOutput, error) {
	engine, err := u.engines.Engine(ctx)
	if err != nil {
		return nil, err
	}
	info := engine.Info()
	return &ModelOutput{
		ModelKind:      info.ModelKind,
		VectorizerKind: info.VectorizerKind,
		VocabularySize: info.VocabularySize,
		Features:       info.Features,
		Digest:         info.Digest,
		Stages:         engine.Stages(),
	}, nil
}

func toVerdictOutput(v *entity.Verdict) *VerdictOutput {
	out := &VerdictOutput{
		VerdictID:       v.ID,
		IsSpam:          v.IsSpam,
		Label:           v.Label,
		Confidence:      v.Confidence,
		SpamProbability: v.SpamProbability,
		TextSHA256:      v.TextSHA256,
		TextLength:      v.TextLength,
		ModelKind:       v.ModelKind,
		Cached:          v.Cached,
		LatencyMs:       v.LatencyMs,
	}
	if !v.CreatedAt.IsZero() {
		out.CreatedAt = v.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return out
}
