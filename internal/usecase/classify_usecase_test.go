package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spamguardian/spam-guardian/internal/domain/entity"
	"github.com/spamguardian/spam-guardian/internal/domain/model"
	"github.com/spamguardian/spam-guardian/internal/domain/service"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/metrics"
	"github.com/spamguardian/spam-guardian/internal/pipeline"
)

// MockEngine is a mock implementation of Engine
type MockEngine struct {
	mock.Mock
	Digest string
}

func (m *MockEngine) Classify(text string) (*service.ClassificationResult, error) {
	args := m.Called(text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ClassificationResult), args.Error(1)
}

func (m *MockEngine) Normalize(text string) string {
	args := m.Called(text)
	return args.String(0)
}

func (m *MockEngine) Info() model.Info {
	return model.Info{
		ModelKind:      model.KindLogisticRegression,
		VectorizerKind: model.KindTFIDF,
		VocabularySize: 13,
		Features:       13,
		Digest:         m.Digest,
	}
}

func (m *MockEngine) Stages() []string {
	return []string{"lowercase", "split"}
}

// MockVerdictRepository is a mock implementation of VerdictRepository
type MockVerdictRepository struct {
	mock.Mock
}

func (m *MockVerdictRepository) Create(ctx context.Context, verdict *entity.Verdict) error {
	args := m.Called(ctx, verdict)
	return args.Error(0)
}

func (m *MockVerdictRepository) CreateBatch(ctx context.Context, verdicts []*entity.Verdict) error {
	args := m.Called(ctx, verdicts)
	return args.Error(0)
}

func (m *MockVerdictRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Verdict, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Verdict), args.Error(1)
}

func (m *MockVerdictRepository) List(ctx context.Context, filter entity.VerdictFilter, limit, offset int) ([]*entity.Verdict, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entity.Verdict), args.Get(1).(int64), args.Error(2)
}

func (m *MockVerdictRepository) Stats(ctx context.Context, filter entity.VerdictFilter) (*entity.VerdictStats, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VerdictStats), args.Error(1)
}

// memoryCache is an in-memory VerdictCache
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]entity.Verdict
	getErr  error
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]entity.Verdict)}
}

func (c *memoryCache) Get(_ context.Context, key string) (*entity.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, verdict *entity.Verdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = *verdict
	return nil
}

var (
	spamResult = &service.ClassificationResult{IsSpam: true, Confidence: 0.92, SpamProbability: 0.92}
	hamResult  = &service.ClassificationResult{IsSpam: false, Confidence: 0.81, SpamProbability: 0.19}
)

func TestClassifyUsecase_Classify(t *testing.T) {
	t.Run("success records history", func(t *testing.T) {
		engine := new(MockEngine)
		repo := new(MockVerdictRepository)
		uc := NewClassifyUsecase(StaticProvider{E: engine}, repo, nil, nil, ClassifyOptions{}, nil)

		engine.On("Classify", "Claim your prize").Return(spamResult, nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(v *entity.Verdict) bool {
			return v.IsSpam && v.RequestID == "req-1" && v.TextSHA256 == entity.TextDigest("Claim your prize")
		})).Return(nil)

		output, err := uc.Classify(context.Background(), &ClassifyInput{Text: "Claim your prize", RequestID: "req-1"})

		require.NoError(t, err)
		assert.True(t, output.IsSpam)
		assert.Equal(t, "spam", output.Label)
		assert.Equal(t, 0.92, output.Confidence)
		assert.Equal(t, model.KindLogisticRegression, output.ModelKind)
		assert.False(t, output.Cached)
		assert.NotEqual(t, uuid.Nil, output.VerdictID)
		engine.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("empty and whitespace text", func(t *testing.T) {
		engine := new(MockEngine)
		uc := NewClassifyUsecase(StaticProvider{E: engine}, nil, nil, nil, ClassifyOptions{}, nil)

		for _, text := range []string{"", "   ", "\n\t"} {
			output, err := uc.Classify(context.Background(), &ClassifyInput{Text: text})

			assert.Nil(t, output)
			assert.ErrorIs(t, err, ErrEmptyText)
		}
		engine.AssertNotCalled(t, "Classify", mock.Anything)
	})

	t.Run("model not ready", func(t *testing.T) {
		uc := NewClassifyUsecase(StaticProvider{}, nil, nil, nil, ClassifyOptions{}, nil)

		_, err := uc.Classify(context.Background(), &ClassifyInput{Text: "hello"})

		assert.ErrorIs(t, err, ErrModelNotReady)
	})

	t.Run("classification error is surfaced and counted", func(t *testing.T) {
		engine := new(MockEngine)
		m := metrics.New(prometheus.NewRegistry())
		uc := NewClassifyUsecase(StaticProvider{E: engine}, nil, nil, m, ClassifyOptions{}, nil)
		classErr := &pipeline.ClassificationError{Stage: pipeline.StagePredict, Err: errors.New("boom")}

		engine.On("Classify", "hello").Return(nil, classErr)

		output, err := uc.Classify(context.Background(), &ClassifyInput{Text: "hello"})

		assert.Nil(t, output)
		assert.ErrorIs(t, err, pipeline.ErrClassification)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassifyFailures.WithLabelValues("classification_error")))
	})

	t.Run("history failure does not fail the request", func(t *testing.T) {
		engine := new(MockEngine)
		repo := new(MockVerdictRepository)
		uc := NewClassifyUsecase(StaticProvider{E: engine}, repo, nil, nil, ClassifyOptions{}, nil)

		engine.On("Classify", "hi").Return(hamResult, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		output, err := uc.Classify(context.Background(), &ClassifyInput{Text: "hi"})

		require.NoError(t, err)
		assert.False(t, output.IsSpam)
		assert.Equal(t, "ham", output.Label)
	})
}

func TestClassifyUsecase_Cache(t *testing.T) {
	t.Run("second call is served from cache", func(t *testing.T) {
		engine := &MockEngine{Digest: "artifacts-v1"}
		cache := newMemoryCache()
		m := metrics.New(prometheus.NewRegistry())
		uc := NewClassifyUsecase(StaticProvider{E: engine}, nil, cache, m, ClassifyOptions{}, nil)

		engine.On("Classify", "Win now").Return(spamResult, nil).Once()

		first, err := uc.Classify(context.Background(), &ClassifyInput{Text: "Win now"})
		require.NoError(t, err)
		second, err := uc.Classify(context.Background(), &ClassifyInput{Text: "Win now"})
		require.NoError(t, err)

		assert.False(t, first.Cached)
		assert.True(t, second.Cached)
		assert.Equal(t, first.IsSpam, second.IsSpam)
		assert.Equal(t, first.Confidence, second.Confidence)
		assert.NotEqual(t, first.VerdictID, second.VerdictID)
		assert.Equal(t, 1, cache.sets)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
		engine.AssertExpectations(t)
	})

	t.Run("cache failure falls back to the engine", func(t *testing.T) {
		engine := &MockEngine{Digest: "artifacts-v1"}
		cache := newMemoryCache()
		cache.getErr = errors.New("redis down")
		uc := NewClassifyUsecase(StaticProvider{E: engine}, nil, cache, nil, ClassifyOptions{}, nil)

		engine.On("Classify", "hi").Return(hamResult, nil)

		output, err := uc.Classify(context.Background(), &ClassifyInput{Text: "hi"})

		require.NoError(t, err)
		assert.False(t, output.Cached)
		engine.AssertExpectations(t)
	})

	t.Run("verdicts are not shared across artifacts", func(t *testing.T) {
		cache := newMemoryCache()

		before := &MockEngine{Digest: "artifacts-v1"}
		before.On("Classify", "Win now").Return(spamResult, nil).Once()
		after := &MockEngine{Digest: "artifacts-v2"}
		after.On("Classify", "Win now").Return(hamResult, nil).Once()

		first, err := NewClassifyUsecase(StaticProvider{E: before}, nil, cache, nil, ClassifyOptions{}, nil).
			Classify(context.Background(), &ClassifyInput{Text: "Win now"})
		require.NoError(t, err)
		second, err := NewClassifyUsecase(StaticProvider{E: after}, nil, cache, nil, ClassifyOptions{}, nil).
			Classify(context.Background(), &ClassifyInput{Text: "Win now"})
		require.NoError(t, err)

		assert.True(t, first.IsSpam)
		assert.False(t, second.IsSpam)
		assert.False(t, second.Cached)
		assert.Equal(t, 2, cache.sets)
		assert.Contains(t, cache.entries, entity.CacheKey("artifacts-v1", entity.TextDigest("Win now")))
		assert.Contains(t, cache.entries, entity.CacheKey("artifacts-v2", entity.TextDigest("Win now")))
		before.AssertExpectations(t)
		after.AssertExpectations(t)
	})

	t.Run("engines without a digest skip the cache", func(t *testing.T) {
		engine := new(MockEngine)
		cache := newMemoryCache()
		uc := NewClassifyUsecase(StaticProvider{E: engine}, nil, cache, nil, ClassifyOptions{}, nil)

		engine.On("Classify", "hi").Return(hamResult, nil).Twice()

		for range 2 {
			output, err := uc.Classify(context.Background(), &ClassifyInput{Text: "hi"})
			require.NoError(t, err)
			assert.False(t, output.Cached)
		}
		assert.Zero(t, cache.sets)
		engine.AssertExpectations(t)
	})
}

func TestClassifyUsecase_ClassifyBatch(t *testing.T) {
	t.Run("preserves input order", func(t *testing.T) {
		engine := new(MockEngine)
		repo := new(MockVerdictRepository)
		uc := NewClassifyUsecase(StaticProvider{E: engine}, repo, nil, nil, ClassifyOptions{Workers: 4}, nil)

		texts := []string{"spam 1", "ham 1", "spam 2", "ham 2", "ham 3"}
		for _, text := range texts {
			result := hamResult
			if text[:4] == "spam" {
				result = spamResult
			}
			engine.On("Classify", text).Return(result, nil)
		}
		repo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(vs []*entity.Verdict) bool {
			return len(vs) == len(texts)
		})).Return(nil)

		output, err := uc.ClassifyBatch(context.Background(), &ClassifyBatchInput{Texts: texts})

		require.NoError(t, err)
		require.Len(t, output.Results, 5)
		assert.Equal(t, 5, output.Total)
		assert.Equal(t, 2, output.SpamCount)
		for i, text := range texts {
			assert.Equal(t, entity.TextDigest(text), output.Results[i].TextSHA256)
			assert.Equal(t, text[:4] == "spam", output.Results[i].IsSpam)
		}
		repo.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		uc := NewClassifyUsecase(StaticProvider{E: new(MockEngine)}, nil, nil, nil, ClassifyOptions{MaxBatchSize: 2}, nil)

		_, err := uc.ClassifyBatch(context.Background(), &ClassifyBatchInput{})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		_, err = uc.ClassifyBatch(context.Background(), &ClassifyBatchInput{Texts: []string{"a", "b", "c"}})
		assert.ErrorIs(t, err, ErrBatchTooLarge)

		_, err = uc.ClassifyBatch(context.Background(), &ClassifyBatchInput{Texts: []string{"a", " "}})
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Contains(t, err.Error(), "texts[1]")
	})

	t.Run("one failure fails the batch", func(t *testing.T) {
		engine := new(MockEngine)
		uc := NewClassifyUsecase(StaticProvider{E: engine}, nil, nil, nil, ClassifyOptions{}, nil)

		engine.On("Classify", "ok").Return(hamResult, nil).Maybe()
		engine.On("Classify", "bad").Return(nil, &pipeline.ClassificationError{Stage: pipeline.StageTransform, Err: errors.New("x")})

		output, err := uc.ClassifyBatch(context.Background(), &ClassifyBatchInput{Texts: []string{"ok", "bad"}})

		assert.Nil(t, output)
		assert.ErrorIs(t, err, pipeline.ErrClassification)
	})
}

func TestClassifyUsecase_Normalize(t *testing.T) {
	engine := new(MockEngine)
	uc := NewClassifyUsecase(StaticProvider{E: engine}, nil, nil, nil, ClassifyOptions{}, nil)

	engine.On("Normalize", "Win $100").Return("win number")
	engine.On("Normalize", "").Return("")

	output, err := uc.Normalize(context.Background(), &NormalizeInput{Text: "Win $100"})
	require.NoError(t, err)
	assert.Equal(t, "win number", output.Normalized)
	assert.Equal(t, []string{"win", "number"}, output.Tokens)
	assert.Equal(t, []string{"lowercase", "split"}, output.Stages)

	output, err = uc.Normalize(context.Background(), &NormalizeInput{})
	require.NoError(t, err)
	assert.Equal(t, "", output.Normalized)
	assert.Empty(t, output.Tokens)
	assert.NotNil(t, output.Tokens)
}

func TestClassifyUsecase_ListVerdicts(t *testing.T) {
	t.Run("history disabled", func(t *testing.T) {
		uc := NewClassifyUsecase(StaticProvider{}, nil, nil, nil, ClassifyOptions{}, nil)

		_, err := uc.ListVerdicts(context.Background(), entity.VerdictFilter{}, 10, 0)
		assert.ErrorIs(t, err, ErrHistoryDisabled)

		_, err = uc.GetVerdict(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrHistoryDisabled)

		_, err = uc.Stats(context.Background(), entity.VerdictFilter{})
		assert.ErrorIs(t, err, ErrHistoryDisabled)
	})

	tests := []struct {
		name          string
		limit         int
		offset        int
		expectedLimit int
	}{
		{"default limit", 0, 0, DefaultListLimit},
		{"clamped limit", 500, 0, MaxListLimit},
		{"explicit limit", 5, 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockVerdictRepository)
			uc := NewClassifyUsecase(StaticProvider{}, repo, nil, nil, ClassifyOptions{}, nil)
			v := entity.NewVerdict("x", true, 0.9, 0.9)
			v.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

			repo.On("List", mock.Anything, entity.VerdictFilter{}, tt.expectedLimit, tt.offset).
				Return([]*entity.Verdict{v}, int64(30), nil)

			output, err := uc.ListVerdicts(context.Background(), entity.VerdictFilter{}, tt.limit, tt.offset)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedLimit, output.Limit)
			assert.Equal(t, int64(30), output.Total)
			assert.Equal(t, int64(tt.offset+tt.expectedLimit) < 30, output.HasMore)
			require.Len(t, output.Verdicts, 1)
			assert.Equal(t, "2026-03-01T12:00:00Z", output.Verdicts[0].CreatedAt)
			repo.AssertExpectations(t)
		})
	}
}

func TestClassifyUsecase_GetVerdict(t *testing.T) {
	repo := new(MockVerdictRepository)
	uc := NewClassifyUsecase(StaticProvider{}, repo, nil, nil, ClassifyOptions{}, nil)
	found := entity.NewVerdict("x", false, 0.6, 0.4)
	missing := uuid.New()

	repo.On("GetByID", mock.Anything, found.ID).Return(found, nil)
	repo.On("GetByID", mock.Anything, missing).Return(nil, nil)

	output, err := uc.GetVerdict(context.Background(), found.ID)
	require.NoError(t, err)
	assert.Equal(t, found.ID, output.VerdictID)

	_, err = uc.GetVerdict(context.Background(), missing)
	assert.ErrorIs(t, err, ErrVerdictNotFound)
}

func TestClassifyUsecase_Stats(t *testing.T) {
	repo := new(MockVerdictRepository)
	uc := NewClassifyUsecase(StaticProvider{}, repo, nil, nil, ClassifyOptions{}, nil)

	repo.On("Stats", mock.Anything, entity.VerdictFilter{}).
		Return(&entity.VerdictStats{Total: 10, SpamCount: 3, HamCount: 7}, nil)

	output, err := uc.Stats(context.Background(), entity.VerdictFilter{})

	require.NoError(t, err)
	assert.Equal(t, int64(10), output.Total)
	assert.InDelta(t, 0.3, output.SpamRate, 1e-9)
}

func TestClassifyUsecase_ModelInfo(t *testing.T) {
	uc := NewClassifyUsecase(StaticProvider{E: new(MockEngine)}, nil, nil, nil, ClassifyOptions{}, nil)

	output, err := uc.ModelInfo(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.KindLogisticRegression, output.ModelKind)
	assert.Equal(t, model.KindTFIDF, output.VectorizerKind)
	assert.Equal(t, 13, output.VocabularySize)
}
