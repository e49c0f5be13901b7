package usecase

import (
	"context"
	"errors"

	"github.com/spamguardian/spam-guardian/internal/domain/model"
	"github.com/spamguardian/spam-guardian/internal/domain/service"
	"github.com/spamguardian/spam-guardian/internal/pipeline"
)

// ErrModelNotReady is returned while the pipeline is still loading
var ErrModelNotReady = errors.New("model is not loaded yet")

// Engine is a loaded classification pipeline
type Engine interface {
	service.Classifier
	Info() model.Info
	Stages() []string
}

// EngineProvider hands out the engine once it is available
type EngineProvider interface {
	Engine(ctx context.Context) (Engine, error)
}

// LoaderProvider serves the pipeline of a Loader without blocking requests
// on an in-flight load.
type LoaderProvider struct {
	Loader *pipeline.Loader
}

// Engine returns the loaded pipeline or ErrModelNotReady
func (p LoaderProvider) Engine(ctx context.Context) (Engine, error) {
	if !p.Loader.Loaded() {
		return nil, ErrModelNotReady
	}
	pl, err := p.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return pl, nil
}

// StaticProvider always returns the same engine
type StaticProvider struct {
	E Engine
}

// Engine returns the wrapped engine
func (p StaticProvider) Engine(context.Context) (Engine, error) {
	if p.E == nil {
		return nil, ErrModelNotReady
	}
	return p.E, nil
}
