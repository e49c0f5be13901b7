package pipeline

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against LoadError and ClassificationError.
var (
	ErrLoad           = errors.New("pipeline load failed")
	ErrClassification = errors.New("classification failed")
)

// LoadError reports a missing, unreachable or corrupt artifact. It is fatal
// for the session: no classification is possible without both artifacts.
type LoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load %s: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("load %s from %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrLoad) hold for every LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// ClassificationError reports a failure while normalizing, vectorizing or
// predicting. Classification is deterministic, so retrying the same input
// fails the same way.
type ClassificationError struct {
	Stage string
	Err   error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify (%s): %v", e.Stage, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrClassification) hold for every ClassificationError.
func (e *ClassificationError) Is(target error) bool { return target == ErrClassification }
