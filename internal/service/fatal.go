package service

import "fmt"

// FatalError marks a stage failure that halts the orchestrator rather than
// being retried locally: a remote job reporting Failed, trace-generation
// exhausting its retry budget, or a storage write still failing after
// RetryWithBackoff gives up. A stage's per-item handler returns one of
// these instead of panicking; the stage logs it at Error level and its
// worker stops (in the layout-bridge pool, only the worker that hit it).
// Nothing forwards it to the ShutdownController, so the other stages keep
// running until the process itself is shut down.
type FatalError struct {
	Stage string
	Err   error
}

func NewFatalError(stage string, err error) *FatalError {
	return &FatalError{Stage: stage, Err: err}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
