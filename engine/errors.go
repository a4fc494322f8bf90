package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInitialized    = errors.New("engine already initialized")
	ErrNotInitialized = errors.New("engine not initialized")
	ErrClosed         = errors.New("engine closed")
)

// StepError names the initialization step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
