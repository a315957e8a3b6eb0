package interview

import (
	"errors"
	"fmt"
)

// StateError reports a call made in the wrong order. It is never retried.
type StateError struct {
	Code string
}

func (e *StateError) Error() string {
	return "interview state: " + e.Code
}

var (
	ErrTurnAlreadyPending = &StateError{Code: "turn already pending"}
	ErrNoPendingTurn      = &StateError{Code: "no pending turn"}
	ErrInterviewCompleted = &StateError{Code: "interview already completed"}
	ErrSchedulerClosed    = &StateError{Code: "scheduler closed"}
	ErrSessionBusy        = &StateError{Code: "another call is in progress for this session"}
)

var (
	ErrMissingPersona     = errors.New("no interviewer for the phase's primary role")
	ErrInvalidPhaseConfig = errors.New("invalid phase configuration")
	ErrNoAgents           = errors.New("scheduler needs at least one interviewer")
)

// GenerationError wraps a failure of the generation service itself, as
// opposed to content the service returned.
type GenerationError struct {
	Op    string
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s (%s): %v", e.Op, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type RetrievalError struct {
	Query string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval for %q: %v", e.Query, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// ParseError reports structured output that does not match the expected shape.
type ParseError struct {
	Target string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Target, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
