package meta

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// SagaState is the state of a Saga run.
type SagaState int

const (
	SagaPending SagaState = iota
	SagaCommitted
	SagaCompensating
	SagaCompensated
	SagaCompensationFailed
)

func (s SagaState) String() string {
	switch s {
	case SagaPending:
		return "pending"
	case SagaCommitted:
		return "committed"
	case SagaCompensating:
		return "compensating"
	case SagaCompensated:
		return "compensated"
	case SagaCompensationFailed:
		return "compensation-failed"
	default:
		return fmt.Sprintf("SagaState(%d)", int(s))
	}
}

// SagaStep is one forward action and the action that undoes it. Undo may be
// nil for steps that leave nothing behind.
type SagaStep struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// Saga runs steps in order. When a step fails, the completed steps are
// undone in reverse order.
type Saga struct {
	mu         sync.Mutex
	steps      []SagaStep
	state      SagaState
	started    bool
	failedStep string
	completed  []string
}

// NewSaga creates a pending saga.
func NewSaga(steps ...SagaStep) *Saga {
	return &Saga{steps: steps}
}

// State returns the current state.
func (s *Saga) State() SagaState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FailedStep returns the name of the forward step that failed, if any.
func (s *Saga) FailedStep() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failedStep
}

// Completed returns the names of the forward steps that succeeded.
func (s *Saga) Completed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.completed))
	copy(out, s.completed)
	return out
}

func (s *Saga) setState(state SagaState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Run executes the saga once. It returns nil when every step succeeded, the
// forward error when compensation succeeded, and an *InconsistencyError when
// an undo action failed. Undo actions run even if ctx is cancelled.
func (s *Saga) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrSagaAlreadyRun
	}
	s.started = true
	s.mu.Unlock()

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.compensate(ctx, i, step.Name, err)
		}
		if err := step.Do(ctx); err != nil {
			return s.compensate(ctx, i, step.Name, err)
		}
		s.mu.Lock()
		s.completed = append(s.completed, step.Name)
		s.mu.Unlock()
	}
	s.setState(SagaCommitted)
	return nil
}

func (s *Saga) compensate(ctx context.Context, failed int, name string, cause error) error {
	s.mu.Lock()
	s.failedStep = name
	s.state = SagaCompensating
	s.mu.Unlock()

	undoCtx := context.WithoutCancel(ctx)
	var inconsistency *InconsistencyError
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Undo == nil {
			continue
		}
		if err := step.Undo(undoCtx); err != nil {
			if inconsistency == nil {
				inconsistency = &InconsistencyError{Step: name, Cause: cause, UndoStep: step.Name, CompensationErr: err}
			} else {
				inconsistency.CompensationErr = errors.Join(inconsistency.CompensationErr, err)
			}
		}
	}

	if inconsistency != nil {
		s.setState(SagaCompensationFailed)
		return inconsistency
	}
	s.setState(SagaCompensated)
	return cause
}
