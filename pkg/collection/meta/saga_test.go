package meta

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sagaLog struct {
	calls []string
}

func (l *sagaLog) step(name string, doErr, undoErr error) SagaStep {
	return SagaStep{
		Name: name,
		Do: func(context.Context) error {
			l.calls = append(l.calls, "do "+name)
			return doErr
		},
		Undo: func(context.Context) error {
			l.calls = append(l.calls, "undo "+name)
			return undoErr
		},
	}
}

func TestSagaCommits(t *testing.T) {
	var log sagaLog
	s := NewSaga(log.step("a", nil, nil), log.step("b", nil, nil))
	assert.Equal(t, SagaPending, s.State())

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, SagaCommitted, s.State())
	assert.Equal(t, []string{"do a", "do b"}, log.calls)
	assert.Equal(t, []string{"a", "b"}, s.Completed())
	assert.Empty(t, s.FailedStep())

	assert.ErrorIs(t, s.Run(context.Background()), ErrSagaAlreadyRun)
}

func TestSagaCompensatesInReverse(t *testing.T) {
	var log sagaLog
	boom := errors.New("boom")
	s := NewSaga(log.step("a", nil, nil), log.step("b", nil, nil), log.step("c", boom, nil), log.step("d", nil, nil))

	err := s.Run(context.Background())
	assert.Same(t, boom, err)
	assert.Equal(t, SagaCompensated, s.State())
	assert.Equal(t, "c", s.FailedStep())
	assert.Equal(t, []string{"do a", "do b", "do c", "undo b", "undo a"}, log.calls)
}

func TestSagaSkipsMissingUndo(t *testing.T) {
	var log sagaLog
	boom := errors.New("boom")
	first := log.step("a", nil, nil)
	first.Undo = nil
	s := NewSaga(first, log.step("b", boom, nil))

	assert.ErrorIs(t, s.Run(context.Background()), boom)
	assert.Equal(t, SagaCompensated, s.State())
	assert.Equal(t, []string{"do a", "do b"}, log.calls)
}

func TestSagaCompensationFailure(t *testing.T) {
	var log sagaLog
	boom := errors.New("boom")
	stuckA := errors.New("a stuck")
	stuckB := errors.New("b stuck")
	s := NewSaga(log.step("a", nil, stuckA), log.step("b", nil, stuckB), log.step("c", boom, nil))

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, SagaCompensationFailed, s.State())
	assert.Equal(t, []string{"do a", "do b", "do c", "undo b", "undo a"}, log.calls, "every undo is attempted")

	var inc *InconsistencyError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, "c", inc.Step)
	assert.Equal(t, "b", inc.UndoStep)
	assert.ErrorIs(t, err, ErrInconsistent)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, stuckA)
	assert.ErrorIs(t, err, stuckB)
}

func TestSagaStopsOnCancelledContext(t *testing.T) {
	var log sagaLog
	ctx, cancel := context.WithCancel(context.Background())
	first := log.step("a", nil, nil)
	first.Do = func(context.Context) error {
		log.calls = append(log.calls, "do a")
		cancel()
		return nil
	}
	s := NewSaga(first, log.step("b", nil, nil))

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, SagaCompensated, s.State())
	assert.Equal(t, "b", s.FailedStep())
	assert.Equal(t, []string{"do a", "undo a"}, log.calls, "undo runs despite cancellation")
}

func TestSagaStateString(t *testing.T) {
	assert.Equal(t, "compensation-failed", SagaCompensationFailed.String())
	assert.Equal(t, "SagaState(9)", SagaState(9).String())
}
