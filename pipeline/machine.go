package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/kbukum/seqkit/errors"
)

// state is the lifecycle position of an iterator.
type state uint8

const (
	stateCreated state = iota
	stateRunning
	stateSuspended
	stateCompleted
	stateFailed
	stateCanceled
	stateDisposed
)

var stateNames = [...]string{
	stateCreated:   "created",
	stateRunning:   "running",
	stateSuspended: "suspended",
	stateCompleted: "completed",
	stateFailed:    "failed",
	stateCanceled:  "canceled",
	stateDisposed:  "disposed",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// stepFunc produces the next element of an operator. It is only ever called
// from machine.Next, one call at a time.
type stepFunc[T any] func(ctx context.Context) (T, bool, error)

// machine is the iterator every operator and source is built on. It owns
// the protocol: cancellation checkpoints, propagate-once failures, the
// single-consumer guard and idempotent disposal. Operators only supply the
// production step and the release of what they own.
type machine[T any] struct {
	bound    context.Context
	state    state
	canceled error
	inFlight atomic.Bool

	step    stepFunc[T]
	release func() error
}

func newMachine[T any](ctx context.Context, step stepFunc[T], release func() error) *machine[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	return &machine[T]{bound: ctx, step: step, release: release}
}

// Next advances the iterator.
//
// After completion, failure or Close it returns (zero, false, nil) without
// running the step again. After a cancellation it keeps returning the same
// cancellation error.
func (m *machine[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if !m.inFlight.CompareAndSwap(false, true) {
		return zero, false, errors.ConcurrentAdvance()
	}
	defer m.inFlight.Store(false)

	switch m.state {
	case stateCompleted, stateFailed, stateDisposed:
		return zero, false, nil
	case stateCanceled:
		return zero, false, m.canceled
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if err := m.checkpoint(ctx); err != nil {
		return zero, false, err
	}

	m.state = stateRunning
	val, ok, err := m.step(ctx)

	// Closed from inside the step.
	if m.state == stateDisposed {
		return zero, false, nil
	}

	switch {
	case err != nil:
		if errors.IsCanceled(err) {
			m.cancel(err)
			return zero, false, m.canceled
		}
		m.state = stateFailed
		return zero, false, err
	case !ok:
		m.state = stateCompleted
		return zero, false, nil
	}
	m.state = stateSuspended
	return val, true, nil
}

// Close disposes the iterator and releases what it owns exactly once.
func (m *machine[T]) Close() error {
	if m.state == stateDisposed {
		return nil
	}
	m.state = stateDisposed
	release := m.release
	m.release = nil
	m.step = nil
	if release == nil {
		return nil
	}
	return release()
}

// checkpoint observes both the context the iterator was created with and
// the one passed to this Next.
func (m *machine[T]) checkpoint(ctx context.Context) error {
	err := m.bound.Err()
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}
	m.cancel(err)
	return m.canceled
}

func (m *machine[T]) cancel(err error) {
	m.state = stateCanceled
	if appErr, ok := errors.AsAppError(err); ok && errors.IsCancellationCode(appErr.Code) {
		m.canceled = err
		return
	}
	m.canceled = errors.Canceled(err)
}

// closeReverse closes in reverse order of the arguments, which callers pass
// in creation order. Nil entries are skipped.
func closeReverse(closers ...func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if closers[i] == nil {
			continue
		}
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
