package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/seqkit/errors"
	"github.com/kbukum/seqkit/logger"
	"github.com/kbukum/seqkit/observability"
	"github.com/kbukum/seqkit/validation"
)

// terminal runs a terminal operation, inside a pipeline.<op> span when
// Settings.TraceTerminals is on. Failures are logged at debug level; the
// caller owns the error.
func terminal(ctx context.Context, op string, run func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var span trace.Span
	if Defaults().TraceTerminals {
		ctx, span = observability.StartSpan(ctx, observability.SpanPrefix+op,
			trace.WithAttributes(attribute.String(observability.AttrOperation, op)))
		defer span.End()
	}

	err := run(ctx)
	if err != nil {
		canceled := errors.IsCanceled(err)
		observability.SetSpanError(span, err, canceled)
		log().WithContext(ctx).Debug("terminal operation failed", logger.MergeWithError(logger.Fields(
			logger.FieldOperation, op,
			logger.FieldStatus, statusOf(err),
		), err))
	}
	return err
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return observability.StatusOK
	case errors.IsCanceled(err):
		return observability.StatusCanceled
	default:
		return observability.StatusError
	}
}

// observed is the bookkeeping shared by the instrumentation wrappers.
type observed[T any] struct {
	inner    Iterator[T]
	name     string
	started  bool
	closed   bool
	opened   time.Time
	elements int64
	status   string
}

// next forwards to the inner iterator. onErr runs the first time an error
// of a given status is seen, so a sticky cancellation is reported once.
func (o *observed[T]) next(ctx context.Context, onErr func(error)) (T, bool, error) {
	val, ok, err := o.inner.Next(ctx)
	if err != nil {
		status := statusOf(err)
		if status != o.status {
			o.status = status
			onErr(err)
		}
		return val, ok, err
	}
	if ok {
		o.elements++
	}
	return val, ok, nil
}

// open reports whether this is the first Next.
func (o *observed[T]) open() bool {
	if o.started {
		return false
	}
	o.started = true
	o.opened = time.Now()
	o.status = observability.StatusOK
	return true
}

// --- Logged ---

// Logged logs the lifecycle of every iterator of p: opening and closing at
// debug level, failures at error level. Each iterator gets its own
// iterator_id. A nil log uses the "pipeline" logger.
func Logged[T any](p *Pipeline[T], log *logger.Logger, name string) *Pipeline[T] {
	requireSource(p)
	mustValidate(validation.New().Required("name", name))
	return newPipeline(func(ctx context.Context) Iterator[T] {
		l := log
		if l == nil {
			l = logger.Get("pipeline")
		}
		return &loggedIter[T]{
			observed: observed[T]{inner: p.create(ctx), name: name},
			log:      l,
			id:       uuid.NewString(),
		}
	})
}

type loggedIter[T any] struct {
	observed[T]
	log *logger.Logger
	id  string
}

func (it *loggedIter[T]) fields() map[string]interface{} {
	return logger.Fields(
		logger.FieldOperation, it.name,
		logger.FieldIteratorID, it.id,
	)
}

func (it *loggedIter[T]) Next(ctx context.Context) (T, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !it.closed && it.open() {
		it.log.WithContext(ctx).Debug("iterator opened", it.fields())
	}
	return it.next(ctx, func(err error) {
		fields := logger.MergeWithError(it.fields(), err)
		fields[logger.FieldElements] = it.elements
		if errors.IsCanceled(err) {
			it.log.WithContext(ctx).Debug("iterator canceled", fields)
			return
		}
		it.log.WithContext(ctx).Error("iterator failed", fields)
	})
}

func (it *loggedIter[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	err := it.inner.Close()
	if it.started {
		fields := logger.MergeWithDuration(it.fields(), time.Since(it.opened))
		fields[logger.FieldElements] = it.elements
		fields[logger.FieldStatus] = it.status
		if err != nil {
			fields = logger.MergeWithError(fields, err)
		}
		it.log.Debug("iterator closed", fields)
	}
	return err
}

// --- Traced ---

// Traced records one span per iterator of p, from the first Next to Close.
// Inner Next calls run under the span, so nested terminal spans become its
// children.
func Traced[T any](p *Pipeline[T], name string) *Pipeline[T] {
	requireSource(p)
	mustValidate(validation.New().Required("name", name))
	return newPipeline(func(ctx context.Context) Iterator[T] {
		return &tracedIter[T]{observed: observed[T]{inner: p.create(ctx), name: name}}
	})
}

type tracedIter[T any] struct {
	observed[T]
	span trace.Span
}

func (it *tracedIter[T]) Next(ctx context.Context) (T, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if it.closed {
		return it.inner.Next(ctx)
	}
	if it.open() {
		_, it.span = observability.StartSpan(ctx, observability.SpanPrefix+it.name,
			trace.WithAttributes(
				attribute.String(observability.AttrOperator, it.name),
				attribute.String(observability.AttrIteratorID, uuid.NewString()),
			))
	}
	return it.next(trace.ContextWithSpan(ctx, it.span), func(err error) {
		observability.SetSpanError(it.span, err, errors.IsCanceled(err))
	})
}

func (it *tracedIter[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	err := it.inner.Close()
	if it.span != nil {
		it.span.SetAttributes(attribute.Int64(observability.AttrElements, it.elements))
		if it.status == observability.StatusOK {
			it.span.SetAttributes(attribute.String(observability.AttrStatus, observability.StatusOK))
		}
		it.span.End()
	}
	return err
}

// --- Measured ---

// Measured reports element counts, iterator lifetimes and errors of p to
// metrics. With nil metrics it uses Defaults().Metrics at Iter time, and
// passes values through untouched when that is nil too.
func Measured[T any](p *Pipeline[T], metrics *observability.PipelineMetrics, name string) *Pipeline[T] {
	requireSource(p)
	mustValidate(validation.New().Required("name", name))
	return newPipeline(func(ctx context.Context) Iterator[T] {
		m := metrics
		if m == nil {
			m = Defaults().Metrics
		}
		if m == nil {
			return p.create(ctx)
		}
		return &measuredIter[T]{observed: observed[T]{inner: p.create(ctx), name: name}, metrics: m, ctx: ctx}
	})
}

type measuredIter[T any] struct {
	observed[T]
	metrics *observability.PipelineMetrics
	ctx     context.Context
}

func (it *measuredIter[T]) Next(ctx context.Context) (T, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if it.closed {
		return it.inner.Next(ctx)
	}
	if it.open() {
		it.metrics.RecordOpen(ctx, it.name)
	}
	before := it.elements
	val, ok, err := it.next(ctx, func(err error) {
		it.metrics.RecordError(ctx, it.name, statusOf(err))
	})
	if it.elements > before {
		it.metrics.RecordElements(ctx, it.name, it.elements-before)
	}
	return val, ok, err
}

func (it *measuredIter[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	err := it.inner.Close()
	if it.started {
		// Recorded against the bound context; the Next context may be gone.
		it.metrics.RecordClose(context.WithoutCancel(it.ctx), it.name, it.status, time.Since(it.opened))
	}
	return err
}
