package pipeline

import "context"

// Cursor adapts an Iterator to the advance / read current / dispose shape.
//
//	c := p.Cursor(ctx)
//	defer c.Close()
//	for c.MoveNext(ctx) {
//	    use(c.Current())
//	}
//	if err := c.Err(); err != nil { ... }
type Cursor[T any] struct {
	it      Iterator[T]
	current T
	valid   bool
	err     error
}

// NewCursor wraps it. The cursor takes ownership and closes it on Close.
func NewCursor[T any](it Iterator[T]) *Cursor[T] {
	requireFunc("iterator", it == nil)
	return &Cursor[T]{it: it}
}

// Cursor returns a cursor over a fresh iterator of p.
func (p *Pipeline[T]) Cursor(ctx context.Context) *Cursor[T] {
	return NewCursor(p.Iter(ctx))
}

// MoveNext advances to the next element and reports whether one exists.
// A failure is kept for Err and ends the traversal.
func (c *Cursor[T]) MoveNext(ctx context.Context) bool {
	var zero T
	c.current, c.valid = zero, false
	if c.err != nil {
		return false
	}
	val, ok, err := c.it.Next(ctx)
	if err != nil {
		c.err = err
		return false
	}
	if !ok {
		return false
	}
	c.current, c.valid = val, true
	return true
}

// Current returns the element of the last successful MoveNext, or the zero
// value when no element is current.
func (c *Cursor[T]) Current() T {
	return c.current
}

// Valid reports whether Current holds an element.
func (c *Cursor[T]) Valid() bool {
	return c.valid
}

// Err returns the error that ended the traversal, if any.
func (c *Cursor[T]) Err() error {
	return c.err
}

// Close disposes the underlying iterator. It is idempotent.
func (c *Cursor[T]) Close() error {
	var zero T
	c.current, c.valid = zero, false
	return c.it.Close()
}
