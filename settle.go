package topicbus

import (
	"context"
	"fmt"
	"sync"
)

// Future resolves to a value or an error exactly once.
// Await may be called from multiple goroutines.
type Future interface {
	Await(ctx context.Context) (any, error)
}

// settled is an already-resolved Future.
type settled struct {
	value any
	err   error
}

func (s settled) Await(context.Context) (any, error) {
	return s.value, s.err
}

// Resolve returns a Future that is already fulfilled with value.
func Resolve(value any) Future {
	return settled{value: value}
}

// Reject returns a Future that is already rejected with err.
func Reject(err error) Future {
	return settled{err: err}
}

// promise is a settle-once Future. The first settle call wins; later calls
// are no-ops.
type promise struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newPromise() *promise {
	return &promise{done: make(chan struct{})}
}

func (p *promise) settle(value any, err error) {
	p.once.Do(func() {
		p.value = value
		p.err = err
		close(p.done)
	})
}

func (p *promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Go runs fn in its own goroutine and returns a Future that settles with its
// result. A panic in fn settles the Future as rejected. Receivers return a Go
// Future when they want to complete asynchronously after Receive returns.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) Future {
	p := newPromise()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.settle(nil, recoveredError(r))
			}
		}()
		v, err := fn(ctx)
		p.settle(v, err)
	}()
	return p
}

// AllSettled awaits every future concurrently and returns their outcomes in
// input order. It never fails as a whole: a rejected future, a panicking
// Await, or a malformed input each become a rejected Outcome at that
// position. It returns only once every input has settled.
func AllSettled(ctx context.Context, futures []Future) []Outcome {
	outcomes := make([]Outcome, len(futures))

	var wg sync.WaitGroup
	for i, f := range futures {
		wg.Add(1)
		go func(i int, f Future) {
			defer wg.Done()
			outcomes[i] = awaitOutcome(ctx, f)
		}(i, f)
	}
	wg.Wait()

	return outcomes
}

// awaitOutcome settles a single future into an Outcome, containing panics and
// nil inputs.
func awaitOutcome(ctx context.Context, f Future) (out Outcome) {
	if f == nil {
		return Outcome{
			Status: StatusRejected,
			Reason: fmt.Errorf("%w: got a nil future", ErrNotAwaitable),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Status: StatusRejected, Reason: recoveredError(r)}
		}
	}()

	v, err := f.Await(ctx)
	if err != nil {
		return Outcome{Status: StatusRejected, Reason: err}
	}
	return Outcome{Status: StatusFulfilled, Value: v}
}

// recoveredError converts a recovered panic value into an error.
func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
