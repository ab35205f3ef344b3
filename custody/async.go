package custody

import "context"

type Result[T any] struct {
	Value T
	Err   error
}

// Async runs op on its own goroutine and delivers the single result on the
// returned channel, which is then closed.
func Async[T any](ctx context.Context, op func(context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		v, err := op(ctx)
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}
