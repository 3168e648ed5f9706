package memory

import (
	"context"
	"sync"
)

// feed delivers values to one watcher in order without ever blocking the
// writer. Values queue until the watcher reads them or its context ends.
type feed[T any] struct {
	mu     sync.Mutex
	queue  []T
	notify chan struct{}
	closed bool
}

// newFeed starts the delivery goroutine. onClose runs once after ctx ends
// and the returned channel has been closed.
func newFeed[T any](ctx context.Context, onClose func()) (*feed[T], <-chan T) {
	f := &feed[T]{notify: make(chan struct{}, 1)}
	out := make(chan T)
	go f.run(ctx, out, onClose)
	return f, out
}

func (f *feed[T]) push(v T) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, v)
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *feed[T]) run(ctx context.Context, out chan<- T, onClose func()) {
	defer func() {
		f.mu.Lock()
		f.closed = true
		f.queue = nil
		f.mu.Unlock()
		close(out)
		if onClose != nil {
			onClose()
		}
	}()

	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-f.notify:
				continue
			}
		}
		v := f.queue[0]
		var zero T
		f.queue[0] = zero
		f.queue = f.queue[1:]
		f.mu.Unlock()

		select {
		case out <- v:
		case <-ctx.Done():
			return
		}
	}
}
