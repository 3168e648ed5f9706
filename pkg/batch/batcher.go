package batch

import (
	"sync"
	"time"

	"watchparty/pkg/clock"
)

// FlushFunc receives every item collected for key since the last flush.
type FlushFunc[T any] func(key string, items []T)

// Batcher groups items per key and flushes a key once no new item has
// arrived for the configured delay. Each key has at most one pending timer.
type Batcher[T any] struct {
	delay   time.Duration
	clock   clock.Clock
	flush   FlushFunc[T]
	mu      sync.Mutex
	pending map[string]*pendingBatch[T]
	stopped bool
}

type pendingBatch[T any] struct {
	items []T
	timer clock.Timer
	// gen identifies the live timer; a superseded one must not flush.
	gen uint64
}

// NewBatcher creates a new batcher
func NewBatcher[T any](delay time.Duration, clk clock.Clock, flush FlushFunc[T]) *Batcher[T] {
	return &Batcher[T]{
		delay:   delay,
		clock:   clk,
		flush:   flush,
		pending: make(map[string]*pendingBatch[T]),
	}
}

// Add queues item under key and restarts the key's timer.
func (b *Batcher[T]) Add(key string, item T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	pb, ok := b.pending[key]
	if !ok {
		pb = &pendingBatch[T]{}
		b.pending[key] = pb
	}
	pb.items = append(pb.items, item)

	if pb.timer != nil {
		pb.timer.Stop()
	}
	pb.gen++
	gen := pb.gen
	pb.timer = b.clock.AfterFunc(b.delay, func() { b.fire(key, pb, gen) })
}

func (b *Batcher[T]) fire(key string, pb *pendingBatch[T], gen uint64) {
	b.mu.Lock()
	// a timer that lost the race with Add, Stop or Flush
	if b.pending[key] != pb || pb.gen != gen {
		b.mu.Unlock()
		return
	}
	delete(b.pending, key)
	items := pb.items
	b.mu.Unlock()

	if len(items) > 0 {
		b.flush(key, items)
	}
}

// Flush immediately processes the pending items of key.
func (b *Batcher[T]) Flush(key string) {
	b.mu.Lock()
	pb, ok := b.pending[key]
	if ok {
		delete(b.pending, key)
		if pb.timer != nil {
			pb.timer.Stop()
		}
	}
	b.mu.Unlock()

	if ok && len(pb.items) > 0 {
		b.flush(key, pb.items)
	}
}

// Stop flushes everything pending and rejects further items.
func (b *Batcher[T]) Stop() {
	b.mu.Lock()
	b.stopped = true
	keys := make([]string, 0, len(b.pending))
	for key := range b.pending {
		keys = append(keys, key)
	}
	b.mu.Unlock()

	for _, key := range keys {
		b.Flush(key)
	}
}

// PendingCount returns the number of items waiting across all keys.
func (b *Batcher[T]) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, pb := range b.pending {
		n += len(pb.items)
	}
	return n
}
