package batch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"watchparty/pkg/clock"
)

type flushRecorder struct {
	mu      sync.Mutex
	flushes map[string][][]int
}

func (r *flushRecorder) record(key string, items []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flushes == nil {
		r.flushes = map[string][][]int{}
	}
	r.flushes[key] = append(r.flushes[key], items)
}

func (r *flushRecorder) get(key string) [][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes[key]
}

func TestBatcher_DebouncesPerKey(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := &flushRecorder{}
	b := NewBatcher[int](100*time.Millisecond, c, rec.record)

	b.Add("guest", 1)
	c.Advance(60 * time.Millisecond)
	b.Add("guest", 2)
	b.Add("host", 10)
	c.Advance(60 * time.Millisecond)

	// the second add restarted the guest timer
	assert.Empty(t, rec.get("guest"))
	assert.Equal(t, 3, b.PendingCount())

	c.Advance(40 * time.Millisecond)
	assert.Equal(t, [][]int{{1, 2}}, rec.get("guest"))
	assert.Equal(t, [][]int{{10}}, rec.get("host"))
	assert.Zero(t, b.PendingCount())
	assert.Zero(t, c.Pending())
}

func TestBatcher_OneTimerPerKey(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := &flushRecorder{}
	b := NewBatcher[int](100*time.Millisecond, c, rec.record)

	for i := 0; i < 5; i++ {
		b.Add("k", i)
	}

	assert.Equal(t, 1, c.Pending())
	c.Advance(100 * time.Millisecond)
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4}}, rec.get("k"))
}

func TestBatcher_Flush(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := &flushRecorder{}
	b := NewBatcher[int](100*time.Millisecond, c, rec.record)

	b.Add("k", 1)
	b.Flush("k")
	b.Flush("missing")
	c.Advance(time.Second)

	assert.Equal(t, [][]int{{1}}, rec.get("k"))
}

func TestBatcher_StopFlushesAndRejects(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := &flushRecorder{}
	b := NewBatcher[int](100*time.Millisecond, c, rec.record)

	b.Add("a", 1)
	b.Add("b", 2)
	b.Stop()
	b.Add("a", 3)
	c.Advance(time.Second)

	assert.Equal(t, [][]int{{1}}, rec.get("a"))
	assert.Equal(t, [][]int{{2}}, rec.get("b"))
	assert.Zero(t, b.PendingCount())
}

func TestBatcher_SupersededTimerDoesNotFlush(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := &flushRecorder{}
	b := NewBatcher[int](100*time.Millisecond, c, rec.record)

	b.Add("guest", 1)
	b.mu.Lock()
	pb := b.pending["guest"]
	stale := pb.gen
	b.mu.Unlock()

	// the first timer fired but was waiting on the lock while a second Add
	// restarted the quiet period
	b.Add("guest", 2)
	b.fire("guest", pb, stale)

	assert.Empty(t, rec.get("guest"))
	assert.Equal(t, 2, b.PendingCount())

	c.Advance(99 * time.Millisecond)
	assert.Empty(t, rec.get("guest"))
	c.Advance(time.Millisecond)
	assert.Equal(t, [][]int{{1, 2}}, rec.get("guest"))
}
