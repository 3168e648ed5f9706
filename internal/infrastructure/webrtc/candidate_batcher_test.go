package webrtc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/internal/infrastructure/repositories/memory"
	"watchparty/pkg/clock"
)

var epoch = time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC)

type metricsSpy struct {
	ports.MetricsRecorder

	mu              sync.Mutex
	batches         map[domain.CandidateDirection][]int
	signalingErrors []string
}

func newMetricsSpy() *metricsSpy {
	return &metricsSpy{
		MetricsRecorder: ports.NopMetrics,
		batches:         map[domain.CandidateDirection][]int{},
	}
}

func (m *metricsSpy) RecordCandidateBatch(dir domain.CandidateDirection, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[dir] = append(m.batches[dir], size)
}

func (m *metricsSpy) RecordSignalingError(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signalingErrors = append(m.signalingErrors, op)
}

func (m *metricsSpy) batchSizes(dir domain.CandidateDirection) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batches[dir]...)
}

func (m *metricsSpy) errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.signalingErrors...)
}

func drain(t *testing.T, ch <-chan domain.Candidate, n int) []string {
	t.Helper()
	var got []string
	for len(got) < n {
		select {
		case c := <-ch:
			got = append(got, c.Candidate)
		case <-time.After(time.Second):
			t.Fatalf("received %d of %d candidates", len(got), n)
		}
	}
	return got
}

func TestCandidateBatcher_WritesOneBatchPerBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := clock.NewFake(epoch)
	store := memory.NewMemorySignalingStore(c)
	require.NoError(t, store.CreateParty(ctx, &domain.Party{ID: "p1", HostID: "h"}))
	metrics := newMetricsSpy()
	b := NewCandidateBatcher(store, 100*time.Millisecond, c, metrics, zap.NewNop().Sugar())

	b.Add("p1", "g1", domain.GuestCandidates, domain.Candidate{Candidate: "c1"})
	c.Advance(50 * time.Millisecond)
	b.Add("p1", "g1", domain.GuestCandidates, domain.Candidate{Candidate: "c2"})
	b.Add("p1", "g1", domain.HostCandidates, domain.Candidate{Candidate: "h1"})
	c.Advance(100 * time.Millisecond)

	guest, err := store.WatchCandidates(ctx, "p1", "g1", domain.GuestCandidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, drain(t, guest, 2))

	assert.Equal(t, []int{2}, metrics.batchSizes(domain.GuestCandidates))
	assert.Equal(t, []int{1}, metrics.batchSizes(domain.HostCandidates))
}

func TestCandidateBatcher_WriteFailureIsSwallowed(t *testing.T) {
	c := clock.NewFake(epoch)
	store := memory.NewMemorySignalingStore(c)
	metrics := newMetricsSpy()
	b := NewCandidateBatcher(store, 100*time.Millisecond, c, metrics, zap.NewNop().Sugar())

	b.Add("missing", "g1", domain.GuestCandidates, domain.Candidate{Candidate: "c1"})
	c.Advance(100 * time.Millisecond)

	assert.Equal(t, []string{"add_candidates"}, metrics.errors())
	assert.Empty(t, metrics.batchSizes(domain.GuestCandidates))
}

func TestCandidateBatcher_CloseFlushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := clock.NewFake(epoch)
	store := memory.NewMemorySignalingStore(c)
	require.NoError(t, store.CreateParty(ctx, &domain.Party{ID: "p1", HostID: "h"}))
	b := NewCandidateBatcher(store, 100*time.Millisecond, c, ports.NopMetrics, zap.NewNop().Sugar())

	b.Add("p1", "g1", domain.HostCandidates, domain.Candidate{Candidate: "h1"})
	b.Close()
	b.Add("p1", "g1", domain.HostCandidates, domain.Candidate{Candidate: "late"})

	host, err := store.WatchCandidates(ctx, "p1", "g1", domain.HostCandidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, drain(t, host, 1))
	select {
	case extra := <-host:
		t.Fatalf("unexpected candidate %q", extra.Candidate)
	case <-time.After(20 * time.Millisecond):
	}
}
