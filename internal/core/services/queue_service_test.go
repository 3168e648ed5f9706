package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/protocol"
)

func newTestQueue(t *testing.T, ids ...string) (*QueueService, *noticeRecorder) {
	t.Helper()
	notices := &noticeRecorder{}
	q := NewQueueService(rand.New(rand.NewSource(7)), notices, nil, zaptest.NewLogger(t).Sugar())
	for _, id := range ids {
		q.Append(domain.QueueEntry{VideoID: id})
	}
	return q, notices
}

func TestQueueService_ReplaceIsIdempotent(t *testing.T) {
	q, notices := newTestQueue(t)
	snapshot := []domain.QueueEntry{{VideoID: "A", Title: "a"}, {VideoID: "B", Title: "b"}}

	q.Replace(snapshot)
	first := q.Snapshot()
	q.Replace(snapshot)

	assert.Equal(t, first, q.Snapshot())
	assert.Len(t, notices.Of(domain.NoticeQueue), 2)

	// the queue owns its copy
	snapshot[0].VideoID = "Z"
	assert.Equal(t, "A", q.Snapshot()[0].VideoID)
}

func TestQueueService_RemoveAndTake(t *testing.T) {
	q, _ := newTestQueue(t, "A", "B", "C")

	assert.False(t, q.Remove(3))
	assert.False(t, q.Remove(-1))
	assert.True(t, q.Remove(1))
	assert.Equal(t, []string{"A", "C"}, queueIDs(q.Snapshot()))

	entry, ok := q.Take(1)
	require.True(t, ok)
	assert.Equal(t, "C", entry.VideoID)
	assert.Equal(t, []string{"A"}, queueIDs(q.Snapshot()))

	_, ok = q.Take(5)
	assert.False(t, ok)
}

func TestQueueService_ShufflePermutes(t *testing.T) {
	q, _ := newTestQueue(t, "A", "B", "C", "D", "E", "F")

	assert.True(t, q.Shuffle())
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E", "F"}, queueIDs(q.Snapshot()))

	single, _ := newTestQueue(t, "A")
	assert.False(t, single.Shuffle())
	empty, _ := newTestQueue(t)
	assert.False(t, empty.Shuffle())
}

func TestQueueService_AdvanceShufflesOnlyWhenAllowed(t *testing.T) {
	q, _ := newTestQueue(t, "A", "B", "C", "D", "E", "F", "G", "H")
	q.SetRandomPlay(true)

	next, ok := q.Advance(false)
	require.True(t, ok)
	assert.Equal(t, "A", next.VideoID)
	assert.Equal(t, []string{"B", "C", "D", "E", "F", "G", "H"}, queueIDs(q.Snapshot()))

	_, ok = q.Advance(true)
	require.True(t, ok)
	assert.Equal(t, 6, q.Len())

	empty, _ := newTestQueue(t)
	_, ok = empty.Advance(true)
	assert.False(t, ok)
}

func TestQueueService_ToggleRandomPlayHidesQueue(t *testing.T) {
	q, _ := newTestQueue(t)

	enabled, hid := q.ToggleRandomPlay()
	assert.True(t, enabled)
	assert.True(t, hid)
	assert.True(t, q.Hidden())

	enabled, hid = q.ToggleRandomPlay()
	assert.False(t, enabled)
	assert.False(t, hid)
	assert.True(t, q.Hidden())

	assert.False(t, q.ToggleVisibility())
	enabled, hid = q.ToggleRandomPlay()
	assert.True(t, enabled)
	assert.True(t, hid)
}

func TestQueueService_HostHandlesRequests(t *testing.T) {
	tests := []struct {
		name    string
		seed    []string
		env     protocol.Envelope
		wantLog []string
		wantIDs []string
	}{
		{
			name:    "add to queue",
			seed:    []string{"A"},
			env:     protocol.New(&protocol.AddToQueue{Video: domain.QueueEntry{VideoID: "B"}}).AsRequest(),
			wantLog: []string{"broadcast:QUEUE_UPDATE"},
			wantIDs: []string{"A", "B"},
		},
		{
			name:    "play from queue",
			seed:    []string{"A", "B", "C"},
			env:     protocol.New(&protocol.PlayFromQueue{Index: 1}),
			wantLog: []string{"broadcast:NEW_VIDEO", "broadcast:QUEUE_UPDATE"},
			wantIDs: []string{"A", "C"},
		},
		{
			name:    "play from queue with stale index",
			seed:    []string{"A"},
			env:     protocol.New(&protocol.PlayFromQueue{Index: 4}),
			wantLog: nil,
			wantIDs: []string{"A"},
		},
		{
			name:    "remove from queue",
			seed:    []string{"A", "B"},
			env:     protocol.New(&protocol.RemoveFromQueue{Index: 0}),
			wantLog: []string{"broadcast:QUEUE_UPDATE"},
			wantIDs: []string{"B"},
		},
		{
			name:    "remove with stale index",
			seed:    []string{"A"},
			env:     protocol.New(&protocol.RemoveFromQueue{Index: 1}),
			wantLog: nil,
			wantIDs: []string{"A"},
		},
		{
			name:    "shuffle single entry",
			seed:    []string{"A"},
			env:     protocol.New(&protocol.ShuffleQueue{}),
			wantLog: nil,
			wantIDs: []string{"A"},
		},
		{
			name:    "toggle visibility",
			env:     protocol.New(&protocol.ToggleQueueVisibility{}),
			wantLog: []string{"broadcast:QUEUE_VISIBILITY"},
			wantIDs: []string{},
		},
		{
			name:    "toggle random play",
			env:     protocol.New(&protocol.ToggleRandomPlay{}),
			wantLog: []string{"broadcast:QUEUE_VISIBILITY", "broadcast:RANDOM_PLAY_MODE"},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := newTestQueue(t, tt.seed...)
			out := &recordingOutbox{host: true}

			assert.True(t, q.Handle(tt.env, out))
			assert.Equal(t, tt.wantLog, out.log)
			assert.Equal(t, tt.wantIDs, queueIDs(q.Snapshot()))
		})
	}
}

func TestQueueService_PlayFromQueueBroadcastsEntry(t *testing.T) {
	q, _ := newTestQueue(t, "A", "B")
	out := &recordingOutbox{host: true}

	q.Handle(protocol.New(&protocol.PlayFromQueue{Index: 1}), out)

	nv := out.envs[0].Payload.(*protocol.NewVideo)
	assert.Equal(t, "B", nv.VideoID)
	assert.True(t, nv.AutoPlay)
}

func TestQueueService_GuestIgnoresMutations(t *testing.T) {
	mutations := []protocol.Envelope{
		protocol.New(&protocol.AddToQueue{Video: domain.QueueEntry{VideoID: "B"}}),
		protocol.New(&protocol.PlayFromQueue{Index: 0}),
		protocol.New(&protocol.RemoveFromQueue{Index: 0}),
		protocol.New(&protocol.ShuffleQueue{}),
		protocol.New(&protocol.ToggleQueueVisibility{}),
		protocol.New(&protocol.ToggleRandomPlay{}),
	}

	q, _ := newTestQueue(t, "A")
	out := &recordingOutbox{host: false}
	for _, env := range mutations {
		assert.True(t, q.Handle(env, out), env.Kind)
	}

	assert.Empty(t, out.log)
	assert.Equal(t, []string{"A"}, queueIDs(q.Snapshot()))
	assert.False(t, q.Hidden())
	assert.False(t, q.RandomPlay())
}

func TestQueueService_GuestAdoptsState(t *testing.T) {
	q, notices := newTestQueue(t)
	out := &recordingOutbox{host: false}

	q.Handle(protocol.New(&protocol.QueueUpdate{Queue: []domain.QueueEntry{{VideoID: "X"}}}), out)
	q.Handle(protocol.New(&protocol.QueueVisibility{Hidden: true}), out)
	q.Handle(protocol.New(&protocol.RandomPlayMode{Enabled: true}), out)

	assert.Equal(t, []string{"X"}, queueIDs(q.Snapshot()))
	assert.True(t, q.Hidden())
	assert.True(t, q.RandomPlay())
	assert.Len(t, notices.Of(domain.NoticeQueueVisibility), 1)
	assert.Len(t, notices.Of(domain.NoticeRandomPlay), 1)
	assert.Empty(t, out.log)
}

func TestQueueService_HandleRejectsOtherKinds(t *testing.T) {
	q, _ := newTestQueue(t)
	assert.False(t, q.Handle(protocol.New(&protocol.UserLeaving{}), &recordingOutbox{host: true}))
}
