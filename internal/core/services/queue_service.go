package services

import (
	"math/rand"

	"go.uber.org/zap"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/internal/core/protocol"
)

// QueueService holds the replicated up-next queue. The host mutates it and
// rebroadcasts the whole queue after every change; guests only adopt snapshots.
// It is owned by the event loop and not safe for concurrent use.
type QueueService struct {
	entries    []domain.QueueEntry
	hidden     bool
	randomPlay bool

	rng      *rand.Rand
	notifier ports.Notifier
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger
}

func NewQueueService(rng *rand.Rand, notifier ports.Notifier, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) *QueueService {
	if metrics == nil {
		metrics = ports.NopMetrics
	}
	return &QueueService{
		entries:  []domain.QueueEntry{},
		rng:      rng,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

func (q *QueueService) Len() int { return len(q.entries) }

func (q *QueueService) Hidden() bool { return q.hidden }

func (q *QueueService) RandomPlay() bool { return q.randomPlay }

func (q *QueueService) Snapshot() []domain.QueueEntry {
	return domain.CloneQueue(q.entries)
}

func (q *QueueService) Append(entry domain.QueueEntry) {
	q.entries = append(q.entries, entry)
}

// Remove drops the entry at i and reports whether i was valid.
func (q *QueueService) Remove(i int) bool {
	if i < 0 || i >= len(q.entries) {
		return false
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return true
}

// Take dequeues the entry at i for immediate playback.
func (q *QueueService) Take(i int) (domain.QueueEntry, bool) {
	if i < 0 || i >= len(q.entries) {
		return domain.QueueEntry{}, false
	}
	entry := q.entries[i]
	q.Remove(i)
	return entry, true
}

// Shuffle permutes the queue in place (Fisher-Yates). Queues shorter than
// two entries are left untouched.
func (q *QueueService) Shuffle() bool {
	if len(q.entries) < 2 {
		return false
	}
	for i := len(q.entries) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	}
	return true
}

// Advance pops the next entry, shuffling first when random play is on.
func (q *QueueService) Advance(allowShuffle bool) (domain.QueueEntry, bool) {
	if allowShuffle && q.randomPlay {
		q.Shuffle()
	}
	return q.Take(0)
}

func (q *QueueService) ToggleVisibility() bool {
	q.hidden = !q.hidden
	return q.hidden
}

// ToggleRandomPlay flips random play. Enabling it also hides the queue;
// hidChanged reports whether that happened.
func (q *QueueService) ToggleRandomPlay() (enabled bool, hidChanged bool) {
	q.randomPlay = !q.randomPlay
	if q.randomPlay && !q.hidden {
		q.hidden = true
		hidChanged = true
	}
	return q.randomPlay, hidChanged
}

// Replace adopts a snapshot. Applying the same snapshot twice is a no-op.
func (q *QueueService) Replace(entries []domain.QueueEntry) {
	q.entries = domain.CloneQueue(entries)
	q.metrics.SetQueueLength(len(q.entries))
	q.notify(domain.NoticeQueue, q.Snapshot())
}

func (q *QueueService) SetHidden(hidden bool) {
	q.hidden = hidden
	q.notify(domain.NoticeQueueVisibility, hidden)
}

func (q *QueueService) SetRandomPlay(enabled bool) {
	q.randomPlay = enabled
	q.notify(domain.NoticeRandomPlay, enabled)
}

// Handle applies a queue message. Mutation kinds only take effect on the
// host; the resulting state is broadcast through out. It reports whether
// env was a queue message.
func (q *QueueService) Handle(env protocol.Envelope, out ports.Outbox) bool {
	host := out.IsHost()

	switch p := env.Payload.(type) {
	case *protocol.AddToQueue:
		if host {
			q.Append(p.Video)
			q.broadcastQueue(out)
		}
	case *protocol.PlayFromQueue:
		if !host {
			break
		}
		entry, ok := q.Take(p.Index)
		if !ok {
			q.logger.Debugw("Ignoring play from queue with stale index", "index", p.Index)
			break
		}
		out.Broadcast(protocol.New(&protocol.NewVideo{VideoID: entry.VideoID, AutoPlay: true}))
		q.broadcastQueue(out)
	case *protocol.RemoveFromQueue:
		if host && q.Remove(p.Index) {
			q.broadcastQueue(out)
		}
	case *protocol.ShuffleQueue:
		if host && q.Shuffle() {
			q.broadcastQueue(out)
		}
	case *protocol.ToggleQueueVisibility:
		if host {
			out.Broadcast(protocol.New(&protocol.QueueVisibility{Hidden: q.ToggleVisibility()}))
		}
	case *protocol.ToggleRandomPlay:
		if !host {
			break
		}
		enabled, hid := q.ToggleRandomPlay()
		if hid {
			out.Broadcast(protocol.New(&protocol.QueueVisibility{Hidden: true}))
		}
		out.Broadcast(protocol.New(&protocol.RandomPlayMode{Enabled: enabled}))
	case *protocol.QueueUpdate:
		q.Replace(p.Queue)
	case *protocol.QueueVisibility:
		q.SetHidden(p.Hidden)
	case *protocol.RandomPlayMode:
		q.SetRandomPlay(p.Enabled)
	default:
		return false
	}
	return true
}

func (q *QueueService) broadcastQueue(out ports.Outbox) {
	out.Broadcast(protocol.New(&protocol.QueueUpdate{Queue: q.Snapshot()}))
}

func (q *QueueService) notify(kind domain.NoticeKind, data interface{}) {
	if q.notifier != nil {
		q.notifier.Notify(domain.Notice{Kind: kind, Data: data})
	}
}
