package webrtc

import (
	"context"
	"strings"
	"time"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/pkg/batch"
	"watchparty/pkg/clock"

	"go.uber.org/zap"
)

const candidateWriteTimeout = 5 * time.Second

type candidateTarget struct {
	partyID domain.PartyID
	guestID domain.PeerID
	dir     domain.CandidateDirection
}

func (t candidateTarget) key() string {
	return strings.Join([]string{string(t.partyID), string(t.guestID), string(t.dir)}, "/")
}

type pendingCandidate struct {
	target    candidateTarget
	candidate domain.Candidate
}

// CandidateBatcher collects local ICE candidates per guest document and
// writes each burst to the store in one call.
type CandidateBatcher struct {
	store   ports.SignalingStore
	metrics ports.MetricsRecorder
	batcher *batch.Batcher[pendingCandidate]
	logger  *zap.SugaredLogger
}

func NewCandidateBatcher(
	store ports.SignalingStore,
	delay time.Duration,
	clk clock.Clock,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) *CandidateBatcher {
	b := &CandidateBatcher{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
	b.batcher = batch.NewBatcher(delay, clk, b.flush)
	return b
}

func (b *CandidateBatcher) Add(partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection, c domain.Candidate) {
	t := candidateTarget{partyID: partyID, guestID: guestID, dir: dir}
	b.batcher.Add(t.key(), pendingCandidate{target: t, candidate: c})
}

// Close writes whatever is still pending and rejects later candidates.
func (b *CandidateBatcher) Close() {
	b.batcher.Stop()
}

func (b *CandidateBatcher) flush(_ string, items []pendingCandidate) {
	if len(items) == 0 {
		return
	}
	target := items[0].target
	candidates := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, item.candidate)
	}

	ctx, cancel := context.WithTimeout(context.Background(), candidateWriteTimeout)
	defer cancel()

	if err := b.store.AddCandidates(ctx, target.partyID, target.guestID, target.dir, candidates); err != nil {
		b.metrics.RecordSignalingError("add_candidates")
		b.logger.Warnw("candidate batch write failed",
			"party_id", target.partyID,
			"guest_id", target.guestID,
			"direction", target.dir,
			"count", len(candidates),
			"error", err,
		)
		return
	}
	b.metrics.RecordCandidateBatch(target.dir, len(candidates))
}
