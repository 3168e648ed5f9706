package reliability

import (
	"context"
	"errors"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/pkg/circuitbreaker"
	"watchparty/pkg/clock"
	"watchparty/pkg/retry"

	"go.uber.org/zap"
)

// notTransient are answers from the store, not failures of it.
var notTransient = []error{
	domain.ErrPartyNotFound,
	domain.ErrGuestNotFound,
	context.Canceled,
	context.DeadlineExceeded,
}

// SignalingStore wraps a signaling store with retry logic and a circuit
// breaker. Writes are retried with backoff; reads and watches pass through
// the breaker once so a dead backend fails fast.
type SignalingStore struct {
	store   ports.SignalingStore
	retry   retry.Config
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

var _ ports.SignalingStore = (*SignalingStore)(nil)

func NewSignalingStore(
	store ports.SignalingStore,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	clk clock.Clock,
	logger *zap.SugaredLogger,
) *SignalingStore {
	retryConfig.NonRetryableErrors = append(append([]error(nil), notTransient...), circuitbreaker.ErrOpen)
	cbConfig.IsFailure = isTransient

	breaker := circuitbreaker.New(cbConfig, clk)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("signaling circuit breaker changed state",
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &SignalingStore{
		store:   store,
		retry:   retryConfig,
		breaker: breaker,
		logger:  logger,
	}
}

func isTransient(err error) bool {
	for _, target := range notTransient {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

func (s *SignalingStore) write(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Retry(ctx, s.retry, func() error {
		return s.breaker.Execute(ctx, fn)
	})
}

func (s *SignalingStore) read(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.breaker.Execute(ctx, fn)
}

func (s *SignalingStore) CreateParty(ctx context.Context, party *domain.Party) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.store.CreateParty(ctx, party)
	})
}

func (s *SignalingStore) GetParty(ctx context.Context, id domain.PartyID) (*domain.Party, error) {
	var party *domain.Party
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		party, err = s.store.GetParty(ctx, id)
		return err
	})
	return party, err
}

func (s *SignalingStore) UpdateHost(ctx context.Context, id domain.PartyID, hostID domain.PeerID) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.store.UpdateHost(ctx, id, hostID)
	})
}

func (s *SignalingStore) WatchParty(ctx context.Context, id domain.PartyID) (<-chan domain.Party, error) {
	var ch <-chan domain.Party
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		ch, err = s.store.WatchParty(ctx, id)
		return err
	})
	return ch, err
}

func (s *SignalingStore) PutGuest(ctx context.Context, partyID domain.PartyID, guest *domain.GuestRecord) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.store.PutGuest(ctx, partyID, guest)
	})
}

func (s *SignalingStore) GetGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (*domain.GuestRecord, error) {
	var guest *domain.GuestRecord
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		guest, err = s.store.GetGuest(ctx, partyID, guestID)
		return err
	})
	return guest, err
}

func (s *SignalingStore) RestartGuestOffer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, offer domain.SessionDescription) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.store.RestartGuestOffer(ctx, partyID, guestID, offer)
	})
}

func (s *SignalingStore) SetGuestAnswer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, answer domain.SessionDescription) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.store.SetGuestAnswer(ctx, partyID, guestID, answer)
	})
}

func (s *SignalingStore) DeleteGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.store.DeleteGuest(ctx, partyID, guestID)
	})
}

func (s *SignalingStore) ClearGuests(ctx context.Context, partyID domain.PartyID) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.store.ClearGuests(ctx, partyID)
	})
}

func (s *SignalingStore) WatchGuests(ctx context.Context, partyID domain.PartyID) (<-chan domain.GuestChange, error) {
	var ch <-chan domain.GuestChange
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		ch, err = s.store.WatchGuests(ctx, partyID)
		return err
	})
	return ch, err
}

func (s *SignalingStore) WatchGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (<-chan domain.GuestRecord, error) {
	var ch <-chan domain.GuestRecord
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		ch, err = s.store.WatchGuest(ctx, partyID, guestID)
		return err
	})
	return ch, err
}

// AddCandidates retries the batch. A duplicated candidate is harmless to ICE.
func (s *SignalingStore) AddCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection, candidates []domain.Candidate) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.store.AddCandidates(ctx, partyID, guestID, dir, candidates)
	})
}

func (s *SignalingStore) WatchCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection) (<-chan domain.Candidate, error) {
	var ch <-chan domain.Candidate
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		ch, err = s.store.WatchCandidates(ctx, partyID, guestID, dir)
		return err
	})
	return ch, err
}

// BreakerStats reports the circuit breaker counters.
func (s *SignalingStore) BreakerStats() circuitbreaker.Stats {
	return s.breaker.GetStats()
}
