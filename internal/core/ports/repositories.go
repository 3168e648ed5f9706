package ports

import (
	"context"

	"watchparty/internal/core/domain"
)

// SignalingStore is the document store parties negotiate through.
// Watch channels are closed once ctx is cancelled.
type SignalingStore interface {
	CreateParty(ctx context.Context, party *domain.Party) error
	GetParty(ctx context.Context, id domain.PartyID) (*domain.Party, error)
	UpdateHost(ctx context.Context, id domain.PartyID, hostID domain.PeerID) error
	WatchParty(ctx context.Context, id domain.PartyID) (<-chan domain.Party, error)

	PutGuest(ctx context.Context, partyID domain.PartyID, guest *domain.GuestRecord) error
	GetGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (*domain.GuestRecord, error)
	// RestartGuestOffer replaces the offer, stamps restartedAt and deletes the stale answer.
	RestartGuestOffer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, offer domain.SessionDescription) error
	SetGuestAnswer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, answer domain.SessionDescription) error
	DeleteGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) error
	ClearGuests(ctx context.Context, partyID domain.PartyID) error
	WatchGuests(ctx context.Context, partyID domain.PartyID) (<-chan domain.GuestChange, error)
	WatchGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (<-chan domain.GuestRecord, error)

	AddCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection, candidates []domain.Candidate) error
	WatchCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection) (<-chan domain.Candidate, error)
}
