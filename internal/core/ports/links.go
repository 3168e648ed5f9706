package ports

import (
	"context"

	"watchparty/internal/core/domain"
)

// LinkInfo is a read-only view of one peer link.
type LinkInfo struct {
	PeerID     domain.PeerID          `json:"peerId"`
	Name       string                 `json:"name,omitempty"`
	Connection domain.ConnectionState `json:"connection"`
	Channel    domain.ChannelState    `json:"channel"`
}

// LinkEvents is notified from transport goroutines. Links removed through
// Evict or CloseAll produce no further events.
type LinkEvents interface {
	OnChannelOpen(peer domain.PeerID)
	OnChannelClose(peer domain.PeerID)
	OnMessage(peer domain.PeerID, data []byte)
	OnConnectionState(peer domain.PeerID, state domain.ConnectionState)
}

type ConnectionManager interface {
	SetEvents(events LinkEvents)
	// Join opens the guest link to the party host.
	Join(ctx context.Context, partyID domain.PartyID, self domain.PeerID, name string) error
	// ListenForGuests answers guest offers until StopListening or ctx ends.
	ListenForGuests(ctx context.Context, partyID domain.PartyID, self domain.PeerID) error
	StopListening()
	Link(peer domain.PeerID) (LinkInfo, bool)
	Links() []LinkInfo
	Send(peer domain.PeerID, data []byte) error
	Evict(peer domain.PeerID)
	CloseAll()
}
