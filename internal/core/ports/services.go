package ports

import (
	"context"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/protocol"
)

type Catalog interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.CatalogItem, error)
}

// Outbox routes protocol messages on behalf of the playback and queue logic.
type Outbox interface {
	IsHost() bool
	// Broadcast applies env locally, then sends it to every guest.
	Broadcast(env protocol.Envelope)
	SendToGuests(env protocol.Envelope)
	SendToHost(env protocol.Envelope)
}

// PartyStatus is the local view of the session served to the UI.
type PartyStatus struct {
	PartyID     domain.PartyID          `json:"partyId,omitempty"`
	Self        domain.PeerID           `json:"self"`
	Name        string                  `json:"name,omitempty"`
	Role        domain.Role             `json:"role"`
	HostID      domain.PeerID           `json:"hostId,omitempty"`
	Status      domain.ConnectionStatus `json:"status"`
	Election    domain.ElectionPhase    `json:"election"`
	Users       domain.UserList         `json:"users"`
	Links       []LinkInfo              `json:"links"`
	VideoID     string                  `json:"videoId,omitempty"`
	Queue       []domain.QueueEntry     `json:"queue"`
	QueueHidden bool                    `json:"queueHidden"`
	RandomPlay  bool                    `json:"randomPlay"`
	InviteLink  string                  `json:"inviteLink,omitempty"`
}

// PartyService is the intent surface used by the local HTTP API.
type PartyService interface {
	SetName(ctx context.Context, name string) error
	CreateParty(ctx context.Context) (domain.PartyID, error)
	// JoinParty joins as a guest. A non-empty invite must be a valid token for partyID.
	JoinParty(ctx context.Context, partyID domain.PartyID, invite string) error
	Leave(ctx context.Context) error
	Status(ctx context.Context) (PartyStatus, error)

	PlayVideo(ctx context.Context, videoID string) error
	AddToQueue(ctx context.Context, entry domain.QueueEntry) error
	PlayFromQueue(ctx context.Context, index int) error
	RemoveFromQueue(ctx context.Context, index int) error
	ShuffleQueue(ctx context.Context) error
	ToggleQueueVisibility(ctx context.Context) error
	ToggleRandomPlay(ctx context.Context) error
	Replay(ctx context.Context) error
	LoadPlaylist(ctx context.Context, playlistID string, playFirst bool) (int, error)
}

type CatalogService interface {
	Search(ctx context.Context, text string) ([]domain.CatalogItem, error)
	Playlist(ctx context.Context, playlistID string) ([]domain.QueueEntry, error)
	Suggestions(exclude string) []domain.CatalogItem
}

type MetricsRecorder interface {
	RecordMessage(kind string, direction string)
	RecordDecodeError()
	RecordLinkState(state domain.ConnectionState)
	RecordICERestart(outcome string)
	RecordElection(outcome string)
	RecordDriftCorrection(source string)
	RecordCandidateBatch(direction domain.CandidateDirection, size int)
	RecordSignalingError(op string)
	RecordPlayerError(code domain.PlayerErrorCode)
	SetQueueLength(n int)
	RecordSearch(outcome string)
}

// NopMetrics discards every observation.
var NopMetrics MetricsRecorder = nopMetrics{}

type nopMetrics struct{}

func (nopMetrics) RecordMessage(string, string)                        {}
func (nopMetrics) RecordDecodeError()                                  {}
func (nopMetrics) RecordLinkState(domain.ConnectionState)              {}
func (nopMetrics) RecordICERestart(string)                             {}
func (nopMetrics) RecordElection(string)                               {}
func (nopMetrics) RecordDriftCorrection(string)                        {}
func (nopMetrics) RecordCandidateBatch(domain.CandidateDirection, int) {}
func (nopMetrics) RecordSignalingError(string)                         {}
func (nopMetrics) RecordPlayerError(domain.PlayerErrorCode)            {}
func (nopMetrics) SetQueueLength(int)                                  {}
func (nopMetrics) RecordSearch(string)                                 {}
