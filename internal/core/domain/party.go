package domain

import "time"

type PartyID string
type PeerID string

// HostLinkID keys the single link a guest holds towards its host.
const HostLinkID PeerID = "host"

type Party struct {
	ID        PartyID   `json:"id"`
	HostID    PeerID    `json:"hostId"`
	CreatedAt time.Time `json:"createdAt"`
}

type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// GuestRecord is the signaling document a guest publishes under its party.
type GuestRecord struct {
	ID          PeerID              `json:"id"`
	Name        string              `json:"name"`
	Offer       *SessionDescription `json:"offer,omitempty"`
	Answer      *SessionDescription `json:"answer,omitempty"`
	RestartedAt time.Time           `json:"restartedAt,omitempty"`
}

type Candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

type CandidateDirection string

const (
	GuestCandidates CandidateDirection = "guestCandidates"
	HostCandidates  CandidateDirection = "hostCandidates"
)

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

type GuestChange struct {
	Type  ChangeType
	Guest GuestRecord
}
