package services

import (
	"watchparty/internal/core/domain"
)

// ElectHost picks the next host among the surviving identities: the known
// users minus the departed host, plus self. The smallest identity wins, so
// every survivor reaches the same decision independently.
func ElectHost(known domain.UserList, departed, self domain.PeerID) (domain.PeerID, error) {
	candidates := known.Clone()
	delete(candidates, departed)
	if self != "" {
		candidates[self] = domain.User{}
	}

	ids := candidates.SortedIDs()
	if len(ids) == 0 {
		return "", domain.ErrNoCandidates
	}
	return ids[0], nil
}

// ElectionState guards against re-entrant elections.
type ElectionState struct {
	phase domain.ElectionPhase
	// lastHost is the identity that departed when the election began.
	lastHost domain.PeerID
}

func NewElectionState() *ElectionState {
	return &ElectionState{phase: domain.ElectionIdle}
}

func (e *ElectionState) Phase() domain.ElectionPhase { return e.phase }

func (e *ElectionState) LastHost() domain.PeerID { return e.lastHost }

// InProgress reports whether a winner is being promoted or awaited.
func (e *ElectionState) InProgress() bool {
	return e.phase == domain.ElectionPromoting || e.phase == domain.ElectionAwaitingHost
}

// Begin starts an election for the departed host. It returns false when
// one is already running.
func (e *ElectionState) Begin(departed domain.PeerID) bool {
	if e.InProgress() {
		return false
	}
	e.phase = domain.ElectionPromoting
	e.lastHost = departed
	return true
}

// Await records that another survivor won and is expected to take over.
func (e *ElectionState) Await() {
	e.phase = domain.ElectionAwaitingHost
}

func (e *ElectionState) Abort() {
	e.phase = domain.ElectionAborted
}

// Reset returns to idle. Called when promotion succeeds, when the new host
// is adopted, and whenever a data channel opens.
func (e *ElectionState) Reset() {
	e.phase = domain.ElectionIdle
}
