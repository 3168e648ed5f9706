package domain

import "errors"

var (
	ErrPartyNotFound     = errors.New("party not found")
	ErrGuestNotFound     = errors.New("guest not found")
	ErrLinkNotFound      = errors.New("peer link not found")
	ErrLinkExists        = errors.New("peer link already exists")
	ErrChannelNotOpen    = errors.New("data channel not open")
	ErrNotHost           = errors.New("operation requires the host role")
	ErrNotInParty        = errors.New("not in a party")
	ErrAlreadyInParty    = errors.New("already in a party")
	ErrNameRequired      = errors.New("display name not set")
	ErrPlayerNotReady    = errors.New("player not ready")
	ErrSearchCooldown    = errors.New("search cooldown active")
	ErrEmptyQuery        = errors.New("search query is empty")
	ErrEmptyPlaylist     = errors.New("playlist is empty or unavailable")
	ErrNoCandidates      = errors.New("no surviving election candidates")
	ErrUnknownMessage    = errors.New("unknown message kind")
	ErrInvalidInvite     = errors.New("invalid invite token")
	ErrAmbiguousIdentity = errors.New("guest identity equals host identity")
)
