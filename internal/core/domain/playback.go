package domain

import "fmt"

// PlayerState mirrors the numeric states reported by the embedded player.
type PlayerState int

const (
	StateUnstarted PlayerState = -1
	StateEnded     PlayerState = 0
	StatePlaying   PlayerState = 1
	StatePaused    PlayerState = 2
	StateBuffering PlayerState = 3
	StateCued      PlayerState = 5
)

func (s PlayerState) String() string {
	switch s {
	case StateUnstarted:
		return "UNSTARTED"
	case StateEnded:
		return "ENDED"
	case StatePlaying:
		return "PLAYING"
	case StatePaused:
		return "PAUSED"
	case StateBuffering:
		return "BUFFERING"
	case StateCued:
		return "CUED"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

func (s PlayerState) Valid() bool {
	switch s {
	case StateUnstarted, StateEnded, StatePlaying, StatePaused, StateBuffering, StateCued:
		return true
	}
	return false
}

// Stalled reports whether playback has not visibly started yet.
func (s PlayerState) Stalled() bool {
	return s == StateBuffering || s == StateUnstarted || s == StateCued
}

type PlayerErrorCode int

const (
	PlayerErrInvalidID   PlayerErrorCode = 2
	PlayerErrHTML5       PlayerErrorCode = 5
	PlayerErrNotFound    PlayerErrorCode = 100
	PlayerErrNotEmbed    PlayerErrorCode = 101
	PlayerErrNotEmbedAlt PlayerErrorCode = 150
)

func (c PlayerErrorCode) Reason() string {
	switch c {
	case PlayerErrInvalidID:
		return "Invalid video ID"
	case PlayerErrHTML5:
		return "HTML5 player error"
	case PlayerErrNotFound:
		return "Video not found (removed or private)"
	case PlayerErrNotEmbed, PlayerErrNotEmbedAlt:
		return "Video cannot be embedded"
	default:
		return fmt.Sprintf("Unknown error code: %d", int(c))
	}
}

// PlaybackSnapshot is the host's player truth at the moment it is taken.
type PlaybackSnapshot struct {
	VideoID  string
	Position float64
	State    PlayerState
	Duration float64
	Queue    []QueueEntry
}
