package ports

import "watchparty/internal/core/domain"

// Player drives the embedded video player. Commands are fire-and-forget.
type Player interface {
	Ready() bool
	Load(videoID string, start float64)
	Play()
	Pause()
	Seek(seconds float64, allowSeekAhead bool)
	CurrentTime() float64
	Duration() float64
	State() domain.PlayerState
	VideoID() string
	Title() string
}

// PlayerEvents receives what the player and the page hosting it report.
type PlayerEvents interface {
	OnPlayerReady()
	OnPlayerStateChange(state domain.PlayerState)
	OnPlayerError(code domain.PlayerErrorCode)
	OnUserGesture()
	OnVisibilityChange(hidden bool)
}

type Notifier interface {
	Notify(notice domain.Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(domain.Notice)

func (f NotifierFunc) Notify(n domain.Notice) { f(n) }
