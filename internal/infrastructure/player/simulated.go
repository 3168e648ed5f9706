package player

import (
	"sync"
	"time"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/pkg/clock"
	"watchparty/pkg/utils"
)

type SimulatedConfig struct {
	// Duration of every loaded video.
	Duration time.Duration
	// BufferDelay between a load or seek and the start of playback.
	BufferDelay time.Duration
}

func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		Duration:    4 * time.Minute,
		BufferDelay: 250 * time.Millisecond,
	}
}

// Simulated is a headless player driven by a clock. Loading a video
// autoplays it the way the embedded player does, and playback ends when
// the configured duration elapses. Events are delivered from timers,
// never from inside a command call.
type Simulated struct {
	config SimulatedConfig
	clock  clock.Clock

	mu         sync.Mutex
	events     ports.PlayerEvents
	ready      bool
	videoID    string
	state      domain.PlayerState
	position   float64
	observedAt time.Time
	// gen invalidates timers armed for an earlier load or seek.
	gen      int
	endTimer clock.Timer
}

func NewSimulated(config SimulatedConfig, clk clock.Clock) *Simulated {
	return &Simulated{
		config: config,
		clock:  clk,
		state:  domain.StateUnstarted,
	}
}

func (s *Simulated) SetEvents(events ports.PlayerEvents) {
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
}

// Start makes the player ready.
func (s *Simulated) Start() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	s.emit(func(ev ports.PlayerEvents) { ev.OnPlayerReady() })
}

// Fail reports a player error for the current video.
func (s *Simulated) Fail(code domain.PlayerErrorCode) {
	s.mu.Lock()
	s.gen++
	s.stopEndTimerLocked()
	s.mu.Unlock()
	s.emit(func(ev ports.PlayerEvents) { ev.OnPlayerError(code) })
}

func (s *Simulated) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Simulated) Load(videoID string, start float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoID = videoID
	s.setPositionLocked(s.clamp(start))
	s.bufferLocked()
}

func (s *Simulated) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.videoID == "" {
		return
	}
	switch s.state {
	case domain.StatePlaying, domain.StateBuffering:
		return
	case domain.StateEnded:
		s.setPositionLocked(0)
	}
	s.gen++
	s.playLocked()
}

func (s *Simulated) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StatePlaying && s.state != domain.StateBuffering {
		return
	}
	s.setPositionLocked(s.currentTimeLocked())
	s.gen++
	s.stopEndTimerLocked()
	s.transitionLocked(domain.StatePaused)
}

func (s *Simulated) Seek(seconds float64, allowSeekAhead bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.videoID == "" {
		return
	}
	s.setPositionLocked(s.clamp(seconds))
	switch s.state {
	case domain.StatePlaying, domain.StateBuffering:
		s.bufferLocked()
	case domain.StateEnded:
		s.transitionLocked(domain.StatePaused)
	}
}

func (s *Simulated) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTimeLocked()
}

func (s *Simulated) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.videoID == "" {
		return 0
	}
	return s.config.Duration.Seconds()
}

func (s *Simulated) State() domain.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Simulated) VideoID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoID
}

func (s *Simulated) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.videoID == "" {
		return ""
	}
	return "Simulated video " + s.videoID
}

// bufferLocked enters BUFFERING and starts playing after the buffer delay.
func (s *Simulated) bufferLocked() {
	s.gen++
	gen := s.gen
	s.stopEndTimerLocked()
	s.transitionLocked(domain.StateBuffering)
	s.clock.AfterFunc(s.config.BufferDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.playLocked()
	})
}

func (s *Simulated) playLocked() {
	gen := s.gen
	s.setPositionLocked(s.position)
	s.transitionLocked(domain.StatePlaying)

	remaining := s.config.Duration - utils.FromSeconds(s.position)
	s.stopEndTimerLocked()
	s.endTimer = s.clock.AfterFunc(remaining, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.setPositionLocked(s.config.Duration.Seconds())
		s.endTimer = nil
		s.transitionLocked(domain.StateEnded)
	})
}

func (s *Simulated) transitionLocked(state domain.PlayerState) {
	if s.state == state {
		return
	}
	s.state = state
	s.emitLocked(func(ev ports.PlayerEvents) { ev.OnPlayerStateChange(state) })
}

func (s *Simulated) stopEndTimerLocked() {
	if s.endTimer != nil {
		s.endTimer.Stop()
		s.endTimer = nil
	}
}

func (s *Simulated) setPositionLocked(seconds float64) {
	s.position = seconds
	s.observedAt = s.clock.Now()
}

func (s *Simulated) currentTimeLocked() float64 {
	if s.state != domain.StatePlaying {
		return s.position
	}
	return s.clamp(s.position + utils.Seconds(s.clock.Now().Sub(s.observedAt)))
}

func (s *Simulated) clamp(seconds float64) float64 {
	if seconds < 0 {
		return 0
	}
	if max := s.config.Duration.Seconds(); seconds > max {
		return max
	}
	return seconds
}

func (s *Simulated) emit(fn func(ports.PlayerEvents)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(fn)
}

// emitLocked defers delivery to a zero-delay timer so listeners may call
// back into the player.
func (s *Simulated) emitLocked(fn func(ports.PlayerEvents)) {
	events := s.events
	if events == nil {
		return
	}
	s.clock.AfterFunc(0, func() { fn(events) })
}
