package player

import (
	"sync"
	"time"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/internal/infrastructure/control"
	"watchparty/pkg/clock"
	"watchparty/pkg/utils"

	"go.uber.org/zap"
)

// CommandSender delivers commands to the page hosting the player.
type CommandSender interface {
	SendCommand(cmd control.Command) error
}

// Remote drives the embedded player in the browser page over the control
// bridge. It caches the last reported status and extrapolates the playback
// position while playing, so reads never block on the page.
type Remote struct {
	sender CommandSender
	clock  clock.Clock
	logger *zap.SugaredLogger

	mu         sync.Mutex
	events     ports.PlayerEvents
	ready      bool
	videoID    string
	// previousID is the video a pending Load replaced. Reports for it are
	// stale until the page confirms the new one.
	previousID string
	loading    bool
	title      string
	state      domain.PlayerState
	position   float64
	observedAt time.Time
	duration   float64
}

func NewRemote(sender CommandSender, clk clock.Clock, logger *zap.SugaredLogger) *Remote {
	return &Remote{
		sender: sender,
		clock:  clk,
		logger: logger,
		state:  domain.StateUnstarted,
	}
}

func (r *Remote) SetEvents(events ports.PlayerEvents) {
	r.mu.Lock()
	r.events = events
	r.mu.Unlock()
}

func (r *Remote) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *Remote) Load(videoID string, start float64) {
	r.mu.Lock()
	if r.videoID != videoID {
		r.previousID = r.videoID
	}
	r.videoID = videoID
	r.loading = true
	r.title = ""
	r.duration = 0
	r.state = domain.StateUnstarted
	r.setPositionLocked(start)
	r.mu.Unlock()

	r.send(control.Command{Op: control.OpLoad, VideoID: videoID, Time: start})
}

func (r *Remote) Play() {
	r.send(control.Command{Op: control.OpPlay})
}

func (r *Remote) Pause() {
	r.send(control.Command{Op: control.OpPause})
}

func (r *Remote) Seek(seconds float64, allowSeekAhead bool) {
	r.mu.Lock()
	r.setPositionLocked(seconds)
	r.mu.Unlock()

	r.send(control.Command{Op: control.OpSeek, Time: seconds, AllowSeekAhead: allowSeekAhead})
}

// CurrentTime extrapolates from the last report while playing.
func (r *Remote) CurrentTime() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentTimeLocked()
}

func (r *Remote) Duration() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duration
}

func (r *Remote) State() domain.PlayerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Remote) VideoID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.videoID
}

func (r *Remote) Title() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.title
}

// HandlePageMessage implements control.PageHandler. The cache is updated
// before the session hears about the change.
func (r *Remote) HandlePageMessage(msg control.PageMessage) {
	r.mu.Lock()
	events := r.events
	var notify func()

	switch msg.Type {
	case control.MsgPlayerReady:
		r.ready = true
		if events != nil {
			notify = events.OnPlayerReady
		}

	case control.MsgPlayerState:
		r.applyStatusLocked(msg)
		state := domain.PlayerState(*msg.State)
		if !state.Valid() {
			r.mu.Unlock()
			r.logger.Warnw("ignoring unknown player state", "state", *msg.State)
			return
		}
		// freeze the extrapolated position on leaving PLAYING
		r.setPositionLocked(r.currentTimeLocked())
		r.state = state
		if events != nil {
			notify = func() { events.OnPlayerStateChange(state) }
		}

	case control.MsgPlayerStatus:
		r.applyStatusLocked(msg)

	case control.MsgPlayerError:
		code := domain.PlayerErrorCode(msg.Code)
		if events != nil {
			notify = func() { events.OnPlayerError(code) }
		}

	case control.MsgGesture:
		if events != nil {
			notify = events.OnUserGesture
		}

	case control.MsgVisibility:
		hidden := msg.Hidden
		if events != nil {
			notify = func() { events.OnVisibilityChange(hidden) }
		}
	}
	r.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// PageDisconnected implements control.PageHandler.
func (r *Remote) PageDisconnected() {
	r.mu.Lock()
	r.setPositionLocked(r.currentTimeLocked())
	r.ready = false
	r.mu.Unlock()
	r.logger.Infow("player page gone, player not ready until it reconnects")
}

func (r *Remote) applyStatusLocked(msg control.PageMessage) {
	switch {
	case msg.VideoID == "":
	case msg.VideoID == r.videoID:
		r.loading = false
	case r.loading && msg.VideoID == r.previousID:
		// a late report for the previous video
		return
	default:
		// the viewer navigated inside the player
		r.logger.Infow("player page switched video", "from", r.videoID, "to", msg.VideoID)
		r.previousID = r.videoID
		r.videoID = msg.VideoID
		r.loading = false
		r.title = ""
		r.duration = 0
		r.setPositionLocked(0)
	}
	if msg.Title != "" {
		r.title = msg.Title
	}
	if msg.Duration > 0 {
		r.duration = msg.Duration
	}
	if msg.Type == control.MsgPlayerStatus || msg.Time > 0 {
		r.setPositionLocked(msg.Time)
	}
}

func (r *Remote) setPositionLocked(seconds float64) {
	r.position = seconds
	r.observedAt = r.clock.Now()
}

func (r *Remote) currentTimeLocked() float64 {
	if r.state != domain.StatePlaying {
		return r.position
	}
	t := r.position + utils.Seconds(r.clock.Now().Sub(r.observedAt))
	if r.duration > 0 && t > r.duration {
		return r.duration
	}
	return t
}

func (r *Remote) send(cmd control.Command) {
	if err := r.sender.SendCommand(cmd); err != nil {
		r.logger.Debugw("player command not delivered", "op", cmd.Op, "error", err)
	}
}
