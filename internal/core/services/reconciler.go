package services

import (
	"time"

	"go.uber.org/zap"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/internal/core/protocol"
	"watchparty/pkg/clock"
	"watchparty/pkg/utils"
)

// Tuning holds the reconciliation thresholds.
type Tuning struct {
	// SeekThreshold is the drift tolerated when a STATE_CHANGE asks to play.
	SeekThreshold float64
	// HeartbeatDrift is the drift tolerated before a TIME_UPDATE corrects a guest.
	HeartbeatDrift float64
	// DurationTolerance separates the real video from an ad or a stale load.
	DurationTolerance float64
	// DurationBroadcastDelta triggers a VIDEO_DURATION broadcast from the host.
	DurationBroadcastDelta float64
	GestureWindow          time.Duration
	LocalActionGrace       time.Duration
	WatchdogDelay          time.Duration
	WatchdogRecheck        time.Duration
	WatchdogUserGrace      time.Duration
	InitialSyncDelay       time.Duration
}

func DefaultTuning() Tuning {
	return Tuning{
		SeekThreshold:          1.5,
		HeartbeatDrift:         3.5,
		DurationTolerance:      2,
		DurationBroadcastDelta: 1,
		GestureWindow:          1500 * time.Millisecond,
		LocalActionGrace:       3 * time.Second,
		WatchdogDelay:          5 * time.Second,
		WatchdogRecheck:        3 * time.Second,
		WatchdogUserGrace:      3 * time.Second,
		InitialSyncDelay:       time.Second,
	}
}

// SuggestionSource supplies up-next candidates from earlier search results.
type SuggestionSource interface {
	Suggestions(exclude string) []domain.CatalogItem
}

// Reconciler keeps the local player aligned with the host. On the host it
// turns player events into authoritative broadcasts; on a guest it applies
// those broadcasts and forwards local changes as requests.
// All methods must be called from the event loop.
type Reconciler struct {
	player      ports.Player
	queue       *QueueService
	out         ports.Outbox
	notifier    ports.Notifier
	suggestions SuggestionSource
	metrics     ports.MetricsRecorder
	clock       clock.Clock
	post        func(func())
	tuning      Tuning
	logger      *zap.SugaredLogger

	videoID          string
	officialDuration float64
	lastState        domain.PlayerState
	hasLastState     bool
	lastGestureAt    time.Time
	lastUserActionAt time.Time
	tabHidden        bool
	intentAutoPlay   bool
	advancing        bool
	suggesting       bool

	watchdog    clock.Timer
	watchdogGen uint64
}

type ReconcilerDeps struct {
	Player      ports.Player
	Queue       *QueueService
	Out         ports.Outbox
	Notifier    ports.Notifier
	Suggestions SuggestionSource
	Metrics     ports.MetricsRecorder
	Clock       clock.Clock
	Dispatcher  Dispatcher
	Logger      *zap.SugaredLogger
}

func NewReconciler(deps ReconcilerDeps, tuning Tuning) *Reconciler {
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics
	}
	return &Reconciler{
		player:      deps.Player,
		queue:       deps.Queue,
		out:         deps.Out,
		notifier:    deps.Notifier,
		suggestions: deps.Suggestions,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		post:        deps.Dispatcher.Post,
		tuning:      tuning,
		logger:      deps.Logger,
	}
}

func (r *Reconciler) VideoID() string { return r.videoID }

func (r *Reconciler) OfficialDuration() float64 { return r.officialDuration }

func (r *Reconciler) Advancing() bool { return r.advancing }

func (r *Reconciler) Suggesting() bool { return r.suggesting }

// SetVideoID tracks a video loaded outside the message flow.
func (r *Reconciler) SetVideoID(id string) { r.videoID = id }

// OnUserGesture records a click or key press on the page hosting the player.
func (r *Reconciler) OnUserGesture() {
	r.lastGestureAt = r.clock.Now()
}

func (r *Reconciler) SetTabHidden(hidden bool) {
	r.tabHidden = hidden
}

// OnPlayerStateChange reacts to a local player transition.
func (r *Reconciler) OnPlayerStateChange(state domain.PlayerState) {
	host := r.out.IsHost()

	if state != domain.StateEnded {
		r.advancing = false
	}

	if state == domain.StateEnded {
		if host && r.queue.Len() > 0 {
			if r.advancing {
				return
			}
			r.advanceLocal()
			return
		}
		if r.queue.Len() == 0 && !r.suggesting {
			r.showSuggestions()
		}
	}

	switch state {
	case domain.StatePlaying:
		r.stopWatchdog()
		r.updateTitle()
		r.hideSuggestions()
	case domain.StateCued:
		r.updateTitle()
	case domain.StateBuffering:
		r.startWatchdog()
	}

	if host && r.intentAutoPlay && state == domain.StateCued {
		r.intentAutoPlay = false
		r.Intent(protocol.New(&protocol.StateChange{State: domain.StatePlaying, Time: 0, UserInitiated: true}))
		r.startWatchdog()
		return
	}

	// navigation inside the player, e.g. an end screen click
	if vid := r.player.VideoID(); vid != "" && r.videoID != "" && vid != r.videoID {
		r.videoID = vid
		r.Intent(protocol.New(&protocol.NewVideo{VideoID: vid, AutoPlay: true}))
		return
	}

	if state == domain.StateBuffering {
		return
	}
	if state != domain.StateEnded && r.hasLastState && state == r.lastState {
		return
	}
	r.lastState = state
	r.hasLastState = true

	now := r.clock.Now()
	userInitiated := now.Sub(r.lastGestureAt) < r.tuning.GestureWindow
	if (state == domain.StatePaused || state == domain.StateEnded) && r.tabHidden && !userInitiated {
		return
	}
	if userInitiated {
		r.lastUserActionAt = now
	}

	if host && state == domain.StatePlaying {
		duration := r.player.Duration()
		if utils.Drift(duration, r.officialDuration) > r.tuning.DurationBroadcastDelta {
			r.officialDuration = duration
			r.out.Broadcast(protocol.New(&protocol.VideoDuration{Duration: duration}))
		}
	}

	r.Intent(protocol.New(&protocol.StateChange{
		State:         state,
		Time:          r.player.CurrentTime(),
		UserInitiated: userInitiated,
	}))
}

// OnPlayerError skips the failed video on the host.
func (r *Reconciler) OnPlayerError(code domain.PlayerErrorCode) {
	r.metrics.RecordPlayerError(code)
	r.advancing = false
	reason := code.Reason()
	r.logger.Warnw("Player error", "code", int(code), "reason", reason, "video_id", r.videoID)

	if !r.out.IsHost() {
		return
	}
	if r.queue.Len() == 0 {
		r.showSuggestions()
		return
	}
	if r.advanceBroadcast(false) {
		r.notify(domain.Notice{Kind: domain.NoticeSkip, Message: "Video skipped: " + reason})
	}
}

// Intent routes a locally originated action. The host broadcasts it; a
// guest filters noise and forwards it to the host as a request.
func (r *Reconciler) Intent(env protocol.Envelope) {
	sc, isStateChange := env.Payload.(*protocol.StateChange)

	if r.out.IsHost() {
		if isStateChange && sc.State == domain.StateEnded {
			return
		}
		r.out.Broadcast(env)
		return
	}

	if isStateChange {
		if sc.State == domain.StateEnded {
			return
		}
		if sc.State == domain.StatePaused && r.tabHidden && !sc.UserInitiated {
			return
		}
		if sc.State != domain.StatePaused && r.officialDuration > 0 {
			duration := r.player.Duration()
			if duration == 0 || utils.Drift(duration, r.officialDuration) > r.tuning.DurationTolerance {
				return
			}
		}
	}
	r.out.SendToHost(env.AsRequest())
}

// Apply handles an inbound (or locally broadcast) playback or queue message.
func (r *Reconciler) Apply(env protocol.Envelope) {
	switch p := env.Payload.(type) {
	case *protocol.InitialSync:
		r.applyInitialSync(p)
	case *protocol.VideoDuration:
		r.officialDuration = p.Duration
	case *protocol.NewVideo:
		r.applyNewVideo(p)
	case *protocol.StateChange:
		r.applyStateChange(p)
	case *protocol.TimeUpdate:
		r.applyTimeUpdate(p)
	default:
		if !r.queue.Handle(env, r.out) {
			r.logger.Debugw("Unhandled message", "kind", env.Kind)
		}
	}
}

func (r *Reconciler) applyInitialSync(p *protocol.InitialSync) {
	r.officialDuration = p.Duration
	if r.player.VideoID() != p.VideoID {
		r.player.Load(p.VideoID, p.Time)
	} else {
		r.player.Seek(p.Time, true)
	}
	r.videoID = p.VideoID
	r.hideSuggestions()

	state := p.State
	r.after(r.tuning.InitialSyncDelay, func() {
		switch state {
		case domain.StatePlaying:
			r.player.Play()
		case domain.StatePaused:
			r.player.Pause()
		}
	})
	r.queue.Replace(p.Queue)
}

func (r *Reconciler) applyNewVideo(p *protocol.NewVideo) {
	r.officialDuration = 0
	r.videoID = p.VideoID
	r.hideSuggestions()

	if r.player.VideoID() != p.VideoID {
		if p.AutoPlay {
			r.intentAutoPlay = true
		}
		r.player.Load(p.VideoID, 0)
		r.startWatchdog()
	} else if p.AutoPlay {
		r.player.Play()
		r.startWatchdog()
	}
}

func (r *Reconciler) applyStateChange(p *protocol.StateChange) {
	// only the host progresses the queue, via NEW_VIDEO
	if p.State == domain.StateEnded {
		return
	}
	r.lastState = p.State
	r.hasLastState = true

	switch p.State {
	case domain.StatePlaying:
		if utils.Drift(r.player.CurrentTime(), p.Time) > r.tuning.SeekThreshold {
			r.player.Seek(p.Time, true)
			r.metrics.RecordDriftCorrection("state_change")
		}
		r.player.Play()
	case domain.StatePaused:
		r.player.Pause()
	}
}

func (r *Reconciler) applyTimeUpdate(p *protocol.TimeUpdate) {
	if r.out.IsHost() {
		return
	}
	if r.clock.Now().Sub(r.lastUserActionAt) < r.tuning.LocalActionGrace {
		return
	}

	localState := r.player.State()
	drift := utils.Drift(r.player.CurrentTime(), p.Time)

	switch {
	case p.State == domain.StatePlaying && (localState != domain.StatePlaying || drift > r.tuning.HeartbeatDrift):
		if r.officialDuration > 0 && utils.Drift(r.player.Duration(), r.officialDuration) > r.tuning.DurationTolerance {
			return
		}
		r.player.Seek(p.Time, true)
		r.player.Play()
		r.metrics.RecordDriftCorrection("heartbeat")
	case p.State == domain.StatePaused && localState != domain.StatePaused:
		r.logger.Debugw("Heartbeat correcting to paused")
		r.player.Pause()
	}
}

// HeartbeatTick runs on the host every heartbeat interval.
func (r *Reconciler) HeartbeatTick() {
	if !r.out.IsHost() || !r.player.Ready() {
		return
	}
	state := r.player.State()
	if state == domain.StateEnded && r.queue.Len() > 0 {
		if !r.advancing {
			r.advanceBroadcast(true)
		}
		return
	}
	r.out.SendToGuests(protocol.New(&protocol.TimeUpdate{Time: r.player.CurrentTime(), State: state}))
}

// advanceLocal loads the next entry on the host player directly and tells
// the guests to follow.
func (r *Reconciler) advanceLocal() {
	next, ok := r.queue.Advance(true)
	if !ok {
		return
	}
	r.advancing = true
	r.hideSuggestions()
	r.videoID = next.VideoID
	r.intentAutoPlay = true
	r.player.Load(next.VideoID, 0)
	r.startWatchdog()

	r.out.SendToGuests(protocol.New(&protocol.NewVideo{VideoID: next.VideoID, AutoPlay: true}))
	r.out.Broadcast(protocol.New(&protocol.QueueUpdate{Queue: r.queue.Snapshot()}))
}

// advanceBroadcast moves to the next entry through a NEW_VIDEO broadcast.
func (r *Reconciler) advanceBroadcast(allowShuffle bool) bool {
	next, ok := r.queue.Advance(allowShuffle)
	if !ok {
		return false
	}
	r.advancing = true
	r.hideSuggestions()
	r.out.Broadcast(protocol.New(&protocol.NewVideo{VideoID: next.VideoID, AutoPlay: true}))
	r.out.Broadcast(protocol.New(&protocol.QueueUpdate{Queue: r.queue.Snapshot()}))
	return true
}

// Replay restarts the current video while the suggestions are showing.
func (r *Reconciler) Replay() bool {
	if !r.suggesting || r.videoID == "" {
		return false
	}
	r.hideSuggestions()
	r.Intent(protocol.New(&protocol.NewVideo{VideoID: r.videoID, AutoPlay: true}))
	return true
}

// Snapshot captures the host's playback for INITIAL_SYNC.
func (r *Reconciler) Snapshot() domain.PlaybackSnapshot {
	vid := r.player.VideoID()
	if vid == "" {
		vid = r.videoID
	}
	return domain.PlaybackSnapshot{
		VideoID:  vid,
		Position: r.player.CurrentTime(),
		State:    r.player.State(),
		Duration: r.player.Duration(),
		Queue:    r.queue.Snapshot(),
	}
}

func (r *Reconciler) startWatchdog() {
	r.stopWatchdog()
	gen := r.watchdogGen

	r.watchdog = r.clock.AfterFunc(r.tuning.WatchdogDelay, func() {
		r.post(func() {
			if gen != r.watchdogGen || !r.player.Ready() {
				return
			}
			state := r.player.State()
			if !state.Stalled() || r.clock.Now().Sub(r.lastUserActionAt) <= r.tuning.WatchdogUserGrace {
				return
			}
			r.logger.Infow("Watchdog forcing playback", "state", state.String(), "video_id", r.videoID)
			r.player.Play()

			r.watchdog = r.clock.AfterFunc(r.tuning.WatchdogRecheck, func() {
				r.post(func() {
					if gen != r.watchdogGen {
						return
					}
					state := r.player.State()
					if state == domain.StateBuffering || state == domain.StateUnstarted {
						r.player.Seek(0, true)
						r.player.Play()
					}
				})
			})
		})
	})
}

func (r *Reconciler) stopWatchdog() {
	r.watchdogGen++
	if r.watchdog != nil {
		r.watchdog.Stop()
		r.watchdog = nil
	}
}

// Stop cancels pending timers.
func (r *Reconciler) Stop() {
	r.stopWatchdog()
}

func (r *Reconciler) after(d time.Duration, f func()) {
	r.clock.AfterFunc(d, func() { r.post(f) })
}

func (r *Reconciler) showSuggestions() {
	r.suggesting = true
	var items []domain.CatalogItem
	if r.suggestions != nil {
		items = r.suggestions.Suggestions(r.videoID)
	}
	r.notify(domain.Notice{Kind: domain.NoticeSuggestions, Data: items})
}

func (r *Reconciler) hideSuggestions() {
	if !r.suggesting {
		return
	}
	r.suggesting = false
	r.notify(domain.Notice{Kind: domain.NoticeSuggestionsHide})
}

func (r *Reconciler) updateTitle() {
	if title := r.player.Title(); title != "" {
		r.notify(domain.Notice{Kind: domain.NoticeTitle, Message: title})
	}
}

func (r *Reconciler) notify(n domain.Notice) {
	if r.notifier != nil {
		r.notifier.Notify(n)
	}
}
