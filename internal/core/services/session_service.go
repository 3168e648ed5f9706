package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/internal/core/protocol"
	"watchparty/pkg/clock"
	"watchparty/pkg/tracing"
	"watchparty/pkg/utils"
	"watchparty/pkg/validation"
)

// localPeer marks messages applied by Broadcast on this peer.
const localPeer domain.PeerID = "local"

const (
	joinTimeoutMessage = "Connection is taking longer than expected. An ad blocker, a firewall or NAT " +
		"restrictions may be blocking the connection, or the host may have left the party."
	electionFailedMessage = "Could not elect new host. Please refresh the page."
	createFailedMessage   = "Could not create the party. Please refresh the page."
	joinFailedMessage     = "Could not join the party (offer failed)."
	selfHostedMessage     = "This party is hosted under your own identity. Join from another profile to take part as a guest."
)

type SessionConfig struct {
	JoinTimeout         time.Duration
	PlayerRetryInterval time.Duration
	PlayerRetryLimit    int
	HeartbeatInterval   time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		JoinTimeout:         15 * time.Second,
		PlayerRetryInterval: 500 * time.Millisecond,
		PlayerRetryLimit:    20,
		HeartbeatInterval:   1500 * time.Millisecond,
	}
}

type SessionDeps struct {
	Self       domain.PeerID
	Store      ports.SignalingStore
	Links      ports.ConnectionManager
	Player     ports.Player
	Catalog    ports.CatalogService
	Invites    InviteService
	Notifier   ports.Notifier
	Metrics    ports.MetricsRecorder
	Clock      clock.Clock
	Dispatcher Dispatcher
	Rand       *rand.Rand
	// Spawn runs one-shot blocking work off the event loop. Defaults to a goroutine.
	Spawn  func(func())
	Logger *zap.SugaredLogger
}

// SessionService owns the party: role, host election, peer links and the
// routing of protocol messages between them and the reconciler.
// Its state lives on the event loop; exported methods are safe to call
// from any goroutine.
type SessionService struct {
	cfg        SessionConfig
	self       domain.PeerID
	store      ports.SignalingStore
	links      ports.ConnectionManager
	player     ports.Player
	catalog    ports.CatalogService
	invites    InviteService
	notifier   ports.Notifier
	metrics    ports.MetricsRecorder
	clock      clock.Clock
	loop       Dispatcher
	spawn      func(func())
	codec      *protocol.Codec
	queue      *QueueService
	reconciler *Reconciler
	election   *ElectionState
	logger     *zap.SugaredLogger

	ctx         context.Context
	partyCtx    context.Context
	partyCancel context.CancelFunc
	watchCancel context.CancelFunc

	name       string
	partyID    domain.PartyID
	role       domain.Role
	hostID     domain.PeerID
	users      domain.UserList
	inviteLink string

	heartbeat    clock.Timer
	heartbeatGen uint64
	joinTimer    clock.Timer
	joinGen      uint64
}

func NewSessionService(cfg SessionConfig, tuning Tuning, deps SessionDeps) *SessionService {
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics
	}
	if deps.Spawn == nil {
		deps.Spawn = func(f func()) { go f() }
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &SessionService{
		cfg:      cfg,
		self:     deps.Self,
		store:    deps.Store,
		links:    deps.Links,
		player:   deps.Player,
		catalog:  deps.Catalog,
		invites:  deps.Invites,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		loop:     deps.Dispatcher,
		spawn:    deps.Spawn,
		codec:    protocol.NewCodec(),
		election: NewElectionState(),
		logger:   deps.Logger,
		ctx:      context.Background(),
		role:     domain.RoleGuest,
		users:    domain.UserList{},
	}

	s.queue = NewQueueService(deps.Rand, deps.Notifier, deps.Metrics, deps.Logger)

	var suggestions SuggestionSource
	if deps.Catalog != nil {
		suggestions = deps.Catalog
	}
	s.reconciler = NewReconciler(ReconcilerDeps{
		Player:      deps.Player,
		Queue:       s.queue,
		Out:         s,
		Notifier:    deps.Notifier,
		Suggestions: suggestions,
		Metrics:     deps.Metrics,
		Clock:       deps.Clock,
		Dispatcher:  deps.Dispatcher,
		Logger:      deps.Logger,
	}, tuning)

	deps.Links.SetEvents(s)
	return s
}

// Start binds background work (store watchers, link negotiation) to ctx.
// Call it before the event loop runs.
func (s *SessionService) Start(ctx context.Context) {
	s.ctx = ctx
}

func (s *SessionService) Self() domain.PeerID { return s.self }

func (s *SessionService) IsHost() bool { return s.role == domain.RoleHost }

func (s *SessionService) Broadcast(env protocol.Envelope) {
	s.dispatch(env, localPeer, 0)
	s.SendToGuests(env)
}

func (s *SessionService) SendToGuests(env protocol.Envelope) {
	data, err := s.codec.Encode(env)
	if err != nil {
		s.logger.Errorw("Failed to encode message", "kind", env.Kind, "error", err)
		return
	}
	for _, link := range s.links.Links() {
		if link.PeerID == domain.HostLinkID || link.Channel != domain.ChannelOpen {
			continue
		}
		if err := s.links.Send(link.PeerID, data); err != nil {
			s.logger.Debugw("Send to guest failed", "peer_id", link.PeerID, "kind", env.Kind, "error", err)
			continue
		}
		s.metrics.RecordMessage(string(env.WireKind()), "out")
	}
}

func (s *SessionService) SendToHost(env protocol.Envelope) {
	if s.IsHost() {
		return
	}
	if err := s.sendTo(domain.HostLinkID, env); err != nil {
		s.logger.Warnw("Host channel not open; cannot send request", "kind", env.WireKind(), "error", err)
	}
}

func (s *SessionService) sendTo(peer domain.PeerID, env protocol.Envelope) error {
	data, err := s.codec.Encode(env)
	if err != nil {
		return err
	}
	if err := s.links.Send(peer, data); err != nil {
		return err
	}
	s.metrics.RecordMessage(string(env.WireKind()), "out")
	return nil
}

func (s *SessionService) OnChannelOpen(peer domain.PeerID) {
	s.loop.Post(func() { s.handleChannelOpen(peer) })
}

func (s *SessionService) OnChannelClose(peer domain.PeerID) {
	s.loop.Post(func() { s.handleChannelClose(peer) })
}

func (s *SessionService) OnMessage(peer domain.PeerID, data []byte) {
	s.loop.Post(func() { s.receive(peer, data) })
}

func (s *SessionService) OnConnectionState(peer domain.PeerID, state domain.ConnectionState) {
	s.loop.Post(func() { s.handleConnectionState(peer, state) })
}

func (s *SessionService) OnPlayerReady() {
	s.loop.Post(func() {
		s.logger.Infow("Player ready", "peer_id", s.self)
	})
}

func (s *SessionService) OnPlayerStateChange(state domain.PlayerState) {
	s.loop.Post(func() { s.reconciler.OnPlayerStateChange(state) })
}

func (s *SessionService) OnPlayerError(code domain.PlayerErrorCode) {
	s.loop.Post(func() { s.reconciler.OnPlayerError(code) })
}

func (s *SessionService) OnUserGesture() {
	s.loop.Post(s.reconciler.OnUserGesture)
}

func (s *SessionService) OnVisibilityChange(hidden bool) {
	s.loop.Post(func() { s.reconciler.SetTabHidden(hidden) })
}

func (s *SessionService) SetName(ctx context.Context, name string) error {
	name = utils.SanitizeString(name)
	if err := validation.ValidateDisplayName(name); err != nil {
		return err
	}
	var err error
	if cerr := call(ctx, s.loop, func() {
		if s.partyID != "" {
			err = domain.ErrAlreadyInParty
			return
		}
		s.name = name
	}); cerr != nil {
		return cerr
	}
	return err
}

func (s *SessionService) CreateParty(ctx context.Context) (domain.PartyID, error) {
	name, err := s.readyToEnter(ctx)
	if err != nil {
		return "", err
	}

	party := &domain.Party{
		ID:        domain.PartyID(utils.NewPartyID()),
		HostID:    s.self,
		CreatedAt: s.clock.Now(),
	}

	ctx, span := tracing.TraceSession(ctx, "create", string(party.ID), string(s.self))
	defer span.End()

	if err := s.store.CreateParty(ctx, party); err != nil {
		tracing.RecordError(ctx, err)
		s.metrics.RecordSignalingError("create_party")
		s.loop.Post(func() { s.alert(createFailedMessage) })
		return "", fmt.Errorf("create party: %w", err)
	}

	if err := call(ctx, s.loop, func() {
		s.enterParty(party.ID)
		s.users = domain.UserList{s.self: {Name: name}}
		s.becomeHost()
	}); err != nil {
		return "", err
	}

	s.logger.Infow("Party created", "party_id", party.ID, "peer_id", s.self)
	return party.ID, nil
}

func (s *SessionService) JoinParty(ctx context.Context, partyID domain.PartyID, invite string) error {
	if err := validation.ValidatePartyID(string(partyID)); err != nil {
		return err
	}
	if invite != "" {
		if s.invites == nil {
			return domain.ErrInvalidInvite
		}
		claims, err := s.invites.Validate(invite)
		if err != nil {
			return err
		}
		if claims.PartyID != partyID {
			return domain.ErrInvalidInvite
		}
	}

	name, err := s.readyToEnter(ctx)
	if err != nil {
		return err
	}

	ctx, span := tracing.TraceSession(ctx, "join", string(partyID), string(s.self))
	defer span.End()

	party, err := s.store.GetParty(ctx, partyID)
	if err != nil {
		tracing.RecordError(ctx, err)
		if !errors.Is(err, domain.ErrPartyNotFound) {
			s.metrics.RecordSignalingError("get_party")
		}
		return fmt.Errorf("join party: %w", err)
	}

	var partyCtx context.Context
	if err := call(ctx, s.loop, func() {
		s.enterParty(partyID)
		s.role = domain.RoleGuest
		s.hostID = party.HostID
		if party.HostID == s.self {
			s.logger.Warnw("Joining a party hosted under our own identity", "party_id", partyID, "peer_id", s.self)
			s.notify(domain.Notice{Kind: domain.NoticeWarning, Message: selfHostedMessage})
		}
		s.notifyStatus()
		partyCtx = s.partyCtx
	}); err != nil {
		return err
	}

	return s.connectToHost(partyCtx, partyID, name)
}

// readyToEnter checks that a name is set and no party is joined yet.
func (s *SessionService) readyToEnter(ctx context.Context) (string, error) {
	var name string
	var joined bool
	if err := call(ctx, s.loop, func() {
		name = s.name
		joined = s.partyID != ""
	}); err != nil {
		return "", err
	}
	if name == "" {
		return "", domain.ErrNameRequired
	}
	if joined {
		return "", domain.ErrAlreadyInParty
	}
	return name, nil
}

func (s *SessionService) enterParty(partyID domain.PartyID) {
	s.partyID = partyID
	s.partyCtx, s.partyCancel = context.WithCancel(s.ctx)
}

// connectToHost runs off the event loop.
func (s *SessionService) connectToHost(ctx context.Context, partyID domain.PartyID, name string) error {
	if err := s.links.Join(ctx, partyID, s.self, name); err != nil {
		s.metrics.RecordSignalingError("join")
		s.logger.Errorw("Failed to join party", "party_id", partyID, "error", err)
		s.loop.Post(func() { s.alert(joinFailedMessage) })
		return fmt.Errorf("join party: %w", err)
	}
	s.loop.Post(s.armJoinTimeout)
	return nil
}

func (s *SessionService) armJoinTimeout() {
	s.cancelJoinTimeout()
	gen := s.joinGen
	s.joinTimer = s.clock.AfterFunc(s.cfg.JoinTimeout, func() {
		s.loop.Post(func() {
			if gen != s.joinGen {
				return
			}
			if link, ok := s.links.Link(domain.HostLinkID); ok && link.Channel == domain.ChannelOpen {
				return
			}
			s.logger.Warnw("Connection timeout, data channel not open", "party_id", s.partyID, "timeout", s.cfg.JoinTimeout)
			s.notify(domain.Notice{Kind: domain.NoticeWarning, Message: joinTimeoutMessage})
		})
	})
}

func (s *SessionService) cancelJoinTimeout() {
	s.joinGen++
	if s.joinTimer != nil {
		s.joinTimer.Stop()
		s.joinTimer = nil
	}
}

func (s *SessionService) becomeHost() {
	s.role = domain.RoleHost
	s.hostID = s.self
	s.startListening()
	s.startHeartbeat()

	if s.invites != nil {
		link, err := s.invites.Link(s.partyID, s.name)
		if err != nil {
			s.logger.Warnw("Failed to build invite link", "party_id", s.partyID, "error", err)
		}
		s.inviteLink = link
	}

	s.notify(domain.Notice{Kind: domain.NoticeRole, Message: string(s.role), Data: s.inviteLink})
	s.notifyStatus()
}

func (s *SessionService) startListening() {
	partyID, ctx := s.partyID, s.partyCtx
	s.spawn(func() {
		if err := s.links.ListenForGuests(ctx, partyID, s.self); err != nil {
			s.metrics.RecordSignalingError("listen")
			s.logger.Errorw("Failed to listen for guests", "party_id", partyID, "error", err)
		}
	})
}

func (s *SessionService) Leave(ctx context.Context) error {
	var err error
	if cerr := call(ctx, s.loop, func() {
		if s.partyID == "" {
			err = domain.ErrNotInParty
			return
		}
		s.logger.Infow("Leaving party", "party_id", s.partyID, "role", s.role)
		if !s.IsHost() {
			s.SendToHost(protocol.New(&protocol.UserLeaving{}))
		}
		s.teardown()
		if s.watchCancel != nil {
			s.watchCancel()
			s.watchCancel = nil
		}
		if s.partyCancel != nil {
			s.partyCancel()
		}
		s.reconciler.Stop()
		s.election.Reset()
		s.partyID = ""
		s.role = domain.RoleGuest
		s.hostID = ""
		s.inviteLink = ""
		s.notifyStatus()
	}); cerr != nil {
		return cerr
	}
	return err
}

// teardown closes every link and stops host duties.
func (s *SessionService) teardown() {
	s.links.StopListening()
	s.links.CloseAll()
	s.users = domain.UserList{}
	s.stopHeartbeat()
	s.cancelJoinTimeout()
}

func (s *SessionService) startHeartbeat() {
	s.stopHeartbeat()
	s.scheduleHeartbeat(s.heartbeatGen)
}

func (s *SessionService) scheduleHeartbeat(gen uint64) {
	s.heartbeat = s.clock.AfterFunc(s.cfg.HeartbeatInterval, func() {
		s.loop.Post(func() {
			if gen != s.heartbeatGen || !s.IsHost() {
				return
			}
			s.reconciler.HeartbeatTick()
			s.scheduleHeartbeat(gen)
		})
	})
}

func (s *SessionService) stopHeartbeat() {
	s.heartbeatGen++
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
}

func (s *SessionService) handleChannelOpen(peer domain.PeerID) {
	s.logger.Infow("Data channel open", "peer_id", peer, "party_id", s.partyID)
	s.election.Reset()
	if peer == domain.HostLinkID {
		s.cancelJoinTimeout()
	}
	s.notifyStatus()

	if !s.IsHost() {
		return
	}

	s.broadcastUsers()
	for _, env := range []protocol.Envelope{
		protocol.New(&protocol.HostInfo{HostID: s.self}),
		protocol.New(&protocol.QueueVisibility{Hidden: s.queue.Hidden()}),
		protocol.New(&protocol.RandomPlayMode{Enabled: s.queue.RandomPlay()}),
	} {
		if err := s.sendTo(peer, env); err != nil {
			s.logger.Warnw("Failed to greet guest", "peer_id", peer, "kind", env.Kind, "error", err)
		}
	}

	snap := s.reconciler.Snapshot()
	if snap.VideoID != "" && snap.State != domain.StateUnstarted {
		initial := protocol.New(&protocol.InitialSync{
			VideoID:  snap.VideoID,
			Time:     snap.Position,
			State:    snap.State,
			Duration: snap.Duration,
			Queue:    snap.Queue,
		})
		if err := s.sendTo(peer, initial); err != nil {
			s.logger.Warnw("Failed to send initial sync", "peer_id", peer, "error", err)
		}
		return
	}
	s.Broadcast(protocol.New(&protocol.QueueUpdate{Queue: s.queue.Snapshot()}))
}

func (s *SessionService) handleChannelClose(peer domain.PeerID) {
	s.logger.Infow("Data channel closed", "peer_id", peer, "party_id", s.partyID)
	if peer == domain.HostLinkID && !s.IsHost() {
		s.hostLost("channel closed")
		return
	}
	s.dropGuest(peer)
}

func (s *SessionService) handleConnectionState(peer domain.PeerID, state domain.ConnectionState) {
	s.metrics.RecordLinkState(state)
	s.notifyStatus()
	if peer == domain.HostLinkID && !s.IsHost() && state.Terminal() {
		s.hostLost("connection " + string(state))
	}
}

// dropGuest forgets a departed guest and tells the others.
func (s *SessionService) dropGuest(peer domain.PeerID) {
	if s.IsHost() && s.partyID != "" {
		partyID, ctx := s.partyID, s.partyCtx
		s.spawn(func() {
			if err := s.store.DeleteGuest(ctx, partyID, peer); err != nil && !errors.Is(err, domain.ErrGuestNotFound) {
				s.metrics.RecordSignalingError("delete_guest")
				s.logger.Errorw("Error removing guest document", "party_id", partyID, "peer_id", peer, "error", err)
			}
		})
	}
	s.links.Evict(peer)
	s.notifyStatus()
	if s.IsHost() {
		s.broadcastUsers()
	}
}

func (s *SessionService) broadcastUsers() {
	users := domain.UserList{s.self: {Name: s.name}}
	for _, link := range s.links.Links() {
		if link.Name != "" {
			users[link.PeerID] = domain.User{Name: link.Name}
		}
	}
	s.Broadcast(protocol.New(&protocol.UserList{Users: users}))
}

// hostLost starts an election after the link to the host died.
func (s *SessionService) hostLost(reason string) {
	if s.partyID == "" || s.IsHost() {
		return
	}
	departed := s.hostID
	if !s.election.Begin(departed) {
		return
	}
	s.logger.Warnw("Connection to host lost, electing new host", "reason", reason, "host_id", departed, "party_id", s.partyID)

	known := s.users.Clone()
	s.teardown()
	s.notifyStatus()

	winner, err := ElectHost(known, departed, s.self)
	if err != nil {
		s.logger.Warnw("Party is empty after host left", "party_id", s.partyID)
		s.metrics.RecordElection("aborted")
		s.election.Abort()
		s.notifyStatus()
		return
	}

	s.logger.Infow("Election determined", "winner", winner, "self", s.self, "candidates", len(known))
	if winner == s.self {
		s.promote(known)
		return
	}
	s.election.Await()
	s.notifyStatus()
	s.awaitNewHost(departed)
}

func (s *SessionService) promote(known domain.UserList) {
	partyID, ctx := s.partyID, s.partyCtx
	s.spawn(func() {
		ctx, span := tracing.TraceSession(ctx, "promote", string(partyID), string(s.self))
		defer span.End()

		err := s.store.ClearGuests(ctx, partyID)
		if err == nil {
			err = s.store.UpdateHost(ctx, partyID, s.self)
		}
		if err != nil {
			tracing.RecordError(ctx, err)
		}
		s.loop.Post(func() { s.completePromotion(partyID, known, err) })
	})
}

func (s *SessionService) completePromotion(partyID domain.PartyID, known domain.UserList, err error) {
	if partyID != s.partyID || s.election.Phase() != domain.ElectionPromoting {
		return
	}
	if err != nil {
		s.logger.Errorw("Error trying to become host", "party_id", partyID, "error", err)
		s.metrics.RecordElection("failed")
		s.election.Abort()
		s.alert(electionFailedMessage)
		s.notifyStatus()
		return
	}

	users := known.Clone()
	delete(users, s.election.LastHost())
	users[s.self] = domain.User{Name: s.name}
	s.users = users
	s.election.Reset()
	s.becomeHost()
	s.metrics.RecordElection("promoted")
	s.logger.Infow("Became the new host", "party_id", partyID, "peer_id", s.self)

	s.Broadcast(protocol.New(&protocol.UserList{Users: users}))
}

// awaitNewHost watches the party record until a survivor other than the
// departed host claims it.
func (s *SessionService) awaitNewHost(departed domain.PeerID) {
	ctx, cancel := context.WithCancel(s.partyCtx)
	s.watchCancel = cancel
	partyID := s.partyID

	go func() {
		updates, err := s.store.WatchParty(ctx, partyID)
		if err != nil {
			s.logger.Errorw("Failed to watch party for new host", "party_id", partyID, "error", err)
			s.loop.Post(func() {
				s.election.Abort()
				s.notifyStatus()
			})
			return
		}
		for party := range updates {
			host := party.HostID
			if host == "" || host == s.self || host == departed {
				continue
			}
			s.loop.Post(func() { s.adoptHost(partyID, host) })
			return
		}
	}()
}

func (s *SessionService) adoptHost(partyID domain.PartyID, host domain.PeerID) {
	if partyID != s.partyID || s.election.Phase() != domain.ElectionAwaitingHost {
		return
	}
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	s.logger.Infow("New host detected, reconnecting", "host_id", host, "party_id", partyID)
	s.metrics.RecordElection("adopted")
	s.hostID = host
	s.election.Reset()
	s.notifyStatus()

	ctx, name := s.partyCtx, s.name
	s.spawn(func() {
		_ = s.connectToHost(ctx, partyID, name)
	})
}

func (s *SessionService) receive(from domain.PeerID, data []byte) {
	env, err := s.codec.Decode(data)
	if err != nil {
		s.metrics.RecordDecodeError()
		s.logger.Warnw("Bad message", "peer_id", from, "error", err)
		return
	}
	s.metrics.RecordMessage(string(env.WireKind()), "in")
	s.dispatch(env, from, 0)
}

func (s *SessionService) dispatch(env protocol.Envelope, from domain.PeerID, attempt int) {
	if env.Kind.NeedsPlayer() && !s.player.Ready() {
		if attempt < s.cfg.PlayerRetryLimit {
			if attempt%5 == 0 {
				s.logger.Infow("Waiting for player", "kind", env.WireKind(), "attempt", attempt, "limit", s.cfg.PlayerRetryLimit)
			}
			s.clock.AfterFunc(s.cfg.PlayerRetryInterval, func() {
				s.loop.Post(func() { s.dispatch(env, from, attempt+1) })
			})
			return
		}
		s.logger.Errorw("Player failed to initialize, dropping message", "kind", env.WireKind(),
			"waited", time.Duration(s.cfg.PlayerRetryLimit)*s.cfg.PlayerRetryInterval)
		return
	}

	if env.Request {
		if s.IsHost() {
			s.Broadcast(env.Resolved())
		}
		return
	}

	switch p := env.Payload.(type) {
	case *protocol.HostInfo:
		s.hostID = p.HostID
	case *protocol.UserList:
		s.users = p.Users.Clone()
		s.notify(domain.Notice{Kind: domain.NoticeUsers, Data: s.users.Clone()})
	case *protocol.UserLeaving:
		if s.IsHost() && from != localPeer {
			if _, ok := s.links.Link(from); ok {
				s.dropGuest(from)
			}
		}
	default:
		s.reconciler.Apply(env)
	}
}

// intent runs a locally originated action on the event loop.
func (s *SessionService) intent(ctx context.Context, fn func() error) error {
	var err error
	if cerr := call(ctx, s.loop, func() {
		if s.partyID == "" {
			err = domain.ErrNotInParty
			return
		}
		err = fn()
	}); cerr != nil {
		return cerr
	}
	return err
}

func (s *SessionService) PlayVideo(ctx context.Context, videoID string) error {
	videoID = strings.TrimSpace(videoID)
	if id, ok := validation.ExtractVideoID(videoID); ok {
		videoID = id
	}
	if videoID == "" {
		return fmt.Errorf("video id is required")
	}
	return s.intent(ctx, func() error {
		s.reconciler.Intent(protocol.New(&protocol.NewVideo{VideoID: videoID, AutoPlay: true}))
		return nil
	})
}

func (s *SessionService) AddToQueue(ctx context.Context, entry domain.QueueEntry) error {
	if entry.VideoID == "" {
		return fmt.Errorf("video id is required")
	}
	return s.intent(ctx, func() error {
		s.reconciler.Intent(protocol.New(&protocol.AddToQueue{Video: entry}))
		return nil
	})
}

func (s *SessionService) PlayFromQueue(ctx context.Context, index int) error {
	return s.intent(ctx, func() error {
		s.reconciler.Intent(protocol.New(&protocol.PlayFromQueue{Index: index}))
		return nil
	})
}

func (s *SessionService) RemoveFromQueue(ctx context.Context, index int) error {
	return s.intent(ctx, func() error {
		s.reconciler.Intent(protocol.New(&protocol.RemoveFromQueue{Index: index}))
		return nil
	})
}

func (s *SessionService) ShuffleQueue(ctx context.Context) error {
	return s.intent(ctx, func() error {
		if s.queue.Len() < 2 {
			return nil
		}
		s.reconciler.Intent(protocol.New(&protocol.ShuffleQueue{}))
		return nil
	})
}

func (s *SessionService) ToggleQueueVisibility(ctx context.Context) error {
	return s.intent(ctx, func() error {
		if !s.IsHost() {
			return domain.ErrNotHost
		}
		s.reconciler.Intent(protocol.New(&protocol.ToggleQueueVisibility{}))
		return nil
	})
}

func (s *SessionService) ToggleRandomPlay(ctx context.Context) error {
	return s.intent(ctx, func() error {
		if !s.IsHost() {
			return domain.ErrNotHost
		}
		s.reconciler.Intent(protocol.New(&protocol.ToggleRandomPlay{}))
		return nil
	})
}

func (s *SessionService) Replay(ctx context.Context) error {
	return s.intent(ctx, func() error {
		s.reconciler.Replay()
		return nil
	})
}

// LoadPlaylist queues a playlist. With playFirst the first video starts
// immediately and the rest are queued.
func (s *SessionService) LoadPlaylist(ctx context.Context, playlistID string, playFirst bool) (int, error) {
	if s.catalog == nil {
		return 0, fmt.Errorf("catalog not configured")
	}
	entries, err := s.catalog.Playlist(ctx, playlistID)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, domain.ErrEmptyPlaylist
	}

	err = s.intent(ctx, func() error {
		rest := entries
		if playFirst {
			s.reconciler.Intent(protocol.New(&protocol.NewVideo{VideoID: entries[0].VideoID, AutoPlay: true}))
			rest = entries[1:]
		}
		for _, entry := range rest {
			s.reconciler.Intent(protocol.New(&protocol.AddToQueue{Video: entry}))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *SessionService) Status(ctx context.Context) (ports.PartyStatus, error) {
	var st ports.PartyStatus
	err := call(ctx, s.loop, func() { st = s.status() })
	return st, err
}

func (s *SessionService) status() ports.PartyStatus {
	links := s.links.Links()
	return ports.PartyStatus{
		PartyID:     s.partyID,
		Self:        s.self,
		Name:        s.name,
		Role:        s.role,
		HostID:      s.hostID,
		Status:      deriveStatus(s.partyID != "", s.role, s.election.Phase(), links),
		Election:    s.election.Phase(),
		Users:       s.users.Clone(),
		Links:       links,
		VideoID:     s.reconciler.VideoID(),
		Queue:       s.queue.Snapshot(),
		QueueHidden: s.queue.Hidden(),
		RandomPlay:  s.queue.RandomPlay(),
		InviteLink:  s.inviteLink,
	}
}

// deriveStatus summarizes the link table for the UI.
func deriveStatus(inParty bool, role domain.Role, phase domain.ElectionPhase, links []ports.LinkInfo) domain.ConnectionStatus {
	if !inParty {
		return domain.StatusDisconnected
	}
	if phase == domain.ElectionPromoting || phase == domain.ElectionAwaitingHost {
		return domain.StatusElecting
	}
	if role == domain.RoleHost && len(links) == 0 {
		return domain.StatusWaiting
	}
	for _, l := range links {
		if l.Connection == domain.ConnectionConnected {
			return domain.StatusConnected
		}
	}
	if role == domain.RoleGuest {
		for _, l := range links {
			if l.Connection == domain.ConnectionNew || l.Connection == domain.ConnectionConnecting {
				return domain.StatusConnecting
			}
		}
	}
	return domain.StatusDisconnected
}

func (s *SessionService) notifyStatus() {
	status := deriveStatus(s.partyID != "", s.role, s.election.Phase(), s.links.Links())
	s.notify(domain.Notice{Kind: domain.NoticeStatus, Message: string(status)})
}

func (s *SessionService) alert(message string) {
	s.notify(domain.Notice{Kind: domain.NoticeAlert, Message: message})
}

func (s *SessionService) notify(n domain.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
}
