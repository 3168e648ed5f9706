package webrtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/pkg/clock"
	"watchparty/pkg/tracing"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// DataChannelLabel names the single ordered channel every link carries.
const DataChannelLabel = "sync-channel"

// Config WebRTC configuration
type Config struct {
	ICEServers           []webrtc.ICEServer
	ICECandidatePoolSize uint8
	PortRange            struct {
		Min uint16
		Max uint16
	}
	DisconnectGrace     time.Duration
	CandidateBatchDelay time.Duration
	RestartCooldown     time.Duration
	RestartLimit        int
}

// DefaultICEServers are public STUN servers plus a shared TURN relay.
func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{URLs: []string{
			"stun:stun.l.google.com:19302",
			"stun:stun1.l.google.com:19302",
			"stun:stun2.l.google.com:19302",
		}},
		{
			URLs: []string{
				"turn:openrelay.metered.ca:80",
				"turn:openrelay.metered.ca:443",
				"turn:openrelay.metered.ca:443?transport=tcp",
			},
			Username:   "openrelayproject",
			Credential: "openrelayproject",
		},
	}
}

func DefaultConfig() Config {
	return Config{
		ICEServers:           DefaultICEServers(),
		ICECandidatePoolSize: 2,
		DisconnectGrace:      2 * time.Second,
		CandidateBatchDelay:  100 * time.Millisecond,
		RestartCooldown:      10 * time.Second,
		RestartLimit:         5,
	}
}

// ConnectionManager owns the peer links of one participant. A guest holds a
// single link keyed by domain.HostLinkID; a host holds one link per guest.
type ConnectionManager struct {
	config  Config
	api     *webrtc.API
	store   ports.SignalingStore
	clock   clock.Clock
	metrics ports.MetricsRecorder
	batcher *CandidateBatcher

	mu           sync.Mutex
	links        map[domain.PeerID]*peerLink
	events       ports.LinkEvents
	listenCancel context.CancelFunc

	logger *zap.SugaredLogger
}

type peerLink struct {
	id      domain.PeerID
	partyID domain.PartyID
	// guestID names the signaling document the link negotiates through.
	guestID domain.PeerID
	name    string
	isGuest bool
	pc      *webrtc.PeerConnection
	cancel  context.CancelFunc
	restart *RestartPolicy

	mu              sync.Mutex
	dc              *webrtc.DataChannel
	connState       domain.ConnectionState
	chanState       domain.ChannelState
	iceState        webrtc.ICEConnectionState
	answerApplying  bool
	lastAnswer      string
	remoteSet       bool
	pending         []webrtc.ICECandidateInit
	restartedAt     time.Time
	disconnectTimer clock.Timer
}

func NewConnectionManager(
	config Config,
	store ports.SignalingStore,
	clk clock.Clock,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) *ConnectionManager {
	settingEngine := webrtc.SettingEngine{}
	if config.PortRange.Min > 0 && config.PortRange.Max > 0 {
		if err := settingEngine.SetEphemeralUDPPortRange(config.PortRange.Min, config.PortRange.Max); err != nil {
			logger.Warnw("invalid UDP port range, using ephemeral ports", "error", err)
		}
	}
	if metrics == nil {
		metrics = ports.NopMetrics
	}

	return &ConnectionManager{
		config:  config,
		api:     webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine)),
		store:   store,
		clock:   clk,
		metrics: metrics,
		batcher: NewCandidateBatcher(store, config.CandidateBatchDelay, clk, metrics, logger),
		links:   make(map[domain.PeerID]*peerLink),
		logger:  logger,
	}
}

func (m *ConnectionManager) SetEvents(events ports.LinkEvents) {
	m.mu.Lock()
	m.events = events
	m.mu.Unlock()
}

func (m *ConnectionManager) createPeerConnection() (*webrtc.PeerConnection, error) {
	return m.api.NewPeerConnection(webrtc.Configuration{
		ICEServers:           m.config.ICEServers,
		ICECandidatePoolSize: m.config.ICECandidatePoolSize,
	})
}

// Join opens the guest link: it publishes an offer under the guest document,
// then applies the host's answer and candidates as they appear.
func (m *ConnectionManager) Join(ctx context.Context, partyID domain.PartyID, self domain.PeerID, name string) error {
	spanCtx, span := tracing.TraceWebRTC(ctx, "join", string(self), string(partyID))
	defer span.End()

	pc, err := m.createPeerConnection()
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}

	linkCtx, cancel := context.WithCancel(ctx)
	link := &peerLink{
		id:        domain.HostLinkID,
		partyID:   partyID,
		guestID:   self,
		name:      name,
		isGuest:   true,
		pc:        pc,
		cancel:    cancel,
		restart:   NewRestartPolicy(m.config.RestartCooldown, m.config.RestartLimit, m.clock),
		connState: domain.ConnectionNew,
		chanState: domain.ChannelConnecting,
	}
	if !m.insert(link) {
		cancel()
		_ = pc.Close()
		return domain.ErrLinkExists
	}

	ordered := true
	dc, err := pc.CreateDataChannel(DataChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		m.drop(link)
		return fmt.Errorf("failed to create data channel: %w", err)
	}
	m.attachChannel(link, dc)
	m.observe(link)
	pc.OnICECandidate(m.candidateHandler(link, domain.GuestCandidates))

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		m.drop(link)
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		m.drop(link)
		return fmt.Errorf("failed to set local description: %w", err)
	}

	record := &domain.GuestRecord{ID: self, Name: name, Offer: toDomainSDP(offer)}
	if err := m.store.PutGuest(spanCtx, partyID, record); err != nil {
		tracing.RecordError(spanCtx, err)
		m.drop(link)
		return fmt.Errorf("failed to publish offer: %w", err)
	}

	answers, err := m.store.WatchGuest(linkCtx, partyID, self)
	if err != nil {
		m.drop(link)
		return fmt.Errorf("failed to watch guest record: %w", err)
	}
	candidates, err := m.store.WatchCandidates(linkCtx, partyID, self, domain.HostCandidates)
	if err != nil {
		m.drop(link)
		return fmt.Errorf("failed to watch host candidates: %w", err)
	}

	go func() {
		for rec := range answers {
			m.applyAnswer(link, rec)
		}
	}()
	go m.consumeCandidates(link, candidates)

	m.logger.Infow("offer published, waiting for host answer",
		"party_id", partyID,
		"peer_id", self,
	)
	return nil
}

// applyAnswer sets the host answer once per negotiation round.
func (m *ConnectionManager) applyAnswer(link *peerLink, rec domain.GuestRecord) {
	if rec.Answer == nil {
		return
	}

	link.mu.Lock()
	if link.answerApplying || rec.Answer.SDP == link.lastAnswer {
		link.mu.Unlock()
		return
	}
	if link.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		link.mu.Unlock()
		return
	}
	link.answerApplying = true
	link.mu.Unlock()

	err := link.pc.SetRemoteDescription(toWebRTCSDP(*rec.Answer))

	link.mu.Lock()
	link.answerApplying = false
	if err == nil {
		link.lastAnswer = rec.Answer.SDP
	}
	link.mu.Unlock()

	if err != nil {
		m.metrics.RecordSignalingError("apply_answer")
		m.logger.Errorw("failed to apply host answer",
			"party_id", link.partyID,
			"error", err,
		)
		return
	}

	m.logger.Infow("host answer applied", "party_id", link.partyID)
	m.flushRemoteCandidates(link)
}

// ListenForGuests answers every guest that publishes an offer under partyID.
func (m *ConnectionManager) ListenForGuests(ctx context.Context, partyID domain.PartyID, self domain.PeerID) error {
	listenCtx, cancel := context.WithCancel(ctx)
	changes, err := m.store.WatchGuests(listenCtx, partyID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to watch guests: %w", err)
	}

	m.mu.Lock()
	if m.listenCancel != nil {
		m.listenCancel()
	}
	m.listenCancel = cancel
	m.mu.Unlock()

	m.logger.Infow("listening for guests", "party_id", partyID, "peer_id", self)

	go func() {
		for change := range changes {
			m.handleGuestChange(listenCtx, partyID, self, change)
		}
	}()
	return nil
}

func (m *ConnectionManager) StopListening() {
	m.mu.Lock()
	cancel := m.listenCancel
	m.listenCancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (m *ConnectionManager) handleGuestChange(ctx context.Context, partyID domain.PartyID, self domain.PeerID, change domain.GuestChange) {
	guest := change.Guest
	if guest.ID == self {
		m.logger.Warnw("ignoring guest record with the host identity",
			"party_id", partyID,
			"peer_id", self,
		)
		return
	}

	existing, exists := m.lookup(guest.ID)

	switch change.Type {
	case domain.ChangeAdded:
		if exists || guest.Offer == nil {
			return
		}
		m.acceptGuest(ctx, partyID, guest)

	case domain.ChangeModified:
		if guest.Offer == nil {
			return
		}
		if !exists {
			// a guest re-offering to a newly promoted host
			if guest.Answer == nil {
				m.acceptGuest(ctx, partyID, guest)
			}
			return
		}
		m.reanswer(ctx, existing, guest)

	case domain.ChangeRemoved:
		m.logger.Debugw("guest record removed", "party_id", partyID, "guest_id", guest.ID)
	}
}

func (m *ConnectionManager) acceptGuest(ctx context.Context, partyID domain.PartyID, guest domain.GuestRecord) {
	spanCtx, span := tracing.TraceWebRTC(ctx, "accept_guest", string(guest.ID), string(partyID))
	defer span.End()

	if err := m.answerGuest(spanCtx, partyID, guest); err != nil {
		tracing.RecordError(spanCtx, err)
		m.metrics.RecordSignalingError("accept_guest")
		m.logger.Errorw("failed to accept guest",
			"party_id", partyID,
			"guest_id", guest.ID,
			"error", err,
		)
	}
}

func (m *ConnectionManager) answerGuest(ctx context.Context, partyID domain.PartyID, guest domain.GuestRecord) error {
	pc, err := m.createPeerConnection()
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}

	linkCtx, cancel := context.WithCancel(ctx)
	link := &peerLink{
		id:          guest.ID,
		partyID:     partyID,
		guestID:     guest.ID,
		name:        guest.Name,
		pc:          pc,
		cancel:      cancel,
		connState:   domain.ConnectionNew,
		chanState:   domain.ChannelConnecting,
		restartedAt: guest.RestartedAt,
	}
	if !m.insert(link) {
		cancel()
		_ = pc.Close()
		return nil
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != DataChannelLabel {
			return
		}
		m.attachChannel(link, dc)
	})
	m.observe(link)
	pc.OnICECandidate(m.candidateHandler(link, domain.HostCandidates))

	if err := m.negotiateAnswer(ctx, link, *guest.Offer); err != nil {
		m.drop(link)
		return err
	}

	candidates, err := m.store.WatchCandidates(linkCtx, partyID, guest.ID, domain.GuestCandidates)
	if err != nil {
		m.drop(link)
		return fmt.Errorf("failed to watch guest candidates: %w", err)
	}
	go m.consumeCandidates(link, candidates)

	m.logger.Infow("answered guest offer",
		"party_id", partyID,
		"guest_id", guest.ID,
		"name", guest.Name,
	)
	return nil
}

// reanswer handles a guest's ICE restart offer.
func (m *ConnectionManager) reanswer(ctx context.Context, link *peerLink, guest domain.GuestRecord) {
	link.mu.Lock()
	fresh := guest.RestartedAt.After(link.restartedAt)
	if fresh {
		link.restartedAt = guest.RestartedAt
	}
	link.mu.Unlock()

	if !fresh || link.pc.SignalingState() == webrtc.SignalingStateHaveRemoteOffer {
		return
	}

	if err := m.negotiateAnswer(ctx, link, *guest.Offer); err != nil {
		m.metrics.RecordSignalingError("reanswer")
		m.logger.Errorw("failed to answer restart offer",
			"party_id", link.partyID,
			"guest_id", link.guestID,
			"error", err,
		)
		return
	}
	m.logger.Infow("answered ICE restart offer", "party_id", link.partyID, "guest_id", link.guestID)
}

func (m *ConnectionManager) negotiateAnswer(ctx context.Context, link *peerLink, offer domain.SessionDescription) error {
	pc := link.pc
	if err := pc.SetRemoteDescription(toWebRTCSDP(offer)); err != nil {
		return fmt.Errorf("failed to set remote offer: %w", err)
	}
	m.flushRemoteCandidates(link)

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}
	if err := m.store.SetGuestAnswer(ctx, link.partyID, link.guestID, *toDomainSDP(answer)); err != nil {
		return fmt.Errorf("failed to publish answer: %w", err)
	}
	return nil
}

func (m *ConnectionManager) candidateHandler(link *peerLink, dir domain.CandidateDirection) func(*webrtc.ICECandidate) {
	return func(c *webrtc.ICECandidate) {
		// nil marks the end of gathering
		if c == nil {
			return
		}
		m.batcher.Add(link.partyID, link.guestID, dir, fromICECandidate(c.ToJSON()))
	}
}

func (m *ConnectionManager) consumeCandidates(link *peerLink, candidates <-chan domain.Candidate) {
	for c := range candidates {
		m.addRemoteCandidate(link, toICECandidate(c))
	}
}

// addRemoteCandidate applies c now if a remote description exists, otherwise
// buffers it until one is set.
func (m *ConnectionManager) addRemoteCandidate(link *peerLink, c webrtc.ICECandidateInit) {
	link.mu.Lock()
	if !link.remoteSet && link.pc.RemoteDescription() == nil {
		link.pending = append(link.pending, c)
		link.mu.Unlock()
		return
	}
	link.mu.Unlock()

	if err := link.pc.AddICECandidate(c); err != nil {
		m.logger.Warnw("failed to add remote candidate",
			"party_id", link.partyID,
			"peer_id", link.id,
			"error", err,
		)
	}
}

func (m *ConnectionManager) flushRemoteCandidates(link *peerLink) {
	link.mu.Lock()
	link.remoteSet = true
	pending := link.pending
	link.pending = nil
	link.mu.Unlock()

	for _, c := range pending {
		if err := link.pc.AddICECandidate(c); err != nil {
			m.logger.Warnw("failed to add buffered candidate",
				"party_id", link.partyID,
				"peer_id", link.id,
				"error", err,
			)
		}
	}
}

func (m *ConnectionManager) attachChannel(link *peerLink, dc *webrtc.DataChannel) {
	link.mu.Lock()
	link.dc = dc
	link.mu.Unlock()

	dc.OnOpen(func() {
		link.mu.Lock()
		link.chanState = domain.ChannelOpen
		link.mu.Unlock()
		m.logger.Infow("data channel open", "party_id", link.partyID, "peer_id", link.id)
		m.emit(link, func(ev ports.LinkEvents) { ev.OnChannelOpen(link.id) })
	})
	dc.OnClose(func() {
		link.mu.Lock()
		link.chanState = domain.ChannelClosed
		link.mu.Unlock()
		m.logger.Infow("data channel closed", "party_id", link.partyID, "peer_id", link.id)
		m.emit(link, func(ev ports.LinkEvents) { ev.OnChannelClose(link.id) })
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		m.emit(link, func(ev ports.LinkEvents) { ev.OnMessage(link.id, msg.Data) })
	})
}

func (m *ConnectionManager) observe(link *peerLink) {
	link.pc.OnConnectionStateChange(m.handleConnectionState(link))
	link.pc.OnICEConnectionStateChange(m.handleICEConnectionState(link))
}

// handleConnectionState handles peer connection state changes
func (m *ConnectionManager) handleConnectionState(link *peerLink) func(webrtc.PeerConnectionState) {
	return func(state webrtc.PeerConnectionState) {
		cs := toConnectionState(state)
		link.mu.Lock()
		link.connState = cs
		link.mu.Unlock()

		m.logger.Infow("peer connection state changed",
			"party_id", link.partyID,
			"peer_id", link.id,
			"state", cs,
		)
		m.metrics.RecordLinkState(cs)
		m.emit(link, func(ev ports.LinkEvents) { ev.OnConnectionState(link.id, cs) })

		if cs == domain.ConnectionFailed && link.isGuest {
			go m.restartICE(link)
		}
	}
}

// handleICEConnectionState handles ICE connection state changes
func (m *ConnectionManager) handleICEConnectionState(link *peerLink) func(webrtc.ICEConnectionState) {
	return func(state webrtc.ICEConnectionState) {
		link.mu.Lock()
		link.iceState = state
		link.mu.Unlock()

		switch state {
		case webrtc.ICEConnectionStateDisconnected:
			if link.isGuest {
				m.armDisconnectGrace(link)
			}
		case webrtc.ICEConnectionStateFailed:
			m.logger.Warnw("ICE failed, a TURN relay may be required",
				"party_id", link.partyID,
				"peer_id", link.id,
			)
		case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
			m.stopDisconnectGrace(link)
			if link.restart != nil {
				link.restart.Reset()
			}
		}
	}
}

func (m *ConnectionManager) armDisconnectGrace(link *peerLink) {
	link.mu.Lock()
	defer link.mu.Unlock()
	if link.disconnectTimer != nil {
		link.disconnectTimer.Stop()
	}
	link.disconnectTimer = m.clock.AfterFunc(m.config.DisconnectGrace, func() {
		link.mu.Lock()
		still := link.iceState == webrtc.ICEConnectionStateDisconnected
		link.disconnectTimer = nil
		link.mu.Unlock()
		if still {
			m.restartICE(link)
		}
	})
}

func (m *ConnectionManager) stopDisconnectGrace(link *peerLink) {
	link.mu.Lock()
	defer link.mu.Unlock()
	if link.disconnectTimer != nil {
		link.disconnectTimer.Stop()
		link.disconnectTimer = nil
	}
}

// restartICE renegotiates the guest link with a fresh ICE offer.
func (m *ConnectionManager) restartICE(link *peerLink) {
	if !link.isGuest || !m.owns(link) {
		return
	}
	if link.pc.SignalingState() == webrtc.SignalingStateClosed {
		return
	}

	attempt, err := link.restart.Begin()
	if err != nil {
		if errors.Is(err, ErrRestartLimit) {
			m.metrics.RecordICERestart("exhausted")
			m.logger.Warnw("ICE restart limit reached", "party_id", link.partyID, "attempts", attempt)
		}
		return
	}
	defer link.restart.Done()

	m.logger.Infow("attempting ICE restart", "party_id", link.partyID, "attempt", attempt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	offer, err := link.pc.CreateOffer(&webrtc.OfferOptions{ICERestart: true})
	if err == nil {
		err = link.pc.SetLocalDescription(offer)
	}
	if err == nil {
		link.mu.Lock()
		link.answerApplying = false
		link.mu.Unlock()
		err = m.store.RestartGuestOffer(ctx, link.partyID, link.guestID, *toDomainSDP(offer))
	}
	if err != nil {
		m.metrics.RecordICERestart("failed")
		m.logger.Errorw("ICE restart failed", "party_id", link.partyID, "attempt", attempt, "error", err)
		return
	}
	m.metrics.RecordICERestart("offered")
}

func (m *ConnectionManager) insert(link *peerLink) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.links[link.id]; exists {
		return false
	}
	m.links[link.id] = link
	return true
}

func (m *ConnectionManager) lookup(id domain.PeerID) (*peerLink, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[id]
	return link, ok
}

func (m *ConnectionManager) owns(link *peerLink) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[link.id] == link
}

// emit forwards an event unless link has since been evicted or replaced.
func (m *ConnectionManager) emit(link *peerLink, fn func(ports.LinkEvents)) {
	m.mu.Lock()
	events := m.events
	current := m.links[link.id] == link
	m.mu.Unlock()

	if current && events != nil {
		fn(events)
	}
}

// drop removes link from the table and releases it.
func (m *ConnectionManager) drop(link *peerLink) {
	m.mu.Lock()
	if m.links[link.id] == link {
		delete(m.links, link.id)
	}
	m.mu.Unlock()
	m.release(link)
}

func (m *ConnectionManager) release(link *peerLink) {
	link.cancel()
	m.stopDisconnectGrace(link)
	if err := link.pc.Close(); err != nil {
		m.logger.Warnw("failed to close peer connection", "peer_id", link.id, "error", err)
	}
}

func (m *ConnectionManager) Link(peer domain.PeerID) (ports.LinkInfo, bool) {
	link, ok := m.lookup(peer)
	if !ok {
		return ports.LinkInfo{}, false
	}
	return link.info(), true
}

func (m *ConnectionManager) Links() []ports.LinkInfo {
	m.mu.Lock()
	links := make([]*peerLink, 0, len(m.links))
	for _, link := range m.links {
		links = append(links, link)
	}
	m.mu.Unlock()

	infos := make([]ports.LinkInfo, 0, len(links))
	for _, link := range links {
		infos = append(infos, link.info())
	}
	return infos
}

func (m *ConnectionManager) Send(peer domain.PeerID, data []byte) error {
	link, ok := m.lookup(peer)
	if !ok {
		return domain.ErrLinkNotFound
	}

	link.mu.Lock()
	dc := link.dc
	link.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return domain.ErrChannelNotOpen
	}
	return dc.SendText(string(data))
}

func (m *ConnectionManager) Evict(peer domain.PeerID) {
	m.mu.Lock()
	link, ok := m.links[peer]
	if ok {
		delete(m.links, peer)
	}
	m.mu.Unlock()

	if ok {
		m.logger.Infow("evicting peer link", "party_id", link.partyID, "peer_id", peer)
		m.release(link)
	}
}

func (m *ConnectionManager) CloseAll() {
	m.mu.Lock()
	links := m.links
	m.links = make(map[domain.PeerID]*peerLink)
	m.mu.Unlock()

	for _, link := range links {
		m.release(link)
	}
}

// Close releases every link and flushes pending candidates.
func (m *ConnectionManager) Close() {
	m.StopListening()
	m.CloseAll()
	m.batcher.Close()
}

func (l *peerLink) info() ports.LinkInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ports.LinkInfo{
		PeerID:     l.id,
		Name:       l.name,
		Connection: l.connState,
		Channel:    l.chanState,
	}
}

func toConnectionState(state webrtc.PeerConnectionState) domain.ConnectionState {
	switch state {
	case webrtc.PeerConnectionStateConnecting:
		return domain.ConnectionConnecting
	case webrtc.PeerConnectionStateConnected:
		return domain.ConnectionConnected
	case webrtc.PeerConnectionStateDisconnected:
		return domain.ConnectionDisconnected
	case webrtc.PeerConnectionStateFailed:
		return domain.ConnectionFailed
	case webrtc.PeerConnectionStateClosed:
		return domain.ConnectionClosed
	default:
		return domain.ConnectionNew
	}
}

func toDomainSDP(sd webrtc.SessionDescription) *domain.SessionDescription {
	return &domain.SessionDescription{Type: sd.Type.String(), SDP: sd.SDP}
}

func toWebRTCSDP(sd domain.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(sd.Type), SDP: sd.SDP}
}

func fromICECandidate(c webrtc.ICECandidateInit) domain.Candidate {
	return domain.Candidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

func toICECandidate(c domain.Candidate) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}
