package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/internal/core/protocol"
)

var testEpoch = time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC)

// fakePlayer records commands. Play and Pause do not change State; tests
// drive state transitions explicitly.
type fakePlayer struct {
	mu       sync.Mutex
	ready    bool
	videoID  string
	title    string
	time     float64
	duration float64
	state    domain.PlayerState
	calls    []string
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{ready: true, state: domain.StateUnstarted}
}

func (p *fakePlayer) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakePlayer) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *fakePlayer) Load(videoID string, start float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("load:" + videoID)
	p.videoID = videoID
	p.time = start
	p.state = domain.StateUnstarted
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("play")
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("pause")
}

func (p *fakePlayer) Seek(seconds float64, allowSeekAhead bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(fmt.Sprintf("seek:%g", seconds))
	p.time = seconds
}

func (p *fakePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.time
}

func (p *fakePlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *fakePlayer) State() domain.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePlayer) VideoID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoID
}

func (p *fakePlayer) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

func (p *fakePlayer) set(fn func(p *fakePlayer)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePlayer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (n *noticeRecorder) Notify(notice domain.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *noticeRecorder) Of(kind domain.NoticeKind) []domain.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Notice
	for _, notice := range n.notices {
		if notice.Kind == kind {
			out = append(out, notice)
		}
	}
	return out
}

// recordingOutbox logs routed envelopes as "route:KIND" in order.
// Broadcast applies locally through apply when set.
type recordingOutbox struct {
	host  bool
	apply func(protocol.Envelope)
	log   []string
	envs  []protocol.Envelope
}

func (o *recordingOutbox) IsHost() bool { return o.host }

func (o *recordingOutbox) Broadcast(env protocol.Envelope) {
	if o.apply != nil {
		o.apply(env)
	}
	o.add("broadcast", env)
}

func (o *recordingOutbox) SendToGuests(env protocol.Envelope) { o.add("guests", env) }

func (o *recordingOutbox) SendToHost(env protocol.Envelope) { o.add("host", env) }

func (o *recordingOutbox) add(route string, env protocol.Envelope) {
	o.log = append(o.log, route+":"+string(env.WireKind()))
	o.envs = append(o.envs, env)
}

func (o *recordingOutbox) reset() {
	o.log = nil
	o.envs = nil
}

func (o *recordingOutbox) count(entry string) int {
	n := 0
	for _, l := range o.log {
		if l == entry {
			n++
		}
	}
	return n
}

type sentMessage struct {
	peer domain.PeerID
	env  protocol.Envelope
}

// fakeLinks is an in-memory ConnectionManager. Tests open and close links
// and inject events through the registered LinkEvents.
type fakeLinks struct {
	mu        sync.Mutex
	events    ports.LinkEvents
	links     map[domain.PeerID]ports.LinkInfo
	sent      []sentMessage
	joins     []domain.PartyID
	listens   int
	stops     int
	closeAlls int
	evicted   []domain.PeerID
	joinErr   error
	codec     *protocol.Codec
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{links: map[domain.PeerID]ports.LinkInfo{}, codec: protocol.NewCodec()}
}

func (f *fakeLinks) SetEvents(events ports.LinkEvents) { f.events = events }

func (f *fakeLinks) Join(ctx context.Context, partyID domain.PartyID, self domain.PeerID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joins = append(f.joins, partyID)
	f.links[domain.HostLinkID] = ports.LinkInfo{
		PeerID:     domain.HostLinkID,
		Connection: domain.ConnectionConnecting,
		Channel:    domain.ChannelConnecting,
	}
	return nil
}

func (f *fakeLinks) ListenForGuests(ctx context.Context, partyID domain.PartyID, self domain.PeerID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listens++
	return nil
}

func (f *fakeLinks) StopListening() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeLinks) Link(peer domain.PeerID) (ports.LinkInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[peer]
	return l, ok
}

func (f *fakeLinks) Links() []ports.LinkInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.LinkInfo, 0, len(f.links))
	for _, l := range f.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeerID < out[j].PeerID })
	return out
}

func (f *fakeLinks) Send(peer domain.PeerID, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[peer]
	if !ok {
		return domain.ErrLinkNotFound
	}
	if l.Channel != domain.ChannelOpen {
		return domain.ErrChannelNotOpen
	}
	env, err := f.codec.Decode(data)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{peer: peer, env: env})
	return nil
}

func (f *fakeLinks) Evict(peer domain.PeerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, peer)
	f.evicted = append(f.evicted, peer)
}

func (f *fakeLinks) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = map[domain.PeerID]ports.LinkInfo{}
	f.closeAlls++
}

// open adds a connected link with an open channel and fires the open event.
func (f *fakeLinks) open(peer domain.PeerID, name string) {
	f.mu.Lock()
	f.links[peer] = ports.LinkInfo{
		PeerID:     peer,
		Name:       name,
		Connection: domain.ConnectionConnected,
		Channel:    domain.ChannelOpen,
	}
	events := f.events
	f.mu.Unlock()
	events.OnChannelOpen(peer)
}

func (f *fakeLinks) deliver(t *testing.T, from domain.PeerID, env protocol.Envelope) {
	t.Helper()
	data, err := f.codec.Encode(env)
	require.NoError(t, err)
	f.events.OnMessage(from, data)
}

// sentTo returns the wire kinds sent to peer, in order.
func (f *fakeLinks) sentTo(peer domain.PeerID) []protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Envelope
	for _, m := range f.sent {
		if m.peer == peer {
			out = append(out, m.env)
		}
	}
	return out
}

func (f *fakeLinks) clearSent() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func (f *fakeLinks) listenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listens
}

func (f *fakeLinks) closeAllCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeAlls
}

func (f *fakeLinks) evictedPeers() []domain.PeerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PeerID(nil), f.evicted...)
}

func (f *fakeLinks) joinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.joins)
}

func wireKinds(envs []protocol.Envelope) []protocol.Kind {
	out := make([]protocol.Kind, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.WireKind())
	}
	return out
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateParty(ctx context.Context, party *domain.Party) error {
	return m.Called(ctx, party).Error(0)
}

func (m *mockStore) GetParty(ctx context.Context, id domain.PartyID) (*domain.Party, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*domain.Party); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpdateHost(ctx context.Context, id domain.PartyID, hostID domain.PeerID) error {
	return m.Called(ctx, id, hostID).Error(0)
}

func (m *mockStore) WatchParty(ctx context.Context, id domain.PartyID) (<-chan domain.Party, error) {
	args := m.Called(ctx, id)
	if ch, ok := args.Get(0).(chan domain.Party); ok {
		return ch, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) PutGuest(ctx context.Context, partyID domain.PartyID, guest *domain.GuestRecord) error {
	return m.Called(ctx, partyID, guest).Error(0)
}

func (m *mockStore) GetGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (*domain.GuestRecord, error) {
	args := m.Called(ctx, partyID, guestID)
	if g, ok := args.Get(0).(*domain.GuestRecord); ok {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) RestartGuestOffer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, offer domain.SessionDescription) error {
	return m.Called(ctx, partyID, guestID, offer).Error(0)
}

func (m *mockStore) SetGuestAnswer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, answer domain.SessionDescription) error {
	return m.Called(ctx, partyID, guestID, answer).Error(0)
}

func (m *mockStore) DeleteGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) error {
	return m.Called(ctx, partyID, guestID).Error(0)
}

func (m *mockStore) ClearGuests(ctx context.Context, partyID domain.PartyID) error {
	return m.Called(ctx, partyID).Error(0)
}

func (m *mockStore) WatchGuests(ctx context.Context, partyID domain.PartyID) (<-chan domain.GuestChange, error) {
	args := m.Called(ctx, partyID)
	return nil, args.Error(1)
}

func (m *mockStore) WatchGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (<-chan domain.GuestRecord, error) {
	args := m.Called(ctx, partyID, guestID)
	return nil, args.Error(1)
}

func (m *mockStore) AddCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection, candidates []domain.Candidate) error {
	return m.Called(ctx, partyID, guestID, dir, candidates).Error(0)
}

func (m *mockStore) WatchCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection) (<-chan domain.Candidate, error) {
	args := m.Called(ctx, partyID, guestID, dir)
	return nil, args.Error(1)
}

var _ ports.SignalingStore = (*mockStore)(nil)
var _ ports.ConnectionManager = (*fakeLinks)(nil)
var _ ports.Player = (*fakePlayer)(nil)
