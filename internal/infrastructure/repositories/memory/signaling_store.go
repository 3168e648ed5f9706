package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/pkg/clock"
)

// MemorySignalingStore keeps parties in process memory. Peers sharing it
// must live in the same process; it backs tests and single-host demos.
type MemorySignalingStore struct {
	clock   clock.Clock
	parties map[domain.PartyID]*partyState
	mu      sync.Mutex
}

type candidateKey struct {
	guestID domain.PeerID
	dir     domain.CandidateDirection
}

type partyState struct {
	party      domain.Party
	guests     map[domain.PeerID]domain.GuestRecord
	candidates map[candidateKey][]domain.Candidate

	partyWatchers     map[*feed[domain.Party]]struct{}
	guestsWatchers    map[*feed[domain.GuestChange]]struct{}
	guestWatchers     map[domain.PeerID]map[*feed[domain.GuestRecord]]struct{}
	candidateWatchers map[candidateKey]map[*feed[domain.Candidate]]struct{}
}

func NewMemorySignalingStore(clk clock.Clock) ports.SignalingStore {
	return &MemorySignalingStore{
		clock:   clk,
		parties: make(map[domain.PartyID]*partyState),
	}
}

func (s *MemorySignalingStore) CreateParty(ctx context.Context, party *domain.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.parties[party.ID]; exists {
		return fmt.Errorf("party already exists: %s", party.ID)
	}
	p := *party
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.clock.Now()
	}
	s.parties[p.ID] = &partyState{
		party:             p,
		guests:            make(map[domain.PeerID]domain.GuestRecord),
		candidates:        make(map[candidateKey][]domain.Candidate),
		partyWatchers:     make(map[*feed[domain.Party]]struct{}),
		guestsWatchers:    make(map[*feed[domain.GuestChange]]struct{}),
		guestWatchers:     make(map[domain.PeerID]map[*feed[domain.GuestRecord]]struct{}),
		candidateWatchers: make(map[candidateKey]map[*feed[domain.Candidate]]struct{}),
	}
	return nil
}

func (s *MemorySignalingStore) GetParty(ctx context.Context, id domain.PartyID) (*domain.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[id]
	if !ok {
		return nil, domain.ErrPartyNotFound
	}
	p := ps.party
	return &p, nil
}

func (s *MemorySignalingStore) UpdateHost(ctx context.Context, id domain.PartyID, hostID domain.PeerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	ps.party.HostID = hostID
	for f := range ps.partyWatchers {
		f.push(ps.party)
	}
	return nil
}

// WatchParty emits the current party, then every host change.
func (s *MemorySignalingStore) WatchParty(ctx context.Context, id domain.PartyID) (<-chan domain.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[id]
	if !ok {
		return nil, domain.ErrPartyNotFound
	}

	var f *feed[domain.Party]
	f, out := newFeed[domain.Party](ctx, func() {
		s.mu.Lock()
		delete(ps.partyWatchers, f)
		s.mu.Unlock()
	})
	ps.partyWatchers[f] = struct{}{}
	f.push(ps.party)
	return out, nil
}

func (s *MemorySignalingStore) PutGuest(ctx context.Context, partyID domain.PartyID, guest *domain.GuestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[partyID]
	if !ok {
		return domain.ErrPartyNotFound
	}

	change := domain.ChangeAdded
	if _, exists := ps.guests[guest.ID]; exists {
		change = domain.ChangeModified
	}
	s.storeGuest(ps, cloneGuest(*guest), change)
	return nil
}

func (s *MemorySignalingStore) GetGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (*domain.GuestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[partyID]
	if !ok {
		return nil, domain.ErrPartyNotFound
	}
	rec, ok := ps.guests[guestID]
	if !ok {
		return nil, domain.ErrGuestNotFound
	}
	rec = cloneGuest(rec)
	return &rec, nil
}

func (s *MemorySignalingStore) RestartGuestOffer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, offer domain.SessionDescription) error {
	return s.updateGuest(partyID, guestID, func(rec *domain.GuestRecord) {
		rec.Offer = &offer
		rec.Answer = nil
		rec.RestartedAt = s.clock.Now()
	})
}

func (s *MemorySignalingStore) SetGuestAnswer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, answer domain.SessionDescription) error {
	return s.updateGuest(partyID, guestID, func(rec *domain.GuestRecord) {
		rec.Answer = &answer
	})
}

func (s *MemorySignalingStore) updateGuest(partyID domain.PartyID, guestID domain.PeerID, mutate func(*domain.GuestRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[partyID]
	if !ok {
		return domain.ErrPartyNotFound
	}
	rec, ok := ps.guests[guestID]
	if !ok {
		return domain.ErrGuestNotFound
	}
	rec = cloneGuest(rec)
	mutate(&rec)
	s.storeGuest(ps, rec, domain.ChangeModified)
	return nil
}

// storeGuest saves rec and fans it out. Callers hold s.mu.
func (s *MemorySignalingStore) storeGuest(ps *partyState, rec domain.GuestRecord, change domain.ChangeType) {
	ps.guests[rec.ID] = rec
	for f := range ps.guestsWatchers {
		f.push(domain.GuestChange{Type: change, Guest: cloneGuest(rec)})
	}
	for f := range ps.guestWatchers[rec.ID] {
		f.push(cloneGuest(rec))
	}
}

func (s *MemorySignalingStore) DeleteGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[partyID]
	if !ok {
		return domain.ErrPartyNotFound
	}
	if _, ok := ps.guests[guestID]; !ok {
		return domain.ErrGuestNotFound
	}
	s.removeGuest(ps, guestID)
	return nil
}

func (s *MemorySignalingStore) ClearGuests(ctx context.Context, partyID domain.PartyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[partyID]
	if !ok {
		return domain.ErrPartyNotFound
	}
	ids := make([]domain.PeerID, 0, len(ps.guests))
	for id := range ps.guests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s.removeGuest(ps, id)
	}
	return nil
}

func (s *MemorySignalingStore) removeGuest(ps *partyState, guestID domain.PeerID) {
	rec := ps.guests[guestID]
	delete(ps.guests, guestID)
	delete(ps.candidates, candidateKey{guestID, domain.GuestCandidates})
	delete(ps.candidates, candidateKey{guestID, domain.HostCandidates})
	for f := range ps.guestsWatchers {
		f.push(domain.GuestChange{Type: domain.ChangeRemoved, Guest: cloneGuest(rec)})
	}
}

// WatchGuests emits an added change for every existing guest, then live changes.
func (s *MemorySignalingStore) WatchGuests(ctx context.Context, partyID domain.PartyID) (<-chan domain.GuestChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[partyID]
	if !ok {
		return nil, domain.ErrPartyNotFound
	}

	var f *feed[domain.GuestChange]
	f, out := newFeed[domain.GuestChange](ctx, func() {
		s.mu.Lock()
		delete(ps.guestsWatchers, f)
		s.mu.Unlock()
	})
	ps.guestsWatchers[f] = struct{}{}

	ids := make([]domain.PeerID, 0, len(ps.guests))
	for id := range ps.guests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		f.push(domain.GuestChange{Type: domain.ChangeAdded, Guest: cloneGuest(ps.guests[id])})
	}
	return out, nil
}

// WatchGuest emits the current record if present, then every write to it.
func (s *MemorySignalingStore) WatchGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (<-chan domain.GuestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[partyID]
	if !ok {
		return nil, domain.ErrPartyNotFound
	}

	var f *feed[domain.GuestRecord]
	f, out := newFeed[domain.GuestRecord](ctx, func() {
		s.mu.Lock()
		delete(ps.guestWatchers[guestID], f)
		if len(ps.guestWatchers[guestID]) == 0 {
			delete(ps.guestWatchers, guestID)
		}
		s.mu.Unlock()
	})
	if ps.guestWatchers[guestID] == nil {
		ps.guestWatchers[guestID] = make(map[*feed[domain.GuestRecord]]struct{})
	}
	ps.guestWatchers[guestID][f] = struct{}{}

	if rec, ok := ps.guests[guestID]; ok {
		f.push(cloneGuest(rec))
	}
	return out, nil
}

func (s *MemorySignalingStore) AddCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection, candidates []domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[partyID]
	if !ok {
		return domain.ErrPartyNotFound
	}
	key := candidateKey{guestID, dir}
	ps.candidates[key] = append(ps.candidates[key], candidates...)
	for f := range ps.candidateWatchers[key] {
		for _, c := range candidates {
			f.push(c)
		}
	}
	return nil
}

// WatchCandidates emits the stored candidates, then each new one.
func (s *MemorySignalingStore) WatchCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection) (<-chan domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.parties[partyID]
	if !ok {
		return nil, domain.ErrPartyNotFound
	}

	key := candidateKey{guestID, dir}
	var f *feed[domain.Candidate]
	f, out := newFeed[domain.Candidate](ctx, func() {
		s.mu.Lock()
		delete(ps.candidateWatchers[key], f)
		if len(ps.candidateWatchers[key]) == 0 {
			delete(ps.candidateWatchers, key)
		}
		s.mu.Unlock()
	})
	if ps.candidateWatchers[key] == nil {
		ps.candidateWatchers[key] = make(map[*feed[domain.Candidate]]struct{})
	}
	ps.candidateWatchers[key][f] = struct{}{}

	for _, c := range ps.candidates[key] {
		f.push(c)
	}
	return out, nil
}

func cloneGuest(rec domain.GuestRecord) domain.GuestRecord {
	if rec.Offer != nil {
		offer := *rec.Offer
		rec.Offer = &offer
	}
	if rec.Answer != nil {
		answer := *rec.Answer
		rec.Answer = &answer
	}
	return rec
}
