package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/internal/infrastructure/distributed"
	"watchparty/pkg/clock"
	dlock "watchparty/pkg/distributed"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxTxRetries = 5

// RedisSignalingStore keeps party documents in Redis and announces every
// write on the party's pub/sub channel.
type RedisSignalingStore struct {
	client *redis.Client
	bus    *distributed.EventBus
	locks  *dlock.LockManager
	clock  clock.Clock
	prefix string
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewRedisSignalingStore creates the store. A zero ttl keeps party keys forever.
func NewRedisSignalingStore(
	client *redis.Client,
	bus *distributed.EventBus,
	clk clock.Clock,
	ttl time.Duration,
	logger *zap.SugaredLogger,
) ports.SignalingStore {
	return &RedisSignalingStore{
		client: client,
		bus:    bus,
		locks:  dlock.NewLockManager(client, "watchparty:lock:", 5*time.Second, 3*time.Second),
		clock:  clk,
		prefix: "watchparty:party:",
		ttl:    ttl,
		logger: logger,
	}
}

func (r *RedisSignalingStore) partyKey(id domain.PartyID) string {
	return r.prefix + string(id)
}

func (r *RedisSignalingStore) guestsKey(id domain.PartyID) string {
	return r.partyKey(id) + ":guests"
}

func (r *RedisSignalingStore) guestKey(id domain.PartyID, guestID domain.PeerID) string {
	return r.partyKey(id) + ":guest:" + string(guestID)
}

func (r *RedisSignalingStore) candidatesKey(id domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection) string {
	return r.guestKey(id, guestID) + ":" + string(dir)
}

func (r *RedisSignalingStore) CreateParty(ctx context.Context, party *domain.Party) error {
	p := *party
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.clock.Now()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal party: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.partyKey(p.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to set party in Redis: %w", err)
	}
	if !created {
		return fmt.Errorf("party already exists: %s", p.ID)
	}
	return nil
}

func (r *RedisSignalingStore) GetParty(ctx context.Context, id domain.PartyID) (*domain.Party, error) {
	data, err := r.client.Get(ctx, r.partyKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party from Redis: %w", err)
	}

	var party domain.Party
	if err := json.Unmarshal(data, &party); err != nil {
		return nil, fmt.Errorf("failed to unmarshal party: %w", err)
	}
	return &party, nil
}

// UpdateHost hands the party over under a lock so concurrent promotions
// serialize.
func (r *RedisSignalingStore) UpdateHost(ctx context.Context, id domain.PartyID, hostID domain.PeerID) error {
	err := r.locks.WithLock(ctx, "party:"+string(id), func() error {
		party, err := r.GetParty(ctx, id)
		if err != nil {
			return err
		}
		party.HostID = hostID
		data, err := json.Marshal(party)
		if err != nil {
			return fmt.Errorf("failed to marshal party: %w", err)
		}
		return r.client.Set(ctx, r.partyKey(id), data, redis.KeepTTL).Err()
	})
	if err != nil {
		return err
	}
	return r.bus.Publish(ctx, &distributed.Event{Type: distributed.EventPartyUpdated, PartyID: id})
}

func (r *RedisSignalingStore) WatchParty(ctx context.Context, id domain.PartyID) (<-chan domain.Party, error) {
	prime := func(ctx context.Context) ([]domain.Party, error) {
		party, err := r.GetParty(ctx, id)
		if err != nil {
			return nil, err
		}
		return []domain.Party{*party}, nil
	}
	handle := func(ctx context.Context, ev *distributed.Event) ([]domain.Party, error) {
		if ev.Type != distributed.EventPartyUpdated {
			return nil, nil
		}
		party, err := r.GetParty(ctx, id)
		if err != nil {
			return nil, err
		}
		return []domain.Party{*party}, nil
	}
	return watch(ctx, r, id, prime, handle)
}

func (r *RedisSignalingStore) requireParty(ctx context.Context, id domain.PartyID) error {
	n, err := r.client.Exists(ctx, r.partyKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check party: %w", err)
	}
	if n == 0 {
		return domain.ErrPartyNotFound
	}
	return nil
}

func (r *RedisSignalingStore) PutGuest(ctx context.Context, partyID domain.PartyID, guest *domain.GuestRecord) error {
	if err := r.requireParty(ctx, partyID); err != nil {
		return err
	}
	data, err := json.Marshal(guest)
	if err != nil {
		return fmt.Errorf("failed to marshal guest: %w", err)
	}

	var added *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.guestKey(partyID, guest.ID), data, r.ttl)
		added = pipe.SAdd(ctx, r.guestsKey(partyID), string(guest.ID))
		if r.ttl > 0 {
			pipe.Expire(ctx, r.guestsKey(partyID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store guest: %w", err)
	}

	eventType := distributed.EventGuestModified
	if added.Val() == 1 {
		eventType = distributed.EventGuestAdded
	}
	return r.bus.Publish(ctx, &distributed.Event{Type: eventType, PartyID: partyID, GuestID: guest.ID})
}

func (r *RedisSignalingStore) GetGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (*domain.GuestRecord, error) {
	data, err := r.client.Get(ctx, r.guestKey(partyID, guestID)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrGuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest from Redis: %w", err)
	}

	var rec domain.GuestRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guest: %w", err)
	}
	return &rec, nil
}

func (r *RedisSignalingStore) RestartGuestOffer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, offer domain.SessionDescription) error {
	return r.updateGuest(ctx, partyID, guestID, func(rec *domain.GuestRecord) {
		rec.Offer = &offer
		rec.Answer = nil
		rec.RestartedAt = r.clock.Now()
	})
}

func (r *RedisSignalingStore) SetGuestAnswer(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, answer domain.SessionDescription) error {
	return r.updateGuest(ctx, partyID, guestID, func(rec *domain.GuestRecord) {
		rec.Answer = &answer
	})
}

// updateGuest is an optimistic read-modify-write on the guest key.
func (r *RedisSignalingStore) updateGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, mutate func(*domain.GuestRecord)) error {
	key := r.guestKey(partyID, guestID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrGuestNotFound
		}
		if err != nil {
			return err
		}

		var rec domain.GuestRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal guest: %w", err)
		}
		mutate(&rec)
		out, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal guest: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		return r.bus.Publish(ctx, &distributed.Event{Type: distributed.EventGuestModified, PartyID: partyID, GuestID: guestID})
	}
	return fmt.Errorf("guest %s update contended after %d attempts", guestID, maxTxRetries)
}

func (r *RedisSignalingStore) DeleteGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) error {
	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		r.deleteGuestKeys(ctx, pipe, partyID, guestID)
		removed = pipe.SRem(ctx, r.guestsKey(partyID), string(guestID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	if removed.Val() == 0 {
		return domain.ErrGuestNotFound
	}
	return r.bus.Publish(ctx, &distributed.Event{Type: distributed.EventGuestRemoved, PartyID: partyID, GuestID: guestID})
}

func (r *RedisSignalingStore) deleteGuestKeys(ctx context.Context, pipe redis.Pipeliner, partyID domain.PartyID, guestID domain.PeerID) {
	pipe.Del(ctx,
		r.guestKey(partyID, guestID),
		r.candidatesKey(partyID, guestID, domain.GuestCandidates),
		r.candidatesKey(partyID, guestID, domain.HostCandidates),
	)
}

func (r *RedisSignalingStore) ClearGuests(ctx context.Context, partyID domain.PartyID) error {
	if err := r.requireParty(ctx, partyID); err != nil {
		return err
	}
	ids, err := r.client.SMembers(ctx, r.guestsKey(partyID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list guests: %w", err)
	}
	sort.Strings(ids)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			r.deleteGuestKeys(ctx, pipe, partyID, domain.PeerID(id))
		}
		pipe.Del(ctx, r.guestsKey(partyID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear guests: %w", err)
	}

	for _, id := range ids {
		event := &distributed.Event{Type: distributed.EventGuestRemoved, PartyID: partyID, GuestID: domain.PeerID(id)}
		if err := r.bus.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisSignalingStore) listGuests(ctx context.Context, partyID domain.PartyID) ([]domain.GuestRecord, error) {
	ids, err := r.client.SMembers(ctx, r.guestsKey(partyID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.guestKey(partyID, domain.PeerID(id))
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get guests: %w", err)
	}

	records := make([]domain.GuestRecord, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec domain.GuestRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			r.logger.Warnw("skipping unreadable guest record", "party_id", partyID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *RedisSignalingStore) WatchGuests(ctx context.Context, partyID domain.PartyID) (<-chan domain.GuestChange, error) {
	known := make(map[domain.PeerID]bool)

	prime := func(ctx context.Context) ([]domain.GuestChange, error) {
		if err := r.requireParty(ctx, partyID); err != nil {
			return nil, err
		}
		records, err := r.listGuests(ctx, partyID)
		if err != nil {
			return nil, err
		}
		changes := make([]domain.GuestChange, 0, len(records))
		for _, rec := range records {
			known[rec.ID] = true
			changes = append(changes, domain.GuestChange{Type: domain.ChangeAdded, Guest: rec})
		}
		return changes, nil
	}

	handle := func(ctx context.Context, ev *distributed.Event) ([]domain.GuestChange, error) {
		switch ev.Type {
		case distributed.EventGuestAdded, distributed.EventGuestModified:
			rec, err := r.GetGuest(ctx, partyID, ev.GuestID)
			if errors.Is(err, domain.ErrGuestNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			change := domain.ChangeModified
			if !known[rec.ID] {
				known[rec.ID] = true
				change = domain.ChangeAdded
			}
			return []domain.GuestChange{{Type: change, Guest: *rec}}, nil

		case distributed.EventGuestRemoved:
			if !known[ev.GuestID] {
				return nil, nil
			}
			delete(known, ev.GuestID)
			return []domain.GuestChange{{Type: domain.ChangeRemoved, Guest: domain.GuestRecord{ID: ev.GuestID}}}, nil
		}
		return nil, nil
	}
	return watch(ctx, r, partyID, prime, handle)
}

func (r *RedisSignalingStore) WatchGuest(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID) (<-chan domain.GuestRecord, error) {
	current := func(ctx context.Context) ([]domain.GuestRecord, error) {
		rec, err := r.GetGuest(ctx, partyID, guestID)
		if errors.Is(err, domain.ErrGuestNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []domain.GuestRecord{*rec}, nil
	}

	prime := func(ctx context.Context) ([]domain.GuestRecord, error) {
		if err := r.requireParty(ctx, partyID); err != nil {
			return nil, err
		}
		return current(ctx)
	}
	handle := func(ctx context.Context, ev *distributed.Event) ([]domain.GuestRecord, error) {
		if ev.GuestID != guestID {
			return nil, nil
		}
		if ev.Type != distributed.EventGuestAdded && ev.Type != distributed.EventGuestModified {
			return nil, nil
		}
		return current(ctx)
	}
	return watch(ctx, r, partyID, prime, handle)
}

func (r *RedisSignalingStore) AddCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection, candidates []domain.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	if err := r.requireParty(ctx, partyID); err != nil {
		return err
	}

	values := make([]interface{}, 0, len(candidates))
	for _, c := range candidates {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal candidate: %w", err)
		}
		values = append(values, data)
	}

	key := r.candidatesKey(partyID, guestID, dir)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add candidates: %w", err)
	}
	return r.bus.Publish(ctx, &distributed.Event{
		Type:      distributed.EventCandidatesAdded,
		PartyID:   partyID,
		GuestID:   guestID,
		Direction: dir,
	})
}

func (r *RedisSignalingStore) WatchCandidates(ctx context.Context, partyID domain.PartyID, guestID domain.PeerID, dir domain.CandidateDirection) (<-chan domain.Candidate, error) {
	key := r.candidatesKey(partyID, guestID, dir)
	var offset int64

	readFrom := func(ctx context.Context) ([]domain.Candidate, error) {
		raw, err := r.client.LRange(ctx, key, offset, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read candidates: %w", err)
		}
		offset += int64(len(raw))

		candidates := make([]domain.Candidate, 0, len(raw))
		for _, s := range raw {
			var c domain.Candidate
			if err := json.Unmarshal([]byte(s), &c); err != nil {
				r.logger.Warnw("skipping unreadable candidate", "party_id", partyID, "guest_id", guestID, "error", err)
				continue
			}
			candidates = append(candidates, c)
		}
		return candidates, nil
	}

	prime := func(ctx context.Context) ([]domain.Candidate, error) {
		if err := r.requireParty(ctx, partyID); err != nil {
			return nil, err
		}
		return readFrom(ctx)
	}
	handle := func(ctx context.Context, ev *distributed.Event) ([]domain.Candidate, error) {
		if ev.GuestID != guestID {
			return nil, nil
		}
		switch ev.Type {
		case distributed.EventGuestRemoved:
			offset = 0
		case distributed.EventCandidatesAdded:
			if ev.Direction == dir {
				return readFrom(ctx)
			}
		}
		return nil, nil
	}
	return watch(ctx, r, partyID, prime, handle)
}

// watch subscribes to the party channel, reads the initial state and then
// turns change events into values until ctx ends. prime and handle run on
// one goroutine at a time, so they may share unsynchronized state.
func watch[T any](
	ctx context.Context,
	r *RedisSignalingStore,
	partyID domain.PartyID,
	prime func(context.Context) ([]T, error),
	handle func(context.Context, *distributed.Event) ([]T, error),
) (<-chan T, error) {
	sub, err := r.bus.Subscribe(ctx, partyID)
	if err != nil {
		return nil, err
	}
	initial, err := prime(ctx)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan T)
	go func() {
		defer close(out)
		defer sub.Close()

		emit := func(values []T) bool {
			for _, v := range values {
				select {
				case out <- v:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}
		if !emit(initial) {
			return
		}

		err := sub.Run(ctx, func(ev *distributed.Event) error {
			values, err := handle(ctx, ev)
			if err != nil {
				return err
			}
			emit(values)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warnw("party watch ended", "party_id", partyID, "error", err)
		}
	}()
	return out, nil
}
