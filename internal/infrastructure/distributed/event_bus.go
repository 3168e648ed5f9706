package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"watchparty/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventType represents the type of event
type EventType string

const (
	EventPartyUpdated    EventType = "party.updated"
	EventGuestAdded      EventType = "guest.added"
	EventGuestModified   EventType = "guest.modified"
	EventGuestRemoved    EventType = "guest.removed"
	EventCandidatesAdded EventType = "candidates.added"
)

// Event announces a change to one party's signaling documents. It carries
// keys only; subscribers read the current state back from Redis.
type Event struct {
	Type       EventType                 `json:"type"`
	InstanceID string                    `json:"instance_id"`
	Timestamp  time.Time                 `json:"timestamp"`
	PartyID    domain.PartyID            `json:"party_id"`
	GuestID    domain.PeerID             `json:"guest_id,omitempty"`
	Direction  domain.CandidateDirection `json:"direction,omitempty"`
}

// EventBus publishes party change events on one pub/sub channel per party.
type EventBus struct {
	client     *redis.Client
	instanceID string
	prefix     string
	logger     *zap.SugaredLogger
}

// NewEventBus creates a new event bus
func NewEventBus(client *redis.Client, instanceID string, logger *zap.SugaredLogger) *EventBus {
	return &EventBus{
		client:     client,
		instanceID: instanceID,
		prefix:     "watchparty:party:",
		logger:     logger,
	}
}

func (eb *EventBus) Channel(partyID domain.PartyID) string {
	return eb.prefix + string(partyID) + ":events"
}

// Publish publishes an event to the event bus
func (eb *EventBus) Publish(ctx context.Context, event *Event) error {
	event.InstanceID = eb.instanceID
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := eb.client.Publish(ctx, eb.Channel(event.PartyID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published event",
		"type", event.Type,
		"party_id", event.PartyID,
		"guest_id", event.GuestID,
	)
	return nil
}

// Subscription is one live subscription to a party channel.
type Subscription struct {
	pubsub *redis.PubSub
	logger *zap.SugaredLogger
}

// Subscribe returns once Redis has confirmed the subscription, so a caller
// that reads state afterwards cannot miss a change published in between.
func (eb *EventBus) Subscribe(ctx context.Context, partyID domain.PartyID) (*Subscription, error) {
	pubsub := eb.client.Subscribe(ctx, eb.Channel(partyID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return &Subscription{pubsub: pubsub, logger: eb.logger}, nil
}

// Run calls handler for each event until ctx ends or the subscription closes.
// Handler errors are logged and do not stop the loop.
func (s *Subscription) Run(ctx context.Context, handler func(*Event) error) error {
	ch := s.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Warnw("failed to unmarshal event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}

			if err := handler(&event); err != nil {
				s.logger.Warnw("error handling event",
					"type", event.Type,
					"party_id", event.PartyID,
					"error", err,
				)
			}
		}
	}
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
