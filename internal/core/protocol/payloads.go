package protocol

import "watchparty/internal/core/domain"

// Payload is implemented by every message body. Bodies are always handled by pointer.
type Payload interface {
	Kind() Kind
}

type NewVideo struct {
	VideoID  string `json:"videoId" validate:"required,max=64"`
	AutoPlay bool   `json:"autoPlay"`
}

type StateChange struct {
	State         domain.PlayerState `json:"state" validate:"playerstate"`
	Time          float64            `json:"time" validate:"gte=0"`
	UserInitiated bool               `json:"userInitiated"`
}

type TimeUpdate struct {
	Time  float64            `json:"time" validate:"gte=0"`
	State domain.PlayerState `json:"state" validate:"playerstate"`
}

type InitialSync struct {
	VideoID  string              `json:"videoId" validate:"required,max=64"`
	Time     float64             `json:"time" validate:"gte=0"`
	State    domain.PlayerState  `json:"state" validate:"playerstate"`
	Duration float64             `json:"duration" validate:"gte=0"`
	Queue    []domain.QueueEntry `json:"queue" validate:"dive"`
}

type VideoDuration struct {
	Duration float64 `json:"duration" validate:"gte=0"`
}

type AddToQueue struct {
	Video domain.QueueEntry `json:"video"`
}

type PlayFromQueue struct {
	Index int `json:"index" validate:"gte=0"`
}

type RemoveFromQueue struct {
	Index int `json:"index" validate:"gte=0"`
}

type ShuffleQueue struct{}

type QueueUpdate struct {
	Queue []domain.QueueEntry `json:"queue" validate:"dive"`
}

type ToggleQueueVisibility struct{}

type QueueVisibility struct {
	Hidden bool `json:"hidden"`
}

type ToggleRandomPlay struct{}

type RandomPlayMode struct {
	Enabled bool `json:"enabled"`
}

type UserList struct {
	Users domain.UserList `json:"users"`
}

type HostInfo struct {
	HostID domain.PeerID `json:"hostId" validate:"required"`
}

type UserLeaving struct{}

func (*NewVideo) Kind() Kind              { return KindNewVideo }
func (*StateChange) Kind() Kind           { return KindStateChange }
func (*TimeUpdate) Kind() Kind            { return KindTimeUpdate }
func (*InitialSync) Kind() Kind           { return KindInitialSync }
func (*VideoDuration) Kind() Kind         { return KindVideoDuration }
func (*AddToQueue) Kind() Kind            { return KindAddToQueue }
func (*PlayFromQueue) Kind() Kind         { return KindPlayFromQueue }
func (*RemoveFromQueue) Kind() Kind       { return KindRemoveFromQueue }
func (*ShuffleQueue) Kind() Kind          { return KindShuffleQueue }
func (*QueueUpdate) Kind() Kind           { return KindQueueUpdate }
func (*ToggleQueueVisibility) Kind() Kind { return KindToggleQueueVisibility }
func (*QueueVisibility) Kind() Kind       { return KindQueueVisibility }
func (*ToggleRandomPlay) Kind() Kind      { return KindToggleRandomPlay }
func (*RandomPlayMode) Kind() Kind        { return KindRandomPlayMode }
func (*UserList) Kind() Kind              { return KindUserList }
func (*HostInfo) Kind() Kind              { return KindHostInfo }
func (*UserLeaving) Kind() Kind           { return KindUserLeaving }

var registry = map[Kind]func() Payload{
	KindNewVideo:              func() Payload { return &NewVideo{} },
	KindStateChange:           func() Payload { return &StateChange{} },
	KindTimeUpdate:            func() Payload { return &TimeUpdate{} },
	KindInitialSync:           func() Payload { return &InitialSync{} },
	KindVideoDuration:         func() Payload { return &VideoDuration{} },
	KindAddToQueue:            func() Payload { return &AddToQueue{} },
	KindPlayFromQueue:         func() Payload { return &PlayFromQueue{} },
	KindRemoveFromQueue:       func() Payload { return &RemoveFromQueue{} },
	KindShuffleQueue:          func() Payload { return &ShuffleQueue{} },
	KindQueueUpdate:           func() Payload { return &QueueUpdate{} },
	KindToggleQueueVisibility: func() Payload { return &ToggleQueueVisibility{} },
	KindQueueVisibility:       func() Payload { return &QueueVisibility{} },
	KindToggleRandomPlay:      func() Payload { return &ToggleRandomPlay{} },
	KindRandomPlayMode:        func() Payload { return &RandomPlayMode{} },
	KindUserList:              func() Payload { return &UserList{} },
	KindHostInfo:              func() Payload { return &HostInfo{} },
	KindUserLeaving:           func() Payload { return &UserLeaving{} },
}

// Known reports whether k (or its base kind) is part of the vocabulary.
func Known(k Kind) bool {
	_, ok := registry[k.Base()]
	return ok
}
