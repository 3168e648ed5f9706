package protocol

import "strings"

// Kind is the "type" tag of every message exchanged over a peer data channel.
type Kind string

const (
	KindNewVideo              Kind = "NEW_VIDEO"
	KindStateChange           Kind = "STATE_CHANGE"
	KindTimeUpdate            Kind = "TIME_UPDATE"
	KindInitialSync           Kind = "INITIAL_SYNC"
	KindVideoDuration         Kind = "VIDEO_DURATION"
	KindAddToQueue            Kind = "ADD_TO_QUEUE"
	KindPlayFromQueue         Kind = "PLAY_FROM_QUEUE"
	KindRemoveFromQueue       Kind = "REMOVE_FROM_QUEUE"
	KindShuffleQueue          Kind = "SHUFFLE_QUEUE"
	KindQueueUpdate           Kind = "QUEUE_UPDATE"
	KindToggleQueueVisibility Kind = "TOGGLE_QUEUE_VISIBILITY"
	KindQueueVisibility       Kind = "QUEUE_VISIBILITY"
	KindToggleRandomPlay      Kind = "TOGGLE_RANDOM_PLAY"
	KindRandomPlayMode        Kind = "RANDOM_PLAY_MODE"
	KindUserList              Kind = "USER_LIST"
	KindHostInfo              Kind = "HOST_INFO"
	KindUserLeaving           Kind = "USER_LEAVING"
)

// RequestPrefix marks guest-originated intents that only the host may apply.
const RequestPrefix = "REQUEST_"

func (k Kind) IsRequest() bool {
	return strings.HasPrefix(string(k), RequestPrefix)
}

// Request returns the guest-originated variant of k.
func (k Kind) Request() Kind {
	if k.IsRequest() {
		return k
	}
	return Kind(RequestPrefix + string(k))
}

// Base strips the request prefix.
func (k Kind) Base() Kind {
	return Kind(strings.TrimPrefix(string(k), RequestPrefix))
}

// NeedsPlayer reports whether applying the kind touches the local player.
func (k Kind) NeedsPlayer() bool {
	switch k.Base() {
	case KindNewVideo, KindVideoDuration, KindInitialSync, KindStateChange, KindTimeUpdate:
		return true
	}
	return false
}

// QueueMutation reports whether the kind mutates host-owned queue state.
func (k Kind) QueueMutation() bool {
	switch k.Base() {
	case KindAddToQueue, KindPlayFromQueue, KindRemoveFromQueue, KindShuffleQueue,
		KindToggleQueueVisibility, KindToggleRandomPlay:
		return true
	}
	return false
}
