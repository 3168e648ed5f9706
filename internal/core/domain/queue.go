package domain

type QueueEntry struct {
	VideoID      string `json:"videoId" validate:"required,max=64"`
	Title        string `json:"title" validate:"max=512"`
	ThumbnailURL string `json:"thumbnailUrl" validate:"max=2048"`
}

// CloneQueue returns an independent copy, never nil.
func CloneQueue(q []QueueEntry) []QueueEntry {
	out := make([]QueueEntry, len(q))
	copy(out, q)
	return out
}
