package domain

type CatalogKind string

const (
	CatalogVideo    CatalogKind = "video"
	CatalogPlaylist CatalogKind = "playlist"
)

type CatalogItem struct {
	Kind         CatalogKind  `json:"kind"`
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Channel      string       `json:"channel"`
	ThumbnailURL string       `json:"thumbnailUrl"`
	ItemCount    int64        `json:"itemCount,omitempty"`
	Videos       []QueueEntry `json:"videos,omitempty"`
}

func (c CatalogItem) Entry() QueueEntry {
	return QueueEntry{VideoID: c.ID, Title: c.Title, ThumbnailURL: c.ThumbnailURL}
}

// SearchRequest holds exactly one of VideoID, PlaylistID or Query.
type SearchRequest struct {
	VideoID    string `json:"videoId,omitempty"`
	PlaylistID string `json:"playlistId,omitempty"`
	Query      string `json:"query,omitempty"`
	SearchType string `json:"searchType,omitempty"`
}

func (r SearchRequest) CacheKey() string {
	switch {
	case r.VideoID != "":
		return "video:" + r.VideoID
	case r.PlaylistID != "":
		return "playlist:" + r.PlaylistID
	default:
		return "search:" + r.SearchType + ":" + r.Query
	}
}
