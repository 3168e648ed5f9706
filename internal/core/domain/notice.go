package domain

// NoticeKind enumerates the events surfaced to the local UI.
type NoticeKind string

const (
	NoticeAlert           NoticeKind = "alert"
	NoticeWarning         NoticeKind = "warning"
	NoticeSkip            NoticeKind = "skip"
	NoticeStatus          NoticeKind = "status"
	NoticeSuggestions     NoticeKind = "suggestions"
	NoticeSuggestionsHide NoticeKind = "suggestions_hidden"
	NoticeQueue           NoticeKind = "queue"
	NoticeQueueVisibility NoticeKind = "queue_visibility"
	NoticeRandomPlay      NoticeKind = "random_play"
	NoticeUsers           NoticeKind = "users"
	NoticeTitle           NoticeKind = "title"
	NoticeRole            NoticeKind = "role"
)

type Notice struct {
	Kind    NoticeKind  `json:"kind"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
