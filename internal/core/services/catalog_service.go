package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/pkg/validation"
)

const (
	DefaultSearchType      = "video,playlist"
	DefaultSearchCooldown  = 2 * time.Second
	DefaultSuggestionLimit = 8
)

// catalogService fronts the video catalog for the local UI. It is called
// from HTTP goroutines, so the remembered results are mutex guarded.
type catalogService struct {
	catalog ports.Catalog
	limiter *rate.Limiter
	limit   int
	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger

	mu         sync.Mutex
	lastVideos []domain.CatalogItem
}

func NewCatalogService(
	catalog ports.Catalog,
	cooldown time.Duration,
	suggestionLimit int,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.CatalogService {
	if cooldown <= 0 {
		cooldown = DefaultSearchCooldown
	}
	if suggestionLimit <= 0 {
		suggestionLimit = DefaultSuggestionLimit
	}
	if metrics == nil {
		metrics = ports.NopMetrics
	}
	return &catalogService{
		catalog: catalog,
		limiter: rate.NewLimiter(rate.Every(cooldown), 1),
		limit:   suggestionLimit,
		metrics: metrics,
		logger:  logger,
	}
}

// Search looks up a pasted video link, or runs a keyword search for videos
// and playlists. Searches closer together than the cooldown are refused.
func (s *catalogService) Search(ctx context.Context, text string) ([]domain.CatalogItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyQuery
	}
	if !s.limiter.Allow() {
		s.metrics.RecordSearch("cooldown")
		return nil, domain.ErrSearchCooldown
	}

	req := domain.SearchRequest{Query: text, SearchType: DefaultSearchType}
	if id, ok := validation.ExtractVideoID(text); ok {
		req = domain.SearchRequest{VideoID: id}
	}

	items, err := s.catalog.Search(ctx, req)
	if err != nil {
		s.metrics.RecordSearch("error")
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	s.metrics.RecordSearch("ok")

	videos := make([]domain.CatalogItem, 0, len(items))
	for _, item := range items {
		if item.Kind == domain.CatalogVideo && item.ID != "" {
			videos = append(videos, item)
		}
	}
	if len(videos) > 0 {
		s.mu.Lock()
		s.lastVideos = videos
		s.mu.Unlock()
	}

	s.logger.Debugw("Catalog search", "query", text, "video_id", req.VideoID, "results", len(items))
	return items, nil
}

// Playlist returns the playable entries of a playlist, skipping deleted videos.
func (s *catalogService) Playlist(ctx context.Context, playlistID string) ([]domain.QueueEntry, error) {
	items, err := s.catalog.Search(ctx, domain.SearchRequest{PlaylistID: playlistID})
	if err != nil {
		return nil, fmt.Errorf("load playlist %s: %w", playlistID, err)
	}

	var entries []domain.QueueEntry
	for _, item := range items {
		for _, v := range item.Videos {
			if v.VideoID != "" {
				entries = append(entries, v)
			}
		}
	}
	if len(entries) == 0 {
		return nil, domain.ErrEmptyPlaylist
	}
	return entries, nil
}

// Suggestions offers up-next candidates from the last search, without a
// fresh catalog call.
func (s *catalogService) Suggestions(exclude string) []domain.CatalogItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CatalogItem, 0, s.limit)
	for _, item := range s.lastVideos {
		if item.ID == exclude {
			continue
		}
		out = append(out, item)
		if len(out) == s.limit {
			break
		}
	}
	return out
}
