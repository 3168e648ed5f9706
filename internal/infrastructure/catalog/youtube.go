package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/pkg/cache"
	"watchparty/pkg/circuitbreaker"
	"watchparty/pkg/clock"
	"watchparty/pkg/retry"
	"watchparty/pkg/tracing"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var ErrCatalogDisabled = errors.New("catalog disabled: no API key configured")

const (
	kindVideo    = "youtube#video"
	kindPlaylist = "youtube#playlist"
)

var detailParts = []string{"snippet", "contentDetails"}

type Config struct {
	APIKey          string
	SearchResults   int64
	PlaylistResults int64
	CacheTTL        time.Duration
	RequestTimeout  time.Duration
	// Endpoint overrides the API base URL.
	Endpoint string
}

func DefaultConfig() Config {
	return Config{
		SearchResults:   20,
		PlaylistResults: 50,
		CacheTTL:        10 * time.Minute,
		RequestTimeout:  10 * time.Second,
	}
}

// YouTube implements ports.Catalog on the YouTube Data API. Responses are
// cached per request and calls go through a circuit breaker so a quota
// outage fails fast.
type YouTube struct {
	config  Config
	service *youtube.Service
	cache   *cache.Cache[[]domain.CatalogItem]
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	logger  *zap.SugaredLogger
}

func NewYouTube(ctx context.Context, config Config, clk clock.Clock, logger *zap.SugaredLogger) (*YouTube, error) {
	if config.APIKey == "" {
		return nil, ErrCatalogDisabled
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.IsFailure = isServerFailure
	breaker := circuitbreaker.New(breakerCfg, clk)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("catalog circuit breaker changed state", "from", from.String(), "to", to.String())
	})

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 2

	return &YouTube{
		config:  config,
		service: service,
		cache:   cache.New[[]domain.CatalogItem](config.CacheTTL, clk),
		breaker: breaker,
		retry:   retryCfg,
		logger:  logger,
	}, nil
}

var _ ports.Catalog = (*YouTube)(nil)

// Search serves exactly one of a video lookup, a playlist with its items,
// or a keyword search.
func (y *YouTube) Search(ctx context.Context, req domain.SearchRequest) ([]domain.CatalogItem, error) {
	ctx, span := tracing.TraceCatalog(ctx, "youtube.search")
	defer span.End()
	if y.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.config.RequestTimeout)
		defer cancel()
	}

	var load func(ctx context.Context) ([]domain.CatalogItem, error)
	switch {
	case req.VideoID != "":
		load = func(ctx context.Context) ([]domain.CatalogItem, error) { return y.videos(ctx, []string{req.VideoID}) }
	case req.PlaylistID != "":
		load = func(ctx context.Context) ([]domain.CatalogItem, error) { return y.playlist(ctx, req.PlaylistID) }
	case req.Query != "":
		load = func(ctx context.Context) ([]domain.CatalogItem, error) { return y.search(ctx, req.Query, req.SearchType) }
	default:
		return nil, domain.ErrEmptyQuery
	}

	items, err := y.cache.GetOrLoad(ctx, req.CacheKey(), func(ctx context.Context) ([]domain.CatalogItem, error) {
		return circuitbreaker.Do(ctx, y.breaker, func(ctx context.Context) ([]domain.CatalogItem, error) {
			return retry.Do(ctx, y.retry, func() ([]domain.CatalogItem, error) {
				items, err := load(ctx)
				if err != nil && !isServerFailure(err) {
					return nil, retry.Permanent(err)
				}
				return items, err
			})
		})
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		y.logger.Warnw("catalog request failed", "request", req.CacheKey(), "error", err)
		return nil, err
	}
	return items, nil
}

func (y *YouTube) videos(ctx context.Context, ids []string) ([]domain.CatalogItem, error) {
	resp, err := y.service.Videos.List(detailParts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list: %w", err)
	}
	items := make([]domain.CatalogItem, 0, len(resp.Items))
	for _, v := range resp.Items {
		items = append(items, videoItem(v))
	}
	return items, nil
}

func (y *YouTube) playlists(ctx context.Context, ids []string) (map[string]*youtube.Playlist, error) {
	resp, err := y.service.Playlists.List(detailParts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("playlists.list: %w", err)
	}
	out := make(map[string]*youtube.Playlist, len(resp.Items))
	for _, p := range resp.Items {
		out[p.Id] = p
	}
	return out, nil
}

// playlist returns one playlist item carrying its first page of videos.
func (y *YouTube) playlist(ctx context.Context, playlistID string) ([]domain.CatalogItem, error) {
	details, err := y.playlists(ctx, []string{playlistID})
	if err != nil {
		return nil, err
	}
	p, ok := details[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, domain.ErrEmptyPlaylist)
	}

	resp, err := y.service.PlaylistItems.List(detailParts).
		PlaylistId(playlistID).
		MaxResults(y.config.PlaylistResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("playlistItems.list: %w", err)
	}

	item := playlistItem(p)
	for _, pi := range resp.Items {
		if entry, ok := playlistEntry(pi); ok {
			item.Videos = append(item.Videos, entry)
		}
	}
	return []domain.CatalogItem{item}, nil
}

// search runs search.list, then replaces each hit with its full details
// so videos and playlists carry the same fields as direct lookups.
func (y *YouTube) search(ctx context.Context, query, searchType string) ([]domain.CatalogItem, error) {
	if searchType == "" {
		searchType = "video"
	}
	resp, err := y.service.Search.List([]string{"snippet"}).
		Q(query).
		Type(searchType).
		MaxResults(y.config.SearchResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search.list: %w", err)
	}

	var videoIDs, playlistIDs []string
	for _, r := range resp.Items {
		if r.Id == nil {
			continue
		}
		switch r.Id.Kind {
		case kindVideo:
			videoIDs = append(videoIDs, r.Id.VideoId)
		case kindPlaylist:
			playlistIDs = append(playlistIDs, r.Id.PlaylistId)
		}
	}

	var results []domain.CatalogItem
	if len(playlistIDs) > 0 {
		details, err := y.playlists(ctx, playlistIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range playlistIDs {
			if p, ok := details[id]; ok {
				results = append(results, playlistItem(p))
			}
		}
	}
	if len(videoIDs) > 0 {
		videos, err := y.videos(ctx, videoIDs)
		if err != nil {
			return nil, err
		}
		results = append(results, videos...)
	}
	return results, nil
}

func videoItem(v *youtube.Video) domain.CatalogItem {
	item := domain.CatalogItem{Kind: domain.CatalogVideo, ID: v.Id}
	if v.Snippet != nil {
		item.Title = v.Snippet.Title
		item.Channel = v.Snippet.ChannelTitle
		item.ThumbnailURL = thumbnail(v.Snippet.Thumbnails)
	}
	return item
}

func playlistItem(p *youtube.Playlist) domain.CatalogItem {
	item := domain.CatalogItem{Kind: domain.CatalogPlaylist, ID: p.Id}
	if p.Snippet != nil {
		item.Title = p.Snippet.Title
		item.Channel = p.Snippet.ChannelTitle
		item.ThumbnailURL = thumbnail(p.Snippet.Thumbnails)
	}
	if p.ContentDetails != nil {
		item.ItemCount = p.ContentDetails.ItemCount
	}
	return item
}

// playlistEntry skips deleted and private videos, which keep their slot
// in the playlist without a playable ID.
func playlistEntry(pi *youtube.PlaylistItem) (domain.QueueEntry, bool) {
	if pi.Snippet == nil {
		return domain.QueueEntry{}, false
	}
	var videoID string
	if pi.ContentDetails != nil {
		videoID = pi.ContentDetails.VideoId
	}
	if videoID == "" && pi.Snippet.ResourceId != nil {
		videoID = pi.Snippet.ResourceId.VideoId
	}
	switch pi.Snippet.Title {
	case "Deleted video", "Private video":
		return domain.QueueEntry{}, false
	}
	if videoID == "" {
		return domain.QueueEntry{}, false
	}
	return domain.QueueEntry{
		VideoID:      videoID,
		Title:        pi.Snippet.Title,
		ThumbnailURL: thumbnail(pi.Snippet.Thumbnails),
	}, true
}

func thumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Medium, t.High, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// isServerFailure reports errors that say nothing about the request itself.
// A 4xx (bad key, quota, unknown id) is the caller's problem.
func isServerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, domain.ErrEmptyPlaylist)
}
