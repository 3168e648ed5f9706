package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"watchparty/internal/core/domain"
	"watchparty/pkg/circuitbreaker"
	"watchparty/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	queries  []string
	failWith int
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAPI) fail(status int) {
	f.mu.Lock()
	f.failWith = status
	f.mu.Unlock()
}

func ids(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["id"] {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func snippet(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":        title,
		"channelTitle": "Channel",
		"thumbnails": map[string]interface{}{
			"default": map[string]interface{}{"url": "https://i.ytimg.com/default.jpg"},
			"medium":  map[string]interface{}{"url": "https://i.ytimg.com/medium.jpg"},
		},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[r.URL.Path]++
	f.queries = append(f.queries, r.URL.RawQuery)
	failWith := f.failWith
	f.mu.Unlock()

	if failWith != 0 {
		w.WriteHeader(failWith)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": failWith, "message": "backend error"},
		})
		return
	}

	var items []map[string]interface{}
	switch r.URL.Path {
	case "/youtube/v3/videos":
		for _, id := range ids(r) {
			items = append(items, map[string]interface{}{"kind": "youtube#video", "id": id, "snippet": snippet("Video " + id)})
		}
	case "/youtube/v3/playlists":
		for _, id := range ids(r) {
			items = append(items, map[string]interface{}{
				"kind": "youtube#playlist", "id": id, "snippet": snippet("Playlist " + id),
				"contentDetails": map[string]interface{}{"itemCount": 3},
			})
		}
	case "/youtube/v3/playlistItems":
		for _, e := range []struct{ id, title string }{{"v1", "First"}, {"v2", "Deleted video"}, {"v3", "Third"}} {
			items = append(items, map[string]interface{}{
				"snippet":        snippet(e.title),
				"contentDetails": map[string]interface{}{"videoId": e.id},
			})
		}
	case "/youtube/v3/search":
		items = []map[string]interface{}{
			{"id": map[string]interface{}{"kind": "youtube#video", "videoId": "v1"}},
			{"id": map[string]interface{}{"kind": "youtube#playlist", "playlistId": "PL1"}},
			{"id": map[string]interface{}{"kind": "youtube#channel", "channelId": "UC1"}},
			{"id": map[string]interface{}{"kind": "youtube#video", "videoId": "v2"}},
		}
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
}

func newTestYouTube(t *testing.T) (*YouTube, *fakeAPI, *clock.Fake) {
	t.Helper()
	api := &fakeAPI{}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	clk := clock.NewFake(time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.Endpoint = server.URL + "/"

	yt, err := NewYouTube(context.Background(), cfg, clk, zap.NewNop().Sugar())
	require.NoError(t, err)
	yt.retry.InitialDelay = time.Millisecond
	yt.retry.Jitter = false
	return yt, api, clk
}

func TestNewYouTube_RequiresKey(t *testing.T) {
	_, err := NewYouTube(context.Background(), DefaultConfig(), clock.New(), zap.NewNop().Sugar())
	assert.ErrorIs(t, err, ErrCatalogDisabled)
}

func TestYouTube_VideoLookup(t *testing.T) {
	yt, api, _ := newTestYouTube(t)

	items, err := yt.Search(context.Background(), domain.SearchRequest{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.CatalogItem{
		Kind:         domain.CatalogVideo,
		ID:           "dQw4w9WgXcQ",
		Title:        "Video dQw4w9WgXcQ",
		Channel:      "Channel",
		ThumbnailURL: "https://i.ytimg.com/medium.jpg",
	}, items[0])
	assert.Equal(t, 1, api.count("/youtube/v3/videos"))
}

func TestYouTube_PlaylistSkipsDeletedVideos(t *testing.T) {
	yt, api, _ := newTestYouTube(t)

	items, err := yt.Search(context.Background(), domain.SearchRequest{PlaylistID: "PL1"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	pl := items[0]
	assert.Equal(t, domain.CatalogPlaylist, pl.Kind)
	assert.Equal(t, "Playlist PL1", pl.Title)
	assert.Equal(t, int64(3), pl.ItemCount)
	require.Len(t, pl.Videos, 2)
	assert.Equal(t, "v1", pl.Videos[0].VideoID)
	assert.Equal(t, "v3", pl.Videos[1].VideoID)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Contains(t, strings.Join(api.queries, "&"), "maxResults=50")
}

func TestYouTube_SearchResolvesDetails(t *testing.T) {
	yt, api, _ := newTestYouTube(t)

	items, err := yt.Search(context.Background(), domain.SearchRequest{Query: "lofi", SearchType: "video,playlist"})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, domain.CatalogPlaylist, items[0].Kind)
	assert.Equal(t, "PL1", items[0].ID)
	assert.Equal(t, "v1", items[1].ID)
	assert.Equal(t, "v2", items[2].ID)
	assert.Equal(t, 1, api.count("/youtube/v3/search"))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Contains(t, api.queries[0], "maxResults=20")
}

func TestYouTube_CachesResponses(t *testing.T) {
	yt, api, clk := newTestYouTube(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := yt.Search(ctx, domain.SearchRequest{VideoID: "abc"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, api.count("/youtube/v3/videos"))

	clk.Advance(DefaultConfig().CacheTTL)
	_, err := yt.Search(ctx, domain.SearchRequest{VideoID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("/youtube/v3/videos"))
}

func TestYouTube_ClientErrorsAreNotRetried(t *testing.T) {
	yt, api, _ := newTestYouTube(t)
	api.fail(http.StatusForbidden)

	for i := 0; i < 10; i++ {
		_, err := yt.Search(context.Background(), domain.SearchRequest{VideoID: "abc"})
		require.Error(t, err)
	}
	assert.Equal(t, 10, api.count("/youtube/v3/videos"))
	assert.Equal(t, circuitbreaker.StateClosed, yt.breaker.GetState())
}

func TestYouTube_ServerErrorsOpenTheCircuit(t *testing.T) {
	yt, api, _ := newTestYouTube(t)
	api.fail(http.StatusServiceUnavailable)
	ctx := context.Background()

	threshold := circuitbreaker.DefaultConfig().FailureThreshold
	for i := 0; i < threshold; i++ {
		_, err := yt.Search(ctx, domain.SearchRequest{VideoID: "abc"})
		require.Error(t, err)
	}
	// each failed search retried twice
	assert.Equal(t, threshold*3, api.count("/youtube/v3/videos"))
	assert.Equal(t, circuitbreaker.StateOpen, yt.breaker.GetState())

	_, err := yt.Search(ctx, domain.SearchRequest{VideoID: "abc"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, threshold*3, api.count("/youtube/v3/videos"))
}

func TestYouTube_EmptyRequest(t *testing.T) {
	yt, _, _ := newTestYouTube(t)
	_, err := yt.Search(context.Background(), domain.SearchRequest{})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}
