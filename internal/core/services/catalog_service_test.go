package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"watchparty/internal/core/domain"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Search(ctx context.Context, req domain.SearchRequest) ([]domain.CatalogItem, error) {
	args := m.Called(ctx, req)
	items, _ := args.Get(0).([]domain.CatalogItem)
	return items, args.Error(1)
}

func video(id string) domain.CatalogItem {
	return domain.CatalogItem{Kind: domain.CatalogVideo, ID: id, Title: "Video " + id}
}

func TestCatalogService_SearchByKeyword(t *testing.T) {
	catalog := &mockCatalog{}
	svc := NewCatalogService(catalog, time.Hour, 0, nil, zaptest.NewLogger(t).Sugar())

	items := []domain.CatalogItem{
		video("a"),
		{Kind: domain.CatalogPlaylist, ID: "PL1", Title: "Mix", ItemCount: 12},
		video("b"),
	}
	catalog.On("Search", mock.Anything, domain.SearchRequest{Query: "lofi beats", SearchType: DefaultSearchType}).
		Return(items, nil).Once()

	got, err := svc.Search(context.Background(), "  lofi beats ")

	require.NoError(t, err)
	assert.Equal(t, items, got)
	assert.Equal(t, []domain.CatalogItem{video("b")}, svc.Suggestions("a"))
	catalog.AssertExpectations(t)
}

func TestCatalogService_SearchDetectsVideoLink(t *testing.T) {
	catalog := &mockCatalog{}
	svc := NewCatalogService(catalog, time.Hour, 0, nil, zaptest.NewLogger(t).Sugar())

	catalog.On("Search", mock.Anything, domain.SearchRequest{VideoID: "dQw4w9WgXcQ"}).
		Return([]domain.CatalogItem{video("dQw4w9WgXcQ")}, nil).Once()

	got, err := svc.Search(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")

	require.NoError(t, err)
	require.Len(t, got, 1)
	catalog.AssertExpectations(t)
}

func TestCatalogService_SearchCooldown(t *testing.T) {
	catalog := &mockCatalog{}
	svc := NewCatalogService(catalog, time.Hour, 0, nil, zaptest.NewLogger(t).Sugar())
	catalog.On("Search", mock.Anything, mock.Anything).Return([]domain.CatalogItem{}, nil).Once()

	_, err := svc.Search(context.Background(), "first")
	require.NoError(t, err)

	_, err = svc.Search(context.Background(), "second")
	assert.ErrorIs(t, err, domain.ErrSearchCooldown)
	catalog.AssertNumberOfCalls(t, "Search", 1)
}

func TestCatalogService_EmptyQuery(t *testing.T) {
	catalog := &mockCatalog{}
	svc := NewCatalogService(catalog, time.Hour, 0, nil, zaptest.NewLogger(t).Sugar())

	_, err := svc.Search(context.Background(), "   ")

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestCatalogService_SearchError(t *testing.T) {
	catalog := &mockCatalog{}
	svc := NewCatalogService(catalog, time.Hour, 0, nil, zaptest.NewLogger(t).Sugar())
	boom := errors.New("quota exceeded")
	catalog.On("Search", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := svc.Search(context.Background(), "anything")

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, svc.Suggestions(""))
}

func TestCatalogService_SuggestionsKeepLastVideoResults(t *testing.T) {
	catalog := &mockCatalog{}
	svc := NewCatalogService(catalog, time.Nanosecond, 2, nil, zaptest.NewLogger(t).Sugar())

	catalog.On("Search", mock.Anything, domain.SearchRequest{Query: "one", SearchType: DefaultSearchType}).
		Return([]domain.CatalogItem{video("a"), video("b"), video("c")}, nil)
	catalog.On("Search", mock.Anything, domain.SearchRequest{Query: "two", SearchType: DefaultSearchType}).
		Return([]domain.CatalogItem{{Kind: domain.CatalogPlaylist, ID: "PL"}}, nil)

	_, err := svc.Search(context.Background(), "one")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = svc.Search(context.Background(), "two")
	require.NoError(t, err)

	// playlist-only results keep the earlier videos
	assert.Equal(t, []domain.CatalogItem{video("a"), video("b")}, svc.Suggestions("x"))
	assert.Equal(t, []domain.CatalogItem{video("a"), video("c")}, svc.Suggestions("b"))
}

func TestCatalogService_Playlist(t *testing.T) {
	catalog := &mockCatalog{}
	svc := NewCatalogService(catalog, time.Hour, 0, nil, zaptest.NewLogger(t).Sugar())

	catalog.On("Search", mock.Anything, domain.SearchRequest{PlaylistID: "PL1"}).Return([]domain.CatalogItem{{
		Kind: domain.CatalogPlaylist,
		ID:   "PL1",
		Videos: []domain.QueueEntry{
			{VideoID: "a", Title: "A"},
			{VideoID: "", Title: "Deleted video"},
			{VideoID: "b", Title: "B"},
		},
	}}, nil)
	catalog.On("Search", mock.Anything, domain.SearchRequest{PlaylistID: "PL2"}).Return([]domain.CatalogItem{{
		Kind:   domain.CatalogPlaylist,
		ID:     "PL2",
		Videos: []domain.QueueEntry{{VideoID: "", Title: "Private video"}},
	}}, nil)

	entries, err := svc.Playlist(context.Background(), "PL1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, queueIDs(entries))

	_, err = svc.Playlist(context.Background(), "PL2")
	assert.ErrorIs(t, err, domain.ErrEmptyPlaylist)
}
