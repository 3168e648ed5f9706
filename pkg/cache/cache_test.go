package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"watchparty/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Expiry(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	c := New[string](time.Minute, clk)

	c.Set("video:abc", "Never Gonna Give You Up")
	v, ok := c.Get("video:abc")
	require.True(t, ok)
	assert.Equal(t, "Never Gonna Give You Up", v)

	clk.Advance(time.Minute)
	_, ok = c.Get("video:abc")
	assert.False(t, ok)
	assert.Equal(t, Stats{Size: 0, Hits: 1, Misses: 1}, c.GetStats())
}

func TestCache_SweepOnWrite(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	c := New[int](time.Minute, clk)

	c.Set("a", 1)
	c.SetWithTTL("b", 2, time.Hour)
	clk.Advance(2 * time.Minute)
	c.Set("c", 3)

	assert.Equal(t, 2, c.GetStats().Size)
}

func TestCache_GetOrLoad(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	c := New[[]string](time.Minute, clk)
	ctx := context.Background()

	loads := 0
	load := func(ctx context.Context) ([]string, error) {
		loads++
		return []string{"v1", "v2"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(ctx, "search:cats", load)
		require.NoError(t, err)
		assert.Len(t, v, 2)
	}
	assert.Equal(t, 1, loads)

	_, err := c.GetOrLoad(ctx, "search:dogs", func(ctx context.Context) ([]string, error) {
		return nil, errors.New("quota exceeded")
	})
	assert.Error(t, err)
	_, ok := c.Get("search:dogs")
	assert.False(t, ok, "errors must not be cached")
}

func TestCache_Invalidate(t *testing.T) {
	c := New[int](time.Minute, clock.NewFake(time.Unix(0, 0)))
	c.Set("search:a", 1)
	c.Set("search:b", 2)
	c.Set("video:a", 3)

	c.Invalidate("search:")
	assert.Equal(t, 1, c.GetStats().Size)

	c.Delete("video:a")
	_, ok := c.Get("video:a")
	assert.False(t, ok)
}
