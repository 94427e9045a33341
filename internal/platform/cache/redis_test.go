package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute)
}

func TestVersionInitialisesAndBumps(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ver, err := c.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	require.NoError(t, c.Bump(ctx))
	ver, err = c.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), ver)
}

func TestBuildKeyEmbedsVersion(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "reports", "tb", "org", "7")
	require.NoError(t, err)
	require.Equal(t, "reports:tb:org:7:1", key)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "reports", "tb", "org", "7")
	require.NoError(t, err)
	require.Equal(t, "reports:tb:org:7:2", key)
}

func TestFetchJSONCachesLoaderResult(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Total float64 `json:"total"`
	}

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Total: 42.5}, nil
	}

	var out payload
	require.NoError(t, c.FetchJSON(ctx, "k", &out, loader))
	require.Equal(t, 42.5, out.Total)
	require.Equal(t, 1, calls)

	out = payload{}
	require.NoError(t, c.FetchJSON(ctx, "k", &out, loader))
	require.Equal(t, 42.5, out.Total)
	require.Equal(t, 1, calls)
}

func TestFetchJSONRequiresLoader(t *testing.T) {
	c := newTestCache(t)
	var out map[string]any
	require.Error(t, c.FetchJSON(context.Background(), "k", &out, nil))
}

func TestNilCacheFallsThroughToLoader(t *testing.T) {
	var c *Cache
	calls := 0
	var out int
	loader := func(context.Context) (any, error) {
		calls++
		return 7, nil
	}

	require.NoError(t, c.FetchJSON(context.Background(), "k", &out, loader))
	require.NoError(t, c.FetchJSON(context.Background(), "k", &out, loader))
	require.Equal(t, 2, calls)
	require.Equal(t, 7, out)

	require.NoError(t, c.Bump(context.Background()))
	key, err := c.BuildKey(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Equal(t, "a:b", key)
}
