package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"risk-analytics/internal/common/errors"
)

type cachedPayload struct {
	Total int      `json:"total"`
	Tags  []string `json:"tags"`
}

func newTestCache(t *testing.T) (*AnalyticsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewAnalyticsCache(client), mr
}

func TestKey(t *testing.T) {
	a, err := Key("portfolio", "user-1", map[string]interface{}{"page": 1, "limit": 50})
	require.NoError(t, err)
	b, err := Key("portfolio", "user-1", map[string]interface{}{"limit": 50, "page": 1})
	require.NoError(t, err)
	c, err := Key("portfolio", "user-2", map[string]interface{}{"page": 1, "limit": 50})
	require.NoError(t, err)

	assert.Equal(t, a, b, "map keys are encoded in sorted order")
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^analytics:portfolio:user-1:[0-9a-f]{32}$`, a)

	_, err = Key("portfolio", "user-1", make(chan int))
	assert.Error(t, err)
}

func TestSetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var out cachedPayload
	hit, err := c.Get(ctx, "analytics:portfolio:u:1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "analytics:portfolio:u:1", cachedPayload{Total: 3, Tags: []string{"a"}}, time.Minute))
	hit, err = c.Get(ctx, "analytics:portfolio:u:1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, cachedPayload{Total: 3, Tags: []string{"a"}}, out)

	mr.FastForward(2 * time.Minute)
	hit, err = c.Get(ctx, "analytics:portfolio:u:1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSet_ZeroTTLSkipsWrite(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, c.Set(context.Background(), "k", cachedPayload{}, 0))
	assert.False(t, mr.Exists("k"))
}

func TestGet_CorruptValueIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("k", "not json"))

	var out cachedPayload
	hit, err := c.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists("k"))
}

func TestGet_BackendDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	var out cachedPayload
	_, err := c.Get(context.Background(), "k", &out)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCacheOperationFailed, errors.AsStandardError(err).Code)
}

func TestInvalidateUser(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{
		"analytics:portfolio:u1:aa",
		"analytics:company:u1:bb",
		"analytics:portfolio:u2:cc",
	} {
		require.NoError(t, c.Set(ctx, k, cachedPayload{Total: 1}, time.Minute))
	}

	n, err := c.InvalidateUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("analytics:portfolio:u2:cc"))
	assert.False(t, mr.Exists("analytics:portfolio:u1:aa"))
}

func TestAlertClaim(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := AlertKey("user-1", "msme")

	ok, err := c.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	// Invalidating analytics does not reset the alert cooldown.
	_, err = c.InvalidateUser(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))

	require.NoError(t, c.Release(ctx, key))
	ok, err = c.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Hour)
	assert.False(t, mr.Exists(key))
}
