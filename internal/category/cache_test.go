package category

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	categories []model.Category
	err        error
	calls      int
}

func (s *stubSource) Categories(ctx context.Context) ([]model.Category, error) {
	s.calls++
	return s.categories, s.err
}

func ptr[T any](v T) *T { return &v }

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "test:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

func TestCache_Name(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{categories: []model.Category{
		{ID: 87, Name: "Carburant"},
		{ID: 230, Name: "Salaires"},
	}}
	c := NewCache(src)

	t.Run("before load ids are unknown", func(t *testing.T) {
		assert.Equal(t, "unknown category 87", c.Name(ptr(int64(87))))
	})

	require.NoError(t, c.Load(ctx))

	t.Run("known id", func(t *testing.T) {
		assert.Equal(t, "Carburant", c.Name(ptr(int64(87))))
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.Equal(t, "unknown category 999", c.Name(ptr(int64(999))))
	})

	t.Run("nil id", func(t *testing.T) {
		assert.Equal(t, "unknown category", c.Name(nil))
	})

	t.Run("all sorted", func(t *testing.T) {
		all := c.All()
		require.Len(t, all, 2)
		assert.Equal(t, int64(87), all[0].ID)
	})
}

func TestCache_LoadError(t *testing.T) {
	src := &stubSource{err: errors.New("boom")}
	c := NewCache(src)

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, "unknown category 1", c.Name(ptr(int64(1))))
}

func TestCache_EnsureLoadedAndInvalidate(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{categories: []model.Category{{ID: 1, Name: "A"}}}
	c := NewCache(src)

	require.NoError(t, c.EnsureLoaded(ctx))
	require.NoError(t, c.EnsureLoaded(ctx))
	assert.Equal(t, 1, src.calls)

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, "unknown category 1", c.Name(ptr(int64(1))))

	require.NoError(t, c.EnsureLoaded(ctx))
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, "A", c.Name(ptr(int64(1))))
}

func TestCache_Snapshot(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	src := &stubSource{categories: []model.Category{{ID: 180, Name: "Internet"}}}
	first := NewCache(src, WithSnapshot(adapter, time.Hour))
	require.NoError(t, first.Load(ctx))
	assert.True(t, mr.Exists("test:"+snapshotKey))

	t.Run("second cache reads the snapshot", func(t *testing.T) {
		other := &stubSource{err: errors.New("must not be called")}
		second := NewCache(other, WithSnapshot(adapter, time.Hour))
		require.NoError(t, second.Load(ctx))
		assert.Equal(t, 0, other.calls)
		assert.Equal(t, "Internet", second.Name(ptr(int64(180))))
	})

	t.Run("invalidate drops the snapshot", func(t *testing.T) {
		require.NoError(t, first.Invalidate(ctx))
		assert.False(t, mr.Exists("test:"+snapshotKey))
	})

	t.Run("snapshot expires", func(t *testing.T) {
		require.NoError(t, first.Load(ctx))
		mr.FastForward(2 * time.Hour)
		assert.False(t, mr.Exists("test:"+snapshotKey))
	})
}
