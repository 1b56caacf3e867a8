package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/co2-estimator/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncEvent struct {
	AccountID int64 `json:"account_id"`
	Scratch   bool  `json:"scratch"`
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	// unique connection name, adapters are cached by name
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "test:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

func testConfig(name string) QueueConfig {
	return QueueConfig{
		Name:              name,
		ConsumerGroup:     "processors",
		ConsumerName:      "processor-1",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      20 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func TestNewQueue(t *testing.T) {
	_, adapter := setupTestRedis(t)

	t.Run("name is required", func(t *testing.T) {
		_, err := NewQueue(adapter, QueueConfig{})
		assert.ErrorIs(t, err, ErrNameRequired)
	})

	t.Run("defaults", func(t *testing.T) {
		q, err := NewQueue(adapter, QueueConfig{Name: "sync-events"})
		require.NoError(t, err)
		cfg := q.Config()
		assert.Equal(t, "default-group", cfg.ConsumerGroup)
		assert.NotEmpty(t, cfg.ConsumerName)
		assert.Equal(t, 3, cfg.MaxRetries)
		assert.Equal(t, 30*time.Second, cfg.VisibilityTimeout)
		assert.Equal(t, int64(10), cfg.BatchSize)
	})

	t.Run("existing group is reused", func(t *testing.T) {
		_, err := NewQueue(adapter, testConfig("sync-events"))
		require.NoError(t, err)
		_, err = NewQueue(adapter, testConfig("sync-events"))
		assert.NoError(t, err)
	})
}

func TestQueue_PublishAndConsume(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig("sync-events"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	_, err = q.PublishJSON(ctx, syncEvent{AccountID: 42, Scratch: true}, map[string]string{"type": "scratch"})
	require.NoError(t, err)

	received := make(chan *Message, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	select {
	case msg := <-received:
		var ev syncEvent
		require.NoError(t, msg.Decode(&ev))
		assert.Equal(t, int64(42), ev.AccountID)
		assert.True(t, ev.Scratch)
		assert.Equal(t, "scratch", msg.Metadata["type"])
		assert.Zero(t, msg.Attempts)
		assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Minute)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	assert.ErrorIs(t, q.Consume(func(context.Context, *Message) error { return nil }), ErrAlreadyRunning)
	assert.ErrorIs(t, q.Consume(nil), ErrHandlerRequired)
}

func TestQueue_AckOnSuccess(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig("sync-events"))
	require.NoError(t, err)
	q.handler = func(context.Context, *Message) error { return nil }

	ctx := context.Background()
	_, err = q.PublishJSON(ctx, syncEvent{AccountID: 1}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, q.poll(ctx))

	stats, err := q.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalMessages)
	assert.Zero(t, stats.PendingMessages)
}

func TestQueue_RetryThenDeadLetter(t *testing.T) {
	_, adapter := setupTestRedis(t)
	cfg := testConfig("sync-events")
	cfg.VisibilityTimeout = 10 * time.Millisecond
	cfg.MaxRetries = 2
	q, err := NewQueue(adapter, cfg)
	require.NoError(t, err)

	var calls atomic.Int32
	q.handler = func(context.Context, *Message) error {
		calls.Add(1)
		return assert.AnError
	}

	ctx := context.Background()
	_, err = q.PublishJSON(ctx, syncEvent{AccountID: 7}, map[string]string{"type": "refresh"})
	require.NoError(t, err)

	// first delivery fails and stays pending
	q.poll(ctx)
	stats, err := q.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingMessages)

	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		q.poll(ctx)
	}

	assert.Equal(t, int32(2), calls.Load())

	stats, err = q.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PendingMessages)
	assert.Equal(t, int64(1), stats.DeadLetters)
}

func TestQueue_RetrySucceeds(t *testing.T) {
	_, adapter := setupTestRedis(t)
	cfg := testConfig("sync-events")
	cfg.VisibilityTimeout = 10 * time.Millisecond
	q, err := NewQueue(adapter, cfg)
	require.NoError(t, err)

	var attempts []int
	q.handler = func(_ context.Context, msg *Message) error {
		attempts = append(attempts, msg.Attempts)
		if len(attempts) == 1 {
			return assert.AnError
		}
		return nil
	}

	ctx := context.Background()
	_, err = q.PublishJSON(ctx, syncEvent{AccountID: 7}, nil)
	require.NoError(t, err)

	q.poll(ctx)
	time.Sleep(20 * time.Millisecond)
	q.poll(ctx)

	assert.Equal(t, []int{0, 1}, attempts)
	stats, err := q.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PendingMessages)
	assert.Zero(t, stats.DeadLetters)
}

func TestQueue_Stop(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig("sync-events"))
	require.NoError(t, err)

	require.NoError(t, q.Consume(func(context.Context, *Message) error { return nil }))
	assert.NoError(t, q.Stop(time.Second))
}
