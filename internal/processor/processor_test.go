package processor

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/queue"
	"github.com/nimasrn/co2-estimator/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProcessorService_EndToEnd(t *testing.T) {
	_, adapter := setupTestRedis(t)
	syncer := new(MockSyncer)

	qcfg := queue.QueueConfig{
		Name:          "sync-events",
		ConsumerGroup: "processors",
		ConsumerName:  "test",
		PollInterval:  10 * time.Millisecond,
	}

	done := make(chan struct{})
	syncer.On("Refresh", mock.Anything, int64(11), mock.Anything).
		Run(func(mock.Arguments) { close(done) }).
		Return(&services.SyncResult{AccountID: 11}, nil).Once()

	svc := NewProcessorService(adapter, NewSyncProcessor(syncer, NewAccountLocker(adapter, DefaultLockConfig())), ServiceConfig{
		Queue:     qcfg,
		Consumers: 2,
		Workers:   2,
	})
	require.NoError(t, svc.Start())

	publisher, err := queue.NewQueue(adapter, qcfg)
	require.NoError(t, err)
	_, err = publisher.PublishJSON(context.Background(), model.SyncEvent{ID: "e1", Type: model.SyncEventRefresh, AccountID: 11}, nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("event not processed")
	}

	svc.Stop()
	syncer.AssertExpectations(t)
	assert.Equal(t, int64(1), svc.Metrics().GetStats().Processed)
}

func TestServiceMetrics(t *testing.T) {
	m := NewServiceMetrics()
	m.RecordSuccess(10 * time.Millisecond)
	m.RecordSuccess(30 * time.Millisecond)
	m.RecordFailure()

	st := m.GetStats()
	assert.Equal(t, int64(2), st.Processed)
	assert.Equal(t, int64(1), st.Failed)
	assert.Equal(t, 20*time.Millisecond, st.AvgDuration)

	m.Reset()
	assert.Zero(t, m.GetStats().Processed)
}
