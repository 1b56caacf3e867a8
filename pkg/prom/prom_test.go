package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingBeforeCreateIsNoop(t *testing.T) {
	mu.Lock()
	enabled, registry = false, nil
	mu.Unlock()

	assert.NotPanics(t, func() {
		IncClassified("train")
		ObserveSyncPass("refresh", "ok", 0.1)
	})
	assert.Nil(t, Gatherer())
}

func TestCreateAndRecord(t *testing.T) {
	require.NoError(t, Create("host", "test", "co2"))

	ObserveSyncPass("refresh", "ok", 0.2)
	AddSyncRecords("created", 3)
	AddSyncRecords("updated", 0)
	IncClassified("train")
	IncClassified("train")
	SetBreakerState("bridgeapi", 2)
	IncEventProcessed("refresh", "ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(counters[SystemSync+MetricSyncPasses].WithLabelValues("refresh", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(counters[SystemSync+MetricSyncRecords].WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(counters[SystemEstimator+MetricClassified].WithLabelValues("train")))
	assert.Equal(t, 2.0, testutil.ToFloat64(gauges[SystemBridge+MetricBridgeBreakerState].WithLabelValues("bridgeapi")))

	families, err := Gatherer().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["co2_sync_passes_total"])
	assert.True(t, names["co2_events_processed_total"])

	require.NoError(t, Create("host", "test", "co2"), "recreating replaces the registry")
}
