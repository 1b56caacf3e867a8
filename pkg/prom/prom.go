package prom

import (
	"sync"

	xhttp "github.com/nimasrn/co2-estimator/pkg/http"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemSync      = "sync"
	SystemEstimator = "estimator"
	SystemBridge    = "bridgeapi"
	SystemEvents    = "events"
)

const (
	MetricSyncPasses         = "passes_total"
	MetricSyncRecords        = "records_total"
	MetricSyncDuration       = "duration_seconds"
	MetricClassified         = "classified_total"
	MetricBridgeRequests     = "requests_total"
	MetricBridgeDuration     = "request_duration_seconds"
	MetricBridgeBreakerState = "breaker_state"
	MetricEventsProcessed    = "processed_total"
)

var (
	mu       sync.RWMutex
	enabled  bool
	registry *prometheus.Registry

	counters   = map[string]*prometheus.CounterVec{}
	histograms = map[string]*prometheus.HistogramVec{}
	gauges     = map[string]*prometheus.GaugeVec{}
)

// Create registers every metric under namespace. Until it runs, recording is a no-op.
// Calling it again replaces the previous registry.
func Create(host, env, namespace string) error {
	mu.Lock()
	defer mu.Unlock()

	registry = prometheus.NewRegistry()
	counters = map[string]*prometheus.CounterVec{}
	histograms = map[string]*prometheus.HistogramVec{}
	gauges = map[string]*prometheus.GaugeVec{}
	labels := prometheus.Labels{"env": env, "instance": host}

	counter := func(subsystem, name string, labelNames ...string) {
		counters[subsystem+name] = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, ConstLabels: labels,
		}, labelNames)
	}
	histogram := func(subsystem, name string, labelNames ...string) {
		histograms[subsystem+name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, ConstLabels: labels,
			Buckets: prometheus.DefBuckets,
		}, labelNames)
	}
	gauge := func(subsystem, name string, labelNames ...string) {
		gauges[subsystem+name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, ConstLabels: labels,
		}, labelNames)
	}

	counter(SystemSync, MetricSyncPasses, "mode", "outcome")
	counter(SystemSync, MetricSyncRecords, "action")
	histogram(SystemSync, MetricSyncDuration, "mode")
	counter(SystemEstimator, MetricClassified, "kind")
	counter(SystemBridge, MetricBridgeRequests, "endpoint", "status")
	histogram(SystemBridge, MetricBridgeDuration, "endpoint")
	gauge(SystemBridge, MetricBridgeBreakerState, "name")
	counter(SystemEvents, MetricEventsProcessed, "type", "outcome")

	for key, c := range counters {
		if err := registry.Register(c); err != nil {
			return errors.Wrapf(err, "register %s", key)
		}
	}
	for key, h := range histograms {
		if err := registry.Register(h); err != nil {
			return errors.Wrapf(err, "register %s", key)
		}
	}
	for key, g := range gauges {
		if err := registry.Register(g); err != nil {
			return errors.Wrapf(err, "register %s", key)
		}
	}
	enabled = true
	return nil
}

// Gatherer exposes the current registry, nil before Create.
func Gatherer() prometheus.Gatherer {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return nil
	}
	return registry
}

func ListenAndServer(addr string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(Gatherer(), promhttp.HandlerOpts{}))
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "addr", addr, "url", url)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Error("[metrics-server] http listen error", "error", err)
	}
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	if v, ok := counters[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	if v, ok := histograms[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func SetGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	if v, ok := gauges[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Set(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func ObserveSyncPass(mode, outcome string, seconds float64) {
	IncCounterVec(SystemSync, MetricSyncPasses, mode, outcome)
	AddHistogramVec(SystemSync, MetricSyncDuration, seconds, mode)
}

func AddSyncRecords(action string, n int) {
	if n == 0 {
		return
	}
	AddCounterVec(SystemSync, MetricSyncRecords, float64(n), action)
}

func IncClassified(kind string) {
	IncCounterVec(SystemEstimator, MetricClassified, kind)
}

func ObserveBridgeRequest(endpoint, status string, seconds float64) {
	IncCounterVec(SystemBridge, MetricBridgeRequests, endpoint, status)
	AddHistogramVec(SystemBridge, MetricBridgeDuration, seconds, endpoint)
}

func SetBreakerState(name string, state float64) {
	SetGaugeVec(SystemBridge, MetricBridgeBreakerState, state, name)
}

func IncEventProcessed(eventType, outcome string) {
	IncCounterVec(SystemEvents, MetricEventsProcessed, eventType, outcome)
}
