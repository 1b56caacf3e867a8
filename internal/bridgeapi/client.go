package bridgeapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/prom"
	"github.com/sony/gobreaker"
	"github.com/valyala/fasthttp"
)

const DefaultVersion = "2021-06-01"

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

type Config struct {
	BaseURL         string
	Version         string
	ClientID        string
	ClientSecret    string
	Timeout         time.Duration
	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int
	PageLimit       int
	Breaker         BreakerConfig
}

// Client talks to the aggregation API. Calls are never retried: a failed
// call surfaces as a TransportError and, past the threshold, opens the breaker
// so later calls fail fast.
type Client struct {
	config  Config
	http    *fasthttp.Client
	breaker *gobreaker.CircuitBreaker
	metrics *RequestMetrics
}

type Option func(*Client)

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(c *fasthttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func NewClient(config Config, opts ...Option) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("bridge api base url is required")
	}
	if config.Version == "" {
		config.Version = DefaultVersion
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.PageLimit == 0 {
		config.PageLimit = 500
	}
	if config.Breaker.FailureThreshold == 0 {
		config.Breaker.FailureThreshold = 5
	}
	if config.Breaker.Timeout == 0 {
		config.Breaker.Timeout = 30 * time.Second
	}

	c := &Client{
		config: config,
		http: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			ReadBufferSize:      config.ReadBufferSize,
			WriteBufferSize:     config.WriteBufferSize,
		},
		metrics: NewRequestMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bridgeapi",
		MaxRequests: config.Breaker.MaxRequests,
		Interval:    config.Breaker.Interval,
		Timeout:     config.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.Breaker.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			var te *TransportError
			if errors.As(err, &te) {
				return !te.serverSide()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			prom.SetBreakerState(name, float64(to))
		},
	})

	logger.Info("bridge api client initialized", "url", config.BaseURL, "version", config.Version, "timeout", config.Timeout)
	return c, nil
}

func (c *Client) Stats() Stats {
	return Stats{
		BreakerState:     c.breaker.State().String(),
		TotalRequests:    c.metrics.TotalRequests.Load(),
		FailedReqs:       c.metrics.FailedReqs.Load(),
		SuccessRate:      c.metrics.SuccessRate(),
		AvgLatencyMs:     c.metrics.AvgLatencyMs(),
		P95LatencyMs:     c.metrics.P95LatencyMs(),
		ConsecutiveFails: c.metrics.ConsecutiveFails.Load(),
	}
}

type request struct {
	method   string
	path     string
	endpoint string
	token    string
	body     []byte
}

// do runs one request through the breaker.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, r)
	})
	elapsed := time.Since(start)

	if err != nil {
		c.metrics.RecordFailure()
		status := "error"
		var te *TransportError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			status = "breaker_open"
			err = &TransportError{Method: r.method, Path: r.path, Err: err}
		case errors.As(err, &te) && te.StatusCode != 0:
			status = strconv.Itoa(te.StatusCode)
		}
		prom.ObserveBridgeRequest(r.endpoint, status, elapsed.Seconds())
		logger.Warn("bridge api request failed", "endpoint", r.endpoint, "path", r.path, "error", err)
		return nil, err
	}

	c.metrics.RecordSuccess(elapsed.Milliseconds())
	prom.ObserveBridgeRequest(r.endpoint, "200", elapsed.Seconds())
	return out.([]byte), nil
}

func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + r.path)
	req.Header.SetMethod(r.method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Bridge-Version", c.config.Version)
	req.Header.Set("Client-Id", c.config.ClientID)
	req.Header.Set("Client-Secret", c.config.ClientSecret)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.body != nil {
		req.SetBody(r.body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, &TransportError{Method: r.method, Path: r.path, Err: err}
	}

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode >= 300 {
		return nil, &TransportError{Method: r.method, Path: r.path, StatusCode: statusCode, Body: string(resp.Body())}
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}
