package xhttp

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"time"

	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/valyala/fasthttp"
)

type RequestHeader = fasthttp.RequestHeader
type ResponseHeader = fasthttp.ResponseHeader
type Server = fasthttp.Server

// ServerOption holds the fasthttp knobs the services tune.
type ServerOption struct {
	Name string

	// idle keep-alive connections are dropped after IdleTimeout so a burst of
	// clients can not pin the open file limit
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ReadBufferSize also caps the request header size.
	ReadBufferSize     int
	WriteBufferSize    int
	MaxRequestBodySize int
	Concurrency        int
	MaxConnsPerIP      int
}

var DefaultServerOption = ServerOption{
	IdleTimeout:        10 * time.Second,
	ReadTimeout:        2500 * time.Millisecond,
	WriteTimeout:       2500 * time.Millisecond,
	ReadBufferSize:     4 * 1024,
	WriteBufferSize:    4 * 1024,
	MaxRequestBodySize: 4 * 1024 * 1024,
	Concurrency:        30_000,
	MaxConnsPerIP:      10_000,
}

// Engine is a fasthttp server with a router and a middleware chain.
type Engine struct {
	*Router
	*Server
	middle []MiddlewareFunc
}

func newServer(o ServerOption) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                      NotFoundHandler,
		ErrorHandler:                 func(ctx *RequestCtx, err error) { logger.Warn("xhttp: connection error", "error", err) },
		Name:                         o.Name,
		Concurrency:                  o.Concurrency,
		ReadBufferSize:               o.ReadBufferSize,
		WriteBufferSize:              o.WriteBufferSize,
		ReadTimeout:                  o.ReadTimeout,
		WriteTimeout:                 o.WriteTimeout,
		IdleTimeout:                  o.IdleTimeout,
		MaxConnsPerIP:                o.MaxConnsPerIP,
		MaxRequestBodySize:           o.MaxRequestBodySize,
		TCPKeepalive:                 true,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
		NoDefaultContentType:         true,
		CloseOnShutdown:              true,
		Logger:                       serverLog{},
	}
}

// serverLog sends fasthttp's own messages to the structured logger.
type serverLog struct{}

func (serverLog) Printf(format string, args ...any) {
	logger.Warn("xhttp: " + fmt.Sprintf(format, args...))
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: newServer(options),
		Router: CreateDefaultRouter(),
	}
}

func (e *Engine) ListenAndServe(addr string) error {
	e.DoRouting()
	logger.Info("xhttp: server is listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

// DoRouting installs the router behind the middleware chain. The first
// middleware passed to Use runs first.
func (e *Engine) DoRouting() {
	for method, routes := range e.Router.List() {
		for _, r := range routes {
			logger.Debug("xhttp: route", "method", method, "path", r)
		}
	}

	h := e.Router.Handler
	chain := slices.Clone(e.middle)
	slices.Reverse(chain)
	for _, m := range chain {
		h = m(h)
		logger.Debug("xhttp: middleware registered", "name", runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
	e.Server.Handler = h
}

// Use appends middleware to the chain run for every request.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (e *Engine) Shutdown() {
	logger.Info("xhttp: server is shutting down")
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("xhttp: error while shutting down", "error", err)
	}
}
