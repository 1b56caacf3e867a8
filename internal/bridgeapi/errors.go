package bridgeapi

import (
	"errors"
	"fmt"
)

// ErrTransport matches every failure to obtain a usable response.
var ErrTransport = errors.New("bridge api transport error")

var ErrMissingCredentials = errors.New("bridge api credentials missing")

// TransportError describes a failed call. StatusCode is zero when no
// response was received.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bridge api %s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("bridge api %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// serverSide reports whether the failure should count against the breaker.
func (e *TransportError) serverSide() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == 429
}
