package orchestrator

import (
	"fmt"
	"strings"
)

// UpstreamError is returned (wrapped) when a service update fails.
// Body holds the SDK's error text so callers (the Scale Executor) can
// inspect it for the "out of sequence" optimistic-concurrency conflict;
// Status is 0 because the HTTP status code is not extracted. No other
// Client method returns an UpstreamError.
type UpstreamError struct {
	Verb   string
	Path   string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %s %s -> %d: %s", e.Verb, e.Path, e.Status, e.Body)
}

// OutOfSequence reports whether the error body signals the orchestrator's
// optimistic-concurrency version conflict.
func (e *UpstreamError) OutOfSequence() bool {
	return strings.Contains(strings.ToLower(e.Body), "out of sequence")
}

// TransportError wraps any error the SDK returns from a Client call
// other than a service update: connection, TLS, and timeout failures,
// and also non-2xx responses from the orchestrator.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
