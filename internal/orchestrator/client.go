package orchestrator

import (
	"fmt"

	dockerclient "github.com/docker/docker/client"
)

// Client is the typed wrapper C7 and C4 use to talk to one orchestrator
// endpoint (the manager proxy, or a single node's read-only proxy).
// It never retries - that responsibility belongs to callers (the Scale
// Executor retries update_service on an "out of sequence" conflict).
type Client struct {
	base string
	sdk  *dockerclient.Client
}

// New constructs a Client bound to a single base URL, e.g.
// "http://dsproxy_rw:2375" or "http://10.0.0.4:2375". Each read-only
// proxy discovered by the Endpoint Router gets its own Client, just as
// each aiohttp request in the original implementation picked a base
// URL per call.
func New(base string) (*Client, error) {
	sdk, err := dockerclient.NewClientWithOpts(
		dockerclient.WithHost(base),
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator client for %s: %w", base, err)
	}
	return &Client{base: base, sdk: sdk}, nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.sdk.Close()
}

// Base returns the base URL this client is bound to.
func (c *Client) Base() string { return c.base }

func wrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}
