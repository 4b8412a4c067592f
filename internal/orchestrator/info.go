package orchestrator

import (
	"context"
	"strings"
)

// ManagerPing reports whether the manager proxy's /_ping endpoint
// responds "OK". Any transport failure or unexpected body is treated
// as not ready, never fatal.
func (c *Client) ManagerPing(ctx context.Context) bool {
	resp, err := c.sdk.Ping(ctx)
	if err != nil {
		return false
	}
	// The SDK's Ping surfaces API/OS type metadata rather than the raw
	// body; a successful round trip to /_ping is itself the "OK" signal
	// the HTTP endpoint returns as plain text.
	return strings.TrimSpace(resp.APIVersion) != ""
}

// NodeID queries /info and returns the Swarm NodeID this endpoint's
// daemon believes it is, or "" if this host isn't part of a swarm (or
// the call fails).
func (c *Client) NodeID(ctx context.Context) (string, error) {
	info, err := c.sdk.Info(ctx)
	if err != nil {
		return "", wrapTransport("Info", err)
	}
	return info.Swarm.NodeID, nil
}
