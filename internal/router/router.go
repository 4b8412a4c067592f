// Package router implements the Endpoint Router (C3): it resolves the
// read-only proxy task-set's DNS name to a set of IPs, asks each for
// its Swarm NodeID, and produces a NodeID -> proxy base URL map
// refreshed every reconciler tick.
package router

import (
	"context"
	"fmt"
	"net"
	"sort"

	"github.com/payperplay/autoscaler/internal/orchestrator"
	"github.com/payperplay/autoscaler/pkg/logger"
)

// Router holds the DNS name/port to resolve and the factory used to
// build a Client per resolved address.
type Router struct {
	dnsName string
	port    int
	newClient func(base string) (*orchestrator.Client, error)
}

// New constructs a Router. newClient is injected so tests can stub the
// orchestrator client construction without a real Docker daemon.
func New(dnsName string, port int, newClient func(base string) (*orchestrator.Client, error)) *Router {
	return &Router{dnsName: dnsName, port: port, newClient: newClient}
}

// Resolve performs one DNS lookup + one /info call per resolved
// address and returns NodeID -> base URL. A node whose proxy can't be
// reached is simply absent from the map (logged at debug); DNS
// resolution failures are warnings, never fatal - the prior tick's
// map is discarded either way (spec invariant: no stale entries).
func (r *Router) Resolve(ctx context.Context) map[string]string {
	addrs, err := net.DefaultResolver.LookupHost(ctx, r.dnsName)
	if err != nil {
		logger.Warn("read-only proxy DNS resolution failed", map[string]interface{}{
			"dns":   r.dnsName,
			"error": err.Error(),
		})
		return map[string]string{}
	}

	unique := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		unique[a] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for a := range unique {
		sorted = append(sorted, a)
	}
	sort.Strings(sorted)

	result := make(map[string]string, len(sorted))
	for _, ip := range sorted {
		base := fmt.Sprintf("http://%s:%d", ip, r.port)
		cli, err := r.newClient(base)
		if err != nil {
			logger.Warn("failed to construct read-only proxy client", map[string]interface{}{
				"base": base, "error": err.Error(),
			})
			continue
		}

		nodeID, err := cli.NodeID(ctx)
		_ = cli.Close()
		if err != nil || nodeID == "" {
			logger.Debug("read-only proxy has no node id yet, skipping", map[string]interface{}{"base": base})
			continue
		}
		result[nodeID] = base
	}
	return result
}
