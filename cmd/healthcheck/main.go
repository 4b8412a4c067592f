// Command healthcheck is a small, separate executable for container
// orchestrator HEALTHCHECK directives: it exits 0 iff the manager
// proxy's /_ping responds and the read-only proxy DNS name resolves
// to at least one address.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/payperplay/autoscaler/internal/orchestrator"
	"github.com/payperplay/autoscaler/pkg/config"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !managerPing(ctx, cfg.ManagerProxyHost) {
		fmt.Fprintln(os.Stderr, "healthcheck: manager ping failed")
		os.Exit(1)
	}

	if !roDNSResolves(ctx, cfg.ReadonlyProxyDNS) {
		fmt.Fprintln(os.Stderr, "healthcheck: read-only proxy dns did not resolve")
		os.Exit(1)
	}

	os.Exit(0)
}

func managerPing(ctx context.Context, base string) bool {
	client, err := orchestrator.New(base)
	if err != nil {
		return false
	}
	defer client.Close()
	return client.ManagerPing(ctx)
}

func roDNSResolves(ctx context.Context, dnsName string) bool {
	addrs, err := net.DefaultResolver.LookupHost(ctx, dnsName)
	return err == nil && len(addrs) > 0
}
