// Package scaler implements the Scale Executor (C5): read the current
// service spec and version, mutate the replica count, and post the
// update, retrying on an optimistic-concurrency conflict.
package scaler

import (
	"context"
	"errors"
	"time"

	"github.com/payperplay/autoscaler/internal/orchestrator"
)

const (
	maxRetries   = 3
	retryBackoff = 500 * time.Millisecond
)

// UpdateReplicas fetches svcID's current spec and version, sets its
// replica count to newReplicas, and posts the update. A conflict whose
// body contains "out of sequence" re-reads the version and retries up
// to maxRetries times; any other error propagates immediately. A
// non-replicated service is a no-op, not an error.
func UpdateReplicas(ctx context.Context, api orchestrator.API, svcID string, newReplicas int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		svc, err := api.GetService(ctx, svcID)
		if err != nil {
			return err
		}
		if svc.Mode != orchestrator.ServiceModeReplicated {
			return nil
		}

		err = api.UpdateServiceReplicas(ctx, svc, newReplicas)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isOutOfSequence(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	return lastErr
}

func isOutOfSequence(err error) bool {
	var upstream *orchestrator.UpstreamError
	return errors.As(err, &upstream) && upstream.OutOfSequence()
}
