package orchestrator

import (
	"context"

	"github.com/payperplay/autoscaler/internal/accounting"
)

// API is the full surface the policy evaluator, scale executor, and
// graceful drainer depend on. *Client satisfies it against a live
// orchestrator; orchestratortest.Mock satisfies it in tests.
type API interface {
	ListServicesWithLabel(ctx context.Context, labelEqualsValue string) ([]ServiceRef, error)
	GetService(ctx context.Context, serviceID string) (ServiceRef, error)
	UpdateServiceReplicas(ctx context.Context, svc ServiceRef, newReplicas int) error
	ListRunningTasks(ctx context.Context, serviceID string) ([]TaskRef, error)
	ContainerStatsOnce(ctx context.Context, containerID string) (accounting.Sample, error)
	ContainerInspect(ctx context.Context, containerID string) (ContainerInspect, error)
	ContainerStop(ctx context.Context, containerID string, timeoutSeconds int) error
	ExecCreate(ctx context.Context, containerID, shellCmd string) (string, error)
	ExecStart(ctx context.Context, execID string) error
	ExecInspect(ctx context.Context, execID string) (ExecResult, error)
	ManagerPing(ctx context.Context) bool
	NodeID(ctx context.Context) (string, error)
}

var _ API = (*Client)(nil)
