package orchestrator

import (
	"github.com/docker/docker/api/types/swarm"

	"github.com/payperplay/autoscaler/internal/accounting"
)

// ServiceRef is the subset of a Swarm service the reconciler needs,
// plus the full Spec as last read from the manager. UpdateServiceReplicas
// mutates only Spec.Mode.Replicated.Replicas and posts the rest of Spec
// back unchanged, so a scale action never clobbers the service's image,
// command, mounts, networks, or update config.
type ServiceRef struct {
	ID       string
	Name     string
	Labels   map[string]string
	Mode     ServiceMode
	Replicas int // only meaningful when Mode == ServiceModeReplicated
	Version  uint64
	NanoCPUs int64 // TaskTemplate.Resources.Limits.NanoCPUs, 0 if unset
	Spec     swarm.ServiceSpec
}

// ServiceMode mirrors Spec.Mode's two variants; only Replicated is scalable.
type ServiceMode string

const (
	ServiceModeReplicated ServiceMode = "replicated"
	ServiceModeGlobal     ServiceMode = "global"
	ServiceModeUnknown    ServiceMode = "unknown"
)

// TaskRef is one running task of a service.
type TaskRef struct {
	ID          string
	ServiceID   string
	NodeID      string
	ContainerID string // empty if not yet placed
}

// ContainerInspect is the subset of container inspect state the
// accounting and drain packages need.
type ContainerInspect struct {
	Running   bool
	ExitCode  int
	NanoCPUs  int64
	CPUQuota  int64
	CPUPeriod int64
	CPUSet    string
}

// ExecResult reports the state of a previously created exec instance.
type ExecResult struct {
	Running  bool
	ExitCode int
}

// RawSample is what container_stats_once returns before accounting
// normalizes it.
type RawSample = accounting.Sample
