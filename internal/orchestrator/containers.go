package orchestrator

import (
	"context"

	"github.com/docker/docker/api/types/container"
)

// ContainerInspect fetches the CPU-limit fields and running state the
// accounting and drain packages need from a container.
func (c *Client) ContainerInspect(ctx context.Context, containerID string) (ContainerInspect, error) {
	ins, err := c.sdk.ContainerInspect(ctx, containerID)
	if err != nil {
		return ContainerInspect{}, wrapTransport("ContainerInspect", err)
	}

	out := ContainerInspect{}
	if ins.State != nil {
		out.Running = ins.State.Running
		out.ExitCode = ins.State.ExitCode
	}
	if ins.HostConfig != nil {
		out.NanoCPUs = ins.HostConfig.NanoCPUs
		out.CPUQuota = ins.HostConfig.CPUQuota
		out.CPUPeriod = ins.HostConfig.CPUPeriod
		out.CPUSet = ins.HostConfig.CpusetCpus
	}
	return out, nil
}

// ContainerStop stops a container, giving it timeoutSeconds to exit
// cleanly before the orchestrator sends SIGKILL.
func (c *Client) ContainerStop(ctx context.Context, containerID string, timeoutSeconds int) error {
	timeout := timeoutSeconds
	err := c.sdk.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	if err != nil {
		return wrapTransport("ContainerStop", err)
	}
	return nil
}
