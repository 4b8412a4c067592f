package orchestrator

import (
	"context"

	"github.com/docker/docker/api/types/container"
)

// ExecCreate creates (but does not start) a "/bin/sh -c <cmd>" exec
// instance inside the container, returning its exec id.
func (c *Client) ExecCreate(ctx context.Context, containerID, shellCmd string) (string, error) {
	resp, err := c.sdk.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          []string{"/bin/sh", "-c", shellCmd},
		AttachStdout: true,
		AttachStderr: true,
		Tty:          false,
	})
	if err != nil {
		return "", wrapTransport("ContainerExecCreate", err)
	}
	return resp.ID, nil
}

// ExecStart starts a previously created exec instance without
// attaching or blocking on its output.
func (c *Client) ExecStart(ctx context.Context, execID string) error {
	err := c.sdk.ContainerExecStart(ctx, execID, container.ExecStartOptions{Detach: false, Tty: false})
	if err != nil {
		return wrapTransport("ContainerExecStart", err)
	}
	return nil
}

// ExecInspect reports whether the exec instance is still running and,
// once finished, its exit code.
func (c *Client) ExecInspect(ctx context.Context, execID string) (ExecResult, error) {
	ins, err := c.sdk.ContainerExecInspect(ctx, execID)
	if err != nil {
		return ExecResult{}, wrapTransport("ContainerExecInspect", err)
	}
	return ExecResult{Running: ins.Running, ExitCode: ins.ExitCode}, nil
}
