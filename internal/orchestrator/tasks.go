package orchestrator

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
)

// ListRunningTasks returns every task of the given service whose
// desired state is "running".
func (c *Client) ListRunningTasks(ctx context.Context, serviceID string) ([]TaskRef, error) {
	tasks, err := c.sdk.TaskList(ctx, types.TaskListOptions{
		Filters: filters.NewArgs(
			filters.Arg("service", serviceID),
			filters.Arg("desired-state", "running"),
		),
	})
	if err != nil {
		return nil, wrapTransport("TaskList", err)
	}

	refs := make([]TaskRef, 0, len(tasks))
	for _, t := range tasks {
		ref := TaskRef{
			ID:        t.ID,
			ServiceID: serviceID,
			NodeID:    t.NodeID,
		}
		if t.Status.ContainerStatus != nil {
			ref.ContainerID = t.Status.ContainerStatus.ContainerID
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
