// Package drain implements the Graceful Drainer (C6): it runs a
// user-supplied pre-stop command inside one selected task, waits for
// it to exit, stops the container, then shrinks the service by one
// replica.
package drain

import (
	"context"
	"fmt"
	"time"

	"github.com/payperplay/autoscaler/internal/notify"
	"github.com/payperplay/autoscaler/internal/orchestrator"
	"github.com/payperplay/autoscaler/internal/scaler"
	"github.com/payperplay/autoscaler/pkg/logger"
)

const pollInterval = 1 * time.Second

// Request carries everything the state machine needs for one drain
// of one service.
type Request struct {
	Service        orchestrator.ServiceRef
	Tasks          []orchestrator.TaskRef
	Routes         map[string]string // NodeID -> proxy base URL
	PreStopCmd     string
	PreStopTimeout time.Duration
	StopTimeout    time.Duration
	NotifyEnabled  bool
	Recipients     []string

	// NewClient builds an orchestrator API bound to a read-only proxy
	// base URL, used to reach the task's node for exec/stop.
	NewClient func(base string) (orchestrator.API, error)
	// ManagerAPI is used for the final shrink, which goes through the
	// manager proxy like any other service update.
	ManagerAPI orchestrator.API
}

// Run executes the full select_task -> exec_prestop -> wait_prestop ->
// stop_container -> shrink state machine. It is meant to be launched
// in its own goroutine by the caller, which is responsible for
// registering/clearing the pending_down entry around the call.
func Run(ctx context.Context, notifier *notify.Notifier, req Request) {
	svc := req.Service

	task, ok := selectTask(req.Tasks)
	if !ok {
		logger.Warn("graceful drain found no running task, nothing to drain", map[string]interface{}{"service": svc.Name})
		return
	}

	base, ok := req.Routes[task.NodeID]
	if !ok || task.ContainerID == "" {
		fail(notifier, req, "no read-only proxy route or container id for selected task")
		return
	}

	proxy, err := req.NewClient(base)
	if err != nil {
		fail(notifier, req, fmt.Sprintf("failed to reach node proxy: %v", err))
		return
	}

	execID, err := proxy.ExecCreate(ctx, task.ContainerID, req.PreStopCmd)
	if err != nil {
		fail(notifier, req, fmt.Sprintf("pre-stop exec create failed: %v", err))
		return
	}
	if err := proxy.ExecStart(ctx, execID); err != nil {
		fail(notifier, req, fmt.Sprintf("pre-stop exec start failed: %v", err))
		return
	}

	if err := waitForExec(ctx, proxy, execID, req.PreStopTimeout); err != nil {
		fail(notifier, req, fmt.Sprintf("pre-stop command failed: %v", err))
		return
	}

	if err := proxy.ContainerStop(ctx, task.ContainerID, int(req.StopTimeout.Seconds())); err != nil {
		fail(notifier, req, fmt.Sprintf("container stop failed: %v", err))
		return
	}

	succeed(ctx, notifier, req)
}

func selectTask(tasks []orchestrator.TaskRef) (orchestrator.TaskRef, bool) {
	for _, t := range tasks {
		if t.ContainerID != "" {
			return t, true
		}
	}
	return orchestrator.TaskRef{}, false
}

func waitForExec(ctx context.Context, api orchestrator.API, execID string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		res, err := api.ExecInspect(ctx, execID)
		if err != nil {
			return err
		}
		if !res.Running {
			if res.ExitCode != 0 {
				return fmt.Errorf("pre-stop command exited %d", res.ExitCode)
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pre-stop command did not exit within timeout")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func succeed(ctx context.Context, notifier *notify.Notifier, req Request) {
	svc := req.Service
	current, err := req.ManagerAPI.GetService(ctx, svc.ID)
	if err != nil {
		fail(notifier, req, fmt.Sprintf("failed to re-read service before shrink: %v", err))
		return
	}

	// Drain completion shrinks unconditionally by one, with no
	// min-replicas floor: the task being drained is already gone.
	newReplicas := current.Replicas - 1
	if newReplicas < 0 {
		newReplicas = 0
	}

	if err := scaler.UpdateReplicas(ctx, req.ManagerAPI, svc.ID, newReplicas); err != nil {
		fail(notifier, req, fmt.Sprintf("failed to shrink after drain: %v", err))
		return
	}

	logger.Info("graceful drain completed", map[string]interface{}{
		"service": svc.Name, "old": current.Replicas, "new": newReplicas,
	})
	notifier.Enqueue(notify.Event{
		TS:          time.Now(),
		ServiceName: svc.Name,
		ServiceID:   svc.ID,
		Action:      notify.ActionGracefulScaleDown,
		Old:         current.Replicas,
		New:         newReplicas,
		Reason:      "graceful scale-down drain completed",
		Recipients:  req.Recipients,
		Kind:        notify.KindEvent,
	}, false)
}

func fail(notifier *notify.Notifier, req Request, reason string) {
	svc := req.Service
	logger.Error("graceful drain failed", fmt.Errorf("%s", reason), map[string]interface{}{"service": svc.Name})
	if !req.NotifyEnabled {
		return
	}
	notifier.SendErrorNow(notify.Event{
		TS:          time.Now(),
		ServiceName: svc.Name,
		ServiceID:   svc.ID,
		Action:      notify.ActionGracefulScaleDown,
		Reason:      reason,
		Kind:        notify.KindError,
	}, req.Recipients)
}
