package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/payperplay/autoscaler/internal/accounting"
	"github.com/payperplay/autoscaler/internal/drain"
	"github.com/payperplay/autoscaler/internal/notify"
	"github.com/payperplay/autoscaler/internal/orchestrator"
	"github.com/payperplay/autoscaler/internal/scaler"
	"github.com/payperplay/autoscaler/internal/state"
	"github.com/payperplay/autoscaler/pkg/logger"
)

// Deps bundles the collaborators Evaluate needs beyond the service
// itself: the manager-facing API, a factory for node-local read-only
// proxy clients, the shared reconcile state, and the notifier.
type Deps struct {
	ManagerAPI            orchestrator.API
	NewProxyClient        func(base string) (orchestrator.API, error)
	Routes                map[string]string // NodeID -> proxy base URL
	State                 *state.ReconcileState
	Notifier              *notify.Notifier
	BelowMinAlertCooldown time.Duration
	Now                   func() time.Time

	// DrainCtx is the long-lived process context a dispatched graceful
	// drain runs under. It must outlive the tick that launches it, so
	// it must never be a context derived from that tick's errgroup.
	// Falls back to context.Background() when nil.
	DrainCtx context.Context
}

// Evaluate runs the full decision function for one service: gather
// samples, apply the below-min watch, then the cooldown/in-flight
// gate, then scale-up before scale-down.
func Evaluate(ctx context.Context, svc orchestrator.ServiceRef, pol ServicePolicy, deps Deps) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	tasks, err := deps.ManagerAPI.ListRunningTasks(ctx, svc.ID)
	if err != nil {
		logger.Warn("failed to list running tasks", map[string]interface{}{"service": svc.Name, "error": err.Error()})
		return
	}

	avgCPU, avgMem := sampleAverages(ctx, svc, tasks, deps)

	running := len(tasks)
	desired := svc.Replicas

	if running < pol.MinReplicas || desired < pol.MinReplicas {
		if deps.State.ShouldAlertBelowMin(svc.ID, belowMinCooldown(deps), now()) {
			sendBelowMinAlert(deps, svc, pol, running, desired)
		}
	}

	canScale := deps.State.CanScale(svc.ID, pol.Cooldown, now())

	if canScale && (avgCPU > pol.CPUMax || avgMem > pol.MemMax) && desired < pol.MaxReplicas {
		newReplicas := desired + 1
		if newReplicas > pol.MaxReplicas {
			newReplicas = pol.MaxReplicas
		}
		if err := scaler.UpdateReplicas(ctx, deps.ManagerAPI, svc.ID, newReplicas); err != nil {
			logger.Error("scale up failed", err, map[string]interface{}{"service": svc.Name})
			return
		}
		deps.State.SetLastScale(svc.ID, now())
		enqueueScaleEvent(deps, svc, pol, notify.ActionScaleUp, desired, newReplicas, avgCPU, avgMem, "cpu or mem above max")
		return
	}

	if canScale && avgCPU < pol.CPUMin && avgMem < pol.MemMin && desired > pol.MinReplicas {
		if !pol.ScaleDownEnabled {
			logger.Info("scale down suppressed by scale_down.enable=false", map[string]interface{}{"service": svc.Name})
			return
		}

		if pol.PreStopCmd == "" {
			newReplicas := desired - 1
			if newReplicas < pol.MinReplicas {
				newReplicas = pol.MinReplicas
			}
			if err := scaler.UpdateReplicas(ctx, deps.ManagerAPI, svc.ID, newReplicas); err != nil {
				logger.Error("scale down failed", err, map[string]interface{}{"service": svc.Name})
				return
			}
			deps.State.SetLastScale(svc.ID, now())
			enqueueScaleEvent(deps, svc, pol, notify.ActionScaleDown, desired, newReplicas, avgCPU, avgMem, "cpu and mem below min")
			return
		}

		dispatchGracefulDrain(svc, pol, tasks, deps, now)
	}
}

func dispatchGracefulDrain(svc orchestrator.ServiceRef, pol ServicePolicy, tasks []orchestrator.TaskRef, deps Deps, now func() time.Time) {
	deps.State.SetLastScale(svc.ID, now())

	handle := state.NewDrainHandle()
	deps.State.BeginDrain(svc.ID, handle)

	req := drain.Request{
		Service:        svc,
		Tasks:          tasks,
		Routes:         deps.Routes,
		PreStopCmd:     pol.PreStopCmd,
		PreStopTimeout: pol.PreStopTimeout,
		StopTimeout:    pol.StopTimeout,
		NotifyEnabled:  pol.NotifyEnabled,
		Recipients:     pol.NotifyRecipients,
		NewClient:      deps.NewProxyClient,
		ManagerAPI:     deps.ManagerAPI,
	}

	drainCtx := deps.DrainCtx
	if drainCtx == nil {
		drainCtx = context.Background()
	}

	go func() {
		defer close(handle.Done)
		defer deps.State.EndDrain(svc.ID)
		drain.Run(drainCtx, deps.Notifier, req)
	}()
}

func sampleAverages(ctx context.Context, svc orchestrator.ServiceRef, tasks []orchestrator.TaskRef, deps Deps) (float64, float64) {
	var cpuSamples, memSamples []float64

	for _, task := range tasks {
		if task.ContainerID == "" {
			continue
		}
		base, ok := deps.Routes[task.NodeID]
		if !ok {
			logger.Debug("no route to task's node, skipping sample", map[string]interface{}{"service": svc.Name, "node": task.NodeID})
			continue
		}

		proxy, err := deps.NewProxyClient(base)
		if err != nil {
			logger.Debug("failed to reach node proxy", map[string]interface{}{"service": svc.Name, "error": err.Error()})
			continue
		}

		sample, err := proxy.ContainerStatsOnce(ctx, task.ContainerID)
		if err != nil {
			logger.Debug("failed to fetch container stats", map[string]interface{}{"service": svc.Name, "container": task.ContainerID, "error": err.Error()})
			continue
		}

		raw := accounting.CPURawPercent(sample)
		limit := resolveCPULimit(ctx, svc, proxy, task.ContainerID, sample)
		cpuSamples = append(cpuSamples, accounting.NormalizeCPUPercent(raw, limit))
		memSamples = append(memSamples, accounting.MemPercent(sample.MemUsage, sample.MemLimit))
	}

	return accounting.Avg(cpuSamples), accounting.Avg(memSamples)
}

func resolveCPULimit(ctx context.Context, svc orchestrator.ServiceRef, proxy orchestrator.API, containerID string, sample accounting.Sample) float64 {
	online := onlineCPUsFromSample(sample)

	// A known service-level limit takes priority and never needs the
	// container inspect; only fall through to it when the service
	// itself carries no NanoCPUs limit.
	if svc.NanoCPUs > 0 {
		return accounting.EffectiveCPULimit(
			accounting.ServiceLimits{NanoCPUs: svc.NanoCPUs},
			accounting.ContainerLimits{},
			online,
		)
	}

	ctr, err := proxy.ContainerInspect(ctx, containerID)
	if err != nil {
		return 0
	}
	return accounting.EffectiveCPULimit(
		accounting.ServiceLimits{NanoCPUs: svc.NanoCPUs},
		accounting.ContainerLimits{NanoCPUs: ctr.NanoCPUs, CPUQuota: ctr.CPUQuota, CPUPeriod: ctr.CPUPeriod, CPUSet: ctr.CPUSet},
		online,
	)
}

func onlineCPUsFromSample(s accounting.Sample) uint32 {
	if s.CPU.OnlineCPUs > 0 {
		return s.CPU.OnlineCPUs
	}
	if s.CPU.PerCPUUsageLen > 0 {
		return uint32(s.CPU.PerCPUUsageLen)
	}
	return 1
}

func belowMinCooldown(deps Deps) time.Duration {
	if deps.BelowMinAlertCooldown <= 0 {
		return 120 * time.Second
	}
	return deps.BelowMinAlertCooldown
}

func sendBelowMinAlert(deps Deps, svc orchestrator.ServiceRef, pol ServicePolicy, running, desired int) {
	if !pol.NotifyEnabled {
		return
	}
	deps.Notifier.SendErrorNow(notify.Event{
		TS:          time.Now(),
		ServiceName: svc.Name,
		ServiceID:   svc.ID,
		Action:      notify.ActionReplicasBelowMin,
		Old:         running,
		New:         desired,
		Reason:      fmt.Sprintf("running=%d desired=%d below min=%d", running, desired, pol.MinReplicas),
		Kind:        notify.KindError,
	}, pol.NotifyRecipients)
}

func enqueueScaleEvent(deps Deps, svc orchestrator.ServiceRef, pol ServicePolicy, action notify.Action, old, newReplicas int, cpu, mem float64, reason string) {
	if !pol.NotifyEnabled {
		return
	}
	deps.Notifier.Enqueue(notify.Event{
		TS:          time.Now(),
		ServiceName: svc.Name,
		ServiceID:   svc.ID,
		Action:      action,
		Old:         old,
		New:         newReplicas,
		CPUPercent:  cpu,
		MemPercent:  mem,
		Reason:      reason,
		Recipients:  pol.NotifyRecipients,
		Kind:        notify.KindEvent,
	}, false)
}
