// Package reconciler implements the top-level periodic loop (C7):
// wait for proxies ready, refresh the endpoint map, list eligible
// services, fan out per-service reconciliation concurrently, then
// request a notifier flush.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/payperplay/autoscaler/internal/notify"
	"github.com/payperplay/autoscaler/internal/orchestrator"
	"github.com/payperplay/autoscaler/internal/policy"
	"github.com/payperplay/autoscaler/internal/router"
	"github.com/payperplay/autoscaler/internal/state"
	"github.com/payperplay/autoscaler/pkg/logger"
)

// Config carries the tuning knobs a reconciler needs beyond its
// collaborators.
type Config struct {
	LabelPrefix           string
	DefaultMinReplicas    int
	DefaultMaxReplicas    int
	DefaultCooldown       time.Duration
	BelowMinAlertCooldown time.Duration
	PollInterval          time.Duration
	StartupProxyWait      time.Duration
}

// Reconciler owns the main loop. ManagerAPI talks to the manager
// proxy; NewProxyClient builds a client bound to a read-only proxy
// base URL discovered by the Router.
type Reconciler struct {
	cfg        Config
	managerAPI orchestrator.API
	newProxy   func(base string) (orchestrator.API, error)
	router     *router.Router
	notifier   *notify.Notifier
	state      *state.ReconcileState
}

// New constructs a Reconciler ready to Run.
func New(cfg Config, managerAPI orchestrator.API, newProxy func(base string) (orchestrator.API, error), rtr *router.Router, notifier *notify.Notifier) *Reconciler {
	return &Reconciler{
		cfg:        cfg,
		managerAPI: managerAPI,
		newProxy:   newProxy,
		router:     rtr,
		notifier:   notifier,
		state:      state.New(),
	}
}

// WaitForReady blocks until the manager responds to /_ping and at
// least one NodeID has been learned via /info, or until
// StartupProxyWait elapses, in which case it returns an error the
// caller should treat as StartupTimeout (exit 1).
func (r *Reconciler) WaitForReady(ctx context.Context) error {
	deadline := time.Now().Add(r.cfg.StartupProxyWait)
	for {
		if r.managerAPI.ManagerPing(ctx) {
			routes := r.router.Resolve(ctx)
			if len(routes) > 0 {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("proxies not reachable within %s", r.cfg.StartupProxyWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
}

// Run drives ticks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r.tick(ctx)
		r.notifier.FlushIfDue(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.PollInterval):
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("reconcile tick panicked", fmt.Errorf("%v", rec), nil)
			r.notifier.SendErrorNow(notify.Event{
				TS:     time.Now(),
				Action: notify.ActionReconcile,
				Reason: fmt.Sprintf("panic: %v", rec),
				Kind:   notify.KindError,
			}, nil)
		}
	}()

	routes := r.router.Resolve(ctx)

	labelFilter := r.cfg.LabelPrefix + ".enable=true"
	services, err := r.managerAPI.ListServicesWithLabel(ctx, labelFilter)
	if err != nil {
		logger.Error("failed to list eligible services", err, nil)
		r.notifier.SendErrorNow(notify.Event{
			TS: time.Now(), Action: notify.ActionReconcile, Reason: err.Error(), Kind: notify.KindError,
		}, nil)
		return
	}

	defaults := policy.Defaults{
		LabelPrefix:        r.cfg.LabelPrefix,
		DefaultMinReplicas: r.cfg.DefaultMinReplicas,
		DefaultMaxReplicas: r.cfg.DefaultMaxReplicas,
		DefaultCooldown:    r.cfg.DefaultCooldown,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		svc := svc
		g.Go(func() error {
			pol := policy.FromLabels(svc.Labels, defaults)
			deps := policy.Deps{
				ManagerAPI:            r.managerAPI,
				NewProxyClient:        r.newProxy,
				Routes:                routes,
				State:                 r.state,
				Notifier:              r.notifier,
				BelowMinAlertCooldown: r.cfg.BelowMinAlertCooldown,
				// A dispatched graceful drain must survive past this
				// tick's errgroup returning (which cancels gctx), so it
				// gets the long-lived run context instead.
				DrainCtx: ctx,
			}
			policy.Evaluate(gctx, svc, pol, deps)
			return nil
		})
	}
	// errgroup's first-error-wins semantics still let every launched
	// service finish; Evaluate never returns an error today, but this
	// keeps a future per-service error path from silently dropping
	// other in-flight services.
	_ = g.Wait()
}
