package policy

import (
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/payperplay/autoscaler/internal/accounting"
	"github.com/payperplay/autoscaler/internal/notify"
	"github.com/payperplay/autoscaler/internal/orchestrator"
	"github.com/payperplay/autoscaler/internal/orchestrator/orchestratortest"
	"github.com/payperplay/autoscaler/internal/state"
)

type fakeMailer struct{ sent int }

func (f *fakeMailer) Send(to []string, subject, body string) error {
	f.sent++
	return nil
}

func newTestDeps(t *testing.T, manager *orchestratortest.Mock, now time.Time) (Deps, *notify.Notifier) {
	cfg := notify.SMTPConfig{Enabled: true, From: "a@x.com"}
	cfg.BatchWindowSeconds = 60
	cfg.MaxBatchEvents = 100
	notifier := notify.New(cfg, &fakeMailer{})

	deps := Deps{
		ManagerAPI: manager,
		NewProxyClient: func(base string) (orchestrator.API, error) {
			return manager, nil
		},
		Routes:                map[string]string{"node1": "http://10.0.0.1:2375", "node2": "http://10.0.0.2:2375"},
		State:                 state.New(),
		Notifier:              notifier,
		BelowMinAlertCooldown: 120 * time.Second,
		Now:                   func() time.Time { return now },
	}
	return deps, notifier
}

func highCPUSample() accounting.Sample {
	return accounting.Sample{
		CPU:    accounting.CPUStats{TotalUsage: 1900000000, SystemUsage: 10000000000, OnlineCPUs: 1},
		PreCPU: accounting.CPUStats{TotalUsage: 1000000000, SystemUsage: 9000000000},
	}
}

func TestEvaluate_ScaleUpWhenCPUAboveMax(t *testing.T) {
	manager := orchestratortest.New()
	manager.Services["s1"] = orchestrator.ServiceRef{ID: "s1", Name: "api", Mode: orchestrator.ServiceModeReplicated, Replicas: 2, Version: 1}
	manager.Tasks["s1"] = []orchestrator.TaskRef{
		{ID: "t1", ServiceID: "s1", NodeID: "node1", ContainerID: "c1"},
		{ID: "t2", ServiceID: "s1", NodeID: "node2", ContainerID: "c2"},
	}
	manager.Stats["c1"] = highCPUSample()
	manager.Stats["c2"] = highCPUSample()

	pol := FromLabels(map[string]string{
		"autoscale.enable": "true", "autoscale.cpu.max": "70", "autoscale.cpu.min": "20",
		"autoscale.min": "1", "autoscale.max": "5", "autoscale.cooldown": "60",
	}, Defaults{LabelPrefix: "autoscale", DefaultMinReplicas: 1, DefaultMaxReplicas: 50, DefaultCooldown: 120 * time.Second})

	deps, _ := newTestDeps(t, manager, time.Now())

	Evaluate(context.Background(), manager.Services["s1"], pol, deps)

	svc, _ := manager.GetService(context.Background(), "s1")
	assert.Equal(t, svc.Replicas, 3)

	updateCalls := 0
	for _, c := range manager.Calls() {
		if c.Method == "UpdateServiceReplicas" {
			updateCalls++
		}
	}
	assert.Equal(t, updateCalls, 1)
}

func TestEvaluate_CooldownBlocksScaling(t *testing.T) {
	manager := orchestratortest.New()
	manager.Services["s1"] = orchestrator.ServiceRef{ID: "s1", Name: "api", Mode: orchestrator.ServiceModeReplicated, Replicas: 2, Version: 1}
	manager.Tasks["s1"] = []orchestrator.TaskRef{{ID: "t1", ServiceID: "s1", NodeID: "node1", ContainerID: "c1"}}
	manager.Stats["c1"] = highCPUSample()

	pol := FromLabels(map[string]string{
		"autoscale.enable": "true", "autoscale.cpu.max": "70", "autoscale.min": "1", "autoscale.max": "5", "autoscale.cooldown": "60",
	}, Defaults{LabelPrefix: "autoscale", DefaultMinReplicas: 1, DefaultMaxReplicas: 50})

	now := time.Now()
	deps, _ := newTestDeps(t, manager, now)
	deps.State.SetLastScale("s1", now.Add(-30*time.Second))

	Evaluate(context.Background(), manager.Services["s1"], pol, deps)

	svc, _ := manager.GetService(context.Background(), "s1")
	assert.Equal(t, svc.Replicas, 2, "cooldown not yet elapsed, no scale")

	for _, c := range manager.Calls() {
		assert.Assert(t, c.Method != "UpdateServiceReplicas")
	}
}

func TestEvaluate_BelowMinSendsImmediateAlertOncePerCooldown(t *testing.T) {
	manager := orchestratortest.New()
	manager.Services["s1"] = orchestrator.ServiceRef{ID: "s1", Name: "api", Mode: orchestrator.ServiceModeReplicated, Replicas: 1, Version: 1}
	manager.Tasks["s1"] = []orchestrator.TaskRef{{ID: "t1", ServiceID: "s1", NodeID: "node1", ContainerID: "c1"}}
	manager.Stats["c1"] = accounting.Sample{}

	pol := FromLabels(map[string]string{"autoscale.enable": "true", "autoscale.min": "3"}, Defaults{
		LabelPrefix: "autoscale", DefaultMinReplicas: 1, DefaultMaxReplicas: 50, NotifyEnabledDefault: true,
	})

	t0 := time.Now()
	mailer := &fakeMailer{}
	cfg := notify.SMTPConfig{Enabled: true, From: "a@x.com", ToDefault: []string{"ops@x.com"}}
	cfg.BatchWindowSeconds = 60
	cfg.MaxBatchEvents = 100
	notifier := notify.New(cfg, mailer)

	deps := Deps{
		ManagerAPI:     manager,
		NewProxyClient: func(base string) (orchestrator.API, error) { return manager, nil },
		Routes:         map[string]string{"node1": "http://10.0.0.1:2375"},
		State:          state.New(),
		Notifier:       notifier,
		BelowMinAlertCooldown: 120 * time.Second,
		Now:            func() time.Time { return t0 },
	}

	Evaluate(context.Background(), manager.Services["s1"], pol, deps)
	assert.Equal(t, mailer.sent, 1, "first tick alerts")

	deps.Now = func() time.Time { return t0.Add(10 * time.Second) }
	Evaluate(context.Background(), manager.Services["s1"], pol, deps)
	assert.Equal(t, mailer.sent, 1, "second tick within cooldown sends nothing more")

	deps.Now = func() time.Time { return t0.Add(121 * time.Second) }
	Evaluate(context.Background(), manager.Services["s1"], pol, deps)
	assert.Equal(t, mailer.sent, 2, "tick after cooldown alerts again")
}
