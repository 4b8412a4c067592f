package drain

import (
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/payperplay/autoscaler/internal/notify"
	"github.com/payperplay/autoscaler/internal/orchestrator"
	"github.com/payperplay/autoscaler/internal/orchestrator/orchestratortest"
)

type fakeMailer struct{ sent int }

func (f *fakeMailer) Send(to []string, subject, body string) error {
	f.sent++
	return nil
}

func testNotifier(mailer *fakeMailer) *notify.Notifier {
	cfg := notify.SMTPConfig{Enabled: true, From: "a@x.com", ToDefault: []string{"ops@x.com"}}
	cfg.BatchWindowSeconds = 60
	cfg.MaxBatchEvents = 20
	return notify.New(cfg, mailer)
}

func TestRun_SuccessfulDrainShrinksByOne(t *testing.T) {
	proxyMock := orchestratortest.New()
	proxyMock.Execs["exec-c1-0"] = orchestrator.ExecResult{Running: false, ExitCode: 0}

	managerMock := orchestratortest.New()
	managerMock.Services["s1"] = orchestrator.ServiceRef{
		ID: "s1", Name: "api", Mode: orchestrator.ServiceModeReplicated, Replicas: 3, Version: 1,
	}

	req := Request{
		Service:        managerMock.Services["s1"],
		Tasks:          []orchestrator.TaskRef{{ID: "t1", ServiceID: "s1", NodeID: "node1", ContainerID: "c1"}},
		Routes:         map[string]string{"node1": "http://10.0.0.1:2375"},
		PreStopCmd:     "drain.sh",
		PreStopTimeout: 5 * time.Second,
		StopTimeout:    10 * time.Second,
		NotifyEnabled:  true,
		NewClient: func(base string) (orchestrator.API, error) {
			return proxyMock, nil
		},
		ManagerAPI: managerMock,
	}

	mailer := &fakeMailer{}
	notifier := testNotifier(mailer)

	// Exec lifecycle: ExecCreate yields a deterministic id in this test
	// setup since it is the 0th mock call recorded; pre-seed it above.
	Run(context.Background(), notifier, req)

	svc, _ := managerMock.GetService(context.Background(), "s1")
	assert.Equal(t, svc.Replicas, 2)

	hasStop := false
	for _, c := range proxyMock.Calls() {
		if c.Method == "ContainerStop" {
			hasStop = true
		}
	}
	assert.Assert(t, hasStop, "container stop must be called before shrink")
}

func TestRun_PreStopTimeoutFailsDrainAndSendsImmediateError(t *testing.T) {
	proxyMock := orchestratortest.New()
	// exec never finishes: ExecInspect for any id returns the default
	// zero value which has Running=false unless explicitly seeded, so
	// seed Running=true to simulate an indefinitely running pre-stop.
	proxyMock.Execs["exec-c1-0"] = orchestrator.ExecResult{Running: true}

	managerMock := orchestratortest.New()
	managerMock.Services["s1"] = orchestrator.ServiceRef{
		ID: "s1", Name: "api", Mode: orchestrator.ServiceModeReplicated, Replicas: 3, Version: 1,
	}

	req := Request{
		Service:        managerMock.Services["s1"],
		Tasks:          []orchestrator.TaskRef{{ID: "t1", ServiceID: "s1", NodeID: "node1", ContainerID: "c1"}},
		Routes:         map[string]string{"node1": "http://10.0.0.1:2375"},
		PreStopCmd:     "drain.sh",
		PreStopTimeout: 50 * time.Millisecond,
		StopTimeout:    10 * time.Second,
		NotifyEnabled:  true,
		NewClient: func(base string) (orchestrator.API, error) {
			return proxyMock, nil
		},
		ManagerAPI: managerMock,
	}

	mailer := &fakeMailer{}
	notifier := testNotifier(mailer)

	Run(context.Background(), notifier, req)

	svc, _ := managerMock.GetService(context.Background(), "s1")
	assert.Equal(t, svc.Replicas, 3, "replicas unchanged after a failed drain")
	assert.Equal(t, mailer.sent, 1, "an immediate error event was sent")

	for _, c := range proxyMock.Calls() {
		assert.Assert(t, c.Method != "ContainerStop", "container must not be stopped if pre-stop never finished")
	}
}

func TestRun_NoTasksIsNoOp(t *testing.T) {
	managerMock := orchestratortest.New()
	req := Request{
		Service: orchestrator.ServiceRef{ID: "s1", Name: "api"},
		Tasks:   nil,
		NewClient: func(base string) (orchestrator.API, error) {
			return managerMock, nil
		},
		ManagerAPI: managerMock,
	}
	mailer := &fakeMailer{}
	notifier := testNotifier(mailer)

	Run(context.Background(), notifier, req)

	assert.Equal(t, mailer.sent, 0)
	assert.Equal(t, len(managerMock.Calls()), 0)
}
