// Package orchestratortest provides an in-memory orchestrator.API
// implementation for exercising the policy evaluator, scale executor,
// graceful drainer, and reconciler without a live Docker daemon. Calls
// are recorded in order, mirroring the teacher's own interface-seam
// style of swapping a fake behind an interface in tests.
package orchestratortest

import (
	"context"
	"fmt"
	"sync"

	"github.com/payperplay/autoscaler/internal/accounting"
	"github.com/payperplay/autoscaler/internal/orchestrator"
)

// Call records one method invocation for assertions.
type Call struct {
	Method string
	Args   []interface{}
}

// Mock is a scriptable, concurrency-safe orchestrator.API.
type Mock struct {
	mu sync.Mutex

	Services map[string]orchestrator.ServiceRef
	Tasks    map[string][]orchestrator.TaskRef
	Stats    map[string]accounting.Sample
	Inspects map[string]orchestrator.ContainerInspect
	Execs    map[string]orchestrator.ExecResult

	// UpdateErr/StopErr let a test inject a failure for a specific id
	// on the next matching call.
	UpdateErr map[string]error
	StopErr   map[string]error

	PingOK bool
	NodeIDVal string

	calls []Call
}

// New returns an empty Mock ready for a test to populate.
func New() *Mock {
	return &Mock{
		Services:  map[string]orchestrator.ServiceRef{},
		Tasks:     map[string][]orchestrator.TaskRef{},
		Stats:     map[string]accounting.Sample{},
		Inspects:  map[string]orchestrator.ContainerInspect{},
		Execs:     map[string]orchestrator.ExecResult{},
		UpdateErr: map[string]error{},
		StopErr:   map[string]error{},
		PingOK:    true,
	}
}

func (m *Mock) record(method string, args ...interface{}) {
	m.calls = append(m.calls, Call{Method: method, Args: args})
}

// Calls returns every recorded call in invocation order.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Mock) ListServicesWithLabel(ctx context.Context, labelEqualsValue string) ([]orchestrator.ServiceRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListServicesWithLabel", labelEqualsValue)

	out := make([]orchestrator.ServiceRef, 0, len(m.Services))
	for _, svc := range m.Services {
		out = append(out, svc)
	}
	return out, nil
}

func (m *Mock) GetService(ctx context.Context, serviceID string) (orchestrator.ServiceRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetService", serviceID)

	svc, ok := m.Services[serviceID]
	if !ok {
		return orchestrator.ServiceRef{}, fmt.Errorf("orchestratortest: unknown service %s", serviceID)
	}
	return svc, nil
}

func (m *Mock) UpdateServiceReplicas(ctx context.Context, svc orchestrator.ServiceRef, newReplicas int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateServiceReplicas", svc.ID, newReplicas)

	if err := m.UpdateErr[svc.ID]; err != nil {
		delete(m.UpdateErr, svc.ID)
		return err
	}

	updated := svc
	updated.Replicas = newReplicas
	updated.Version = svc.Version + 1
	m.Services[svc.ID] = updated
	return nil
}

func (m *Mock) ListRunningTasks(ctx context.Context, serviceID string) ([]orchestrator.TaskRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListRunningTasks", serviceID)
	return append([]orchestrator.TaskRef(nil), m.Tasks[serviceID]...), nil
}

func (m *Mock) ContainerStatsOnce(ctx context.Context, containerID string) (accounting.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ContainerStatsOnce", containerID)

	s, ok := m.Stats[containerID]
	if !ok {
		return accounting.Sample{}, fmt.Errorf("orchestratortest: no stats stubbed for %s", containerID)
	}
	return s, nil
}

func (m *Mock) ContainerInspect(ctx context.Context, containerID string) (orchestrator.ContainerInspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ContainerInspect", containerID)
	return m.Inspects[containerID], nil
}

func (m *Mock) ContainerStop(ctx context.Context, containerID string, timeoutSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ContainerStop", containerID, timeoutSeconds)

	if err := m.StopErr[containerID]; err != nil {
		delete(m.StopErr, containerID)
		return err
	}
	ins := m.Inspects[containerID]
	ins.Running = false
	m.Inspects[containerID] = ins
	return nil
}

func (m *Mock) ExecCreate(ctx context.Context, containerID, shellCmd string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	execID := fmt.Sprintf("exec-%s-%d", containerID, len(m.calls))
	m.record("ExecCreate", containerID, shellCmd)
	return execID, nil
}

func (m *Mock) ExecStart(ctx context.Context, execID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExecStart", execID)
	return nil
}

func (m *Mock) ExecInspect(ctx context.Context, execID string) (orchestrator.ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExecInspect", execID)
	return m.Execs[execID], nil
}

func (m *Mock) ManagerPing(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ManagerPing")
	return m.PingOK
}

func (m *Mock) NodeID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("NodeID")
	return m.NodeIDVal, nil
}

var _ orchestrator.API = (*Mock)(nil)
