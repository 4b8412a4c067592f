package orchestrator

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
)

// ListServicesWithLabel returns every service carrying the given
// label=value pair, e.g. "autoscale.enable=true".
func (c *Client) ListServicesWithLabel(ctx context.Context, labelEqualsValue string) ([]ServiceRef, error) {
	services, err := c.sdk.ServiceList(ctx, types.ServiceListOptions{
		Filters: filters.NewArgs(filters.Arg("label", labelEqualsValue)),
	})
	if err != nil {
		return nil, wrapTransport("ServiceList", err)
	}

	refs := make([]ServiceRef, 0, len(services))
	for _, svc := range services {
		refs = append(refs, toServiceRef(svc))
	}
	return refs, nil
}

// GetService fetches a service's current spec and optimistic-concurrency
// version.
func (c *Client) GetService(ctx context.Context, serviceID string) (ServiceRef, error) {
	svc, _, err := c.sdk.ServiceInspectWithRaw(ctx, serviceID, types.ServiceInspectOptions{})
	if err != nil {
		return ServiceRef{}, wrapTransport("ServiceInspectWithRaw", err)
	}
	return toServiceRef(svc), nil
}

// UpdateServiceReplicas posts the full service spec back with only the
// replica count mutated, using the version supplied for optimistic
// concurrency. svc.Spec must be the spec last read via GetService or
// ListServicesWithLabel so TaskTemplate, networks, mounts, and update
// config round-trip unchanged. Callers are responsible for retrying on
// a version conflict (*UpstreamError with OutOfSequence() == true);
// this method makes exactly one attempt.
func (c *Client) UpdateServiceReplicas(ctx context.Context, svc ServiceRef, newReplicas int) error {
	if svc.Mode != ServiceModeReplicated {
		return nil
	}

	spec := svc.Spec
	if spec.Mode.Replicated == nil {
		spec.Mode.Replicated = &swarm.ReplicatedService{}
	}
	spec.Mode.Replicated.Replicas = uint64Ptr(uint64(newReplicas))

	_, err := c.sdk.ServiceUpdate(ctx, svc.ID, swarm.Version{Index: svc.Version}, spec, types.ServiceUpdateOptions{})
	if err != nil {
		return fmt.Errorf("failed to update service %s: %w", svc.ID, classifyUpdateErr(err))
	}
	return nil
}

func classifyUpdateErr(err error) error {
	// ServiceUpdate surfaces the orchestrator's HTTP error message
	// directly; UpstreamError.OutOfSequence() inspects it for the
	// version-conflict substring the Scale Executor retries on.
	return &UpstreamError{Verb: "POST", Path: "/services/update", Status: 0, Body: err.Error()}
}

func toServiceRef(svc swarm.Service) ServiceRef {
	ref := ServiceRef{
		ID:      svc.ID,
		Name:    svc.Spec.Name,
		Labels:  svc.Spec.Labels,
		Version: svc.Version.Index,
		Mode:    ServiceModeUnknown,
		Spec:    svc.Spec,
	}
	if r := svc.Spec.TaskTemplate.Resources; r != nil && r.Limits != nil {
		ref.NanoCPUs = r.Limits.NanoCPUs
	}
	if svc.Spec.Mode.Replicated != nil {
		ref.Mode = ServiceModeReplicated
		if svc.Spec.Mode.Replicated.Replicas != nil {
			ref.Replicas = int(*svc.Spec.Mode.Replicated.Replicas)
		}
	} else if svc.Spec.Mode.Global != nil {
		ref.Mode = ServiceModeGlobal
	}
	return ref
}

func uint64Ptr(v uint64) *uint64 { return &v }
