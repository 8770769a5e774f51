// Package docker provides a Docker client for container lifecycle management.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/core/health"
	"github.com/pressbox/pressbox/internal/core/instance"
)

// =============================================================================
// Orchestrator - Manages Instance Stacks
// =============================================================================

// Orchestrator manages the container stack of an instance using Docker.
type Orchestrator struct {
	docker Client
	logger *slog.Logger
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(docker Client, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		docker: docker,
		logger: logger,
	}
}

// =============================================================================
// Start Stack
// =============================================================================

// StartStack creates and starts all containers for an instance.
// Returns the container info for all started containers.
// Bind mounts with relative sources are resolved against the instance
// directory; named volumes get instance-prefixed Docker volume names.
func (o *Orchestrator) StartStack(ctx context.Context, inst *instance.Instance, stack *compose.ParsedStack) ([]ContainerInfo, error) {
	o.logger.Info("starting stack",
		"instance", inst.Name,
		"services", len(stack.Services),
	)

	// 1. Create network for the instance
	networkName := instance.NetworkName(inst.Name)
	networkID, err := o.createInstanceNetwork(inst.Name, networkName)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	o.logger.Debug("created network", "network_id", networkID, "network_name", networkName)

	// 2. Create named volumes
	for _, vol := range stack.Volumes {
		volumeName := instance.VolumeName(inst.Name, vol.Name)
		if _, err := o.createInstanceVolume(inst.Name, volumeName); err != nil {
			_ = o.docker.RemoveNetwork(networkID)
			return nil, fmt.Errorf("failed to create volume %s: %w", vol.Name, err)
		}
		o.logger.Debug("created volume", "volume_name", volumeName)
	}

	// 3. Pull missing images
	for _, svc := range stack.Services {
		exists, _ := o.docker.ImageExists(svc.Image)
		if !exists {
			o.logger.Info("pulling image", "image", svc.Image)
			if err := o.docker.PullImage(svc.Image, PullOptions{}); err != nil {
				o.logger.Warn("failed to pull image, trying anyway", "image", svc.Image, "error", err)
			}
		}
	}

	// 4. Check for existing containers (restart case)
	existingContainers, _ := o.docker.ListContainers(ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", LabelInstance, inst.Name),
		},
	})

	existingByService := make(map[string]ContainerInfo)
	for _, c := range existingContainers {
		if svc, ok := c.Labels[LabelService]; ok {
			existingByService[svc] = c
		}
	}

	// 5. Create and start containers in dependency order
	var containers []ContainerInfo
	createdContainers := make(map[string]string) // serviceName -> containerID

	for _, svc := range compose.StartOrder(stack.Services) {
		var containerID string
		var err error

		// Reuse an existing container when the stack was only stopped
		if existing, found := existingByService[svc.Name]; found {
			containerID = existing.ID
			o.logger.Debug("using existing container", "service", svc.Name, "container_id", shortID(containerID))
		} else {
			containerName := instance.ContainerName(inst.Name, svc.Name)
			spec := o.buildContainerSpec(inst, svc, containerName, networkName)

			containerID, err = o.docker.CreateContainer(spec)
			if err != nil {
				o.cleanupCreatedContainers(createdContainers)
				_ = o.docker.RemoveNetwork(networkID)
				return nil, fmt.Errorf("failed to create container %s: %w", svc.Name, err)
			}
			o.logger.Debug("created container", "service", svc.Name, "container_id", shortID(containerID))
		}

		createdContainers[svc.Name] = containerID

		// Start the container (works for both new and existing stopped containers)
		if err := o.docker.StartContainer(containerID); err != nil {
			if !strings.Contains(err.Error(), "already started") && !strings.Contains(err.Error(), "is already running") {
				o.cleanupCreatedContainers(createdContainers)
				_ = o.docker.RemoveNetwork(networkID)
				return nil, fmt.Errorf("failed to start container %s: %w", svc.Name, err)
			}
		}
		o.logger.Debug("started container", "service", svc.Name, "container_id", shortID(containerID))

		info, err := o.docker.InspectContainer(containerID)
		if err != nil {
			o.cleanupCreatedContainers(createdContainers)
			_ = o.docker.RemoveNetwork(networkID)
			return nil, fmt.Errorf("failed to inspect container %s: %w", svc.Name, err)
		}
		containers = append(containers, *info)
	}

	o.logger.Info("stack started",
		"instance", inst.Name,
		"containers", len(containers),
	)

	return containers, nil
}

// =============================================================================
// Stack State
// =============================================================================

// StackStates returns the observed per-service container states for an
// instance, suitable for the pure predicates in core/health. Stopped
// containers are included.
func (o *Orchestrator) StackStates(ctx context.Context, instanceName string) ([]health.ContainerState, error) {
	containers, err := o.docker.ListContainers(ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", LabelInstance, instanceName),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var states []health.ContainerState
	for _, c := range containers {
		service := c.Labels[LabelService]
		if service == "" {
			// Fall back to the container name suffix
			parts := strings.Split(c.Name, "_")
			service = parts[len(parts)-1]
		}

		// The list endpoint has no health detail; inspect for it
		info, err := o.docker.InspectContainer(c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect container %s: %w", service, err)
		}

		states = append(states, health.ContainerState{
			Service: service,
			Status:  info.State,
			Health:  info.Health,
		})
	}

	return states, nil
}

// ServiceContainer returns the container backing a service of an instance.
func (o *Orchestrator) ServiceContainer(ctx context.Context, instanceName, service string) (*ContainerInfo, error) {
	containers, err := o.docker.ListContainers(ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", LabelInstance, instanceName),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	for _, c := range containers {
		if c.Labels[LabelService] == service {
			info := c
			return &info, nil
		}
	}

	return nil, NewDockerError("ServiceContainer", "container", instanceName+"/"+service, "service container not found", ErrContainerNotFound)
}

// ExecIn runs a command inside a service container of an instance. A
// non-zero exit code is reported in the result, not as an error.
func (o *Orchestrator) ExecIn(ctx context.Context, instanceName, service string, cmd []string, opts ExecOptions) (*ExecResult, error) {
	c, err := o.ServiceContainer(ctx, instanceName, service)
	if err != nil {
		return nil, err
	}
	return o.docker.Exec(c.ID, cmd, opts)
}

// ReconcileOwnership chowns a container path back to the invoking user,
// running as root inside the instance's web container. The WordPress
// entrypoint hands the bind-mounted content to www-data; until chowned
// back, host-side removal of that directory fails on Linux. Needs a
// running web container.
func (o *Orchestrator) ReconcileOwnership(ctx context.Context, instanceName, containerPath string) error {
	uid := os.Getuid()
	if uid < 0 {
		// No host uid to restore on this platform.
		return nil
	}
	owner := fmt.Sprintf("%d:%d", uid, os.Getgid())

	res, err := o.ExecIn(ctx, instanceName, compose.ServiceWordPress,
		[]string{"chown", "-R", owner, containerPath}, ExecOptions{User: "root"})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("chown exited %d", res.ExitCode)
		}
		return NewDockerError("ReconcileOwnership", "container", instanceName+"/"+compose.ServiceWordPress, msg, ErrExecFailed)
	}

	o.logger.Debug("content ownership reconciled", "instance", instanceName, "path", containerPath, "owner", owner)
	return nil
}

// StatusDump renders a plain-text status table of an instance's containers
// for failure diagnostics.
func (o *Orchestrator) StatusDump(ctx context.Context, instanceName string) string {
	states, err := o.StackStates(ctx, instanceName)
	if err != nil {
		return fmt.Sprintf("(could not list containers: %v)", err)
	}
	if len(states) == 0 {
		return "(no containers)"
	}

	sort.Slice(states, func(i, j int) bool { return states[i].Service < states[j].Service })

	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-12s %s\n", "SERVICE", "STATE", "HEALTH")
	for _, s := range states {
		healthCol := s.Health
		if healthCol == "" {
			healthCol = "-"
		}
		fmt.Fprintf(&b, "%-12s %-12s %s\n", s.Service, s.Status, healthCol)
	}
	return b.String()
}

// =============================================================================
// Stop Stack
// =============================================================================

// StopStack stops all containers for an instance.
func (o *Orchestrator) StopStack(ctx context.Context, instanceName string) error {
	o.logger.Info("stopping stack", "instance", instanceName)

	containers, err := o.docker.ListContainers(ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", LabelInstance, instanceName),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	timeout := 10 * time.Second
	for _, c := range containers {
		if c.Status == ContainerStatusRunning {
			o.logger.Debug("stopping container", "container_id", shortID(c.ID), "name", c.Name)
			if err := o.docker.StopContainer(c.ID, &timeout); err != nil {
				o.logger.Warn("failed to stop container", "container_id", shortID(c.ID), "error", err)
				// Continue stopping others
			}
		}
	}

	o.logger.Info("stack stopped", "instance", instanceName, "containers_stopped", len(containers))
	return nil
}

// =============================================================================
// Remove Stack
// =============================================================================

// RemoveStack removes all Docker resources for an instance.
// Order: containers → network → volumes. The volumes slice holds compose
// volume names (e.g. "db_data"); pass nil to keep volumes.
func (o *Orchestrator) RemoveStack(ctx context.Context, instanceName string, volumes []string) error {
	o.logger.Info("removing stack", "instance", instanceName)

	// 1. List and remove containers
	containers, err := o.docker.ListContainers(ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", LabelInstance, instanceName),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	timeout := 10 * time.Second
	for _, c := range containers {
		if c.Status == ContainerStatusRunning {
			_ = o.docker.StopContainer(c.ID, &timeout)
		}
		if err := o.docker.RemoveContainer(c.ID, RemoveOptions{Force: true, RemoveVolumes: false}); err != nil {
			o.logger.Warn("failed to remove container", "container_id", shortID(c.ID), "error", err)
		} else {
			o.logger.Debug("removed container", "container_id", shortID(c.ID))
		}
	}

	// 2. Remove network
	networkName := instance.NetworkName(instanceName)
	if err := o.docker.RemoveNetwork(networkName); err != nil {
		o.logger.Warn("failed to remove network", "network", networkName, "error", err)
	} else {
		o.logger.Debug("removed network", "network", networkName)
	}

	// 3. Remove volumes
	for _, vol := range volumes {
		volumeName := instance.VolumeName(instanceName, vol)
		if err := o.docker.RemoveVolume(volumeName, true); err != nil {
			o.logger.Warn("failed to remove volume", "volume", volumeName, "error", err)
		} else {
			o.logger.Debug("removed volume", "volume", volumeName)
		}
	}

	o.logger.Info("stack removed", "instance", instanceName)
	return nil
}

// =============================================================================
// Get Container Logs
// =============================================================================

// ServiceLogs returns logs for one service of an instance.
func (o *Orchestrator) ServiceLogs(ctx context.Context, instanceName, service, tail string) (string, error) {
	c, err := o.ServiceContainer(ctx, instanceName, service)
	if err != nil {
		return "", err
	}

	reader, err := o.docker.ContainerLogs(c.ID, LogOptions{
		Tail:       tail,
		Timestamps: true,
	})
	if err != nil {
		return "", err
	}
	defer reader.Close()

	buf := make([]byte, 64*1024) // 64KB buffer
	n, _ := reader.Read(buf)
	return string(buf[:n]), nil
}

// =============================================================================
// Helper Methods
// =============================================================================

// createInstanceNetwork creates a network for an instance or returns the
// existing one.
func (o *Orchestrator) createInstanceNetwork(instanceName, networkName string) (string, error) {
	networkID, err := o.docker.CreateNetwork(NetworkSpec{
		Name:   networkName,
		Driver: "bridge",
		Labels: map[string]string{
			LabelManaged:  "true",
			LabelInstance: instanceName,
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			o.logger.Debug("network already exists, reusing", "network_name", networkName)
			// Docker accepts name or ID
			return networkName, nil
		}
		return "", err
	}
	return networkID, nil
}

// createInstanceVolume creates a volume for an instance or returns the
// existing one.
func (o *Orchestrator) createInstanceVolume(instanceName, volumeName string) (string, error) {
	volID, err := o.docker.CreateVolume(VolumeSpec{
		Name: volumeName,
		Labels: map[string]string{
			LabelManaged:  "true",
			LabelInstance: instanceName,
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			o.logger.Debug("volume already exists, reusing", "volume_name", volumeName)
			return volumeName, nil
		}
		return "", err
	}
	return volID, nil
}

// buildContainerSpec builds a ContainerSpec from a parsed compose service.
func (o *Orchestrator) buildContainerSpec(inst *instance.Instance, svc compose.Service, containerName, networkName string) ContainerSpec {
	spec := ContainerSpec{
		Name:       containerName,
		Image:      svc.Image,
		Command:    svc.Command,
		Entrypoint: svc.Entrypoint,
		User:       svc.User,
		Env:        make(map[string]string),
		Labels: map[string]string{
			LabelManaged:  "true",
			LabelInstance: inst.Name,
			LabelService:  svc.Name,
		},
		Networks: []string{networkName},
		// The service name doubles as the DNS alias so WordPress can reach
		// "db" regardless of the full container name
		NetworkAliases: map[string][]string{
			networkName: {svc.Name},
		},
	}

	for k, v := range svc.Environment {
		spec.Env[k] = v
	}

	// Port bindings
	for _, p := range svc.Ports {
		spec.Ports = append(spec.Ports, PortBinding{
			ContainerPort: int(p.Target),
			HostPort:      int(p.Published),
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}

	// Volume mounts
	for _, v := range svc.Volumes {
		source := v.Source
		switch v.Type {
		case compose.VolumeMountTypeVolume:
			// Replace named volume with instance-prefixed name
			source = instance.VolumeName(inst.Name, v.Source)
		case compose.VolumeMountTypeBind:
			if !filepath.IsAbs(source) {
				source = filepath.Join(inst.Dir, source)
			}
		}
		spec.Volumes = append(spec.Volumes, VolumeMount{
			Source:   source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		})
	}

	// Health check
	if svc.HealthCheck != nil {
		spec.HealthCheck = &HealthCheck{
			Test:    svc.HealthCheck.Test,
			Retries: svc.HealthCheck.Retries,
		}
		if svc.HealthCheck.Interval != "" {
			if d, err := time.ParseDuration(svc.HealthCheck.Interval); err == nil {
				spec.HealthCheck.Interval = d
			}
		}
		if svc.HealthCheck.Timeout != "" {
			if d, err := time.ParseDuration(svc.HealthCheck.Timeout); err == nil {
				spec.HealthCheck.Timeout = d
			}
		}
		if svc.HealthCheck.StartPeriod != "" {
			if d, err := time.ParseDuration(svc.HealthCheck.StartPeriod); err == nil {
				spec.HealthCheck.StartPeriod = d
			}
		}
	}

	// Restart policy
	switch svc.Restart {
	case "always":
		spec.RestartPolicy = RestartPolicy{Name: "always"}
	case "on-failure":
		spec.RestartPolicy = RestartPolicy{Name: "on-failure"}
	case "unless-stopped":
		spec.RestartPolicy = RestartPolicy{Name: "unless-stopped"}
	default:
		spec.RestartPolicy = RestartPolicy{Name: "no"}
	}

	// Copy service labels
	for k, v := range svc.Labels {
		spec.Labels[k] = v
	}

	return spec
}

// cleanupCreatedContainers stops and removes all created containers.
func (o *Orchestrator) cleanupCreatedContainers(containers map[string]string) {
	timeout := 5 * time.Second
	for name, id := range containers {
		_ = o.docker.StopContainer(id, &timeout)
		_ = o.docker.RemoveContainer(id, RemoveOptions{Force: true})
		o.logger.Debug("cleaned up container", "service", name, "container_id", shortID(id))
	}
}

// shortID trims a container ID for logging.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
