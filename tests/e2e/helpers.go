// Package e2e exercises the full provisioning path against a real Docker
// daemon. The suite is opt-in: set PRESSBOX_E2E=1 to run it.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/shell/docker"
)

// e2ePrefix marks instances owned by this suite. Cleanup only ever touches
// containers whose instance label carries it, so a developer's real
// instances survive a test run against the same daemon.
const e2ePrefix = "e2etest-"

// =============================================================================
// Stray Cleanup
// =============================================================================

// cleanupStrays removes leftover stacks from earlier crashed runs.
func cleanupStrays(ctx context.Context, d docker.Client, orch *docker.Orchestrator) error {
	containers, err := d.ListContainers(docker.ListOptions{
		All:     true,
		Filters: map[string]string{"label": docker.LabelManaged + "=true"},
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	seen := make(map[string]bool)
	for _, c := range containers {
		name := c.Labels[docker.LabelInstance]
		if !strings.HasPrefix(name, e2ePrefix) || seen[name] {
			continue
		}
		seen[name] = true
		if err := orch.RemoveStack(ctx, name, stackVolumes()); err != nil {
			return fmt.Errorf("failed to remove stray stack %s: %w", name, err)
		}
	}
	return nil
}

func stackVolumes() []string {
	return []string{compose.VolumeDBData, compose.VolumeCore}
}

// =============================================================================
// HTTP Probes
// =============================================================================

// httpOK polls until the URL answers with any HTTP status.
func httpOK(url string, attempts int, interval time.Duration) bool {
	client := &http.Client{Timeout: 5 * time.Second}
	for i := 0; i < attempts; i++ {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			return true
		}
		time.Sleep(interval)
	}
	return false
}

// =============================================================================
// Diagnostics
// =============================================================================

// dumpServiceLogs prints container logs for every service of an instance.
// Without logs a failed bring-up is a black box.
func dumpServiceLogs(t *testing.T, orch *docker.Orchestrator, instanceName string) {
	t.Helper()
	services := []string{
		compose.ServiceDB,
		compose.ServiceWordPress,
		compose.ServiceAdmin,
		compose.ServiceCLI,
	}
	for _, svc := range services {
		out, err := orch.ServiceLogs(context.Background(), instanceName, svc, "50")
		if err != nil {
			t.Logf("--- %s/%s: no logs (%v)", instanceName, svc, err)
			continue
		}
		t.Logf("--- %s/%s logs:\n%s", instanceName, svc, out)
	}
}
