// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/pod-engine/internal/gpu"
	"github.com/pdiddy/pod-engine/internal/rootless"
	"github.com/pdiddy/pod-engine/internal/shell"
	"github.com/pdiddy/pod-engine/pkg/types"
)

// Manager creates and manages containers on one target. It keeps a local
// map of the containers it created; the map is not safe for concurrent
// use, callers coordinating parallel flows must synchronize externally.
type Manager struct {
	elevator *shell.Elevator
	rootless *rootless.Manager
	detector *gpu.Detector
	cfg      types.EngineConfig
	bin      string
	podman   *bool
	log      *logrus.Entry

	containers map[string]*types.ContainerDescriptor // name -> descriptor
}

// NewManager builds a manager driving the given engine binary. The
// rootless manager may be nil when rootless dispatch is not wanted.
func NewManager(elevator *shell.Elevator, rl *rootless.Manager, cfg types.EngineConfig, bin string, log *logrus.Entry) *Manager {
	m := &Manager{
		elevator:   elevator,
		rootless:   rl,
		cfg:        cfg,
		bin:        bin,
		log:        log.WithField("engine", bin),
		containers: make(map[string]*types.ContainerDescriptor),
	}
	m.detector = gpu.NewDetector(elevator, bin, m.log)
	return m
}

// Binary returns the engine binary the manager drives.
func (m *Manager) Binary() string { return m.bin }

// IsPodman reports whether the managed binary fronts podman. The probe
// result is cached for the manager's lifetime.
func (m *Manager) IsPodman() bool {
	if m.podman == nil {
		v := IsPodman(context.Background(), m.elevator, m.bin)
		m.podman = &v
	}
	return *m.podman
}

// Detector exposes the manager's GPU detector.
func (m *Manager) Detector() *gpu.Detector { return m.detector }

// run dispatches an engine subcommand, through the rootless dispatcher
// when configured and otherwise elevated.
func (m *Manager) run(ctx context.Context, args ...string) types.CommandResult {
	if m.rootless != nil && m.cfg.PreferRootless {
		res, err := m.rootless.RunEngine(ctx, args, true, m.cfg.SudoFallback)
		if err != nil {
			m.log.WithError(err).Debug("rootless dispatch unavailable")
		}
		return res
	}
	return m.elevator.Run(ctx, shell.Argv(append([]string{m.bin}, args...)...), true)
}

// generateName builds a collision-resistant container name: configured
// prefix, unix timestamp, and a lowercase random suffix.
func (m *Manager) generateName() string {
	suffix := strings.ToLower(shortuuid.New())
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s%d-%s", m.cfg.NamePrefix, time.Now().Unix(), suffix)
}

// List returns the descriptors of containers created by this manager
// instance, in no particular order.
func (m *Manager) List() []*types.ContainerDescriptor {
	out := make([]*types.ContainerDescriptor, 0, len(m.containers))
	for _, d := range m.containers {
		out = append(out, d)
	}
	return out
}

// Status re-inspects a container and reports whether it is running along
// with the raw engine status. A container the engine no longer knows is
// reported as not running with status "not found", not as an error.
func (m *Manager) Status(ctx context.Context, containerID string) (bool, string) {
	res := m.run(ctx, "inspect", "--format", "{{.State.Status}}", containerID)
	if !res.OK() {
		m.log.WithField("container", short(containerID)).
			Debug("inspect failed, container assumed gone")
		return false, "not found"
	}
	status := strings.TrimSpace(res.Stdout)
	m.refreshStatus(containerID, types.ContainerStatus(status))
	return strings.EqualFold(status, "running"), status
}

// Stop stops a container, waiting up to timeout before the engine kills
// it. A container that is already gone counts as success.
func (m *Manager) Stop(ctx context.Context, containerID string, timeout time.Duration) error {
	secs := int(timeout.Seconds())
	if secs <= 0 {
		secs = 10
	}
	res := m.run(ctx, "stop", "-t", fmt.Sprint(secs), containerID)
	if !res.OK() {
		if strings.Contains(res.Stderr, "No such container") {
			m.refreshStatus(containerID, types.StatusRemoved)
			return nil
		}
		return fmt.Errorf("stopping container %s: %s", short(containerID), res.Stderr)
	}
	m.refreshStatus(containerID, types.StatusExited)
	return nil
}

// Remove deletes a container, forcing removal of a running one when asked.
// A container that is already gone counts as success.
func (m *Manager) Remove(ctx context.Context, containerID string, force bool) error {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, containerID)

	res := m.run(ctx, args...)
	if !res.OK() && !strings.Contains(res.Stderr, "No such container") {
		return fmt.Errorf("removing container %s: %s", short(containerID), res.Stderr)
	}
	for name, d := range m.containers {
		if d.ID == containerID || d.Name == containerID || name == containerID {
			delete(m.containers, name)
			break
		}
	}
	return nil
}

func (m *Manager) refreshStatus(containerID string, status types.ContainerStatus) {
	for _, d := range m.containers {
		if d.ID == containerID || d.Name == containerID {
			d.Status = status
			return
		}
	}
}

// short truncates an identifier for log output.
func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
