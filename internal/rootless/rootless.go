// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rootless detects, installs, and drives the container engine in
// rootless mode, where the daemon runs under an unprivileged user with
// user namespaces instead of root.
package rootless

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/pod-engine/internal/shell"
	"github.com/pdiddy/pod-engine/pkg/types"
)

// State is the rootless configuration state of the target.
type State string

const (
	// StateUnknown means no check has run yet.
	StateUnknown State = "unknown"

	// StateNotConfigured means the per-user control socket is absent.
	StateNotConfigured State = "not-configured"

	// StateInactive means the socket exists but no rootless daemon is
	// reported running.
	StateInactive State = "configured-inactive"

	// StateActive means the socket exists and the daemon is running.
	StateActive State = "configured-active"
)

// socketExpr locates the per-user engine socket, resolving XDG_RUNTIME_DIR
// at the target, not here.
const socketExpr = "${XDG_RUNTIME_DIR:-/run/user/$(id -u)}/docker.sock"

// Manager tracks and manipulates the rootless engine state on one target.
// The state is derived lazily and cached for the manager's lifetime; it is
// not safe for concurrent use.
type Manager struct {
	elevator *shell.Elevator
	log      *logrus.Entry
	state    State
}

// NewManager builds a rootless manager over the given elevator.
func NewManager(elevator *shell.Elevator, log *logrus.Entry) *Manager {
	return &Manager{elevator: elevator, log: log, state: StateUnknown}
}

// State returns the cached state, probing once if no check has run yet.
func (m *Manager) State(ctx context.Context) State {
	if m.state == StateUnknown {
		return m.Check(ctx)
	}
	return m.state
}

// Check probes the target and refreshes the cached state: socket presence
// first, then daemon liveness via the user service manager with a
// process-table scan as fallback.
func (m *Manager) Check(ctx context.Context) State {
	runner := m.elevator.Runner()

	res := runner.Run(ctx, shell.Script("test -S "+socketExpr))
	if !res.OK() {
		m.log.Debug("rootless socket absent")
		m.state = StateNotConfigured
		return m.state
	}

	res = runner.Run(ctx, shell.Script("systemctl --user is-active docker 2>/dev/null"))
	if res.OK() && strings.TrimSpace(res.Stdout) == "active" {
		m.state = StateActive
		return m.state
	}

	res = runner.Run(ctx, shell.Script("ps aux | grep -v grep | grep -i 'dockerd.*rootless'"))
	if res.OK() && res.Stdout != "" {
		m.log.Debug("rootless daemon found via process table")
		m.state = StateActive
		return m.state
	}

	m.log.Debug("rootless socket present but daemon not running")
	m.state = StateInactive
	return m.state
}

// permissionSignature reports whether a failed result looks like the
// rootless socket rejecting us. This is a best-effort heuristic over error
// text that varies across engine versions, not a guaranteed classifier.
func permissionSignature(res types.CommandResult) bool {
	text := strings.ToLower(res.Stderr)
	return strings.Contains(text, "permission denied") ||
		strings.Contains(text, "cannot connect")
}
