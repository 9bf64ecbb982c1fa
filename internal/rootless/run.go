// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rootless

import (
	"context"
	"errors"

	"al.essio.dev/pkg/shellescape"

	"github.com/pdiddy/pod-engine/internal/shell"
	"github.com/pdiddy/pod-engine/pkg/types"
)

// ErrNoFallback is returned when the rootless path is unavailable and
// elevated fallback was not enabled.
var ErrNoFallback = errors.New("rootless engine unavailable and sudo fallback not enabled")

// RunEngine executes an engine subcommand (args without the leading
// "docker"). With preferRootless and an active rootless daemon the command
// is addressed at the per-user socket; if that fails with a permission or
// connection signature and sudoFallback is set, it is retried elevated.
// Any other rootless failure is returned as-is, not retried.
func (m *Manager) RunEngine(ctx context.Context, args []string, preferRootless, sudoFallback bool) (types.CommandResult, error) {
	if preferRootless && m.State(ctx) == StateActive {
		cmd := shell.Script("DOCKER_HOST=unix://" + socketExpr + " docker " + shellescape.QuoteCommand(args))
		res := m.elevator.Runner().Run(ctx, cmd)
		if res.OK() || !permissionSignature(res) {
			return res, nil
		}
		if !sudoFallback {
			return res, ErrNoFallback
		}
		m.log.WithField("stderr", res.Stderr).
			Warn("rootless engine rejected command, falling back to elevated execution")
		return m.runElevated(ctx, args), nil
	}

	if !sudoFallback {
		return types.CommandResult{ExitCode: 1, Stderr: ErrNoFallback.Error()}, ErrNoFallback
	}
	return m.runElevated(ctx, args), nil
}

func (m *Manager) runElevated(ctx context.Context, args []string) types.CommandResult {
	cmd := shell.Argv(append([]string{"docker"}, args...)...)
	return m.elevator.Run(ctx, cmd, true)
}
