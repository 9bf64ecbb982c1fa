// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package shell

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/pod-engine/pkg/types"
)

// passwordPrompt is the stderr signature of sudo demanding credentials.
const passwordPrompt = "a password is required"

// Elevator decides whether a command gets a privilege-elevation prefix.
// The decision is probed once per instance and cached: running as root
// means no prefix ever; otherwise sudo must exist and work without a
// password, or elevation is treated as unavailable.
type Elevator struct {
	runner Runner
	log    *logrus.Entry

	probed bool
	isRoot bool
	sudoOK bool
}

// NewElevator wraps a runner with elevation policy.
func NewElevator(runner Runner, log *logrus.Entry) *Elevator {
	return &Elevator{runner: runner, log: log}
}

// probe determines, once, whether the target identity is already root and
// whether non-interactive sudo works.
func (e *Elevator) probe(ctx context.Context) {
	if e.probed {
		return
	}
	e.probed = true

	res := e.runner.Run(ctx, Script("id -u"))
	e.isRoot = res.OK() && strings.TrimSpace(res.Stdout) == "0"
	if e.isRoot {
		e.log.Debug("running as root, elevation not needed")
		return
	}

	res = e.runner.Run(ctx, Script("command -v sudo >/dev/null 2>&1 && sudo -n true"))
	e.sudoOK = res.OK()
	if !e.sudoOK {
		e.log.WithField("stderr", res.Stderr).
			Warn("non-interactive sudo unavailable, commands will run unprivileged")
	}
}

// Run executes the command, prefixing it with non-interactive sudo when
// useSudo is requested and elevation is both needed and available. When
// sudo would demand a password, the unprivileged command is attempted and
// the result is annotated NeedsCredentials if the output matches the
// prompt signature.
func (e *Elevator) Run(ctx context.Context, cmd Command, useSudo bool) types.CommandResult {
	if useSudo {
		e.probe(ctx)
		if !e.isRoot && e.sudoOK {
			cmd = cmd.Elevated()
		}
	}

	res := e.runner.Run(ctx, cmd)
	if !res.OK() && strings.Contains(strings.ToLower(res.Stderr), passwordPrompt) {
		e.log.Error("sudo requires a password; configure NOPASSWD for unattended use")
		res.NeedsCredentials = true
	}
	return res
}

// Runner exposes the underlying runner for callers that must bypass the
// elevation policy.
func (e *Elevator) Runner() Runner {
	return e.runner
}
