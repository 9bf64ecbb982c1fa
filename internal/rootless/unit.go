// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rootless

import (
	"context"
	"fmt"
	"io"

	"al.essio.dev/pkg/shellescape"
	"github.com/coreos/go-systemd/v22/unit"

	"github.com/pdiddy/pod-engine/internal/shell"
)

const userUnitPath = "~/.config/systemd/user/docker.service"

// userUnit builds the rootless daemon user unit.
func userUnit() []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Rootless container engine daemon"),
		unit.NewUnitOption("Service", "ExecStart", "/usr/bin/dockerd-rootless.sh"),
		unit.NewUnitOption("Service", "ExecReload", "/bin/kill -s HUP $MAINPID"),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Service", "StartLimitBurst", "3"),
		unit.NewUnitOption("Service", "Delegate", "yes"),
		unit.NewUnitOption("Install", "WantedBy", "default.target"),
	}
}

// enableUserUnit writes the user unit file and enables it through the
// user service manager. Runs entirely as the target user, no elevation.
func (m *Manager) enableUserUnit(ctx context.Context) error {
	body, err := io.ReadAll(unit.Serialize(userUnit()))
	if err != nil {
		return fmt.Errorf("serializing user unit: %w", err)
	}

	runner := m.elevator.Runner()
	script := "mkdir -p ~/.config/systemd/user && printf '%s' " +
		shellescape.Quote(string(body)) + " > " + userUnitPath
	if res := runner.Run(ctx, shell.Script(script)); !res.OK() {
		return fmt.Errorf("writing user unit: %s", res.Stderr)
	}

	res := runner.Run(ctx, shell.Script("systemctl --user daemon-reload && systemctl --user enable --now docker"))
	if !res.OK() {
		return fmt.Errorf("enabling user unit: %s", res.Stderr)
	}
	return nil
}
