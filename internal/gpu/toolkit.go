// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gpu

import (
	"context"
	"fmt"

	"al.essio.dev/pkg/shellescape"

	"github.com/pdiddy/pod-engine/internal/distro"
	"github.com/pdiddy/pod-engine/internal/shell"
)

// hookConfig is the minimal OCI prestart hook that exposes NVIDIA devices
// to containers. Written only when no hook exists yet.
const hookConfig = `{
  "version": "1.0.0",
  "hook": {
    "path": "/usr/bin/nvidia-container-toolkit",
    "args": ["nvidia-container-toolkit", "prestart"]
  },
  "when": { "always": true },
  "stages": ["prestart"]
}`

// SetupToolkit configures the container runtime accelerator integration.
// It is idempotent: when the hook file already exists it reports success
// without touching it. It never removes or overwrites an existing hook.
func (d *Detector) SetupToolkit(ctx context.Context) error {
	runner := d.elevator.Runner()

	if res := runner.Run(ctx, shell.Argv("test", "-f", hookPath)); res.OK() {
		d.log.Debug("toolkit hook already present, nothing to do")
		return nil
	}

	d.log.Info("writing accelerator runtime hook")
	mkdir := shell.Argv("mkdir", "-p", "/usr/share/containers/oci/hooks.d")
	if res := d.elevator.Run(ctx, mkdir, true); !res.OK() {
		return fmt.Errorf("creating hook directory: %s", res.Stderr)
	}

	write := shell.Script("printf '%s' " + shellescape.Quote(hookConfig) + " | tee " + hookPath + " > /dev/null")
	res := d.elevator.Run(ctx, write, true)
	if !res.OK() {
		return fmt.Errorf("writing toolkit hook: %s", res.Stderr)
	}
	return nil
}

// InstallToolkit installs the NVIDIA container toolkit packages from the
// vendor repository, branching by distribution family, then configures the
// engine runtime. Unsupported families fail without attempting anything.
func (d *Detector) InstallToolkit(ctx context.Context) error {
	family := distro.Detect(ctx, d.elevator.Runner())
	recipe, ok := distro.Lookup(family)
	if !ok {
		return fmt.Errorf("unsupported distribution family %q, cannot install accelerator toolkit", family)
	}

	steps := append([]string{}, recipe.AcceleratorRepo...)
	steps = append(steps,
		recipe.Install+" nvidia-container-toolkit",
		"nvidia-ctk runtime configure --runtime="+d.engine,
	)
	if d.engine == "docker" {
		steps = append(steps, "systemctl restart docker")
	}

	for i, step := range steps {
		res := d.elevator.Run(ctx, shell.Script(step), true)
		if !res.OK() {
			// A failed engine restart is tolerable: the daemon may not be
			// systemd-managed (rootless mode).
			if step == "systemctl restart docker" {
				d.log.Warn("docker restart failed, daemon may not be systemd-managed")
				continue
			}
			return fmt.Errorf("toolkit install step %d/%d failed: %s", i+1, len(steps), res.Stderr)
		}
	}

	if !d.CheckToolkit(ctx) {
		return fmt.Errorf("toolkit installed but runtime integration still not detected")
	}
	return nil
}
