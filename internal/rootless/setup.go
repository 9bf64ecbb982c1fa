// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rootless

import (
	"context"
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/pdiddy/pod-engine/internal/distro"
	"github.com/pdiddy/pod-engine/internal/shell"
)

// subordinate ID range appended to /etc/subuid and /etc/subgid when the
// target user has none. 64k IDs starting at 100000, the conventional
// rootless allocation.
const subIDRange = "100000:65536"

// Setup configures rootless mode for username (the current identity when
// empty). Installation and kernel-prerequisite sub-steps are best-effort:
// a failure logs and continues when the setup can still plausibly proceed.
// Failure of the rootless bootstrap tool or of the final verification
// fails the whole setup.
func (m *Manager) Setup(ctx context.Context, username string, enableUnit bool) error {
	runner := m.elevator.Runner()

	if username == "" {
		res := runner.Run(ctx, shell.Script("whoami"))
		if !res.OK() {
			return fmt.Errorf("resolving target user: %s", res.Stderr)
		}
		username = strings.TrimSpace(res.Stdout)
	}
	m.log.WithField("user", username).Info("setting up rootless engine")

	family := distro.Detect(ctx, runner)

	if res := runner.Run(ctx, shell.Script("command -v docker")); !res.OK() {
		if err := m.installEngine(ctx, family); err != nil {
			m.log.WithError(err).Warn("engine install failed, continuing in case it is already usable")
		}
	}

	if res := runner.Run(ctx, shell.Script("command -v dockerd-rootless-setuptool.sh")); !res.OK() {
		if err := m.installRootlessExtras(ctx, family); err != nil {
			m.log.WithError(err).Warn("rootless extras install failed, continuing")
		}
	}

	m.configureUserNamespace(ctx, username)

	// The bootstrap tool must run as the target user.
	bootstrap := shell.Script("dockerd-rootless-setuptool.sh install")
	current := ""
	if res := runner.Run(ctx, shell.Script("whoami")); res.OK() {
		current = strings.TrimSpace(res.Stdout)
	}
	if username != current {
		bootstrap = shell.Script("sudo -n -u " + shellescape.Quote(username) + " dockerd-rootless-setuptool.sh install")
	}
	if res := runner.Run(ctx, bootstrap); !res.OK() {
		return fmt.Errorf("rootless bootstrap failed: %s", res.Stderr)
	}

	verify := shell.Script("DOCKER_HOST=unix://" + socketExpr + " docker info")
	if res := runner.Run(ctx, verify); !res.OK() {
		return fmt.Errorf("rootless verification failed: %s", res.Stderr)
	}

	if enableUnit {
		if err := m.enableUserUnit(ctx); err != nil {
			m.log.WithError(err).Warn("could not enable rootless user unit")
		}
	}

	m.state = StateActive
	return nil
}

// installEngine installs the container engine CLI and daemon through the
// family's package recipe, registering the vendor repository first.
func (m *Manager) installEngine(ctx context.Context, family distro.Family) error {
	recipe, ok := distro.Lookup(family)
	if !ok {
		return fmt.Errorf("unsupported distribution family %q", family)
	}

	steps := append([]string{}, recipe.EngineRepo...)
	steps = append(steps, recipe.Install+" docker-ce docker-ce-cli containerd.io")
	for _, step := range steps {
		if res := m.elevator.Run(ctx, shell.Script(step), true); !res.OK() {
			return fmt.Errorf("engine install step %q: %s", firstWord(step), res.Stderr)
		}
	}

	if res := m.elevator.Runner().Run(ctx, shell.Script("command -v docker")); !res.OK() {
		return fmt.Errorf("engine still missing after install")
	}
	return nil
}

// installRootlessExtras installs the rootless support packages.
func (m *Manager) installRootlessExtras(ctx context.Context, family distro.Family) error {
	recipe, ok := distro.Lookup(family)
	if !ok {
		return fmt.Errorf("unsupported distribution family %q", family)
	}

	pkgs := " docker-ce-rootless-extras uidmap slirp4netns fuse-overlayfs"
	if res := m.elevator.Run(ctx, shell.Script(recipe.Install+pkgs), true); !res.OK() {
		return fmt.Errorf("installing rootless extras: %s", res.Stderr)
	}
	return nil
}

// configureUserNamespace enables unprivileged user namespace creation and
// allocates subordinate ID ranges for the user. Every step is idempotent
// and best-effort.
func (m *Manager) configureUserNamespace(ctx context.Context, username string) {
	runner := m.elevator.Runner()

	res := runner.Run(ctx, shell.Script("sysctl -n kernel.unprivileged_userns_clone 2>/dev/null"))
	if res.OK() && strings.TrimSpace(res.Stdout) == "0" {
		m.log.Info("enabling unprivileged user namespaces")
		res = m.elevator.Run(ctx, shell.Argv("sysctl", "-w", "kernel.unprivileged_userns_clone=1"), true)
		if !res.OK() {
			m.log.Warn("could not enable unprivileged_userns_clone")
		}
	}

	quoted := shellescape.Quote(username)
	entry := shellescape.Quote(username + ":" + subIDRange)
	for _, file := range []string{"/etc/subuid", "/etc/subgid"} {
		check := shell.Script("grep -E " + shellescape.Quote("^"+username+":") + " " + file)
		if res := runner.Run(ctx, check); res.OK() {
			continue
		}
		m.log.WithField("file", file).Infof("allocating subordinate ID range for %s", username)
		add := shell.Argv("sh", "-c", "echo "+entry+" >> "+file)
		if res := m.elevator.Run(ctx, add, true); !res.OK() {
			m.log.WithField("file", file).Warnf("could not allocate subordinate IDs for %s", quoted)
		}
	}
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}
