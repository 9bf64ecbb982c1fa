// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"strings"
)

// nestedArgs returns the extra run flags that let a container run its own
// engine. Podman nests with its own storage and cgroup delegation, docker
// shares the host daemon socket.
func (m *Manager) nestedArgs() []string {
	if m.IsPodman() {
		return []string{
			"--privileged",
			"-v", "/var/lib/containers:/var/lib/containers",
			"-v", "/sys/fs/cgroup:/sys/fs/cgroup:rw",
			"--device", "/dev/fuse",
		}
	}
	return []string{
		"--privileged",
		"-v", "/var/run/docker.sock:/var/run/docker.sock",
	}
}

// SetupNestedEngine installs and verifies a container engine inside a
// running container. The container must have been created with Nested
// set; without the privileged flags the inner engine cannot start.
func (m *Manager) SetupNestedEngine(ctx context.Context, containerID string) error {
	script := nestedSetupScript(m.bin)
	res := m.run(ctx, "exec", containerID, "bash", "-c", script)
	if !res.OK() {
		return fmt.Errorf("installing nested engine in %s: %s",
			short(containerID), strings.TrimSpace(res.Stderr))
	}

	if m.IsPodman() {
		// Overlay-on-overlay does not work inside a container; vfs does.
		storage := "mkdir -p /etc/containers && printf '[storage]\\ndriver = \"vfs\"\\n' > /etc/containers/storage.conf"
		if res := m.run(ctx, "exec", containerID, "bash", "-c", storage); !res.OK() {
			m.log.WithField("stderr", res.Stderr).
				Warn("could not pin the nested storage driver to vfs")
		}
	}

	verify := m.run(ctx, "exec", containerID, m.bin, "info")
	if !verify.OK() {
		return fmt.Errorf("nested engine in %s installed but not functional: %s",
			short(containerID), strings.TrimSpace(verify.Stderr))
	}
	m.log.WithField("container", short(containerID)).Info("nested engine ready")
	return nil
}

// nestedSetupScript installs the named engine inside the container,
// probing the package manager the same way user provisioning does. The
// install is skipped when the binary is already present.
func nestedSetupScript(bin string) string {
	var b strings.Builder
	b.WriteString("set -e\n")
	fmt.Fprintf(&b, "command -v %s >/dev/null 2>&1 && exit 0\n", bin)
	b.WriteString("if command -v apt-get >/dev/null 2>&1; then\n")
	if bin == binPodman {
		b.WriteString("  apt-get update -qq && DEBIAN_FRONTEND=noninteractive apt-get install -y -qq podman fuse-overlayfs\n")
	} else {
		b.WriteString("  apt-get update -qq && DEBIAN_FRONTEND=noninteractive apt-get install -y -qq docker.io\n")
	}
	b.WriteString("elif command -v dnf >/dev/null 2>&1; then\n")
	if bin == binPodman {
		b.WriteString("  dnf install -y -q podman fuse-overlayfs\n")
	} else {
		b.WriteString("  dnf install -y -q docker\n")
	}
	b.WriteString("fi\n")
	return b.String()
}
