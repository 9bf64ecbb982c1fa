// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"strings"
)

// VerifyGPU checks that the device is actually visible from inside a
// container. When the image lacks the vendor query tool the method
// installs the matching utility package first, picking the package
// manager the image carries.
func (m *Manager) VerifyGPU(ctx context.Context, containerID string) error {
	probe := m.run(ctx, "exec", containerID, "nvidia-smi", "-L")
	if probe.OK() && strings.Contains(probe.Stdout, "GPU") {
		return nil
	}

	if err := m.installGPUUtils(ctx, containerID); err != nil {
		return err
	}

	probe = m.run(ctx, "exec", containerID, "nvidia-smi", "-L")
	if !probe.OK() {
		return fmt.Errorf("device not visible in %s: %s",
			short(containerID), strings.TrimSpace(probe.Stderr))
	}
	if !strings.Contains(probe.Stdout, "GPU") {
		return fmt.Errorf("device query in %s returned no devices", short(containerID))
	}
	return nil
}

// installGPUUtils installs the vendor utility package inside a container.
// Driver kernel modules come from the host; only the userland query tool
// is needed.
func (m *Manager) installGPUUtils(ctx context.Context, containerID string) error {
	script := "set -e\n" +
		"if command -v apt-get >/dev/null 2>&1; then\n" +
		"  apt-get update -qq && DEBIAN_FRONTEND=noninteractive apt-get install -y -qq nvidia-utils-535 || " +
		"DEBIAN_FRONTEND=noninteractive apt-get install -y -qq nvidia-utils-525\n" +
		"elif command -v dnf >/dev/null 2>&1; then\n" +
		"  dnf install -y -q nvidia-driver-cuda-libs || dnf install -y -q xorg-x11-drv-nvidia-cuda\n" +
		"else\n" +
		"  echo 'no supported package manager' >&2; exit 1\n" +
		"fi\n"

	res := m.run(ctx, "exec", containerID, "bash", "-c", script)
	if !res.OK() {
		return fmt.Errorf("installing vendor utilities in %s: %s",
			short(containerID), strings.TrimSpace(res.Stderr))
	}
	return nil
}
