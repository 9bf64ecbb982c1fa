// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine orchestrates container creation and management through
// the docker or podman CLI, locally or over SSH. The engine is driven
// exclusively through its command line so the same code path works
// against a remote host.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/pod-engine/internal/shell"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Detect finds a usable engine binary on the target: docker first, podman
// fallback. A binary counts as usable when it exists and answers an info
// query (possibly elevated).
func Detect(ctx context.Context, elevator *shell.Elevator) (string, error) {
	for _, bin := range []string{binDocker, binPodman} {
		if res := elevator.Runner().Run(ctx, shell.Script("command -v "+bin)); !res.OK() {
			continue
		}
		if res := elevator.Run(ctx, shell.Argv(bin, "info"), true); res.OK() {
			return bin, nil
		}
	}
	return "", fmt.Errorf("no container engine available: neither %s nor %s found or operational", binDocker, binPodman)
}

// IsPodman reports whether the given binary actually fronts podman. Some
// distributions alias docker to podman, which matters for GPU and nested
// container flags.
func IsPodman(ctx context.Context, elevator *shell.Elevator, bin string) bool {
	if bin == binPodman {
		return true
	}
	res := elevator.Runner().Run(ctx, shell.Argv(bin, "--version"))
	return res.OK() && strings.Contains(strings.ToLower(res.Stdout), "podman")
}
