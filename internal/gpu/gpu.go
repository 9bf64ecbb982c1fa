// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gpu probes the target for NVIDIA accelerator hardware, drivers,
// and the container toolkit integration. Absence of hardware is a normal
// outcome, not an error: detection only fails on internal problems, never
// because the machine has no GPU.
package gpu

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/pod-engine/internal/shell"
	"github.com/pdiddy/pod-engine/pkg/types"
)

const (
	queryBin = "nvidia-smi"

	// hookPath is the OCI prestart hook the container runtime consults to
	// expose accelerator devices inside containers.
	hookPath = "/usr/share/containers/oci/hooks.d/oci-nvidia-hook.json"
)

// Detector probes accelerator state through a command runner, so the same
// code inspects the local machine or a remote host.
type Detector struct {
	elevator *shell.Elevator
	engine   string // "docker" or "podman"
	log      *logrus.Entry
}

// NewDetector builds a detector for the given engine binary.
func NewDetector(elevator *shell.Elevator, engine string, log *logrus.Entry) *Detector {
	return &Detector{elevator: elevator, engine: engine, log: log}
}

// Detect runs one detection pass: hardware and driver presence via the
// vendor query tool, then the toolkit integration check. A missing query
// tool reports no accelerator with a nil error.
func (d *Detector) Detect(ctx context.Context) types.AcceleratorInfo {
	info := types.AcceleratorInfo{}
	runner := d.elevator.Runner()

	res := runner.Run(ctx, shell.Script("command -v "+queryBin))
	if !res.OK() {
		d.log.Debug("nvidia-smi not found, no accelerator available")
		return info
	}
	info.HasDrivers = true

	res = runner.Run(ctx, shell.Argv(queryBin, "--query-gpu=count,name", "--format=csv,noheader"))
	if !res.OK() {
		// Drivers installed but devices unreachable (e.g. module not
		// loaded). Treat as no accelerator.
		d.log.WithField("stderr", res.Stderr).Warn("nvidia-smi present but device query failed")
		return info
	}

	count, names := parseDeviceRows(res.Stdout)
	if count == 0 {
		return info
	}
	info.Available = true
	info.Count = count
	info.Types = names

	res = runner.Run(ctx, shell.Argv(queryBin, "--query-gpu=driver_version", "--format=csv,noheader"))
	if res.OK() {
		if lines := strings.SplitN(res.Stdout, "\n", 2); len(lines) > 0 {
			info.DriverVersion = strings.TrimSpace(lines[0])
		}
	}

	info.HasToolkit = d.CheckToolkit(ctx)

	d.log.WithFields(logrus.Fields{
		"count":   info.Count,
		"types":   info.Types,
		"toolkit": info.HasToolkit,
	}).Info("accelerator detected")
	return info
}

// parseDeviceRows parses "count,name" CSV rows from the device query. The
// count column repeats the total on every row; names are collected
// distinct, in first-seen order. An unparsable count falls back to the
// number of rows.
func parseDeviceRows(out string) (int, []string) {
	var (
		count int
		names []string
		seen  = map[string]bool{}
		rows  int
	)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rows++
		cnt, name, found := strings.Cut(line, ",")
		if !found {
			name = cnt
		} else if count == 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(cnt)); err == nil {
				count = n
			}
		}
		name = strings.TrimSpace(name)
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if count == 0 {
		count = rows
	}
	return count, names
}

// CheckToolkit reports whether the container runtime integration is in
// place: the OCI hook file for podman, the nvidia runtime in engine info
// for docker.
func (d *Detector) CheckToolkit(ctx context.Context) bool {
	runner := d.elevator.Runner()

	if res := runner.Run(ctx, shell.Argv("test", "-f", hookPath)); res.OK() {
		return true
	}
	if d.engine == "docker" {
		res := runner.Run(ctx, shell.Script("docker info 2>/dev/null | grep -i nvidia"))
		return res.OK() && res.Stdout != ""
	}
	return false
}
