// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/pod-engine/pkg/types"
)

// CreateOptions describe a container to be created. Zero values disable
// the corresponding feature.
type CreateOptions struct {
	Image   string
	Name    string            // generated when empty
	Ports   map[string]string // container port -> host port, "" lets the engine pick
	Volumes map[string]string // host path -> container path
	Env     map[string]string
	Labels  map[string]string

	EnableGPU   bool
	CPULimit    string // e.g. "2.0"
	MemoryLimit string // e.g. "4g"
	Network     string
	Nested      bool // allow running an engine inside the container
}

// keepAlivePrefixes lists image families that exit immediately without a
// foreground process and therefore get a keep-alive command appended.
var keepAlivePrefixes = []string{"ubuntu", "nvidia/cuda", "docker:"}

// Create provisions a container and returns its descriptor. GPU support
// degrades gracefully: when GPUs are requested but no device or driver is
// present the container is still created, without GPU flags.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*types.ContainerDescriptor, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("creating container: image is required")
	}

	image := NormalizeImage(opts.Image, m.cfg.DefaultRegistry, m.cfg.DefaultNamespace)
	name := opts.Name
	if name == "" {
		name = m.generateName()
	}

	gpuOn := false
	var accel types.AcceleratorInfo
	if opts.EnableGPU {
		accel = m.detector.Detect(ctx)
		switch {
		case !accel.Available:
			m.log.Warn("GPU requested but no usable device found, continuing without GPU")
		case !accel.HasToolkit:
			if err := m.detector.SetupToolkit(ctx); err != nil {
				m.log.WithError(err).Warn("container toolkit setup failed, GPU flags may not take effect")
			}
			gpuOn = true
		default:
			gpuOn = true
		}
	}

	args := m.createArgs(image, name, opts, gpuOn)
	res := m.run(ctx, args...)
	if !res.OK() {
		return nil, fmt.Errorf("creating container %s: %s", name, strings.TrimSpace(res.Stderr))
	}

	id := strings.TrimSpace(res.Stdout)
	if len(id) < 12 {
		return nil, fmt.Errorf("creating container %s: engine returned malformed id %q", name, id)
	}

	// Port bindings are not assigned instantly; give the engine a moment
	// before inspecting.
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	desc, err := m.inspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("inspecting new container %s: %w", name, err)
	}
	desc.Name = name
	desc.Image = image
	desc.GPUEnabled = gpuOn
	if gpuOn {
		desc.GPUCount = accel.Count
		if len(accel.Types) > 0 {
			desc.GPUType = accel.Types[0]
		}
	}
	m.containers[name] = desc

	if gpuOn {
		if err := m.VerifyGPU(ctx, desc.ID); err != nil {
			m.log.WithError(err).Warn("GPU verification inside container failed")
		}
	}

	m.log.WithFields(map[string]interface{}{
		"container": short(desc.ID),
		"name":      name,
		"image":     image,
		"gpu":       gpuOn,
	}).Info("container created")
	return desc, nil
}

// createArgs assembles the engine run invocation. Flag order is stable so
// invocations are reproducible and diffable in logs.
func (m *Manager) createArgs(image, name string, opts CreateOptions, gpuOn bool) []string {
	args := []string{"run", "-d", "--name", name}

	if opts.CPULimit != "" {
		args = append(args, "--cpus", opts.CPULimit)
	}
	if opts.MemoryLimit != "" {
		args = append(args, "--memory", opts.MemoryLimit)
	}

	if gpuOn {
		if m.IsPodman() {
			args = append(args,
				"--security-opt=label=disable",
				"--hooks-dir=/usr/share/containers/oci/hooks.d")
		} else {
			args = append(args, "--gpus=all")
		}
	}

	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
	}

	for _, cport := range sortedKeys(opts.Ports) {
		hport := opts.Ports[cport]
		if hport == "" {
			args = append(args, "-p", cport)
		} else {
			args = append(args, "-p", hport+":"+cport)
		}
	}
	for _, hpath := range sortedKeys(opts.Volumes) {
		args = append(args, "-v", hpath+":"+opts.Volumes[hpath])
	}
	for _, k := range sortedKeys(opts.Env) {
		args = append(args, "-e", k+"="+opts.Env[k])
	}
	for _, k := range sortedKeys(opts.Labels) {
		args = append(args, "--label", k+"="+opts.Labels[k])
	}

	if opts.Nested {
		args = append(args, m.nestedArgs()...)
	}

	args = append(args, image)

	if needsKeepAlive(image) {
		args = append(args, "tail", "-f", "/dev/null")
	}
	return args
}

// needsKeepAlive reports whether the image has no long-running entrypoint
// of its own. The check strips any registry and namespace prefix first.
func needsKeepAlive(image string) bool {
	base := image
	if i := strings.LastIndex(image, "/"); i >= 0 {
		base = image[i+1:]
		// nvidia/cuda keeps its namespace in the match.
		if strings.Contains(image, "nvidia/cuda") {
			base = "nvidia/cuda"
		}
	}
	for _, p := range keepAlivePrefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
