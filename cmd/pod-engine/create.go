// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pod-engine/internal/engine"
)

var createCmd = &cobra.Command{
	Use:   "create IMAGE",
	Short: "Create a long-running container from an image",
	Long: `Create provisions a detached container from the given image. Bare image
references are qualified with the default registry and namespace. Images
without a long-running entrypoint get a keep-alive command so the container
stays up for later exec sessions.

GPU support degrades gracefully: with --gpu and no usable device the
container is created without GPU flags and a warning is logged.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := engine.CreateOptions{Image: args[0]}
	opts.Name, _ = cmd.Flags().GetString("name")
	opts.EnableGPU, _ = cmd.Flags().GetBool("gpu")
	opts.CPULimit, _ = cmd.Flags().GetString("cpus")
	opts.MemoryLimit, _ = cmd.Flags().GetString("memory")
	opts.Network, _ = cmd.Flags().GetString("network")
	opts.Nested, _ = cmd.Flags().GetBool("nested")

	if profile, _ := cmd.Flags().GetString("profile"); profile != "" {
		if err := applyProfile(&opts, profile); err != nil {
			return err
		}
	}

	ports, _ := cmd.Flags().GetStringSlice("publish")
	opts.Ports, err = parsePorts(ports)
	if err != nil {
		return err
	}

	volumes, _ := cmd.Flags().GetStringSlice("volume")
	opts.Volumes, err = parsePairs(volumes, "volume")
	if err != nil {
		return err
	}

	envs, _ := cmd.Flags().GetStringSlice("env")
	opts.Env, err = parsePairs(envs, "env")
	if err != nil {
		return err
	}

	desc, err := mgr.Create(ctx, opts)
	if err != nil {
		return err
	}

	store, err := openRegistry()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(ctx, desc); err != nil {
		return err
	}

	fmt.Printf("%s %s\n", desc.Name, desc.ID[:12])
	for spec, bound := range desc.Ports {
		fmt.Printf("  %s -> %s\n", spec, bound)
	}
	return nil
}

// applyProfile layers a named option bundle over the flags: "basic" is a
// plain container, "gpu" enables accelerator passthrough, "dind" enables a
// nested engine.
func applyProfile(opts *engine.CreateOptions, profile string) error {
	switch profile {
	case "basic":
	case "gpu":
		opts.EnableGPU = true
	case "dind":
		opts.Nested = true
	case "gpu-dind":
		opts.EnableGPU = true
		opts.Nested = true
	default:
		return fmt.Errorf("unknown profile %q: want basic, gpu, dind, or gpu-dind", profile)
	}
	return nil
}

// parsePorts converts -p values into the container-port to host-port map.
// "2222:22/tcp" binds the host port; "22/tcp" lets the engine pick.
func parsePorts(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for _, v := range values {
		host, cport, found := strings.Cut(v, ":")
		if !found {
			out[v] = ""
			continue
		}
		if host == "" || cport == "" {
			return nil, fmt.Errorf("invalid publish spec %q", v)
		}
		out[cport] = host
	}
	return out, nil
}

// parsePairs converts colon- or equals-separated flag values into a map.
func parsePairs(values []string, kind string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	sep := ":"
	if kind == "env" {
		sep = "="
	}
	out := make(map[string]string, len(values))
	for _, v := range values {
		k, val, found := strings.Cut(v, sep)
		if !found || k == "" {
			return nil, fmt.Errorf("invalid %s spec %q", kind, v)
		}
		out[k] = val
	}
	return out, nil
}

func init() {
	createCmd.Flags().String("name", "", "container name (default: generated)")
	createCmd.Flags().String("profile", "", "option bundle: basic, gpu, dind, or gpu-dind")
	createCmd.Flags().Bool("gpu", false, "enable GPU passthrough")
	createCmd.Flags().String("cpus", "", "CPU limit, e.g. 2.0")
	createCmd.Flags().String("memory", "", "memory limit, e.g. 4g")
	createCmd.Flags().String("network", "", "network to attach")
	createCmd.Flags().Bool("nested", false, "allow running a container engine inside the container")
	createCmd.Flags().StringSliceP("publish", "p", nil, "port to publish, HOST:CONTAINER/PROTO or CONTAINER/PROTO")
	createCmd.Flags().StringSliceP("volume", "v", nil, "volume mount, HOSTPATH:CONTAINERPATH")
	createCmd.Flags().StringSliceP("env", "e", nil, "environment variable, KEY=VALUE")

	rootCmd.AddCommand(createCmd)
}
