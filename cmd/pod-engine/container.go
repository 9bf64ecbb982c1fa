// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pod-engine/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status CONTAINER",
	Short: "Report whether a container is running",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	running, status := mgr.Status(ctx, args[0])
	fmt.Printf("%s: %s\n", args[0], status)

	if store, err := openRegistry(); err == nil {
		defer store.Close()
		if err := store.UpdateStatus(ctx, args[0], registryStatus(status)); err != nil {
			logrus.WithError(err).Warn("could not update the registry entry")
		}
	}

	if !running {
		os.Exit(1)
	}
	return nil
}

var stopCmd = &cobra.Command{
	Use:   "stop CONTAINER",
	Short: "Stop a running container",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if err := mgr.Stop(ctx, args[0], timeout); err != nil {
		return err
	}

	if store, err := openRegistry(); err == nil {
		defer store.Close()
		if err := store.UpdateStatus(ctx, args[0], types.StatusExited); err != nil {
			logrus.WithError(err).Warn("could not update the registry entry")
		}
	}
	fmt.Printf("%s stopped\n", args[0])
	return nil
}

var rmCmd = &cobra.Command{
	Use:   "rm CONTAINER",
	Short: "Remove a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	force, _ := cmd.Flags().GetBool("force")
	if err := mgr.Remove(ctx, args[0], force); err != nil {
		return err
	}

	if store, err := openRegistry(); err == nil {
		defer store.Close()
		if err := store.Delete(ctx, args[0]); err != nil {
			logrus.WithError(err).Warn("could not drop the registry entry")
		}
	}
	fmt.Printf("%s removed\n", args[0])
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List containers known to the registry",
	Long: `List prints the containers recorded in the local registry database,
newest first. Use --yaml for machine-readable output.`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openRegistry()
	if err != nil {
		return err
	}
	defer store.Close()

	descs, err := store.List(ctx)
	if err != nil {
		return err
	}

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return yaml.NewEncoder(os.Stdout).Encode(descs)
	}

	if len(descs) == 0 {
		fmt.Println("no containers recorded")
		return nil
	}
	for _, d := range descs {
		gpu := ""
		if d.GPUEnabled {
			gpu = fmt.Sprintf(" gpu=%dx%s", d.GPUCount, d.GPUType)
		}
		fmt.Printf("%-30s %-12s %-10s %s%s\n",
			d.Name, shortID(d.ID), d.Status, d.CreatedAt.Format(time.DateTime), gpu)
	}
	return nil
}

// registryStatus maps an engine status string onto the registry's
// lifecycle enum. A container the engine no longer knows is recorded as
// removed; unrecognized engine states as unknown.
func registryStatus(status string) types.ContainerStatus {
	switch st := types.ContainerStatus(status); st {
	case types.StatusCreated, types.StatusRunning, types.StatusExited:
		return st
	}
	if status == "not found" {
		return types.StatusRemoved
	}
	return types.StatusUnknown
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func init() {
	stopCmd.Flags().Duration("timeout", 10*time.Second, "seconds to wait before killing the container")
	rmCmd.Flags().BoolP("force", "f", false, "force removal of a running container")
	listCmd.Flags().Bool("yaml", false, "output as YAML")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(listCmd)
}
