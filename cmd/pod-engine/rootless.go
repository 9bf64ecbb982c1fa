// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/pod-engine/internal/rootless"
	"github.com/pdiddy/pod-engine/internal/shell"
)

var rootlessCmd = &cobra.Command{
	Use:   "rootless",
	Short: "Check or set up a rootless docker daemon",
	Long: `Rootless manages the per-user docker daemon: check reports its state,
setup installs docker with rootless extras, configures user namespaces,
and bootstraps the daemon for the target user.`,
}

var rootlessCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report the rootless daemon state",
	RunE:  runRootlessCheck,
}

func runRootlessCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildRootlessManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	state := mgr.Check(ctx)
	fmt.Println(state)
	if state != rootless.StateActive {
		os.Exit(1)
	}
	return nil
}

var rootlessSetupCmd = &cobra.Command{
	Use:   "setup [USERNAME]",
	Short: "Install and bootstrap a rootless docker daemon",
	Long: `Setup installs docker and the rootless extras, configures subordinate
UID/GID ranges for the user, runs the rootless bootstrap tool, and verifies
the per-user daemon answers. Without a username the current user is used.

Package installs are best-effort: a failure there is logged and setup
continues, since the packages may already be present. Bootstrap and
verification failures abort.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRootlessSetup,
}

func runRootlessSetup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildRootlessManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	username := ""
	if len(args) > 0 {
		username = args[0]
	}
	enableUnit, _ := cmd.Flags().GetBool("enable-unit")

	if err := mgr.Setup(ctx, username, enableUnit); err != nil {
		return err
	}
	fmt.Println("rootless docker is active")
	return nil
}

// buildRootlessManager wires a rootless manager without engine detection,
// since setup may run before any engine is installed.
func buildRootlessManager(ctx context.Context) (*rootless.Manager, func(), error) {
	cfg := loadConfig()
	log := logrus.WithField("target", targetName(cfg.SSH))

	runner, cleanup, err := buildRunner(cfg.SSH, log)
	if err != nil {
		return nil, nil, err
	}
	elevator := shell.NewElevator(runner, log)
	return rootless.NewManager(elevator, log), cleanup, nil
}

func init() {
	rootlessSetupCmd.Flags().Bool("enable-unit", true, "install and enable a systemd user unit for the daemon")

	rootlessCmd.AddCommand(rootlessCheckCmd)
	rootlessCmd.AddCommand(rootlessSetupCmd)
	rootCmd.AddCommand(rootlessCmd)
}
