// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var nestedCmd = &cobra.Command{
	Use:   "nested",
	Short: "Run a container engine inside a container",
}

var nestedSetupCmd = &cobra.Command{
	Use:   "setup CONTAINER",
	Short: "Install and verify an engine inside a running container",
	Long: `Setup installs the same engine the host runs inside the given container
and verifies it answers an info query. The container must have been created
with --nested; without the privileged flags the inner engine cannot start.`,
	Args: cobra.ExactArgs(1),
	RunE: runNestedSetup,
}

func runNestedSetup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := mgr.SetupNestedEngine(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("nested engine ready in %s\n", args[0])
	return nil
}

func init() {
	nestedCmd.AddCommand(nestedSetupCmd)
	rootCmd.AddCommand(nestedCmd)
}
