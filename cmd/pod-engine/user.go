// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pod-engine/internal/engine"
	"github.com/pdiddy/pod-engine/internal/secrets"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Provision login accounts inside containers",
}

var userSetupCmd = &cobra.Command{
	Use:   "setup CONTAINER USERNAME",
	Short: "Create a login user inside a running container",
	Long: `Setup installs sudo and mosh inside the container, creates the user
with a home directory and bash shell, sets the password, optionally grants
passwordless sudo, and prepares ~/.ssh for key installation.

The password comes from --password or .secrets/pod-user-password; with
neither, one is generated and printed.`,
	Args: cobra.ExactArgs(2),
	RunE: runUserSetup,
}

func runUserSetup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	password, _ := cmd.Flags().GetString("password")
	password = secretDefault(secrets.PodUserPassword, password)
	sudoer, _ := cmd.Flags().GetBool("sudo")

	opts := engine.UserOptions{
		Username: args[1],
		Password: password,
		Sudoer:   sudoer,
	}
	used, err := mgr.SetupPodUser(ctx, args[0], opts)
	if err != nil {
		return err
	}
	fmt.Printf("user %s ready in %s\n", args[1], args[0])
	if password == "" {
		fmt.Printf("generated password: %s\n", used)
	}
	return nil
}

func init() {
	userSetupCmd.Flags().String("password", "", "password for the new user")
	userSetupCmd.Flags().Bool("sudo", true, "grant passwordless sudo")

	userCmd.AddCommand(userSetupCmd)
	rootCmd.AddCommand(userCmd)
}
