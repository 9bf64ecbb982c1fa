// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/pod-engine/internal/engine"
	"github.com/pdiddy/pod-engine/internal/secrets"
)

var launchCmd = &cobra.Command{
	Use:   "launch IMAGE",
	Short: "Create a GPU container with a login user in one step",
	Long: `Launch runs the full provisioning flow: create a container with GPU
passthrough, publish an SSH port, and provision a login user inside it.

When creation with GPU flags fails, launch retries once without them so a
broken toolkit still yields a usable CPU container.`,
	Args: cobra.ExactArgs(1),
	RunE: runLaunch,
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sshPort, _ := cmd.Flags().GetString("ssh-port")
	opts := engine.CreateOptions{
		Image:     args[0],
		EnableGPU: true,
		Ports:     map[string]string{"22/tcp": sshPort},
	}
	opts.Name, _ = cmd.Flags().GetString("name")

	desc, err := mgr.Create(ctx, opts)
	if err != nil {
		logrus.WithError(err).Warn("creation with GPU flags failed, retrying without GPU")
		opts.EnableGPU = false
		desc, err = mgr.Create(ctx, opts)
		if err != nil {
			return err
		}
	}

	store, err := openRegistry()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(ctx, desc); err != nil {
		return err
	}

	username, _ := cmd.Flags().GetString("user")
	if username != "" {
		password, _ := cmd.Flags().GetString("password")
		password = secretDefault(secrets.PodUserPassword, password)
		userOpts := engine.UserOptions{Username: username, Password: password, Sudoer: true}
		used, err := mgr.SetupPodUser(ctx, desc.ID, userOpts)
		if err != nil {
			return err
		}
		if password == "" {
			fmt.Printf("generated password for %s: %s\n", username, used)
		}
	}

	fmt.Printf("%s %s gpu=%v\n", desc.Name, shortID(desc.ID), desc.GPUEnabled)
	for spec, bound := range desc.Ports {
		fmt.Printf("  %s -> %s\n", spec, bound)
	}
	return nil
}

func init() {
	launchCmd.Flags().String("name", "", "container name (default: generated)")
	launchCmd.Flags().String("ssh-port", "", "host port for the container's SSH port (empty: engine-assigned)")
	launchCmd.Flags().String("user", "", "login user to provision inside the container")
	launchCmd.Flags().String("password", "", "password for the provisioned user")

	rootCmd.AddCommand(launchCmd)
}
