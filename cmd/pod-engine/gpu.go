// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var gpuCmd = &cobra.Command{
	Use:   "gpu",
	Short: "Detect GPUs and manage the container toolkit",
}

var gpuDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report GPU availability on the target",
	Long: `Detect queries the vendor management tool for device count, model, and
driver version, and checks whether the container toolkit is wired into the
engine. A machine without GPUs reports available: false; this is not an
error.`,
	RunE: runGPUDetect,
}

func runGPUDetect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	info := mgr.Detector().Detect(ctx)

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return yaml.NewEncoder(os.Stdout).Encode(info)
	}

	if !info.Available {
		fmt.Println("no GPU available")
		os.Exit(1)
	}
	fmt.Printf("gpus: %d\n", info.Count)
	for _, t := range info.Types {
		fmt.Printf("  %s\n", t)
	}
	if info.DriverVersion != "" {
		fmt.Printf("driver: %s\n", info.DriverVersion)
	}
	fmt.Printf("container toolkit: %v\n", info.HasToolkit)
	return nil
}

var gpuSetupToolkitCmd = &cobra.Command{
	Use:   "setup-toolkit",
	Short: "Wire the vendor container toolkit into the engine",
	Long: `Setup-toolkit makes GPU passthrough work for containers: it writes the
OCI prestart hook configuration when it is missing. The operation is
idempotent, an existing hook is left untouched. Use --install to also
install the toolkit packages from the vendor repository first.`,
	RunE: runGPUSetupToolkit,
}

func runGPUSetupToolkit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, cleanup, err := buildManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	det := mgr.Detector()
	if install, _ := cmd.Flags().GetBool("install"); install {
		if err := det.InstallToolkit(ctx); err != nil {
			return err
		}
	}
	if err := det.SetupToolkit(ctx); err != nil {
		return err
	}
	fmt.Println("container toolkit configured")
	return nil
}

func init() {
	gpuDetectCmd.Flags().Bool("yaml", false, "output as YAML")
	gpuSetupToolkitCmd.Flags().Bool("install", false, "install toolkit packages before configuring")

	gpuCmd.AddCommand(gpuDetectCmd)
	gpuCmd.AddCommand(gpuSetupToolkitCmd)
	rootCmd.AddCommand(gpuCmd)
}
