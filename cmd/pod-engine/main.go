// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pod-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pod-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the pod-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "pod-engine",
	Short: "Provision and manage GPU-ready containers, locally or over SSH",
	Long: `pod-engine drives docker or podman through its command line to create
and manage long-running workload containers. It detects GPUs and wires the
vendor container toolkit, prefers a rootless docker daemon when one is
configured, and runs the exact same commands against a remote host over SSH.

Each concern is a subcommand: create, status, stop, rm, list, launch,
rootless, gpu, user, and nested.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return fmt.Errorf("parsing log level: %w", err)
		}
		logrus.SetLevel(level)
		logrus.SetOutput(os.Stderr)

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pod-engine.yaml or ~/.config/pod-engine/config.yaml)")
	rootCmd.PersistentFlags().String("host", "", "remote host to operate on over SSH (empty: local)")
	rootCmd.PersistentFlags().String("ssh-user", "", "SSH login user")
	rootCmd.PersistentFlags().String("ssh-key", "", "SSH private key file")
	rootCmd.PersistentFlags().String("engine", "", "engine binary to use: docker or podman (empty: auto-detect)")
	rootCmd.PersistentFlags().Bool("rootless", true, "prefer a rootless docker daemon when one is active")
	rootCmd.PersistentFlags().Bool("sudo-fallback", true, "fall back to elevated execution when rootless fails")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("registry-dir", "", "directory for the container registry database (default: ~/.local/share/pod-engine)")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("ssh-user", rootCmd.PersistentFlags().Lookup("ssh-user"))
	viper.BindPFlag("ssh-key", rootCmd.PersistentFlags().Lookup("ssh-key"))
	viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	viper.BindPFlag("rootless", rootCmd.PersistentFlags().Lookup("rootless"))
	viper.BindPFlag("sudo-fallback", rootCmd.PersistentFlags().Lookup("sudo-fallback"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("registry-dir", rootCmd.PersistentFlags().Lookup("registry-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pod-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pod-engine"))
		}
	}

	viper.SetEnvPrefix("POD_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
