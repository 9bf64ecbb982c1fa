// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh"

	"github.com/pdiddy/pod-engine/internal/engine"
	"github.com/pdiddy/pod-engine/internal/registry"
	"github.com/pdiddy/pod-engine/internal/rootless"
	"github.com/pdiddy/pod-engine/internal/secrets"
	"github.com/pdiddy/pod-engine/internal/shell"
	"github.com/pdiddy/pod-engine/pkg/types"
)

// loadConfig assembles the effective configuration from flags, environment,
// and the config file, in viper's precedence order.
func loadConfig() types.Config {
	cfg := types.Config{
		SSH: types.SSHConfig{
			Host:    viper.GetString("host"),
			User:    viper.GetString("ssh-user"),
			KeyFile: viper.GetString("ssh-key"),
		},
		Engine: types.EngineConfig{
			Binary:         viper.GetString("engine"),
			PreferRootless: viper.GetBool("rootless"),
			SudoFallback:   viper.GetBool("sudo-fallback"),
		},
		Registry: types.RegistryConfig{
			Dir: viper.GetString("registry-dir"),
		},
	}
	cfg.Defaults()
	if cfg.Registry.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.Registry.Dir = filepath.Join(home, ".local", "share", "pod-engine")
	}
	return cfg
}

// buildRunner returns a command runner for the configured target and a
// cleanup function closing any underlying connection.
func buildRunner(cfg types.SSHConfig, log *logrus.Entry) (shell.Runner, func(), error) {
	if cfg.Host == "" {
		return shell.NewLocalRunner(log), func() {}, nil
	}

	auth, err := sshAuth(cfg)
	if err != nil {
		return nil, nil, err
	}

	addr := cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User: cfg.User,
		Auth: auth,
		// Provisioning targets are freshly created machines whose host
		// keys are not known in advance.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.CommandTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	runner := shell.NewSSHRunner(client, cfg.Host, cfg.CommandTimeout, log)
	return runner, func() { client.Close() }, nil
}

// sshAuth builds the authentication chain: private key first (with the
// stored passphrase when the key is encrypted), password second.
func sshAuth(cfg types.SSHConfig) ([]ssh.AuthMethod, error) {
	var auth []ssh.AuthMethod

	if cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file %s: %w", cfg.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			passphrase := secretDefault(secrets.SSHKeyPassphrase, "")
			if passphrase == "" {
				return nil, fmt.Errorf("parsing key file %s: %w", cfg.KeyFile, err)
			}
			signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
			if err != nil {
				return nil, fmt.Errorf("decrypting key file %s: %w", cfg.KeyFile, err)
			}
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if password := secretDefault(secrets.SSHPassword, ""); password != "" {
		auth = append(auth, ssh.Password(password))
	}

	if len(auth) == 0 {
		return nil, fmt.Errorf("no SSH authentication available: provide --ssh-key or .secrets/%s", secrets.SSHPassword)
	}
	return auth, nil
}

// buildManager wires the full stack for one command invocation: runner,
// elevator, engine detection, rootless dispatcher, and manager.
func buildManager(ctx context.Context) (*engine.Manager, func(), error) {
	cfg := loadConfig()
	log := logrus.WithField("target", targetName(cfg.SSH))

	runner, cleanup, err := buildRunner(cfg.SSH, log)
	if err != nil {
		return nil, nil, err
	}

	elevator := shell.NewElevator(runner, log)

	bin := cfg.Engine.Binary
	if bin == "" {
		bin, err = engine.Detect(ctx, elevator)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	var rl *rootless.Manager
	if bin == "docker" {
		rl = rootless.NewManager(elevator, log)
	} else {
		cfg.Engine.PreferRootless = false
	}

	mgr := engine.NewManager(elevator, rl, cfg.Engine, bin, log)
	return mgr, cleanup, nil
}

// openRegistry opens the descriptor store at the configured directory.
func openRegistry() (*registry.Store, error) {
	cfg := loadConfig()
	return registry.NewStore(cfg.Registry)
}

func targetName(cfg types.SSHConfig) string {
	if cfg.Host == "" {
		return "local"
	}
	if cfg.User != "" && !strings.Contains(cfg.Host, "@") {
		return cfg.User + "@" + cfg.Host
	}
	return cfg.Host
}
