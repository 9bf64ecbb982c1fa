package types

import "time"

// SSHConfig holds the remote target settings. When Host is empty, commands
// run on the local machine.
type SSHConfig struct {
	// Host is the remote address, e.g. "10.0.0.5" or "host:2222".
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// User is the SSH login name.
	User string `json:"user,omitempty" yaml:"user,omitempty"`

	// KeyFile is the path to a private key file. Password authentication
	// is read from .secrets/ssh-password when no key is given.
	KeyFile string `json:"key_file,omitempty" yaml:"key_file,omitempty"`

	// CommandTimeout bounds each remote command (default 120s).
	CommandTimeout time.Duration `json:"command_timeout" yaml:"command_timeout"`
}

// EngineConfig holds container engine settings.
type EngineConfig struct {
	// Binary forces the engine binary ("docker" or "podman"). Empty means
	// detect: docker first, podman fallback.
	Binary string `json:"binary,omitempty" yaml:"binary,omitempty"`

	// DefaultRegistry qualifies bare image references (default "docker.io").
	DefaultRegistry string `json:"default_registry" yaml:"default_registry"`

	// DefaultNamespace qualifies single-segment references (default "library").
	DefaultNamespace string `json:"default_namespace" yaml:"default_namespace"`

	// NamePrefix is prepended to generated container names
	// (default "polaris-pod-").
	NamePrefix string `json:"name_prefix" yaml:"name_prefix"`

	// PreferRootless routes engine commands through the rootless socket
	// when a rootless daemon is active.
	PreferRootless bool `json:"prefer_rootless" yaml:"prefer_rootless"`

	// SudoFallback enables falling back to elevated execution when the
	// rootless path fails with a permission signature.
	SudoFallback bool `json:"sudo_fallback" yaml:"sudo_fallback"`
}

// RegistryConfig holds settings for the local descriptor store.
type RegistryConfig struct {
	// Dir is the directory holding the SQLite database
	// (default "~/.local/share/pod-engine").
	Dir string `json:"dir" yaml:"dir"`
}

// Config groups all pod-engine settings.
type Config struct {
	SSH      SSHConfig      `json:"ssh" yaml:"ssh"`
	Engine   EngineConfig   `json:"engine" yaml:"engine"`
	Registry RegistryConfig `json:"registry" yaml:"registry"`
}

// Defaults fills zero values with the documented defaults.
func (c *Config) Defaults() {
	if c.SSH.CommandTimeout <= 0 {
		c.SSH.CommandTimeout = 120 * time.Second
	}
	if c.Engine.DefaultRegistry == "" {
		c.Engine.DefaultRegistry = "docker.io"
	}
	if c.Engine.DefaultNamespace == "" {
		c.Engine.DefaultNamespace = "library"
	}
	if c.Engine.NamePrefix == "" {
		c.Engine.NamePrefix = "polaris-pod-"
	}
}
