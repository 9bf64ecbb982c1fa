// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AcceleratorInfo is the result of one GPU detection pass. It is recomputed
// on every detection call and never persisted.
type AcceleratorInfo struct {
	// Available is true when accelerator hardware was detected through
	// the vendor query tool.
	Available bool `json:"available" yaml:"available"`

	// Count is the total number of devices. 0 when Available is false.
	Count int `json:"count" yaml:"count"`

	// Types holds the distinct device model names, in first-seen order.
	Types []string `json:"types,omitempty" yaml:"types,omitempty"`

	// HasDrivers reports whether the vendor query tool (and therefore
	// the driver stack) is installed.
	HasDrivers bool `json:"has_drivers" yaml:"has_drivers"`

	// HasToolkit reports whether the container runtime integration for
	// the accelerator is configured.
	HasToolkit bool `json:"has_toolkit" yaml:"has_toolkit"`

	// DriverVersion is the reported driver version, when known.
	DriverVersion string `json:"driver_version,omitempty" yaml:"driver_version,omitempty"`
}
