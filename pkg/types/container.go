// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data types exchanged between the
// pod-engine components: container descriptors, accelerator reports,
// command results, and configuration.
package types

import "time"

// ContainerStatus is the lifecycle state of a container as last observed
// through an engine inspection.
type ContainerStatus string

const (
	StatusCreated ContainerStatus = "created"
	StatusRunning ContainerStatus = "running"
	StatusExited  ContainerStatus = "exited"
	StatusRemoved ContainerStatus = "removed"
	StatusUnknown ContainerStatus = "unknown"
)

// ContainerDescriptor describes a container created through the manager.
// The ID is assigned only after the engine confirms creation; Status is the
// only field refreshed after construction.
type ContainerDescriptor struct {
	// ID is the engine-assigned container identifier. Never empty.
	ID string `json:"id" yaml:"id"`

	// Name is the display name reported by the engine, without the
	// leading slash docker puts on it.
	Name string `json:"name" yaml:"name"`

	// Image is the source image reference the container was created from.
	Image string `json:"image" yaml:"image"`

	// Ports maps a container port with protocol (e.g. "22/tcp") to its
	// host binding "ip:port". The host IP defaults to 0.0.0.0 when the
	// engine reports none.
	Ports map[string]string `json:"ports" yaml:"ports"`

	// GPUEnabled reports whether accelerator passthrough was enabled at
	// creation. GPUCount is always 0 when GPUEnabled is false.
	GPUEnabled bool   `json:"gpu_enabled" yaml:"gpu_enabled"`
	GPUCount   int    `json:"gpu_count" yaml:"gpu_count"`
	GPUType    string `json:"gpu_type,omitempty" yaml:"gpu_type,omitempty"`

	// CreatedAt is the local creation timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Status is the last observed lifecycle state.
	Status ContainerStatus `json:"status" yaml:"status"`
}

// Running reports whether the descriptor's last observed status is running.
func (d *ContainerDescriptor) Running() bool {
	return d.Status == StatusRunning
}
