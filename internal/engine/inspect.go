// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/pod-engine/pkg/types"
)

// inspectRecord mirrors the subset of the engine's inspect output the
// manager consumes. Docker and podman agree on these fields.
type inspectRecord struct {
	ID      string `json:"Id"`
	Name    string `json:"Name"`
	Created string `json:"Created"`
	State   struct {
		Status string `json:"Status"`
	} `json:"State"`
	Config struct {
		Image string `json:"Image"`
	} `json:"Config"`
	NetworkSettings struct {
		Ports map[string][]portBinding `json:"Ports"`
	} `json:"NetworkSettings"`
}

type portBinding struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

// inspect queries the engine for a container and converts the result into
// a descriptor. Port bindings map the container port spec ("22/tcp") to
// the bound host address ("0.0.0.0:2222").
func (m *Manager) inspect(ctx context.Context, containerID string) (*types.ContainerDescriptor, error) {
	res := m.run(ctx, "inspect", containerID)
	if !res.OK() {
		return nil, fmt.Errorf("engine inspect failed: %s", strings.TrimSpace(res.Stderr))
	}

	var records []inspectRecord
	if err := json.Unmarshal([]byte(res.Stdout), &records); err != nil {
		return nil, fmt.Errorf("decoding inspect output: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("inspect returned no records for %s", short(containerID))
	}
	rec := records[0]

	desc := &types.ContainerDescriptor{
		ID:     rec.ID,
		Name:   strings.TrimPrefix(rec.Name, "/"),
		Image:  rec.Config.Image,
		Ports:  make(map[string]string),
		Status: types.ContainerStatus(rec.State.Status),
	}
	if ts, err := time.Parse(time.RFC3339Nano, rec.Created); err == nil {
		desc.CreatedAt = ts
	} else {
		desc.CreatedAt = time.Now()
	}

	for spec, bindings := range rec.NetworkSettings.Ports {
		if len(bindings) == 0 {
			continue
		}
		b := bindings[0]
		host := b.HostIP
		if host == "" {
			host = "0.0.0.0"
		}
		desc.Ports[spec] = host + ":" + b.HostPort
	}
	return desc, nil
}
