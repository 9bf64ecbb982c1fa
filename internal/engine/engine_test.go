// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pod-engine/internal/shell"
	"github.com/pdiddy/pod-engine/pkg/types"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// mockRunner matches rendered commands against ordered rules and records
// every call.
type mockRunner struct {
	rules []mockRule
	calls []string
}

type mockRule struct {
	match  string
	result types.CommandResult
}

func (m *mockRunner) Locus() string { return "mock" }

func (m *mockRunner) Run(_ context.Context, cmd shell.Command) types.CommandResult {
	rendered := cmd.Render()
	m.calls = append(m.calls, rendered)
	for _, r := range m.rules {
		if strings.Contains(rendered, r.match) {
			return r.result
		}
	}
	return types.CommandResult{ExitCode: 1, Stderr: "no rule for: " + rendered}
}

// rootRules makes the elevator probe see a root identity, so no command
// gets a sudo prefix and rule matching stays simple.
func rootRules(rules ...mockRule) []mockRule {
	return append([]mockRule{
		{match: "id -u", result: types.CommandResult{Stdout: "0"}},
	}, rules...)
}

func newTestManager(t *testing.T, bin string, runner *mockRunner) *Manager {
	t.Helper()
	elevator := shell.NewElevator(runner, testLog())
	cfg := types.EngineConfig{
		DefaultRegistry:  "docker.io",
		DefaultNamespace: "library",
		NamePrefix:       "polaris-pod-",
	}
	m := NewManager(elevator, nil, cfg, bin, testLog())
	isPodman := bin == binPodman
	m.podman = &isPodman
	return m
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		rules   []mockRule
		want    string
		wantErr bool
	}{
		{
			name: "docker available",
			rules: rootRules(
				mockRule{match: "command -v docker", result: types.CommandResult{Stdout: "/usr/bin/docker"}},
				mockRule{match: "docker info", result: types.CommandResult{Stdout: "ok"}},
			),
			want: "docker",
		},
		{
			name: "podman fallback when docker missing",
			rules: rootRules(
				mockRule{match: "command -v podman", result: types.CommandResult{Stdout: "/usr/bin/podman"}},
				mockRule{match: "podman info", result: types.CommandResult{Stdout: "ok"}},
			),
			want: "podman",
		},
		{
			name: "docker on PATH but info fails, podman works",
			rules: rootRules(
				mockRule{match: "command -v docker", result: types.CommandResult{Stdout: "/usr/bin/docker"}},
				mockRule{match: "docker info", result: types.CommandResult{ExitCode: 1, Stderr: "daemon not running"}},
				mockRule{match: "command -v podman", result: types.CommandResult{Stdout: "/usr/bin/podman"}},
				mockRule{match: "podman info", result: types.CommandResult{Stdout: "ok"}},
			),
			want: "podman",
		},
		{
			name:    "neither available",
			rules:   rootRules(),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{rules: tt.rules}
			elevator := shell.NewElevator(runner, testLog())

			got, err := Detect(context.Background(), elevator)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container engine available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPodman(t *testing.T) {
	tests := []struct {
		name  string
		bin   string
		rules []mockRule
		want  bool
	}{
		{
			name: "podman binary",
			bin:  "podman",
			want: true,
		},
		{
			name: "docker aliased to podman",
			bin:  "docker",
			rules: []mockRule{
				{match: "docker --version", result: types.CommandResult{Stdout: "podman version 4.9.0"}},
			},
			want: true,
		},
		{
			name: "real docker",
			bin:  "docker",
			rules: []mockRule{
				{match: "docker --version", result: types.CommandResult{Stdout: "Docker version 26.1.0"}},
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{rules: tt.rules}
			elevator := shell.NewElevator(runner, testLog())
			assert.Equal(t, tt.want, IsPodman(context.Background(), elevator, tt.bin))
		})
	}
}
