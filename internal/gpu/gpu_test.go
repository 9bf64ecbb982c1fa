// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gpu

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

// mockRunner matches rendered commands against ordered rules.
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

func newTestDetector(engine string, runner *mockRunner) *Detector {
	return NewDetector(shell.NewElevator(runner, testLog()), engine, testLog())
}

// root identity keeps rendered commands free of sudo prefixes.
func rootRules(rules ...mockRule) []mockRule {
	return append([]mockRule{
		{match: "id -u", result: types.CommandResult{Stdout: "0"}},
	}, rules...)
}

func TestParseDeviceRows(t *testing.T) {
	tests := []struct {
		name      string
		out       string
		wantCount int
		wantNames []string
	}{
		{
			name:      "two identical devices",
			out:       "2, Tesla T4\n2, Tesla T4",
			wantCount: 2,
			wantNames: []string{"Tesla T4"},
		},
		{
			name:      "single device",
			out:       "1, NVIDIA A100-SXM4-40GB",
			wantCount: 1,
			wantNames: []string{"NVIDIA A100-SXM4-40GB"},
		},
		{
			name:      "mixed device models",
			out:       "3, Tesla T4\n3, Tesla V100\n3, Tesla T4",
			wantCount: 3,
			wantNames: []string{"Tesla T4", "Tesla V100"},
		},
		{
			name:      "unparsable count falls back to row count",
			out:       "N/A, Tesla T4\nN/A, Tesla T4",
			wantCount: 2,
			wantNames: []string{"Tesla T4"},
		},
		{
			name:      "empty output",
			out:       "",
			wantCount: 0,
			wantNames: nil,
		},
		{
			name:      "blank lines ignored",
			out:       "\n1, Tesla T4\n\n",
			wantCount: 1,
			wantNames: []string{"Tesla T4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, names := parseDeviceRows(tt.out)
			assert.Equal(t, tt.wantCount, count)
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestDetect(t *testing.T) {
	t.Run("no query tool means no accelerator, no error", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules()}
		d := newTestDetector("docker", runner)

		info := d.Detect(context.Background())
		assert.False(t, info.Available)
		assert.False(t, info.HasDrivers)
		assert.Equal(t, 0, info.Count)
	})

	t.Run("drivers present but query fails", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "command -v nvidia-smi", result: types.CommandResult{Stdout: "/usr/bin/nvidia-smi"}},
			mockRule{match: "--query-gpu=count,name", result: types.CommandResult{ExitCode: 9, Stderr: "couldn't communicate with the NVIDIA driver"}},
		)}
		d := newTestDetector("docker", runner)

		info := d.Detect(context.Background())
		assert.True(t, info.HasDrivers)
		assert.False(t, info.Available)
	})

	t.Run("full detection with toolkit", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "command -v nvidia-smi", result: types.CommandResult{Stdout: "/usr/bin/nvidia-smi"}},
			mockRule{match: "--query-gpu=count,name", result: types.CommandResult{Stdout: "2, Tesla T4\n2, Tesla T4"}},
			mockRule{match: "--query-gpu=driver_version", result: types.CommandResult{Stdout: "535.161.08\n535.161.08"}},
			mockRule{match: "test -f " + hookPath, result: types.CommandResult{}},
		)}
		d := newTestDetector("podman", runner)

		info := d.Detect(context.Background())
		assert.True(t, info.Available)
		assert.Equal(t, 2, info.Count)
		assert.Equal(t, []string{"Tesla T4"}, info.Types)
		assert.Equal(t, "535.161.08", info.DriverVersion)
		assert.True(t, info.HasToolkit)
	})
}

func TestCheckToolkit(t *testing.T) {
	tests := []struct {
		name   string
		engine string
		rules  []mockRule
		want   bool
	}{
		{
			name:   "hook file present",
			engine: "podman",
			rules: rootRules(
				mockRule{match: "test -f " + hookPath, result: types.CommandResult{}},
			),
			want: true,
		},
		{
			name:   "docker runtime integration",
			engine: "docker",
			rules: rootRules(
				mockRule{match: "docker info", result: types.CommandResult{Stdout: " Runtimes: io.containerd.runc.v2 nvidia runc"}},
			),
			want: true,
		},
		{
			name:   "nothing configured",
			engine: "docker",
			rules: rootRules(
				mockRule{match: "docker info", result: types.CommandResult{ExitCode: 1}},
			),
			want: false,
		},
		{
			name:   "podman without hook",
			engine: "podman",
			rules:  rootRules(),
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(tt.engine, &mockRunner{rules: tt.rules})
			assert.Equal(t, tt.want, d.CheckToolkit(context.Background()))
		})
	}
}

func TestSetupToolkitIdempotent(t *testing.T) {
	runner := &mockRunner{rules: rootRules(
		mockRule{match: "test -f " + hookPath, result: types.CommandResult{}},
	)}
	d := newTestDetector("podman", runner)

	require.NoError(t, d.SetupToolkit(context.Background()))

	for _, call := range runner.calls {
		assert.NotContains(t, call, "tee", "existing hook must not be rewritten")
	}
}

func TestSetupToolkitWritesHook(t *testing.T) {
	runner := &mockRunner{rules: rootRules(
		mockRule{match: "test -f " + hookPath, result: types.CommandResult{ExitCode: 1}},
		mockRule{match: "mkdir -p", result: types.CommandResult{}},
		mockRule{match: "tee " + hookPath, result: types.CommandResult{}},
	)}
	d := newTestDetector("podman", runner)

	require.NoError(t, d.SetupToolkit(context.Background()))

	var wrote bool
	for _, call := range runner.calls {
		if strings.Contains(call, "tee "+hookPath) {
			wrote = true
			assert.Contains(t, call, "nvidia-container-toolkit")
		}
	}
	assert.True(t, wrote, "hook file should be written when absent")
}
