// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pod-engine/pkg/types"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name        string
		rules       []mockRule
		wantRunning bool
		wantStatus  string
	}{
		{
			name: "running container",
			rules: rootRules(
				mockRule{match: "inspect --format", result: types.CommandResult{Stdout: "running"}},
			),
			wantRunning: true,
			wantStatus:  "running",
		},
		{
			name: "exited container",
			rules: rootRules(
				mockRule{match: "inspect --format", result: types.CommandResult{Stdout: "exited"}},
			),
			wantStatus: "exited",
		},
		{
			name: "unknown container reports not found",
			rules: rootRules(
				mockRule{match: "inspect --format", result: types.CommandResult{ExitCode: 1, Stderr: "No such container"}},
			),
			wantStatus: "not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, "docker", &mockRunner{rules: tt.rules})
			running, status := m.Status(context.Background(), "pod-1")
			assert.Equal(t, tt.wantRunning, running)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestStop(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "stop -t 10 pod-1", result: types.CommandResult{Stdout: "pod-1"}},
		)}
		m := newTestManager(t, "docker", runner)
		require.NoError(t, m.Stop(context.Background(), "pod-1", 10*time.Second))
	})

	t.Run("already gone is success", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "stop", result: types.CommandResult{ExitCode: 1, Stderr: "Error: No such container: pod-1"}},
		)}
		m := newTestManager(t, "docker", runner)
		require.NoError(t, m.Stop(context.Background(), "pod-1", 10*time.Second))
	})

	t.Run("engine failure propagates", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "stop", result: types.CommandResult{ExitCode: 1, Stderr: "daemon not responding"}},
		)}
		m := newTestManager(t, "docker", runner)
		err := m.Stop(context.Background(), "pod-1", 10*time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "daemon not responding")
	})

	t.Run("zero timeout defaults to ten seconds", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "stop -t 10", result: types.CommandResult{}},
		)}
		m := newTestManager(t, "docker", runner)
		require.NoError(t, m.Stop(context.Background(), "pod-1", 0))
	})
}

func TestRemove(t *testing.T) {
	t.Run("forced removal drops the descriptor", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "rm -f pod-1", result: types.CommandResult{}},
		)}
		m := newTestManager(t, "docker", runner)
		m.containers["pod-1"] = &types.ContainerDescriptor{ID: "abc", Name: "pod-1"}

		require.NoError(t, m.Remove(context.Background(), "pod-1", true))
		assert.Empty(t, m.List())
	})

	t.Run("already gone is success", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "rm", result: types.CommandResult{ExitCode: 1, Stderr: "No such container: pod-1"}},
		)}
		m := newTestManager(t, "docker", runner)
		require.NoError(t, m.Remove(context.Background(), "pod-1", false))
	})
}

func TestSetupPodUser(t *testing.T) {
	t.Run("runs one exec with the provisioning script", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "exec", result: types.CommandResult{}},
		)}
		m := newTestManager(t, "docker", runner)

		used, err := m.SetupPodUser(context.Background(), "pod-1", UserOptions{
			Username: "dev", Password: "secret", Sudoer: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "secret", used)

		last := runner.calls[len(runner.calls)-1]
		assert.Contains(t, last, "exec pod-1 bash -c")
		assert.Contains(t, last, "useradd -m -s /bin/bash dev")
		assert.Contains(t, last, "NOPASSWD:ALL")
		assert.Contains(t, last, "chmod 700 /home/dev/.ssh")
	})

	t.Run("requires a username", func(t *testing.T) {
		m := newTestManager(t, "docker", &mockRunner{})
		_, err := m.SetupPodUser(context.Background(), "pod-1", UserOptions{Password: "x"})
		require.Error(t, err)
	})

	t.Run("generates a password when none given", func(t *testing.T) {
		runner := &mockRunner{rules: rootRules(
			mockRule{match: "exec", result: types.CommandResult{}},
		)}
		m := newTestManager(t, "docker", runner)

		used, err := m.SetupPodUser(context.Background(), "pod-1", UserOptions{Username: "dev"})
		require.NoError(t, err)
		assert.NotEmpty(t, used)
	})
}

func TestUserSetupScript(t *testing.T) {
	script := userSetupScript(UserOptions{Username: "dev", Password: "pw", Sudoer: false})
	assert.Contains(t, script, "echo dev:pw | chpasswd")
	assert.NotContains(t, script, "NOPASSWD", "non-sudoer gets no sudoers entry")
	assert.Contains(t, script, "chown -R dev:dev /home/dev")
}
