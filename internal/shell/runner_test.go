// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package shell

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalRunnerRun(t *testing.T) {
	r := NewLocalRunner(testLog())
	ctx := context.Background()

	t.Run("captures stdout and exit zero", func(t *testing.T) {
		res := r.Run(ctx, Argv("echo", "hello"))
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "hello", res.Stdout)
	})

	t.Run("reports nonzero exit code", func(t *testing.T) {
		res := r.Run(ctx, Script("exit 3"))
		assert.Equal(t, 3, res.ExitCode)
		assert.False(t, res.OK())
	})

	t.Run("captures stderr", func(t *testing.T) {
		res := r.Run(ctx, Script("echo oops >&2; exit 1"))
		assert.Equal(t, 1, res.ExitCode)
		assert.Equal(t, "oops", res.Stderr)
	})

	t.Run("missing binary is a result, not a panic", func(t *testing.T) {
		res := r.Run(ctx, Argv("definitely-not-a-real-binary-xyz"))
		assert.False(t, res.OK())
	})

	t.Run("cancelled context aborts the command", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res := r.Run(cctx, Script("sleep 5"))
		assert.False(t, res.OK())
	})

	t.Run("env assignments reach the command", func(t *testing.T) {
		res := r.Run(ctx, Script("echo $POD_TEST_VAR").WithEnv("POD_TEST_VAR", "42"))
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "42", res.Stdout)
	})
}

func TestLocalRunnerLocus(t *testing.T) {
	assert.Equal(t, "local", NewLocalRunner(testLog()).Locus())
}
