// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/pdiddy/pod-engine/pkg/types"
)

// Runner executes a command on its target and reports the outcome. Both
// implementations follow a never-throws contract: transport and spawn
// failures come back as a CommandResult with exit code -1 and the error
// text in Stderr, so callers always branch on the exit code.
type Runner interface {
	// Run executes the command and waits for completion. Output is
	// captured to completion, not streamed.
	Run(ctx context.Context, cmd Command) types.CommandResult

	// Locus names the execution target for log context ("local" or
	// "ssh:<host>").
	Locus() string
}

// failure builds the sentinel result for transport-level errors.
func failure(err error) types.CommandResult {
	return types.CommandResult{ExitCode: -1, Stderr: err.Error()}
}

// LocalRunner executes commands as local subprocesses through /bin/sh.
type LocalRunner struct {
	log *logrus.Entry
}

// NewLocalRunner returns a runner for the local machine.
func NewLocalRunner(log *logrus.Entry) *LocalRunner {
	return &LocalRunner{log: log}
}

func (r *LocalRunner) Locus() string { return "local" }

func (r *LocalRunner) Run(ctx context.Context, cmd Command) types.CommandResult {
	rendered := cmd.Render()
	r.log.WithField("cmd", rendered).Debug("running local command")

	proc := exec.CommandContext(ctx, "/bin/sh", "-c", rendered)
	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	res := types.CommandResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn failure: the shell never ran.
			r.log.WithError(err).Errorf("failed to spawn local command")
			return failure(err)
		}
	}
	r.log.WithFields(logrus.Fields{"exit": res.ExitCode}).Debug("local command done")
	return res
}

// SSHRunner executes commands over an established SSH connection, one
// session per command. The client is supplied and owned by the caller,
// who is responsible for closing it.
type SSHRunner struct {
	client  *ssh.Client
	host    string
	timeout time.Duration
	log     *logrus.Entry
}

// NewSSHRunner wraps an already-authenticated SSH client. Timeout bounds
// each command; zero means 120 seconds.
func NewSSHRunner(client *ssh.Client, host string, timeout time.Duration, log *logrus.Entry) *SSHRunner {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &SSHRunner{client: client, host: host, timeout: timeout, log: log}
}

func (r *SSHRunner) Locus() string { return "ssh:" + r.host }

func (r *SSHRunner) Run(ctx context.Context, cmd Command) types.CommandResult {
	rendered := cmd.Render()
	r.log.WithField("cmd", rendered).Debug("running remote command")

	session, err := r.client.NewSession()
	if err != nil {
		r.log.WithError(err).Error("failed to open SSH session")
		return failure(err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(rendered); err != nil {
		r.log.WithError(err).Error("failed to start remote command")
		return failure(err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case err = <-done:
	case <-time.After(r.timeout):
		session.Close()
		r.log.Warnf("remote command timed out after %s", r.timeout)
		return failure(errors.New("remote command timed out after " + r.timeout.String()))
	case <-ctx.Done():
		session.Close()
		return failure(ctx.Err())
	}

	res := types.CommandResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
		} else {
			// Transport failure mid-command.
			r.log.WithError(err).Error("remote command transport failure")
			return failure(err)
		}
	}
	r.log.WithFields(logrus.Fields{"exit": res.ExitCode}).Debug("remote command done")
	return res
}
