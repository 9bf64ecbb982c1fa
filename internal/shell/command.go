// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package shell executes shell commands on a local or remote target and
// decides when they need privilege elevation. Commands are built as
// structured argument lists and rendered to a shell string exactly once,
// at the execution boundary.
package shell

import (
	"sort"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// Command is one shell invocation. Either Args (quoted individually at
// render time) or Script (a trusted, fixed pipeline that needs shell
// features like && and redirects) is set, never both. Env entries are
// prepended as VAR=value assignments.
type Command struct {
	args    []string
	script  string
	env     map[string]string
	elevate bool
}

// Argv builds a command from an argument list. Every argument is shell
// quoted when the command is rendered, so untrusted values are safe here.
func Argv(args ...string) Command {
	return Command{args: args}
}

// Script builds a command from a fixed shell pipeline. The text is passed
// to the shell as-is; never interpolate untrusted values into it.
func Script(s string) Command {
	return Command{script: s}
}

// WithEnv returns a copy of the command with an environment assignment
// prepended at render time.
func (c Command) WithEnv(key, value string) Command {
	env := make(map[string]string, len(c.env)+1)
	for k, v := range c.env {
		env[k] = v
	}
	env[key] = value
	c.env = env
	return c
}

// Elevated returns a copy of the command that renders with a
// non-interactive sudo prefix.
func (c Command) Elevated() Command {
	c.elevate = true
	return c
}

// Render produces the final shell string.
func (c Command) Render() string {
	var b strings.Builder
	if c.elevate {
		b.WriteString("sudo -n ")
		if len(c.env) > 0 {
			// sudo strips plain VAR=value assignments; route them
			// through env(1) so they reach the command.
			b.WriteString("env ")
		}
	}
	if len(c.env) > 0 {
		keys := make([]string, 0, len(c.env))
		for k := range c.env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(shellescape.Quote(c.env[k]))
			b.WriteString(" ")
		}
	}
	if c.script != "" {
		b.WriteString(c.script)
	} else {
		b.WriteString(shellescape.QuoteCommand(c.args))
	}
	return b.String()
}
