// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CommandResult is the outcome of one shell command execution, local or
// remote. It is never mutated after creation. Transport failures are
// reported as a result with ExitCode -1 and the error text in Stderr, so
// callers can always branch on the exit code.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string

	// NeedsCredentials is set when the command failed because privilege
	// elevation demanded a password that was not available.
	NeedsCredentials bool
}

// OK reports whether the command exited zero.
func (r CommandResult) OK() bool {
	return r.ExitCode == 0
}
