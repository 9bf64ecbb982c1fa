// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/lithammer/shortuuid/v4"
)

// UserOptions describe the account provisioned inside a container.
type UserOptions struct {
	Username string
	Password string // generated when empty
	Sudoer   bool
}

// SetupPodUser provisions a login account inside a running container:
// installs sudo and mosh with whichever package manager the image
// carries, creates the user with a password, grants passwordless sudo
// when asked, and prepares ~/.ssh. The whole sequence runs as one exec
// so a slow remote target pays the session cost once.
//
// Returns the password in effect, which is generated when none was given.
func (m *Manager) SetupPodUser(ctx context.Context, containerID string, opts UserOptions) (string, error) {
	if opts.Username == "" {
		return "", fmt.Errorf("setting up container user: username is required")
	}
	if opts.Password == "" {
		opts.Password = shortuuid.New()
		m.log.WithField("user", opts.Username).Info("generated a password for the container user")
	}

	script := userSetupScript(opts)
	res := m.run(ctx, "exec", containerID, "bash", "-c", script)
	if !res.OK() {
		return "", fmt.Errorf("setting up user %s in %s: %s",
			opts.Username, short(containerID), strings.TrimSpace(res.Stderr))
	}
	m.log.WithFields(map[string]interface{}{
		"container": short(containerID),
		"user":      opts.Username,
	}).Info("container user provisioned")
	return opts.Password, nil
}

// userSetupScript builds the in-container provisioning script. It probes
// for the image's package manager at run time rather than trusting the
// image name.
func userSetupScript(opts UserOptions) string {
	user := shellescape.Quote(opts.Username)
	cred := shellescape.Quote(opts.Username + ":" + opts.Password)

	var b strings.Builder
	b.WriteString("set -e\n")
	b.WriteString("if command -v apt-get >/dev/null 2>&1; then\n")
	b.WriteString("  apt-get update -qq && DEBIAN_FRONTEND=noninteractive apt-get install -y -qq sudo mosh\n")
	b.WriteString("elif command -v dnf >/dev/null 2>&1; then\n")
	b.WriteString("  dnf install -y -q sudo mosh\n")
	b.WriteString("fi\n")
	fmt.Fprintf(&b, "id %s >/dev/null 2>&1 || useradd -m -s /bin/bash %s\n", user, user)
	fmt.Fprintf(&b, "echo %s | chpasswd\n", cred)
	if opts.Sudoer {
		fmt.Fprintf(&b, "echo \"%s ALL=(ALL) NOPASSWD:ALL\" > /etc/sudoers.d/%s\n", opts.Username, opts.Username)
		fmt.Fprintf(&b, "chmod 0440 /etc/sudoers.d/%s\n", opts.Username)
	}
	fmt.Fprintf(&b, "mkdir -p /home/%s/.ssh\n", opts.Username)
	fmt.Fprintf(&b, "chmod 700 /home/%s/.ssh\n", opts.Username)
	fmt.Fprintf(&b, "chown -R %s:%s /home/%s\n", opts.Username, opts.Username, opts.Username)
	return b.String()
}
