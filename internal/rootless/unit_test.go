// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rootless

import (
	"io"
	"testing"

	"github.com/coreos/go-systemd/v22/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserUnit(t *testing.T) {
	body, err := io.ReadAll(unit.Serialize(userUnit()))
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "[Unit]")
	assert.Contains(t, text, "ExecStart=/usr/bin/dockerd-rootless.sh")
	assert.Contains(t, text, "Delegate=yes")
	assert.Contains(t, text, "WantedBy=default.target")
}
