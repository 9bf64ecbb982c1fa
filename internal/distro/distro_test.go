// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distro

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/pod-engine/internal/shell"
	"github.com/pdiddy/pod-engine/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		osRelease string
		want      Family
	}{
		{
			name:      "ubuntu",
			osRelease: "NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\n",
			want:      FamilyDebian,
		},
		{
			name:      "debian",
			osRelease: "ID=debian\n",
			want:      FamilyDebian,
		},
		{
			name:      "rocky via quoted id",
			osRelease: "ID=\"rocky\"\nID_LIKE=\"rhel centos fedora\"\n",
			want:      FamilyRPM,
		},
		{
			name:      "mint falls back to id_like",
			osRelease: "ID=linuxmint\nID_LIKE=\"ubuntu debian\"\n",
			want:      FamilyDebian,
		},
		{
			name:      "amazon linux via id_like",
			osRelease: "ID=amzn\nID_LIKE=\"centos rhel fedora\"\n",
			want:      FamilyRPM,
		},
		{
			name:      "arch is unsupported",
			osRelease: "ID=arch\n",
			want:      FamilyUnknown,
		},
		{
			name:      "empty input",
			osRelease: "",
			want:      FamilyUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.osRelease))
		})
	}
}

func TestLookup(t *testing.T) {
	for _, f := range []Family{FamilyDebian, FamilyRPM} {
		r, ok := Lookup(f)
		assert.True(t, ok, "family %s should have a recipe", f)
		assert.NotEmpty(t, r.Update)
		assert.NotEmpty(t, r.Install)
		assert.NotEmpty(t, r.EngineRepo)
		assert.NotEmpty(t, r.AcceleratorRepo)
	}

	_, ok := Lookup(FamilyUnknown)
	assert.False(t, ok, "unknown family must not get a recipe")
}

type staticRunner struct {
	result types.CommandResult
}

func (s *staticRunner) Locus() string { return "static" }

func (s *staticRunner) Run(_ context.Context, cmd shell.Command) types.CommandResult {
	if strings.Contains(cmd.Render(), "os-release") {
		return s.result
	}
	return types.CommandResult{ExitCode: 1}
}

func TestDetect(t *testing.T) {
	t.Run("classifies remote os-release", func(t *testing.T) {
		r := &staticRunner{result: types.CommandResult{Stdout: "ID=fedora\n"}}
		assert.Equal(t, FamilyRPM, Detect(context.Background(), r))
	})

	t.Run("missing file yields unknown", func(t *testing.T) {
		r := &staticRunner{result: types.CommandResult{ExitCode: 1}}
		assert.Equal(t, FamilyUnknown, Detect(context.Background(), r))
	})
}
