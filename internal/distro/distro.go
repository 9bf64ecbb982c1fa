// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package distro classifies a target's Linux distribution into a package
// manager family and supplies the install recipes each family needs. The
// install routines consult the table once instead of re-branching on
// distribution names.
package distro

import (
	"context"
	"strings"

	"github.com/pdiddy/pod-engine/internal/shell"
)

// Family is a package manager family.
type Family string

const (
	FamilyDebian  Family = "debian" // apt: Debian, Ubuntu and derivatives
	FamilyRPM     Family = "rpm"    // dnf: RHEL, CentOS, Fedora, Rocky, Alma
	FamilyUnknown Family = "unknown"
)

var debianIDs = map[string]bool{"debian": true, "ubuntu": true}

var rpmIDs = map[string]bool{
	"centos": true, "rhel": true, "fedora": true,
	"rocky": true, "almalinux": true,
}

// Recipe holds the shell fragments an install routine needs for one
// family. All fragments are fixed strings suitable for shell.Script.
type Recipe struct {
	// Update refreshes the package index.
	Update string

	// Install installs packages; append package names to it.
	Install string

	// EngineRepo registers the container engine package repository.
	EngineRepo []string

	// AcceleratorRepo registers the NVIDIA container toolkit repository.
	AcceleratorRepo []string
}

var recipes = map[Family]Recipe{
	FamilyDebian: {
		Update:  "apt-get update",
		Install: "DEBIAN_FRONTEND=noninteractive apt-get install -y --no-install-recommends",
		EngineRepo: []string{
			"apt-get update",
			"DEBIAN_FRONTEND=noninteractive apt-get install -y apt-transport-https ca-certificates curl gnupg lsb-release",
			"curl -fsSL https://download.docker.com/linux/$(. /etc/os-release && echo $ID)/gpg | gpg --yes --dearmor -o /usr/share/keyrings/docker-archive-keyring.gpg",
			`echo "deb [arch=$(dpkg --print-architecture) signed-by=/usr/share/keyrings/docker-archive-keyring.gpg] https://download.docker.com/linux/$(. /etc/os-release && echo $ID) $(lsb_release -cs) stable" | tee /etc/apt/sources.list.d/docker.list > /dev/null`,
			"apt-get update",
		},
		AcceleratorRepo: []string{
			"DEBIAN_FRONTEND=noninteractive apt-get install -y curl ca-certificates gnupg",
			"curl -fsSL https://nvidia.github.io/libnvidia-container/gpgkey | gpg --yes --dearmor -o /usr/share/keyrings/nvidia-container-toolkit-keyring.gpg",
			"curl -fsSL https://nvidia.github.io/libnvidia-container/stable/deb/nvidia-container-toolkit.list | sed 's#deb https://#deb [signed-by=/usr/share/keyrings/nvidia-container-toolkit-keyring.gpg] https://#g' | tee /etc/apt/sources.list.d/nvidia-container-toolkit.list > /dev/null",
			"apt-get update",
		},
	},
	FamilyRPM: {
		Update:  "dnf makecache",
		Install: "dnf install -y",
		EngineRepo: []string{
			"dnf -y install dnf-plugins-core",
			"dnf config-manager --add-repo https://download.docker.com/linux/centos/docker-ce.repo",
		},
		AcceleratorRepo: []string{
			"curl -fsSL https://nvidia.github.io/libnvidia-container/stable/rpm/nvidia-container-toolkit.repo | tee /etc/yum.repos.d/nvidia-container-toolkit.repo > /dev/null",
		},
	},
}

// Lookup returns the recipe for a family. The second result is false for
// FamilyUnknown: unsupported families get no recipe and callers must fail
// without attempting an install.
func Lookup(f Family) (Recipe, bool) {
	r, ok := recipes[f]
	return r, ok
}

// Classify maps /etc/os-release contents to a family, consulting ID first
// and ID_LIKE as a fallback so derivatives land in their parent family.
func Classify(osRelease string) Family {
	id, idLike := "", ""
	for _, line := range strings.Split(osRelease, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ID="):
			id = strings.Trim(strings.TrimPrefix(line, "ID="), `"`)
		case strings.HasPrefix(line, "ID_LIKE="):
			idLike = strings.Trim(strings.TrimPrefix(line, "ID_LIKE="), `"`)
		}
	}

	id = strings.ToLower(id)
	if debianIDs[id] {
		return FamilyDebian
	}
	if rpmIDs[id] {
		return FamilyRPM
	}
	for _, like := range strings.Fields(strings.ToLower(idLike)) {
		if debianIDs[like] {
			return FamilyDebian
		}
		if rpmIDs[like] {
			return FamilyRPM
		}
	}
	return FamilyUnknown
}

// Detect reads /etc/os-release through the runner and classifies the
// target. A missing file yields FamilyUnknown, not an error.
func Detect(ctx context.Context, r shell.Runner) Family {
	res := r.Run(ctx, shell.Script("cat /etc/os-release 2>/dev/null"))
	if !res.OK() {
		return FamilyUnknown
	}
	return Classify(res.Stdout)
}
