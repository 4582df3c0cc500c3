// Package volume provisions each backend container's local storage
// directory, adapted from the teacher's LocalDriver (one directory per
// entity under a base path, bind-mounted into the container) down to the
// Host Controller's single use case: one data directory per backend
// instance, nothing pluggable.
package volume

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// DefaultBasePath is where backend instance data directories live.
const DefaultBasePath = "/var/lib/vaultmesh/volumes"

// LocalProvisioner creates and removes the per-instance bind-mount
// directories backend containers store their chunk files in.
type LocalProvisioner struct {
	basePath string
}

// NewLocalProvisioner creates a provisioner rooted at basePath
// (DefaultBasePath if empty), creating it if necessary.
func NewLocalProvisioner(basePath string) (*LocalProvisioner, error) {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, vmerr.Wrap(vmerr.KindStorage, "volume.NewLocalProvisioner", "failed to create volumes base directory", err)
	}
	return &LocalProvisioner{basePath: basePath}, nil
}

// Path returns the host path a backend named name's data directory lives
// at, regardless of whether it has been provisioned yet.
func (p *LocalProvisioner) Path(name string) string {
	return filepath.Join(p.basePath, name)
}

// Provision creates name's data directory and returns its host path.
func (p *LocalProvisioner) Provision(name string) (string, error) {
	path := p.Path(name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", vmerr.Wrap(vmerr.KindStorage, "volume.Provision", fmt.Sprintf("failed to create volume directory for %s", name), err)
	}
	return path, nil
}

// Remove deletes name's data directory and everything in it. Removing an
// already-absent volume is not an error.
func (p *LocalProvisioner) Remove(name string) error {
	if err := os.RemoveAll(p.Path(name)); err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "volume.Remove", fmt.Sprintf("failed to delete volume directory for %s", name), err)
	}
	return nil
}
