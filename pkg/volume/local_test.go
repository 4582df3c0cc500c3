package volume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalProvisionerCreatesBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "volumes")
	p, err := NewLocalProvisioner(base)
	require.NoError(t, err)

	_, err = os.Stat(base)
	require.NoError(t, err)
	assert.Equal(t, base, p.basePath)
}

func TestProvisionCreatesInstanceDirectory(t *testing.T) {
	p, err := NewLocalProvisioner(t.TempDir())
	require.NoError(t, err)

	path, err := p.Provision("backend-1")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, p.Path("backend-1"), path)
}

func TestRemoveDeletesDirectory(t *testing.T) {
	p, err := NewLocalProvisioner(t.TempDir())
	require.NoError(t, err)

	path, err := p.Provision("backend-1")
	require.NoError(t, err)

	require.NoError(t, p.Remove("backend-1"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveMissingVolumeIsNotAnError(t *testing.T) {
	p, err := NewLocalProvisioner(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, p.Remove("never-existed"))
}
