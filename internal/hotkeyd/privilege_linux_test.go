//go:build linux

package hotkeyd

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dropChildEnv = "HOTKEYD_DROP_CHILD"

// The drop cannot be undone, so it runs in a re-executed test binary.
func TestDropPrivilegesRevokesDeviceAccess(t *testing.T) {
	if os.Getenv(dropChildEnv) == "1" {
		dropAndVerify(t)
		return
	}

	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
	devices, _ := filepath.Glob(DevicePattern)
	if len(devices) == 0 {
		t.Skip("no input devices")
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestDropPrivilegesRevokesDeviceAccess$", "-test.v")
	cmd.Env = append(os.Environ(), dropChildEnv+"=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func dropAndVerify(t *testing.T) {
	devices, err := filepath.Glob(DevicePattern)
	require.NoError(t, err)
	require.NotEmpty(t, devices)

	require.NoError(t, DropPrivileges(Credentials{UID: 65534, GID: 65534}))
	assert.Equal(t, 65534, os.Getuid())
	assert.Equal(t, 65534, os.Getgid())

	_, err = OpenDevice(devices[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrPermission), err.Error())

	_, err = openMatching(DevicePattern)
	assert.ErrorIs(t, err, ErrNoInputDevices)
}
