package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortableHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("FRAMEFILL_HOME", home)

	assert.Equal(t, filepath.Join(home, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state"), StateDir())
	assert.Equal(t, filepath.Join(home, "state", "logs"), LogDir())
	assert.Equal(t, filepath.Join(home, "state", "framefilld.pid"), PidFilePath())

	require.NoError(t, EnsureDirs())
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestXDGOverride(t *testing.T) {
	t.Setenv("FRAMEFILL_HOME", "")
	xdg := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdg)

	assert.Equal(t, filepath.Join(xdg, "framefill"), StateDir())
}
