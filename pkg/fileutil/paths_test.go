package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arnavsurve/portalstep/pkg/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathFromWorkflow(t *testing.T) {
	got, err := fileutil.ResolvePathFromWorkflow("/flows", "shots/a.png")
	require.NoError(t, err)
	assert.Equal(t, "/flows/shots/a.png", got)

	got, err = fileutil.ResolvePathFromWorkflow("/flows", "/abs/a.png")
	require.NoError(t, err)
	assert.Equal(t, "/abs/a.png", got)

	_, err = fileutil.ResolvePathFromWorkflow("/flows", "")
	assert.Error(t, err)
}

func TestEnsureParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.png")
	require.NoError(t, fileutil.EnsureParentDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "2.1.1_click-next", fileutil.SafeName("2.1.1_click-next"))
	assert.Equal(t, "a_b_c", fileutil.SafeName("a/b c"))
	assert.Equal(t, "_", fileutil.SafeName(""))
}
