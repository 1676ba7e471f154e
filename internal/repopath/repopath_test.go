package repopath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRelative(t *testing.T) {
	got, err := Resolve("/repo", "src/module.go")
	require.NoError(t, err)
	assert.Equal(t, "/repo/src/module.go", got)
}

func TestResolveRejectsTraversal(t *testing.T) {
	_, err := Resolve("/repo", "../etc/passwd")
	require.Error(t, err)
}

func TestResolveRejectsEmbeddedTraversal(t *testing.T) {
	_, err := Resolve("/repo", "src/../../etc/passwd")
	require.Error(t, err)
}

func TestResolveRejectsAbsoluteOutsideRoot(t *testing.T) {
	_, err := Resolve("/repo", "/etc/passwd")
	require.Error(t, err)
}

func TestResolveAllowsAbsoluteInsideRoot(t *testing.T) {
	got, err := Resolve("/repo", "/repo/src/module.go")
	require.NoError(t, err)
	assert.Equal(t, "/repo/src/module.go", got)
}

func TestResolveRejectsEmpty(t *testing.T) {
	_, err := Resolve("/repo", "")
	require.Error(t, err)
}

func TestResolveNormalizesBackslashes(t *testing.T) {
	got, err := Resolve("/repo", `src\module.go`)
	require.NoError(t, err)
	assert.Equal(t, "/repo/src/module.go", got)
}

func TestResolveWindowsDriveOutsideRoot(t *testing.T) {
	_, err := Resolve("/repo", `C:\Windows\system32`)
	require.Error(t, err)
}

func TestResolveDotSegmentsCollapse(t *testing.T) {
	got, err := Resolve("/repo", "./src/./module.go")
	require.NoError(t, err)
	assert.Equal(t, "/repo/src/module.go", got)
}
