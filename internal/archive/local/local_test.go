package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArchiveWritesSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	uri, err := a.Archive(context.Background(), "rankings/division=3 week=7", "<html>ok</html>")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"), uri)

	data, err := os.ReadFile(filepath.Join(dir, "rankings", "division=3 week=7.html"))
	require.NoError(t, err)
	require.Equal(t, "<html>ok</html>", string(data))
}

func TestArchiveRejectsTraversal(t *testing.T) {
	t.Parallel()

	a, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = a.Archive(context.Background(), "../escape", "<html></html>")
	require.Error(t, err)
}

func TestNewCreatesBaseDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "archive")
	_, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
