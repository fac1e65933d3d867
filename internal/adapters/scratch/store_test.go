package scratch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "scratch"))
	require.NoError(t, err)
	require.NoError(t, s.Reset())
	return s
}

func TestStore_ResetClearsLeftovers(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "stale.zip"), []byte("x"), 0o600))

	require.NoError(t, s.Reset())
	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_PrepareDirectoryIsolatesRequests(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	dir, err := s.PrepareDirectory("job-1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first"), 0o600))

	dir2, err := s.PrepareDirectory("job-1")
	require.NoError(t, err)
	assert.NotEqual(t, dir, dir2)
	assert.NotEqual(t, s.ArchivePath(dir), s.ArchivePath(dir2))
	assert.Equal(t, s.Root(), filepath.Dir(dir2))
	assert.FileExists(t, filepath.Join(dir, "a.txt"), "a later request leaves earlier files alone")
	entries, err := os.ReadDir(dir2)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = s.PrepareDirectory("../evil")
	require.Error(t, err)
	_, err = s.PrepareDirectory("")
	require.Error(t, err)
}

func TestStore_RemoveDirectory(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	dir, err := s.PrepareDirectory("job-1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o600))

	require.NoError(t, s.RemoveDirectory(dir))
	assert.NoDirExists(t, dir)
	require.Error(t, s.RemoveDirectory(t.TempDir()))
	assert.DirExists(t, s.Root())
}

func TestStore_ArchiveDirectory(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	dir, err := s.PrepareDirectory("job-1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("bravo"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	zipPath := s.ArchivePath(dir)
	require.NoError(t, s.ArchiveDirectory(context.Background(), zipPath, dir))

	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = zr.Close() })

	got := map[string]string{}
	var names []string
	for _, f := range zr.File {
		rc, openErr := f.Open()
		require.NoError(t, openErr)
		b, readErr := io.ReadAll(rc)
		require.NoError(t, readErr)
		require.NoError(t, rc.Close())
		got[f.Name] = string(b)
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
	assert.Equal(t, map[string]string{"a.txt": "alpha", "b.txt": "bravo"}, got)
}

func TestStore_ArchiveDirectoryHonoursCancel(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	dir, err := s.PrepareDirectory("job-2")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	zipPath := s.ArchivePath(dir)
	require.ErrorIs(t, s.ArchiveDirectory(ctx, zipPath, dir), context.Canceled)
	assert.NoFileExists(t, zipPath)
}

func TestStore_Sweep(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	oldDir, err := s.PrepareDirectory("old")
	require.NoError(t, err)
	freshDir, err := s.PrepareDirectory("fresh")
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldDir, past, past))

	removed, err := s.Sweep(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, oldDir)
	assert.DirExists(t, freshDir)
}
