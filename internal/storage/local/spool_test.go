package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/botlog/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "spool")
		s, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		require.Equal(t, dir, s.Dir())
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	})

	t.Run("missing base dir", func(t *testing.T) {
		t.Parallel()
		_, err := local.New(local.Config{})
		require.Error(t, err)
	})

	t.Run("base dir is a file", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		require.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	t.Parallel()

	s, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	path, err := s.Save(context.Background(), "../../etc/access.LOG", strings.NewReader("line\n"))
	require.NoError(t, err)
	require.Equal(t, s.Dir(), filepath.Dir(path))
	require.Equal(t, ".log", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "line\n", string(data))

	other, err := s.Save(context.Background(), "access.log", strings.NewReader("x"))
	require.NoError(t, err)
	require.NotEqual(t, path, other)

	odd, err := s.Save(context.Background(), "weird.ext;rm", strings.NewReader("x"))
	require.NoError(t, err)
	require.Empty(t, filepath.Ext(odd))
}

func TestSaveEnforcesLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := local.New(local.Config{BaseDir: dir, MaxBytes: 4})
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "a.log", strings.NewReader("12345"))
	require.ErrorIs(t, err, local.ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "partial file must be removed")

	_, err = s.Save(context.Background(), "a.log", strings.NewReader("1234"))
	require.NoError(t, err)
}

func TestSaveHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	s, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Save(ctx, "a.log", strings.NewReader("x"))
	require.ErrorIs(t, err, context.Canceled)
}
