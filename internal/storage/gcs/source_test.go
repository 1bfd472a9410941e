package gcs

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/botlog/internal/storage/local"
)

type fakeObjects map[string]string

func (f fakeObjects) NewReader(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	body, ok := f[bucket+"/"+object]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestParseURI(t *testing.T) {
	t.Parallel()

	bucket, object, err := ParseURI("gs://logs/2026/01/access.log")
	require.NoError(t, err)
	require.Equal(t, "logs", bucket)
	require.Equal(t, "2026/01/access.log", object)

	for _, bad := range []string{"s3://logs/a", "gs://", "gs://logs", "gs://logs/", "/tmp/a.log"} {
		_, _, err := ParseURI(bad)
		require.Error(t, err, bad)
	}
	require.True(t, IsURI("gs://x/y"))
	require.False(t, IsURI("access.log"))
}

func TestFetchSpoolsObject(t *testing.T) {
	t.Parallel()

	spool, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	src, err := newSource(fakeObjects{"logs/2026/access.log": "hello\n"}, spool)
	require.NoError(t, err)

	path, name, err := src.Fetch(context.Background(), "gs://logs/2026/access.log")
	require.NoError(t, err)
	require.Equal(t, "access.log", name)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))

	_, _, err = src.Fetch(context.Background(), "gs://logs/missing.log")
	require.ErrorContains(t, err, "object not found")
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil)
	require.Error(t, err)
	_, err = newSource(fakeObjects{}, nil)
	require.Error(t, err)
}
