package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestGeneratorNewJobID ensures generated IDs are unique, version 7 and ordered.
func TestGeneratorNewJobID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewJobID()
	require.NoError(t, err)
	id2, err := gen.NewJobID()
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
	require.Equal(t, goUUID.Version(7), id1.Version())
	require.Less(t, id1.String(), id2.String())
}

func TestGeneratorNewRequestID(t *testing.T) {
	t.Parallel()

	id := New().NewRequestID()
	_, err := goUUID.Parse(id)
	require.NoError(t, err)
}
