package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStore_WriteReadDelete(t *testing.T) {
	store, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Write(ctx, "doc-1", ".txt", []byte("payload"))
	require.NoError(t, err)
	assert.Contains(t, path, "doc-1.txt")
	assert.True(t, store.Exists(ctx, "doc-1", ".txt"))

	content, err := store.Read(ctx, "doc-1", ".txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), content)

	require.NoError(t, store.Delete(ctx, "doc-1", ".txt"))
	assert.False(t, store.Exists(ctx, "doc-1", ".txt"))
}

func TestBlobStore_DeleteMissingIsNoError(t *testing.T) {
	store, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "never-written", ".pdf"))
}
