package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schwartzmorn/filevault/pkg/content"
	contenttesting "github.com/Schwartzmorn/filevault/pkg/content/testing"
)

func TestFSContentStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.WritableContentStore {
			store, err := NewFSContentStore(context.Background(), t.TempDir())
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestNewFSContentStoreCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "blobs")

	_, err := NewFSContentStore(context.Background(), root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListAllContentSkipsForeignFiles(t *testing.T) {
	root := t.TempDir()
	store, err := NewFSContentStore(context.Background(), root)
	require.NoError(t, err)

	// A stray non-hex file must not surface as a blob.
	require.NoError(t, os.WriteFile(filepath.Join(root, ".write-leftover"), []byte("junk"), 0644))

	ids, err := store.ListAllContent(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
