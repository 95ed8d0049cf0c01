package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schwartzmorn/filevault/pkg/content"
	contenttesting "github.com/Schwartzmorn/filevault/pkg/content/testing"
	"github.com/Schwartzmorn/filevault/pkg/vault"
)

func TestMemoryContentStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.WritableContentStore {
			return NewMemoryContentStore()
		},
	}
	suite.Run(t)
}

func TestWriteContentCopiesData(t *testing.T) {
	store := NewMemoryContentStore()
	id := vault.NewContentID()

	data := []byte("original")
	require.NoError(t, store.WriteContent(context.Background(), id, data))

	// Mutating the caller's slice must not change the stored blob.
	data[0] = 'X'

	reader, err := store.ReadContent(context.Background(), id)
	require.NoError(t, err)
	defer reader.Close()

	buf := make([]byte, len(data))
	_, err = reader.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), buf)
}
