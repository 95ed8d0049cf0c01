// Package testing provides a reusable test suite for ContentStore
// implementations. It tests the interface contract rather than
// implementation details, so the same suite runs against the memory,
// filesystem and S3 backends.
package testing

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schwartzmorn/filevault/pkg/content"
	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// StoreTestSuite exercises a WritableContentStore implementation.
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.WritableContentStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh store for each test, for isolation.
	NewStore func(t *testing.T) content.WritableContentStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ReadWrite", suite.testReadWrite)
	t.Run("MissingContent", suite.testMissingContent)
	t.Run("Existence", suite.testExistence)
	t.Run("Delete", suite.testDelete)
	t.Run("GarbageCollection", suite.testGarbageCollection)
}

func testContext() context.Context {
	return context.Background()
}

func mustWrite(t *testing.T, store content.WritableContentStore, id vault.ContentID, data []byte) {
	t.Helper()
	require.NoError(t, store.WriteContent(testContext(), id, data), "WriteContent should succeed")
}

func mustRead(t *testing.T, store content.ContentStore, id vault.ContentID) []byte {
	t.Helper()
	reader, err := store.ReadContent(testContext(), id)
	require.NoError(t, err, "ReadContent should succeed")
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err, "reading content should succeed")
	return data
}

func (suite *StoreTestSuite) testReadWrite(t *testing.T) {
	store := suite.NewStore(t)

	id := vault.NewContentID()
	data := []byte("first version of a document")
	mustWrite(t, store, id, data)

	assert.Equal(t, data, mustRead(t, store, id))

	size, err := store.GetContentSize(testContext(), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(data)), size)

	// Empty blobs are legal: a zero-byte file version still gets a blob.
	empty := vault.NewContentID()
	mustWrite(t, store, empty, []byte{})
	assert.Empty(t, mustRead(t, store, empty))

	emptySize, err := store.GetContentSize(testContext(), empty)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), emptySize)
}

func (suite *StoreTestSuite) testMissingContent(t *testing.T) {
	store := suite.NewStore(t)

	id := vault.NewContentID()

	_, err := store.ReadContent(testContext(), id)
	assert.True(t, errors.Is(err, content.ErrContentNotFound), "expected ErrContentNotFound, got %v", err)

	_, err = store.GetContentSize(testContext(), id)
	assert.True(t, errors.Is(err, content.ErrContentNotFound), "expected ErrContentNotFound, got %v", err)
}

func (suite *StoreTestSuite) testExistence(t *testing.T) {
	store := suite.NewStore(t)

	id := vault.NewContentID()

	exists, err := store.ContentExists(testContext(), id)
	require.NoError(t, err)
	assert.False(t, exists)

	mustWrite(t, store, id, []byte("payload"))

	exists, err = store.ContentExists(testContext(), id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	store := suite.NewStore(t)

	id := vault.NewContentID()
	mustWrite(t, store, id, []byte("to be removed"))

	require.NoError(t, store.Delete(testContext(), id))

	exists, err := store.ContentExists(testContext(), id)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(testContext(), id))
}

func (suite *StoreTestSuite) testGarbageCollection(t *testing.T) {
	store := suite.NewStore(t)

	gcStore, ok := store.(content.GarbageCollectableStore)
	if !ok {
		t.Skip("store does not support garbage collection")
	}

	ids, err := gcStore.ListAllContent(testContext())
	require.NoError(t, err)
	assert.Empty(t, ids)

	a := vault.NewContentID()
	b := vault.NewContentID()
	mustWrite(t, store, a, []byte("blob a"))
	mustWrite(t, store, b, []byte("blob b"))

	ids, err = gcStore.ListAllContent(testContext())
	require.NoError(t, err)
	assert.ElementsMatch(t, []vault.ContentID{a, b}, ids)

	failures, err := gcStore.DeleteBatch(testContext(), []vault.ContentID{a, b})
	require.NoError(t, err)
	assert.Empty(t, failures)

	ids, err = gcStore.ListAllContent(testContext())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
