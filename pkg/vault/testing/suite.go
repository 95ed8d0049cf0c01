// Package testing provides a reusable test suite for vault.Store
// implementations. It tests the interface contract, so the same suite runs
// against the memory and badger backends.
package testing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// StoreTestSuite exercises a vault.Store implementation.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) vault.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh store for each test, for isolation. The suite
	// closes it when the test ends.
	NewStore func(t *testing.T) vault.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("CreateAndLookup", suite.testCreateAndLookup)
	t.Run("UnconditionalPutConflicts", suite.testUnconditionalPutConflicts)
	t.Run("ConditionalUpdate", suite.testConditionalUpdate)
	t.Run("StaleTokenRejected", suite.testStaleTokenRejected)
	t.Run("Delete", suite.testDelete)
	t.Run("RecreateAfterDelete", suite.testRecreateAfterDelete)
	t.Run("Move", suite.testMove)
	t.Run("MoveValidation", suite.testMoveValidation)
	t.Run("VacatedSourceStartsFresh", suite.testVacatedSourceStartsFresh)
	t.Run("History", suite.testHistory)
	t.Run("PathIndependence", suite.testPathIndependence)
	t.Run("ConcurrentStaleTokens", suite.testConcurrentStaleTokens)
	t.Run("ReferencedContentIDs", suite.testReferencedContentIDs)
}

func (suite *StoreTestSuite) newStore(t *testing.T) vault.Store {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testContext() context.Context {
	return context.Background()
}

func version(v vault.Version) *vault.Version {
	return &v
}

// mustPut commits a snapshot and fails the test on error.
func mustPut(t *testing.T, store vault.Store, path string, asserted *vault.Version) *vault.Record {
	t.Helper()
	record, err := store.Put(testContext(), vault.PutRequest{
		Path:            path,
		AssertedVersion: asserted,
		ContentID:       vault.NewContentID(),
		Size:            42,
		Digest:          "sBLRQ44BseOVnzfmdgupsMwyw/BLRRcS5TePVPLLyUs=",
		Origin:          "192.0.2.1:9999",
	})
	require.NoError(t, err, "Put should succeed")
	return record
}

func assertCode(t *testing.T, err error, code vault.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, vault.CodeOf(err), "unexpected error code for %v", err)
}

func (suite *StoreTestSuite) testCreateAndLookup(t *testing.T) {
	store := suite.newStore(t)

	record := mustPut(t, store, "docs/report.txt", nil)
	assert.Equal(t, vault.Version(1), record.Version)
	assert.True(t, record.Exists)
	assert.NotEmpty(t, record.Lineage)

	got, err := store.Lookup(testContext(), "docs/report.txt")
	require.NoError(t, err)
	assert.Equal(t, record.Version, got.Version)
	assert.Equal(t, record.ContentID, got.ContentID)

	_, err = store.Lookup(testContext(), "docs/other.txt")
	assertCode(t, err, vault.ErrNotFound)
}

func (suite *StoreTestSuite) testUnconditionalPutConflicts(t *testing.T) {
	store := suite.newStore(t)

	first := mustPut(t, store, "a.txt", nil)

	// A second unconditional PUT must not silently overwrite.
	_, err := store.Put(testContext(), vault.PutRequest{Path: "a.txt", ContentID: vault.NewContentID()})
	assertCode(t, err, vault.ErrVersionConflict)

	got, err := store.Lookup(testContext(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, first.Version, got.Version, "rejected PUT must have no effect")
	assert.Equal(t, first.ContentID, got.ContentID)
}

func (suite *StoreTestSuite) testConditionalUpdate(t *testing.T) {
	store := suite.newStore(t)

	mustPut(t, store, "a.txt", nil)
	second := mustPut(t, store, "a.txt", version(1))
	assert.Equal(t, vault.Version(2), second.Version)

	third := mustPut(t, store, "a.txt", version(2))
	assert.Equal(t, vault.Version(3), third.Version)
}

func (suite *StoreTestSuite) testStaleTokenRejected(t *testing.T) {
	store := suite.newStore(t)

	mustPut(t, store, "a.txt", nil)
	mustPut(t, store, "a.txt", version(1))

	// Both a stale and a future token are rejected.
	_, err := store.Put(testContext(), vault.PutRequest{Path: "a.txt", AssertedVersion: version(1), ContentID: vault.NewContentID()})
	assertCode(t, err, vault.ErrVersionConflict)
	_, err = store.Put(testContext(), vault.PutRequest{Path: "a.txt", AssertedVersion: version(7), ContentID: vault.NewContentID()})
	assertCode(t, err, vault.ErrVersionConflict)

	// A token on a path that never existed only matches 0.
	_, err = store.Put(testContext(), vault.PutRequest{Path: "new.txt", AssertedVersion: version(3), ContentID: vault.NewContentID()})
	assertCode(t, err, vault.ErrVersionConflict)
	created, err := store.Put(testContext(), vault.PutRequest{Path: "new.txt", AssertedVersion: version(0), ContentID: vault.NewContentID()})
	require.NoError(t, err)
	assert.Equal(t, vault.Version(1), created.Version)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	store := suite.newStore(t)

	created := mustPut(t, store, "a.txt", nil)

	_, err := store.Delete(testContext(), "a.txt", 99, "")
	assertCode(t, err, vault.ErrVersionConflict)

	deleted, err := store.Delete(testContext(), "a.txt", 1, "192.0.2.1:9999")
	require.NoError(t, err)
	assert.Equal(t, vault.Version(2), deleted.Version)
	assert.False(t, deleted.Exists)
	assert.Equal(t, created.ContentID, deleted.ContentID, "delete reports the blob the slot held")

	// A deleted path reads like one that never existed.
	_, err = store.Lookup(testContext(), "a.txt")
	assertCode(t, err, vault.ErrNotFound)

	// Deleting it again is not a conflict, it is a missing file.
	_, err = store.Delete(testContext(), "a.txt", 2, "")
	assertCode(t, err, vault.ErrNotFound)

	// The pre-delete snapshot and the tombstone stay addressable.
	entry, err := store.GetVersion(testContext(), "a.txt", 1)
	require.NoError(t, err)
	assert.Equal(t, created.ContentID, entry.ContentID)

	tomb, err := store.GetVersion(testContext(), "a.txt", 2)
	require.NoError(t, err)
	assert.True(t, tomb.Tombstone())
	assert.Empty(t, tomb.ContentID)
}

func (suite *StoreTestSuite) testRecreateAfterDelete(t *testing.T) {
	store := suite.newStore(t)

	created := mustPut(t, store, "a.txt", nil)
	_, err := store.Delete(testContext(), "a.txt", 1, "")
	require.NoError(t, err)

	// Re-creation continues the lineage past the tombstone, whether the
	// caller asserts the tombstone version or nothing at all.
	recreated := mustPut(t, store, "a.txt", version(2))
	assert.Equal(t, vault.Version(3), recreated.Version)
	assert.Equal(t, created.Lineage, recreated.Lineage)

	history, err := store.History(testContext(), "a.txt")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, vault.OpCreate, history[0].Op)
	assert.Equal(t, vault.OpDelete, history[1].Op)
	assert.Equal(t, vault.OpCreate, history[2].Op)
}

func (suite *StoreTestSuite) testMove(t *testing.T) {
	store := suite.newStore(t)

	mustPut(t, store, "src.txt", nil)
	updated := mustPut(t, store, "src.txt", version(1))

	moved, err := store.Move(testContext(), "src.txt", "dst.txt", 2, "192.0.2.1:9999")
	require.NoError(t, err)
	assert.Equal(t, vault.Version(3), moved.Version, "move advances the lineage version")
	assert.Equal(t, updated.Lineage, moved.Lineage)
	assert.Equal(t, updated.ContentID, moved.ContentID, "move carries the snapshot")

	// The source reads as gone, the destination is live.
	_, err = store.Lookup(testContext(), "src.txt")
	assertCode(t, err, vault.ErrNotFound)
	got, err := store.Lookup(testContext(), "dst.txt")
	require.NoError(t, err)
	assert.Equal(t, vault.Version(3), got.Version)

	// History travels with the lineage: pre-move versions are addressable at
	// the destination, and still at the source.
	entry, err := store.GetVersion(testContext(), "dst.txt", 1)
	require.NoError(t, err)
	assert.Equal(t, "src.txt", entry.Path)

	entry, err = store.GetVersion(testContext(), "src.txt", 2)
	require.NoError(t, err)
	assert.Equal(t, updated.ContentID, entry.ContentID)

	// The arrival version belongs to the destination only.
	_, err = store.GetVersion(testContext(), "src.txt", 3)
	assertCode(t, err, vault.ErrNotFound)

	history, err := store.History(testContext(), "dst.txt")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, vault.OpMoveIn, history[2].Op)
	assert.Equal(t, "dst.txt", history[2].Path)
}

func (suite *StoreTestSuite) testMoveValidation(t *testing.T) {
	store := suite.newStore(t)

	mustPut(t, store, "src.txt", nil)
	mustPut(t, store, "occupied.txt", nil)

	_, err := store.Move(testContext(), "src.txt", "src.txt", 1, "")
	assertCode(t, err, vault.ErrBadRequest)

	_, err = store.Move(testContext(), "missing.txt", "dst.txt", 1, "")
	assertCode(t, err, vault.ErrNotFound)

	_, err = store.Move(testContext(), "src.txt", "dst.txt", 9, "")
	assertCode(t, err, vault.ErrVersionConflict)

	_, err = store.Move(testContext(), "src.txt", "occupied.txt", 1, "")
	assertCode(t, err, vault.ErrDestinationOccupied)

	// None of the rejected moves touched the source.
	got, err := store.Lookup(testContext(), "src.txt")
	require.NoError(t, err)
	assert.Equal(t, vault.Version(1), got.Version)

	// A vacated destination is fair game.
	_, err = store.Delete(testContext(), "occupied.txt", 1, "")
	require.NoError(t, err)
	moved, err := store.Move(testContext(), "src.txt", "occupied.txt", 1, "")
	require.NoError(t, err)
	assert.Equal(t, vault.Version(2), moved.Version)

	// The destination's own pre-delete history is still there.
	entry, err := store.GetVersion(testContext(), "occupied.txt", 2)
	require.NoError(t, err)
	assert.Equal(t, vault.OpMoveIn, entry.Op)
}

func (suite *StoreTestSuite) testVacatedSourceStartsFresh(t *testing.T) {
	store := suite.newStore(t)

	original := mustPut(t, store, "src.txt", nil)
	_, err := store.Move(testContext(), "src.txt", "dst.txt", 1, "")
	require.NoError(t, err)

	// The old lineage lives at dst now; a new file at src starts over.
	recreated := mustPut(t, store, "src.txt", nil)
	assert.Equal(t, vault.Version(1), recreated.Version)
	assert.NotEqual(t, original.Lineage, recreated.Lineage)

	// The pre-move snapshot is still addressable at src under the retired
	// lineage.
	entry, err := store.GetVersion(testContext(), "src.txt", 1)
	require.NoError(t, err)
	assert.Equal(t, recreated.ContentID, entry.ContentID, "the newest lineage wins version collisions")

	history, err := store.History(testContext(), "src.txt")
	require.NoError(t, err)
	require.Len(t, history, 2, "retired span plus fresh create")
	assert.Equal(t, original.ContentID, history[0].ContentID)
	assert.Equal(t, recreated.ContentID, history[1].ContentID)
}

func (suite *StoreTestSuite) testHistory(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.History(testContext(), "a.txt")
	assertCode(t, err, vault.ErrNotFound)

	mustPut(t, store, "a.txt", nil)
	mustPut(t, store, "a.txt", version(1))
	mustPut(t, store, "a.txt", version(2))

	history, err := store.History(testContext(), "a.txt")
	require.NoError(t, err)
	require.Len(t, history, 3, "one entry per committed version")
	for i, entry := range history {
		assert.Equal(t, vault.Version(i+1), entry.Version)
	}
	assert.Equal(t, vault.OpCreate, history[0].Op)
	assert.Equal(t, vault.OpUpdate, history[1].Op)
	assert.Equal(t, vault.OpUpdate, history[2].Op)
}

func (suite *StoreTestSuite) testPathIndependence(t *testing.T) {
	store := suite.newStore(t)

	mustPut(t, store, "a.txt", nil)
	mustPut(t, store, "a.txt", version(1))
	b := mustPut(t, store, "b.txt", nil)

	// Versions are per path, not global.
	assert.Equal(t, vault.Version(1), b.Version)

	got, err := store.Lookup(testContext(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, vault.Version(2), got.Version)
}

func (suite *StoreTestSuite) testConcurrentStaleTokens(t *testing.T) {
	store := suite.newStore(t)

	mustPut(t, store, "a.txt", nil)

	// Many writers race with the same token; exactly one may win.
	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Put(testContext(), vault.PutRequest{
				Path:            "a.txt",
				AssertedVersion: version(1),
				ContentID:       vault.NewContentID(),
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.True(t, vault.IsVersionConflict(err), "losers must see a version conflict, got %v", err)
		}
	}
	assert.Equal(t, 1, successes)

	got, err := store.Lookup(testContext(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, vault.Version(2), got.Version)
}

func (suite *StoreTestSuite) testReferencedContentIDs(t *testing.T) {
	store := suite.newStore(t)

	first := mustPut(t, store, "a.txt", nil)
	second := mustPut(t, store, "a.txt", version(1))
	_, err := store.Delete(testContext(), "a.txt", 2, "")
	require.NoError(t, err)

	// Superseded and deleted snapshots are still referenced: history keeps
	// them addressable, so the garbage collector must not reclaim them.
	ids, err := store.ReferencedContentIDs(testContext())
	require.NoError(t, err)
	assert.ElementsMatch(t, []vault.ContentID{first.ContentID, second.ContentID}, ids)
}
