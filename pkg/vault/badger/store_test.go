package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schwartzmorn/filevault/pkg/vault"
	vaulttesting "github.com/Schwartzmorn/filevault/pkg/vault/testing"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	// Sync writes off: the durability fsyncs only slow the tests down.
	sync := false
	store, err := NewBadgerStore(context.Background(), BadgerStoreConfig{
		DBPath:     t.TempDir(),
		SyncWrites: &sync,
	})
	require.NoError(t, err)
	return store
}

func TestBadgerStore(t *testing.T) {
	suite := &vaulttesting.StoreTestSuite{
		NewStore: func(t *testing.T) vault.Store {
			return newTestStore(t)
		},
	}
	suite.Run(t)
}

func TestBadgerStorePersistence(t *testing.T) {
	dir := t.TempDir()
	sync := false
	cfg := BadgerStoreConfig{DBPath: dir, SyncWrites: &sync}

	store, err := NewBadgerStore(context.Background(), cfg)
	require.NoError(t, err)

	created, err := store.Put(context.Background(), vault.PutRequest{
		Path:      "docs/report.txt",
		ContentID: vault.NewContentID(),
		Size:      7,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Records and history survive a restart.
	reopened, err := NewBadgerStore(context.Background(), cfg)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Lookup(context.Background(), "docs/report.txt")
	require.NoError(t, err)
	assert.Equal(t, created.Version, got.Version)
	assert.Equal(t, created.Lineage, got.Lineage)
	assert.Equal(t, created.ContentID, got.ContentID)

	history, err := reopened.History(context.Background(), "docs/report.txt")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, vault.OpCreate, history[0].Op)
}

func TestBadgerStoreHealthcheck(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Healthcheck(context.Background()))

	require.NoError(t, store.Close())
	assert.Error(t, store.Healthcheck(context.Background()))
}
