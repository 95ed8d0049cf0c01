package gc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contentmemory "github.com/Schwartzmorn/filevault/pkg/content/memory"
	"github.com/Schwartzmorn/filevault/pkg/vault"
	vaultmemory "github.com/Schwartzmorn/filevault/pkg/vault/memory"
)

func TestCollectReclaimsOrphans(t *testing.T) {
	ctx := context.Background()
	vaultStore := vaultmemory.NewMemoryStore()
	contentStore := contentmemory.NewMemoryContentStore()

	// A committed snapshot: blob plus index entry.
	committed := vault.NewContentID()
	require.NoError(t, contentStore.WriteContent(ctx, committed, []byte("kept")))
	_, err := vaultStore.Put(ctx, vault.PutRequest{Path: "a.txt", ContentID: committed, Size: 4})
	require.NoError(t, err)

	// A blob whose index commit never happened.
	orphan := vault.NewContentID()
	require.NoError(t, contentStore.WriteContent(ctx, orphan, []byte("leftover")))

	collector, err := NewCollector(vaultStore, contentStore, Config{Enabled: true}, nil)
	require.NoError(t, err)

	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Equal(t, uint64(1), stats.DeletedCount)
	assert.Equal(t, uint64(0), stats.FailedCount)

	exists, err := contentStore.ContentExists(ctx, orphan)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = contentStore.ContentExists(ctx, committed)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCollectKeepsHistoricalBlobs(t *testing.T) {
	ctx := context.Background()
	vaultStore := vaultmemory.NewMemoryStore()
	contentStore := contentmemory.NewMemoryContentStore()

	first := vault.NewContentID()
	require.NoError(t, contentStore.WriteContent(ctx, first, []byte("v1")))
	_, err := vaultStore.Put(ctx, vault.PutRequest{Path: "a.txt", ContentID: first, Size: 2})
	require.NoError(t, err)

	second := vault.NewContentID()
	require.NoError(t, contentStore.WriteContent(ctx, second, []byte("v2")))
	token := vault.Version(1)
	_, err = vaultStore.Put(ctx, vault.PutRequest{Path: "a.txt", AssertedVersion: &token, ContentID: second, Size: 2})
	require.NoError(t, err)

	// The superseded snapshot is still addressable through history, so it
	// must survive collection.
	collector, err := NewCollector(vaultStore, contentStore, Config{Enabled: true}, nil)
	require.NoError(t, err)

	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.OrphanedCount)

	exists, err := contentStore.ContentExists(ctx, first)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCollectDryRun(t *testing.T) {
	ctx := context.Background()
	vaultStore := vaultmemory.NewMemoryStore()
	contentStore := contentmemory.NewMemoryContentStore()

	orphan := vault.NewContentID()
	require.NoError(t, contentStore.WriteContent(ctx, orphan, []byte("leftover")))

	collector, err := NewCollector(vaultStore, contentStore, Config{Enabled: true, DryRun: true}, nil)
	require.NoError(t, err)

	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Equal(t, uint64(0), stats.DeletedCount)

	exists, err := contentStore.ContentExists(ctx, orphan)
	require.NoError(t, err)
	assert.True(t, exists)
}
