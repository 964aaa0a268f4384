package buffer

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "buffer.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_DrainOrder(t *testing.T) {
	store := openTestStore(t, Options{})
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Enqueue(Item{ID: "late", Entity: EntityProduct, Priority: 3, Timestamp: base.Add(time.Second)}))
	require.NoError(t, store.Enqueue(Item{ID: "early", Entity: EntityProduct, Priority: 3, Timestamp: base}))
	require.NoError(t, store.Enqueue(Item{ID: "urgent", Entity: EntityProduct, Priority: 1, Timestamp: base.Add(time.Hour)}))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"urgent", "early", "late"}, []string{items[0].ID, items[1].ID, items[2].ID})
}

func TestStore_RemoveAndRequeue(t *testing.T) {
	store := openTestStore(t, Options{})

	require.NoError(t, store.Enqueue(Item{ID: "a", Entity: EntityProduct, Data: json.RawMessage(`{"sku":"a"}`)}))
	require.NoError(t, store.Enqueue(Item{ID: "b", Entity: EntityProduct}))

	items, err := store.GetBatch(1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	first := items[0]
	assert.JSONEq(t, `{"sku":"a"}`, string(first.Data))

	first.Retries++
	require.NoError(t, store.Requeue(first))
	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size, "requeue must not duplicate the item")

	items, err = store.GetBatch(10)
	require.NoError(t, err)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, 1, items[1].Retries)

	require.NoError(t, store.Remove(Item{ID: "b"}))
	require.NoError(t, store.Remove(items[1]))
	size, err = store.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestStore_MaxSize(t *testing.T) {
	store := openTestStore(t, Options{MaxSize: 2})

	require.NoError(t, store.Enqueue(Item{Entity: EntityProduct}))
	require.NoError(t, store.Enqueue(Item{Entity: EntityProduct}))
	assert.ErrorIs(t, store.Enqueue(Item{Entity: EntityProduct}), ErrFull)
}

func TestStore_Cleanup(t *testing.T) {
	store := openTestStore(t, Options{})
	now := time.Now().UTC()

	require.NoError(t, store.Enqueue(Item{ID: "old", Entity: EntityProduct, Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Enqueue(Item{ID: "fresh", Entity: EntityProduct, Timestamp: now}))

	removed, err := store.Cleanup(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].ID)
}

func TestStore_ClosedOrNil(t *testing.T) {
	var store *Store
	assert.Error(t, store.Enqueue(Item{}))
	_, err := store.Size()
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}
