package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockport/blockport-go/session/storage"
)

func TestMemStoreSaveLoad(t *testing.T) {
	store := storage.NewMemStore()

	require.NoError(t, store.Save(&storage.Record{
		AccessToken:     "a1",
		RefreshToken:    "r1",
		IsAuthenticated: true,
	}))

	record, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "a1", record.AccessToken)
	require.Equal(t, "r1", record.RefreshToken)
	require.True(t, record.IsAuthenticated)
}

func TestMemStoreLoadReturnsCopy(t *testing.T) {
	store := storage.NewMemStore()
	require.NoError(t, store.Save(&storage.Record{AccessToken: "a1"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	loaded.AccessToken = "tampered"

	again, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "a1", again.AccessToken)
}

func TestMemStoreEmptyLoad(t *testing.T) {
	record, err := storage.NewMemStore().Load()
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestMemStoreClear(t *testing.T) {
	store := storage.NewMemStore()
	require.NoError(t, store.Save(&storage.Record{AccessToken: "a1"}))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear()) // idempotent

	record, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestMemStoreWatchSignalsOnSaveAndClear(t *testing.T) {
	store := storage.NewMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Save(&storage.Record{AccessToken: "a1"}))
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no signal after save")
	}

	require.NoError(t, store.Clear())
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no signal after clear")
	}
}

func TestMemStoreWatchStopsOnCancel(t *testing.T) {
	store := storage.NewMemStore()
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := store.Watch(ctx)
	require.NoError(t, err)
	cancel()

	// The cancelled watcher no longer receives signals.
	require.Eventually(t, func() bool {
		require.NoError(t, store.Save(&storage.Record{AccessToken: "a1"}))
		select {
		case <-changes:
			return false
		default:
			return true
		}
	}, time.Second, 10*time.Millisecond)
}
