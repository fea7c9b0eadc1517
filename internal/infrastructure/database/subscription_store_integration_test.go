package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sglre6355/station-herald/internal/domain"
)

// openTestStore connects to HERALD_TEST_DATABASE_URL (mysql:// or postgres://) and starts from an empty table.
func openTestStore(t *testing.T) *SubscriptionStore {
	t.Helper()

	databaseURL := os.Getenv("HERALD_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("HERALD_TEST_DATABASE_URL not set")
	}

	db, err := Open(databaseURL)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewSubscriptionStore(db)
	require.NoError(t, store.AutoMigrate(context.Background()))
	require.NoError(t, store.Save(context.Background(), nil))

	return store
}

func TestSubscriptionStore_EmptyTableIsEmptySet(t *testing.T) {
	store := openTestStore(t)

	subs, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscriptionStore_SaveThenLoadRoundTrips(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := []domain.Subscription{
		{ChannelID: "111", MessageID: "222"},
		{ChannelID: "333", MessageID: "444"},
		{ChannelID: "111", MessageID: "222"},
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSubscriptionStore_SaveReplacesWholeSet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []domain.Subscription{
		{ChannelID: "1", MessageID: "1"},
		{ChannelID: "2", MessageID: "2"},
	}))
	require.NoError(t, store.Save(ctx, []domain.Subscription{{ChannelID: "2", MessageID: "2"}}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Subscription{{ChannelID: "2", MessageID: "2"}}, got)

	require.NoError(t, store.Save(ctx, nil))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSubscriptionStore_NotInitialised(t *testing.T) {
	var store *SubscriptionStore

	_, err := store.Load(context.Background())
	require.Error(t, err)
	require.Error(t, store.Save(context.Background(), nil))
	require.Error(t, store.AutoMigrate(context.Background()))
}
