package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevoice/companion-go/pkg/recordstore"
	sqliteStore "github.com/carevoice/companion-go/pkg/recordstore/sqlite"
)

func setupSQLiteStore(t *testing.T) (*sqliteStore.Store, string) {
	dbPath := filepath.Join(t.TempDir(), "companion_test.db")

	store, err := sqliteStore.NewStore(&sqliteStore.Config{DBPath: dbPath})
	require.NoError(t, err)
	require.NotNil(t, store)
	return store, dbPath
}

func newRecord(id int64, userID string, category recordstore.Category, summary string) *recordstore.Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &recordstore.Record{
		ID:       id,
		UserID:   userID,
		Category: category,
		Fields: map[string]string{
			recordstore.FieldSummary: summary,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, _ := setupSQLiteStore(t)
	defer store.Close()
	ctx := context.Background()

	record := newRecord(1, "alice", recordstore.CategoryLifeEvent, "wedding in June 1955")
	record.Fields[recordstore.FieldDescription] = "wedding"
	record.Fields[recordstore.FieldDate] = "June 1955"
	require.NoError(t, store.Insert(ctx, record))

	records, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
	assert.Equal(t, recordstore.CategoryLifeEvent, records[0].Category)
	assert.Equal(t, "June 1955", records[0].Fields[recordstore.FieldDate])
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	store, dbPath := setupSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord(1, "alice", recordstore.CategoryInterest, "gardening")))
	require.NoError(t, store.Close())

	reopened, err := sqliteStore.NewStore(&sqliteStore.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteStore_BundleOrder(t *testing.T) {
	store, _ := setupSQLiteStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord(3, "alice", recordstore.CategoryInterest, "gardening")))
	require.NoError(t, store.Insert(ctx, newRecord(1, "alice", recordstore.CategoryPersonalInfo, "name: Alice")))
	require.NoError(t, store.Insert(ctx, newRecord(2, "alice", recordstore.CategoryFamilyMember, "Sarah (daughter)")))

	records, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, recordstore.CategoryPersonalInfo, records[0].Category)
	assert.Equal(t, recordstore.CategoryFamilyMember, records[1].Category)
	assert.Equal(t, recordstore.CategoryInterest, records[2].Category)
}

func TestSQLiteStore_Update(t *testing.T) {
	store, _ := setupSQLiteStore(t)
	defer store.Close()
	ctx := context.Background()

	record := newRecord(1, "alice", recordstore.CategoryPersonalInfo, "name: Alice")
	require.NoError(t, store.Insert(ctx, record))

	record.Fields["favorite_food"] = "brown bread"
	record.UpdatedAt = record.UpdatedAt.Add(time.Minute)
	require.NoError(t, store.Update(ctx, record))

	info, err := store.GetPersonalInfo(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "brown bread", info.Fields["favorite_food"])

	records, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteStore_UpdateUnknownRecord(t *testing.T) {
	store, _ := setupSQLiteStore(t)
	defer store.Close()

	err := store.Update(context.Background(), newRecord(99, "alice", recordstore.CategoryPersonalInfo, "x"))
	assert.Error(t, err)
}

func TestSQLiteStore_UnknownUser(t *testing.T) {
	store, _ := setupSQLiteStore(t)
	defer store.Close()
	ctx := context.Background()

	records, err := store.GetByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)

	info, err := store.GetPersonalInfo(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestSQLiteStore_CustomTableName(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "companion_test.db")
	store, err := sqliteStore.NewStore(&sqliteStore.Config{
		DBPath:    dbPath,
		TableName: "resident_records",
	})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, newRecord(1, "alice", recordstore.CategoryInterest, "gardening")))

	records, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
