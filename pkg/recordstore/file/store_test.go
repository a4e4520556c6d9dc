package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevoice/companion-go/pkg/recordstore"
	fileStore "github.com/carevoice/companion-go/pkg/recordstore/file"
)

func setupFileStore(t *testing.T) (*fileStore.Store, string) {
	dir := t.TempDir()
	store, err := fileStore.NewStore(&fileStore.Config{DataDir: dir})
	require.NoError(t, err)
	require.NotNil(t, store)
	return store, dir
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

func TestFileStore_RequiresDataDir(t *testing.T) {
	_, err := fileStore.NewStore(&fileStore.Config{})
	assert.Error(t, err)
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, _ := setupFileStore(t)
	defer store.Close()
	ctx := context.Background()

	record := newRecord(1, "alice", recordstore.CategoryFamilyMember, "Sarah (daughter)")
	record.Fields[recordstore.FieldName] = "Sarah"
	record.Fields[recordstore.FieldRelationship] = "daughter"
	require.NoError(t, store.Insert(ctx, record))

	records, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
	assert.Equal(t, "Sarah", records[0].Fields[recordstore.FieldName])
	assert.Equal(t, "daughter", records[0].Fields[recordstore.FieldRelationship])
	assert.True(t, record.CreatedAt.Equal(records[0].CreatedAt))
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	store, dir := setupFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord(1, "alice", recordstore.CategoryInterest, "gardening")))
	require.NoError(t, store.Insert(ctx, newRecord(2, "alice", recordstore.CategoryInterest, "crosswords")))
	require.NoError(t, store.Close())

	reopened, err := fileStore.NewStore(&fileStore.Config{DataDir: dir})
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFileStore_AppendKeepsAllRecords(t *testing.T) {
	store, _ := setupFileStore(t)
	defer store.Close()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.Insert(ctx, newRecord(i, "alice", recordstore.CategoryLifeEvent, "event")))
	}

	records, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestFileStore_UpdateInPlace(t *testing.T) {
	store, _ := setupFileStore(t)
	defer store.Close()
	ctx := context.Background()

	record := newRecord(1, "alice", recordstore.CategoryPersonalInfo, "name: Alice")
	require.NoError(t, store.Insert(ctx, record))

	record.Fields["hometown"] = "Galway"
	require.NoError(t, store.Update(ctx, record))

	info, err := store.GetPersonalInfo(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Galway", info.Fields["hometown"])

	records, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFileStore_UnknownUser(t *testing.T) {
	store, _ := setupFileStore(t)
	defer store.Close()
	ctx := context.Background()

	records, err := store.GetByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)

	info, err := store.GetPersonalInfo(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestFileStore_UnsafeUserID(t *testing.T) {
	store, dir := setupFileStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord(1, "../etc/passwd", recordstore.CategoryInterest, "x")))

	// The bundle file must stay inside the data directory.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dir, filepath.Dir(filepath.Join(dir, entries[0].Name())))

	records, err := store.GetByUser(ctx, "../etc/passwd")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFileStore_SimilarUserIDsDoNotCollide(t *testing.T) {
	store, _ := setupFileStore(t)
	defer store.Close()
	ctx := context.Background()

	// Both IDs would map onto the same file under a lossy replacement
	// scheme; each bundle must stay its own container.
	require.NoError(t, store.Insert(ctx, newRecord(1, "room/12", recordstore.CategoryInterest, "gardening")))
	require.NoError(t, store.Insert(ctx, newRecord(2, "room_12", recordstore.CategoryInterest, "chess")))

	records, err := store.GetByUser(ctx, "room/12")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "gardening", records[0].Fields[recordstore.FieldSummary])

	records, err = store.GetByUser(ctx, "room_12")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "chess", records[0].Fields[recordstore.FieldSummary])
}

func TestFileStore_UsersAreSeparateFiles(t *testing.T) {
	store, dir := setupFileStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord(1, "alice", recordstore.CategoryInterest, "gardening")))
	require.NoError(t, store.Insert(ctx, newRecord(2, "bob", recordstore.CategoryInterest, "chess")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	records, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "gardening", records[0].Fields[recordstore.FieldSummary])
}
