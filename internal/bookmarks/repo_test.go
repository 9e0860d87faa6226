package bookmarks

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusach/pkg/database"
	"tusach/pkg/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUserAndBook(t *testing.T, db *sql.DB) (string, int64) {
	t.Helper()
	userID := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, 'x')
	`, userID, "u-"+userID[:8], userID[:8]+"@example.com")
	require.NoError(t, err)

	res, err := db.Exec(`INSERT INTO books (name, slug) VALUES (?, ?)`, "Tiên Nghịch", "tien-nghich-"+userID[:8])
	require.NoError(t, err)
	bookID, err := res.LastInsertId()
	require.NoError(t, err)
	return userID, bookID
}

func TestUpsert_AppendsHistoryEveryTime(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	userID, bookID := seedUserAndBook(t, db)

	for chapter := int64(1); chapter <= 3; chapter++ {
		require.NoError(t, repo.Upsert(ctx, models.Bookmark{
			UserID: userID, BookID: bookID, Chapter: chapter, Shelf: "reading",
		}))
	}

	// One shelf row, three history rows.
	bm, err := repo.Get(ctx, userID, bookID)
	require.NoError(t, err)
	require.NotNil(t, bm)
	assert.Equal(t, int64(3), bm.Chapter)

	entries, total, err := repo.History(ctx, userID, bookID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, entries, 3)
	// Newest first.
	assert.Equal(t, int64(3), entries[0].Chapter)
	assert.Equal(t, int64(1), entries[2].Chapter)
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	userID, bookID := seedUserAndBook(t, db)

	ok, err := repo.Delete(ctx, userID, bookID)
	require.NoError(t, err)
	assert.False(t, ok, "deleting a missing bookmark reports not found")

	require.NoError(t, repo.Upsert(ctx, models.Bookmark{
		UserID: userID, BookID: bookID, Shelf: "wishlist",
	}))

	ok, err = repo.Delete(ctx, userID, bookID)
	require.NoError(t, err)
	assert.True(t, ok)

	bm, err := repo.Get(ctx, userID, bookID)
	require.NoError(t, err)
	assert.Nil(t, bm)
}

func TestList_ShelfFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	userID, bookID := seedUserAndBook(t, db)

	res, err := db.Exec(`INSERT INTO books (name, slug) VALUES ('Kiếm Lai', 'kiem-lai')`)
	require.NoError(t, err)
	otherBook, err := res.LastInsertId()
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(ctx, models.Bookmark{UserID: userID, BookID: bookID, Shelf: "reading"}))
	require.NoError(t, repo.Upsert(ctx, models.Bookmark{UserID: userID, BookID: otherBook, Shelf: "finished"}))

	items, total, err := repo.List(ctx, userID, "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = repo.List(ctx, userID, "finished", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, otherBook, items[0].BookID)
}
