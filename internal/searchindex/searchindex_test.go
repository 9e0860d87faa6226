package searchindex

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusach/pkg/database"
	"tusach/pkg/slug"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func insertBook(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	res, err := db.Exec(`
		INSERT INTO books (name, slug) VALUES (?, ?)
	`, name, slug.From(name))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func matchIDs(t *testing.T, db *sql.DB, query string) []int64 {
	t.Helper()
	rows, err := db.Query(`SELECT rowid FROM books_fts WHERE books_fts MATCH ?`, query)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

func mirrorCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM books_fts`).Scan(&n))
	return n
}

func TestEnsure_BooksTableMissing(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	res, err := Ensure(context.Background(), db)
	require.NoError(t, err)
	assert.True(t, res.BooksTableMissing)
	assert.False(t, res.Rebuilt)

	exists, err := tableExists(context.Background(), db, Table)
	require.NoError(t, err)
	assert.False(t, exists, "no mirror should be created pre-migration")
}

func TestEnsure_BuildsAndIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	insertBook(t, db, "Tiên Nghịch")

	res, err := Ensure(context.Background(), db)
	require.NoError(t, err)
	assert.True(t, res.Rebuilt, "first Ensure on a fresh schema builds the mirror")
	assert.Equal(t, 1, mirrorCount(t, db))

	res, err = Ensure(context.Background(), db)
	require.NoError(t, err)
	assert.False(t, res.Rebuilt, "second Ensure must be a structural no-op")

	var triggers int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'trigger' AND tbl_name = 'books'
	`).Scan(&triggers))
	assert.Equal(t, 3, triggers)
}

func TestEnsure_RebuildsDiacriticStrippingMirror(t *testing.T) {
	db := newTestDB(t)
	id := insertBook(t, db, "Quỷ Bí Chi Chủ")

	// A mirror created under the tokenizer default folds diacritics away.
	_, err := db.Exec(`
		CREATE VIRTUAL TABLE books_fts USING fts5(
			name,
			content='books',
			content_rowid='id',
			tokenize='unicode61 remove_diacritics 1'
		)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO books_fts(rowid, name) SELECT id, name FROM books`)
	require.NoError(t, err)

	// Bogus state the rebuild must fix: "quy" matches a diacritic name.
	assert.Equal(t, []int64{id}, matchIDs(t, db, `"quy"`))

	res, err := Ensure(context.Background(), db)
	require.NoError(t, err)
	assert.True(t, res.Rebuilt)

	assert.Empty(t, matchIDs(t, db, `"quy"`), "diacritic-stripped form must not match")
	assert.Equal(t, []int64{id}, matchIDs(t, db, `"Quỷ"`))
}

func TestEnsure_RebuildsSynopsisMirror(t *testing.T) {
	db := newTestDB(t)
	insertBook(t, db, "Ma Đạo Tổ Sư")

	// The abandoned experiment indexed synopsis alongside name.
	_, err := db.Exec(`
		CREATE VIRTUAL TABLE books_fts USING fts5(
			name,
			synopsis,
			content='books',
			content_rowid='id',
			tokenize='unicode61 remove_diacritics 0'
		)`)
	require.NoError(t, err)

	res, err := Ensure(context.Background(), db)
	require.NoError(t, err)
	assert.True(t, res.Rebuilt)

	ddl, err := tableDDL(context.Background(), db, Table)
	require.NoError(t, err)
	assert.NotContains(t, ddl, "synopsis")
	assert.Contains(t, ddl, "remove_diacritics 0")
}

func TestMirror_FollowsBookMutations(t *testing.T) {
	db := newTestDB(t)
	_, err := Ensure(context.Background(), db)
	require.NoError(t, err)

	// Insert reaches the mirror through the trigger.
	id := insertBook(t, db, "Đấu Phá Thương Khung")
	assert.Equal(t, 1, mirrorCount(t, db))
	assert.Equal(t, []int64{id}, matchIDs(t, db, `"Phá"`))

	// Update of a non-name column keeps the entry intact.
	_, err = db.Exec(`UPDATE books SET view_count = 42 WHERE id = ?`, id)
	require.NoError(t, err)
	assert.Equal(t, 1, mirrorCount(t, db))
	assert.Equal(t, []int64{id}, matchIDs(t, db, `"Phá"`))

	// Renaming replaces the entry: old tokens gone, new ones indexed.
	_, err = db.Exec(`UPDATE books SET name = ? WHERE id = ?`, "Phàm Nhân Tu Tiên", id)
	require.NoError(t, err)
	assert.Equal(t, 1, mirrorCount(t, db))
	assert.Empty(t, matchIDs(t, db, `"Phá"`))
	assert.Equal(t, []int64{id}, matchIDs(t, db, `"Phàm"`))

	// Delete removes the entry.
	_, err = db.Exec(`DELETE FROM books WHERE id = ?`, id)
	require.NoError(t, err)
	assert.Equal(t, 0, mirrorCount(t, db))
	assert.Empty(t, matchIDs(t, db, `"Phàm"`))
}

func TestMirror_OneEntryPerLiveBook(t *testing.T) {
	db := newTestDB(t)
	_, err := Ensure(context.Background(), db)
	require.NoError(t, err)

	names := []string{"Thế Giới Hoàn Mỹ", "Già Thiên", "Vũ Động Càn Khôn"}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		ids = append(ids, insertBook(t, db, name))
	}
	assert.Equal(t, len(names), mirrorCount(t, db))

	_, err = db.Exec(`DELETE FROM books WHERE id = ?`, ids[1])
	require.NoError(t, err)
	assert.Equal(t, len(names)-1, mirrorCount(t, db))
	assert.Empty(t, matchIDs(t, db, `"Già"`))
	assert.Equal(t, []int64{ids[0]}, matchIDs(t, db, `"Mỹ"`))
}

func TestRebuild_PopulatesFromExistingRows(t *testing.T) {
	db := newTestDB(t)

	// Rows inserted before any mirror exists must appear after Ensure.
	a := insertBook(t, db, "Quỷ Bí Chi Chủ")
	b := insertBook(t, db, "Quy Tàng Chi Kiếm")

	_, err := Ensure(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 2, mirrorCount(t, db))

	// Diacritic sensitivity: each query hits only the verbatim name.
	assert.Equal(t, []int64{a}, matchIDs(t, db, `"Quỷ"`))
	assert.Equal(t, []int64{b}, matchIDs(t, db, `"Quy"`))
}
