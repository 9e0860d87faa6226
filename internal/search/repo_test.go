package search

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusach/internal/searchindex"
	"tusach/pkg/database"
	"tusach/pkg/slug"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	_, err = searchindex.Ensure(context.Background(), db)
	require.NoError(t, err)
	return db
}

func insertBook(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO books (name, slug) VALUES (?, ?)`, name, slug.From(name))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertAuthor(t *testing.T, db *sql.DB, name, local string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO authors (name, local_name) VALUES (?, ?)`, name, local)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestSearchBooks_DiacriticSensitive(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	withMark := insertBook(t, db, "Quỷ Bí Chi Chủ")
	plain := insertBook(t, db, "Quy Tàng Chi Kiếm")

	hits, err := repo.SearchBooks(ctx, "Quỷ", 20, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, withMark, hits[0].ID)

	// Bare "quy" must not pull in the diacritic title.
	hits, err = repo.SearchBooks(ctx, "quy", 20, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, plain, hits[0].ID)
}

func TestSearchBooks_OperatorInputIsNeutralized(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	insertBook(t, db, "Tiên Nghịch")

	// Unbalanced quotes and operators must neither error nor match everything.
	for _, q := range []string{`"`, `*`, `(((`, `:^`, `Tiên" OR "Nghịch`} {
		hits, err := repo.SearchBooks(ctx, q, 20, 0)
		require.NoError(t, err, "query %q", q)
		if q == `Tiên" OR "Nghịch` {
			// OR is quoted into a literal token; no book contains it.
			assert.Empty(t, hits)
		}
	}
}

func TestSearchBooks_EmptySanitizedSkipsStore(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)

	// Closing the handle proves the short-circuit path never queries.
	require.NoError(t, db.Close())

	hits, err := repo.SearchBooks(context.Background(), `"'()*^:`, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchBooks_Pagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	for _, name := range []string{"Kiếm Lai 1", "Kiếm Lai 2", "Kiếm Lai 3"} {
		insertBook(t, db, name)
	}

	first, err := repo.SearchBooks(ctx, "Kiếm", 2, 0)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	rest, err := repo.SearchBooks(ctx, "Kiếm", 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestSearchAuthors(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	insertAuthor(t, db, "Ái Tiềm Thủy Đích Ô Tặc", "爱潜水的乌贼")
	insertAuthor(t, db, "Nhĩ Căn", "")

	hits, err := repo.SearchAuthors(ctx, "tiềm thủy", 20)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Ái Tiềm Thủy Đích Ô Tặc", hits[0].Name)

	// Substring match on local_name works too.
	hits, err = repo.SearchAuthors(ctx, "乌贼", 20)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// LIKE wildcards in input are literals, not patterns.
	hits, err = repo.SearchAuthors(ctx, "%", 20)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
