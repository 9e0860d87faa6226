package books

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

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

type seedBook struct {
	name      string
	status    models.Status
	source    string
	bookmarks int64
	views     int64
	genres    []string
}

func seed(t *testing.T, db *sql.DB, b seedBook) int64 {
	t.Helper()
	res, err := db.Exec(`
		INSERT INTO books (name, slug, status, source, bookmark_count, view_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.name, b.name, int(b.status), b.source, b.bookmarks, b.views)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	for _, slug := range b.genres {
		_, err := db.Exec(`
			INSERT INTO genres (name, slug) VALUES (?, ?)
			ON CONFLICT(slug) DO NOTHING
		`, slug, slug)
		require.NoError(t, err)
		_, err = db.Exec(`
			INSERT INTO books_genres (book_id, genre_id)
			SELECT ?, id FROM genres WHERE slug = ?
		`, id, slug)
		require.NoError(t, err)
	}
	return id
}

func TestRank_PaginationReproducesFullSet(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	// 25 books; bookmark_count descends from 25 to 1.
	for i := 1; i <= 25; i++ {
		seed(t, db, seedBook{
			name:      fmt.Sprintf("book-%02d", i),
			source:    "truyenfull",
			bookmarks: int64(i),
		})
	}

	q := RankQuery{Metric: "bookmark_count", Limit: 10}

	total, err := repo.Count(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 25, total)

	page := models.NewPage(nil, total, 2, 10)
	assert.Equal(t, 3, page.TotalPages)

	// Page 2 holds rows 11-20 of the descending order: counts 15 down to 6.
	q.Offset = 10
	rows, err := repo.Rank(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, int64(15), rows[0].BookmarkCount)
	assert.Equal(t, int64(6), rows[9].BookmarkCount)

	// Concatenating all pages yields every book exactly once.
	seen := make(map[int64]bool)
	for p := 1; p <= page.TotalPages; p++ {
		q.Offset = (p - 1) * 10
		rows, err := repo.Rank(ctx, q)
		require.NoError(t, err)
		for _, b := range rows {
			assert.False(t, seen[b.ID], "book %d appeared twice", b.ID)
			seen[b.ID] = true
		}
	}
	assert.Len(t, seen, 25)
}

func TestRank_TieBreakIsAscendingID(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)

	a := seed(t, db, seedBook{name: "a", bookmarks: 7})
	b := seed(t, db, seedBook{name: "b", bookmarks: 7})
	c := seed(t, db, seedBook{name: "c", bookmarks: 9})

	rows, err := repo.Rank(context.Background(), RankQuery{Metric: "bookmark_count", Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, c, rows[0].ID)
	assert.Equal(t, a, rows[1].ID)
	assert.Equal(t, b, rows[2].ID)
}

func TestRank_UnknownMetricFallsBackToViewCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)

	low := seed(t, db, seedBook{name: "low", views: 1, bookmarks: 100})
	high := seed(t, db, seedBook{name: "high", views: 50, bookmarks: 1})

	rows, err := repo.Rank(context.Background(), RankQuery{Metric: "popularity;DROP TABLE books", Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, high, rows[0].ID)
	assert.Equal(t, low, rows[1].ID)
}

func TestRank_LimitClamp(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seed(t, db, seedBook{name: fmt.Sprintf("b%d", i)})
	}

	for _, limit := range []int{0, -5} {
		rows, err := repo.Rank(ctx, RankQuery{Limit: limit})
		require.NoError(t, err)
		assert.Len(t, rows, 1, "limit %d clamps to 1", limit)
	}

	rows, err := repo.Rank(ctx, RankQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, rows, 5, "limit 1000 clamps to 100, returning all 5")
	assert.Equal(t, 100, clampLimit(1000))
}

func TestRank_ConjunctiveFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	completed := int(models.StatusCompleted)

	match := seed(t, db, seedBook{
		name: "match", status: models.StatusCompleted, source: "truyenfull",
		genres: []string{"tien-hiep"},
	})
	seed(t, db, seedBook{ // wrong status
		name: "ongoing", status: models.StatusOngoing, source: "truyenfull",
		genres: []string{"tien-hiep"},
	})
	seed(t, db, seedBook{ // wrong source
		name: "other-source", status: models.StatusCompleted, source: "thuquan",
		genres: []string{"tien-hiep"},
	})
	seed(t, db, seedBook{ // wrong genre
		name: "other-genre", status: models.StatusCompleted, source: "truyenfull",
		genres: []string{"kiem-hiep"},
	})

	q := RankQuery{
		Genre:  "tien-hiep",
		Status: &completed,
		Source: "truyenfull",
		Limit:  10,
	}

	rows, err := repo.Rank(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, match, rows[0].ID)

	total, err := repo.Count(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// No filters: everything.
	total, err = repo.Count(ctx, RankQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestGenresWithCounts(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	seed(t, db, seedBook{name: "a", source: "truyenfull", genres: []string{"tien-hiep", "huyen-huyen"}})
	seed(t, db, seedBook{name: "b", source: "truyenfull", genres: []string{"tien-hiep"}})
	seed(t, db, seedBook{name: "c", source: "thuquan", genres: []string{"tien-hiep"}})

	counts := func(genres []models.Genre) map[string]int64 {
		m := make(map[string]int64, len(genres))
		for _, g := range genres {
			m[g.Slug] = g.BookCount
		}
		return m
	}

	all, err := repo.GenresWithCounts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"tien-hiep": 3, "huyen-huyen": 1}, counts(all))

	filtered, err := repo.GenresWithCounts(ctx, "thuquan")
	require.NoError(t, err)
	// Every genre still listed; counts restricted to the source.
	assert.Equal(t, map[string]int64{"tien-hiep": 1, "huyen-huyen": 0}, counts(filtered))
}

func TestPageAlgebra(t *testing.T) {
	cases := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{100, 100, 1},
	}
	for _, tc := range cases {
		got := models.NewPage(nil, tc.total, 1, tc.limit).TotalPages
		assert.Equal(t, tc.want, got, "total=%d limit=%d", tc.total, tc.limit)
	}
}
