package reviews

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusach/pkg/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, 'x')
	`, id, "u-"+id[:8], id[:8]+"@example.com")
	require.NoError(t, err)
	return id
}

func seedBook(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO books (name, slug) VALUES (?, ?)`, name, name)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func bookScore(t *testing.T, db *sql.DB, bookID int64) (float64, int64) {
	t.Helper()
	var score float64
	var count int64
	require.NoError(t, db.QueryRow(`
		SELECT review_score, review_count FROM books WHERE id = ?
	`, bookID).Scan(&score, &count))
	return score, count
}

func TestCreate_RecomputesBookCounters(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	bookID := seedBook(t, db, "quy-bi-chi-chu")

	alice := seedUser(t, db)
	bob := seedUser(t, db)

	review, err := repo.Create(ctx, alice, bookID, 5, "đỉnh")
	require.NoError(t, err)
	require.NotNil(t, review)
	assert.Equal(t, 5, review.Rating)

	score, count := bookScore(t, db, bookID)
	assert.Equal(t, 5.0, score)
	assert.Equal(t, int64(1), count)

	_, err = repo.Create(ctx, bob, bookID, 2, "")
	require.NoError(t, err)

	score, count = bookScore(t, db, bookID)
	assert.Equal(t, 3.5, score)
	assert.Equal(t, int64(2), count)
}

func TestCreate_OneReviewPerUserPerBook(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	bookID := seedBook(t, db, "kiem-lai")
	user := seedUser(t, db)

	_, err := repo.Create(ctx, user, bookID, 4, "")
	require.NoError(t, err)

	_, err = repo.Create(ctx, user, bookID, 1, "second thoughts")
	assert.Error(t, err, "unique constraint rejects a second review")

	// The failed insert must not disturb the counters.
	score, count := bookScore(t, db, bookID)
	assert.Equal(t, 4.0, score)
	assert.Equal(t, int64(1), count)
}

func TestDelete_RecomputesBookCounters(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	bookID := seedBook(t, db, "tien-nghich")
	user := seedUser(t, db)

	review, err := repo.Create(ctx, user, bookID, 3, "")
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, review.ID, user)
	require.NoError(t, err)
	assert.True(t, ok)

	score, count := bookScore(t, db, bookID)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, int64(0), count)

	// Deleting someone else's review is a not-found, not an error.
	other := seedUser(t, db)
	review2, err := repo.Create(ctx, other, bookID, 5, "")
	require.NoError(t, err)
	ok, err = repo.Delete(ctx, review2.ID, user)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListByBook(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	bookID := seedBook(t, db, "pham-nhan-tu-tien")

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, seedUser(t, db), bookID, i+3, "")
		require.NoError(t, err)
	}

	items, err := repo.ListByBook(ctx, bookID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = repo.ListByBook(ctx, bookID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
