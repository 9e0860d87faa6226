package bookmarks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tusach/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert saves a user's shelf entry and appends a reading_history row in the
// same transaction, so the history never misses a cursor move.
func (r *Repo) Upsert(ctx context.Context, bm models.Bookmark) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert bookmark: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookmarks (user_id, book_id, chapter, shelf, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, book_id) DO UPDATE SET
			chapter = excluded.chapter,
			shelf = excluded.shelf,
			updated_at = CURRENT_TIMESTAMP
	`, bm.UserID, bm.BookID, bm.Chapter, bm.Shelf)
	if err != nil {
		return fmt.Errorf("upsert bookmark: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reading_history (user_id, book_id, chapter)
		VALUES (?, ?, ?)
	`, bm.UserID, bm.BookID, bm.Chapter)
	if err != nil {
		return fmt.Errorf("append reading history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert bookmark: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID string, bookID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM bookmarks
		WHERE user_id = ? AND book_id = ?
	`, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("delete bookmark: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Get(ctx context.Context, userID string, bookID int64) (*models.Bookmark, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT user_id, book_id, chapter, shelf, updated_at
		FROM bookmarks
		WHERE user_id = ? AND book_id = ?
	`, userID, bookID)

	var bm models.Bookmark
	if err := row.Scan(&bm.UserID, &bm.BookID, &bm.Chapter, &bm.Shelf, &bm.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	return &bm, nil
}

// List returns the user's shelf, newest first, optionally filtered to one
// shelf name, with the unfiltered-by-page total.
func (r *Repo) List(ctx context.Context, userID, shelf string, limit, offset int) ([]models.Bookmark, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookmarks
		WHERE user_id = ? AND (? = '' OR shelf = ?)
	`, userID, shelf, shelf).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookmarks: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, book_id, chapter, shelf, updated_at
		FROM bookmarks
		WHERE user_id = ? AND (? = '' OR shelf = ?)
		ORDER BY updated_at DESC, book_id ASC
		LIMIT ? OFFSET ?
	`, userID, shelf, shelf, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bookmark, 0, limit)
	for rows.Next() {
		var bm models.Bookmark
		if err := rows.Scan(&bm.UserID, &bm.BookID, &bm.Chapter, &bm.Shelf, &bm.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan bookmark: %w", err)
		}
		out = append(out, bm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// History lists reading-progress entries for a user, newest first. bookID 0
// means all books.
func (r *Repo) History(ctx context.Context, userID string, bookID int64, limit, offset int) ([]models.HistoryEntry, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reading_history
		WHERE user_id = ? AND (? = 0 OR book_id = ?)
	`, userID, bookID, bookID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, book_id, chapter, at
		FROM reading_history
		WHERE user_id = ? AND (? = 0 OR book_id = ?)
		ORDER BY at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, bookID, bookID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]models.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e  models.HistoryEntry
			at time.Time
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.BookID, &e.Chapter, &at); err != nil {
			return nil, 0, fmt.Errorf("scan history row: %w", err)
		}
		e.At = at
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}
