package reviews

import (
	"context"
	"database/sql"
	"fmt"

	"tusach/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Create stores one review per user per book and recomputes the book's
// review_score and review_count inside the same transaction, so the ranking
// metrics never drift from the review rows.
func (r *Repo) Create(ctx context.Context, userID string, bookID int64, rating int, body string) (*models.Review, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create review: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reviews (user_id, book_id, rating, body)
		VALUES (?, ?, ?, ?)
	`, userID, bookID, rating, body)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := recomputeScore(ctx, tx, bookID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create review: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user's review and recomputes the book counters.
func (r *Repo) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete review: %w", err)
	}
	defer tx.Rollback()

	var bookID int64
	err = tx.QueryRowContext(ctx, `
		SELECT book_id FROM reviews WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&bookID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find review: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	if err := recomputeScore(ctx, tx, bookID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete review: %w", err)
	}
	return true, nil
}

// recomputeScore rewrites the denormalized counters from the review rows.
// COALESCE keeps the score at 0 when the last review is deleted.
func recomputeScore(ctx context.Context, tx *sql.Tx, bookID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE books SET
			review_score = COALESCE((SELECT AVG(rating) FROM reviews WHERE book_id = ?), 0),
			review_count = (SELECT COUNT(*) FROM reviews WHERE book_id = ?)
		WHERE id = ?
	`, bookID, bookID, bookID)
	if err != nil {
		return fmt.Errorf("recompute review score: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, book_id, rating, body, created_at
		FROM reviews
		WHERE id = ?
	`, id)

	var (
		review models.Review
		body   sql.NullString
	)
	if err := row.Scan(&review.ID, &review.UserID, &review.BookID, &review.Rating, &body, &review.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	review.Body = body.String
	return &review, nil
}

func (r *Repo) ListByBook(ctx context.Context, bookID int64, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, book_id, rating, body, created_at
		FROM reviews
		WHERE book_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, bookID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]models.Review, 0, limit)
	for rows.Next() {
		var (
			review models.Review
			body   sql.NullString
		)
		if err := rows.Scan(&review.ID, &review.UserID, &review.BookID, &review.Rating, &body, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		review.Body = body.String
		out = append(out, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
