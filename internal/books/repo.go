package books

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tusach/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// metricColumns whitelists every column Rank may order by. Anything else is
// silently mapped to view_count; a bad metric never becomes an error or an
// injection vector.
var metricColumns = map[string]string{
	"view_count":     "view_count",
	"comment_count":  "comment_count",
	"bookmark_count": "bookmark_count",
	"review_score":   "review_score",
	"vote_count":     "vote_count",
	"review_count":   "review_count",
}

const (
	minLimit = 1
	maxLimit = 100
)

// RankQuery selects and orders a slice of the catalog. Filters are
// conjunctive; a zero-value field imposes no restriction.
type RankQuery struct {
	Metric string
	Genre  string // genre slug
	Status *int
	Source string
	Limit  int
	Offset int
}

func metricColumn(metric string) string {
	if col, ok := metricColumns[strings.ToLower(strings.TrimSpace(metric))]; ok {
		return col
	}
	return "view_count"
}

func clampLimit(limit int) int {
	if limit < minLimit {
		return minLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// where builds the shared filter clause for Rank and Count.
func (q RankQuery) where() (string, []any) {
	conds := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if q.Genre != "" {
		conds = append(conds, `b.id IN (
			SELECT bg.book_id FROM books_genres bg
			JOIN genres g ON g.id = bg.genre_id
			WHERE g.slug = ?
		)`)
		args = append(args, q.Genre)
	}
	if q.Status != nil {
		conds = append(conds, `b.status = ?`)
		args = append(args, *q.Status)
	}
	if q.Source != "" {
		conds = append(conds, `b.source = ?`)
		args = append(args, q.Source)
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// Rank lists books ordered by the chosen metric, descending. Ties break on
// ascending id so page boundaries stay stable for equal metric values. The
// limit is clamped to [1, 100] whatever the caller asked for.
func (r *Repo) Rank(ctx context.Context, q RankQuery) ([]models.Book, error) {
	limit := clampLimit(q.Limit)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := q.where()
	query := fmt.Sprintf(`
		SELECT b.id, b.name, b.slug, b.status, b.source, b.author_id, a.name,
		       b.view_count, b.bookmark_count, b.comment_count, b.vote_count,
		       b.review_score, b.review_count, b.chapter_count, b.word_count,
		       b.cover_url, b.created_at, b.updated_at
		FROM books b
		LEFT JOIN authors a ON a.id = b.author_id
		%s
		ORDER BY b.%s DESC, b.id ASC
		LIMIT ? OFFSET ?
	`, where, metricColumn(q.Metric))
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rank query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0, limit)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Count returns the filtered row count, independent of limit and offset.
func (r *Repo) Count(ctx context.Context, q RankQuery) (int, error) {
	where, args := q.where()
	var total int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books b `+where, args...,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return total, nil
}

// GenresWithCounts lists every genre with the number of books tagged with it.
// A non-empty source restricts the count to that collection; genres with no
// matching books still appear with a zero count.
func (r *Repo) GenresWithCounts(ctx context.Context, source string) ([]models.Genre, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT g.id, g.name, g.slug, COUNT(b.id)
		FROM genres g
		LEFT JOIN books_genres bg ON bg.genre_id = g.id
		LEFT JOIN books b ON b.id = bg.book_id AND (? = '' OR b.source = ?)
		GROUP BY g.id, g.name, g.slug
		ORDER BY g.name ASC
	`, source, source)
	if err != nil {
		return nil, fmt.Errorf("genres query: %w", err)
	}
	defer rows.Close()

	var out []models.Genre
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.BookCount); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// GetBySlug loads one book with its author, genres, and tags. Returns
// (nil, nil) when the slug is unknown.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.BookDetail, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT b.id, b.name, b.slug, b.synopsis, b.status, b.source, b.author_id,
		       b.view_count, b.bookmark_count, b.comment_count, b.vote_count,
		       b.review_score, b.review_count, b.chapter_count, b.word_count,
		       b.cover_url, b.created_at, b.updated_at,
		       a.id, a.name, a.local_name
		FROM books b
		LEFT JOIN authors a ON a.id = b.author_id
		WHERE b.slug = ?
	`, slug)

	var (
		d        models.BookDetail
		synopsis sql.NullString
		authorID sql.NullInt64
		cover    sql.NullString
		aID      sql.NullInt64
		aName    sql.NullString
		aLocal   sql.NullString
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.Slug, &synopsis, &d.Status, &d.Source, &authorID,
		&d.ViewCount, &d.BookmarkCount, &d.CommentCount, &d.VoteCount,
		&d.ReviewScore, &d.ReviewCount, &d.ChapterCount, &d.WordCount,
		&cover, &d.CreatedAt, &d.UpdatedAt,
		&aID, &aName, &aLocal,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book by slug: %w", err)
	}
	d.Synopsis = synopsis.String
	d.CoverURL = cover.String
	if authorID.Valid {
		id := authorID.Int64
		d.AuthorID = &id
	}
	if aID.Valid {
		d.Author = &models.Author{ID: aID.Int64, Name: aName.String, LocalName: aLocal.String}
		d.AuthorName = aName.String
	}

	d.Genres, err = r.genresFor(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.Tags, err = r.tagsFor(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repo) genresFor(ctx context.Context, bookID int64) ([]models.Genre, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT g.id, g.name, g.slug
		FROM genres g
		JOIN books_genres bg ON bg.genre_id = g.id
		WHERE bg.book_id = ?
		ORDER BY g.name ASC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("book genres: %w", err)
	}
	defer rows.Close()

	out := []models.Genre{}
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, fmt.Errorf("scan book genre: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repo) tagsFor(ctx context.Context, bookID int64) ([]models.Tag, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT t.id, t.name
		FROM tags t
		JOIN books_tags bt ON bt.tag_id = t.id
		WHERE bt.book_id = ?
		ORDER BY t.name ASC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("book tags: %w", err)
	}
	defer rows.Close()

	out := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan book tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// IncrementView bumps the view counter; the mirror triggers ignore it because
// only counters change. Best-effort from the detail handler.
func (r *Repo) IncrementView(ctx context.Context, bookID int64) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE books SET view_count = view_count + 1 WHERE id = ?
	`, bookID)
	if err != nil {
		return fmt.Errorf("increment view: %w", err)
	}
	return nil
}

// Chapters lists chapter headings (no content) for one book, paginated.
func (r *Repo) Chapters(ctx context.Context, bookID int64, limit, offset int) ([]models.Chapter, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chapters WHERE book_id = ?
	`, bookID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count chapters: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, book_id, idx, title
		FROM chapters
		WHERE book_id = ?
		ORDER BY idx ASC
		LIMIT ? OFFSET ?
	`, bookID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	out := make([]models.Chapter, 0, limit)
	for rows.Next() {
		var ch models.Chapter
		if err := rows.Scan(&ch.ID, &ch.BookID, &ch.Idx, &ch.Title); err != nil {
			return nil, 0, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// Chapter loads one chapter with content. Returns (nil, nil) when missing.
func (r *Repo) Chapter(ctx context.Context, bookID, idx int64) (*models.Chapter, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, book_id, idx, title, content
		FROM chapters
		WHERE book_id = ? AND idx = ?
	`, bookID, idx)

	var (
		ch      models.Chapter
		content sql.NullString
	)
	if err := row.Scan(&ch.ID, &ch.BookID, &ch.Idx, &ch.Title, &content); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	ch.Content = content.String
	return &ch, nil
}

func scanBook(rows *sql.Rows) (models.Book, error) {
	var (
		b        models.Book
		authorID sql.NullInt64
		aName    sql.NullString
		cover    sql.NullString
	)
	err := rows.Scan(
		&b.ID, &b.Name, &b.Slug, &b.Status, &b.Source, &authorID, &aName,
		&b.ViewCount, &b.BookmarkCount, &b.CommentCount, &b.VoteCount,
		&b.ReviewScore, &b.ReviewCount, &b.ChapterCount, &b.WordCount,
		&cover, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return b, fmt.Errorf("scan book: %w", err)
	}
	if authorID.Valid {
		id := authorID.Int64
		b.AuthorID = &id
	}
	b.AuthorName = aName.String
	b.CoverURL = cover.String
	return b, nil
}
