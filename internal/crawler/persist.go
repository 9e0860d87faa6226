package crawler

import (
	"context"
	"database/sql"
	"fmt"

	"tusach/pkg/models"
	"tusach/pkg/slug"
)

// ChapterUpdate reports a book whose chapter count grew during Persist, so
// the caller can push new-chapter notifications.
type ChapterUpdate struct {
	BookID   int64
	Slug     string
	Chapters int64
}

// Persist upserts the canonical entries into the catalog in one transaction.
// Books key on their slug; authors, genres, and tags are get-or-created. The
// search mirror is never written here: renames flow through the triggers
// inside this same transaction.
func Persist(ctx context.Context, db *sql.DB, entries []models.BookCanonical) ([]ChapterUpdate, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin persist: %w", err)
	}
	defer tx.Rollback()

	var updates []ChapterUpdate
	for _, entry := range entries {
		update, err := persistOne(ctx, tx, entry)
		if err != nil {
			return nil, fmt.Errorf("persist %q: %w", entry.Name, err)
		}
		if update != nil {
			updates = append(updates, *update)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit persist: %w", err)
	}
	return updates, nil
}

func persistOne(ctx context.Context, tx *sql.Tx, entry models.BookCanonical) (*ChapterUpdate, error) {
	bookSlug := slug.From(entry.Name)
	if bookSlug == "" {
		return nil, nil
	}

	var authorID sql.NullInt64
	if entry.Author != "" {
		id, err := getOrCreateAuthor(ctx, tx, entry.Author, entry.AuthorLocal)
		if err != nil {
			return nil, err
		}
		authorID = sql.NullInt64{Int64: id, Valid: true}
	}

	// Chapter growth is judged against the stored count before the upsert.
	var prevChapters int64
	err := tx.QueryRowContext(ctx, `
		SELECT chapter_count FROM books WHERE slug = ?
	`, bookSlug).Scan(&prevChapters)
	existed := err != sql.ErrNoRows
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("read chapter count: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO books (name, slug, synopsis, status, source, author_id,
		                   view_count, bookmark_count, comment_count, vote_count,
		                   review_score, review_count, chapter_count, word_count, cover_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			synopsis = excluded.synopsis,
			status = excluded.status,
			source = excluded.source,
			author_id = COALESCE(excluded.author_id, books.author_id),
			view_count = MAX(excluded.view_count, books.view_count),
			bookmark_count = MAX(excluded.bookmark_count, books.bookmark_count),
			comment_count = MAX(excluded.comment_count, books.comment_count),
			vote_count = MAX(excluded.vote_count, books.vote_count),
			chapter_count = MAX(excluded.chapter_count, books.chapter_count),
			word_count = MAX(excluded.word_count, books.word_count),
			cover_url = COALESCE(NULLIF(excluded.cover_url, ''), books.cover_url),
			updated_at = CURRENT_TIMESTAMP
	`, entry.Name, bookSlug, entry.Synopsis, int(entry.Status), entry.Source, authorID,
		entry.ViewCount, entry.BookmarkCount, entry.CommentCount, entry.VoteCount,
		entry.ReviewScore, entry.ReviewCount, entry.ChapterCount, entry.WordCount, entry.CoverURL)
	if err != nil {
		return nil, fmt.Errorf("upsert book: %w", err)
	}

	var bookID int64
	if err := tx.QueryRowContext(ctx, `
		SELECT id FROM books WHERE slug = ?
	`, bookSlug).Scan(&bookID); err != nil {
		return nil, fmt.Errorf("resolve book id: %w", err)
	}

	if err := linkGenres(ctx, tx, bookID, entry.Genres); err != nil {
		return nil, err
	}
	if err := linkTags(ctx, tx, bookID, entry.Tags); err != nil {
		return nil, err
	}
	if err := upsertChapters(ctx, tx, bookID, entry.Chapters); err != nil {
		return nil, err
	}

	if existed && entry.ChapterCount > prevChapters {
		return &ChapterUpdate{BookID: bookID, Slug: bookSlug, Chapters: entry.ChapterCount}, nil
	}
	return nil, nil
}

func getOrCreateAuthor(ctx context.Context, tx *sql.Tx, name, local string) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO authors (name, local_name) VALUES (?, NULLIF(?, ''))
		ON CONFLICT(name) DO UPDATE SET
			local_name = COALESCE(authors.local_name, NULLIF(excluded.local_name, ''))
	`, name, local)
	if err != nil {
		return 0, fmt.Errorf("upsert author: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `
		SELECT id FROM authors WHERE name = ?
	`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve author id: %w", err)
	}
	return id, nil
}

func linkGenres(ctx context.Context, tx *sql.Tx, bookID int64, names []string) error {
	for _, name := range names {
		genreSlug := slug.From(name)
		if genreSlug == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO genres (name, slug) VALUES (?, ?)
			ON CONFLICT(slug) DO NOTHING
		`, name, genreSlug)
		if err != nil {
			return fmt.Errorf("upsert genre %q: %w", name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO books_genres (book_id, genre_id)
			SELECT ?, id FROM genres WHERE slug = ?
			ON CONFLICT DO NOTHING
		`, bookID, genreSlug)
		if err != nil {
			return fmt.Errorf("link genre %q: %w", name, err)
		}
	}
	return nil
}

func linkTags(ctx context.Context, tx *sql.Tx, bookID int64, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tags (name) VALUES (?)
			ON CONFLICT(name) DO NOTHING
		`, name)
		if err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO books_tags (book_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?
			ON CONFLICT DO NOTHING
		`, bookID, name)
		if err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

func upsertChapters(ctx context.Context, tx *sql.Tx, bookID int64, chapters []models.ChapterDraft) error {
	if len(chapters) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chapters (book_id, idx, title, content)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(book_id, idx) DO UPDATE SET
			title = excluded.title,
			content = COALESCE(excluded.content, chapters.content)
	`)
	if err != nil {
		return fmt.Errorf("prepare chapter upsert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chapters {
		var content any
		if ch.Content != "" {
			content = ch.Content
		}
		if _, err := stmt.ExecContext(ctx, bookID, ch.Idx, ch.Title, content); err != nil {
			return fmt.Errorf("upsert chapter %d: %w", ch.Idx, err)
		}
	}
	return nil
}
