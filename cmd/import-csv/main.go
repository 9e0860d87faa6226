// import-csv restores a catalog and per-user bookmarks from the CSV files
// export-csv produces. Books are matched by slug, authors by name, so the
// import is safe to run repeatedly.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"tusach/pkg/config"
	"tusach/pkg/database"
	"tusach/pkg/slug"
)

func main() {
	var (
		booksIn     = flag.String("books", "data/books.csv", "input CSV path for books")
		bookmarksIn = flag.String("bookmarks", "data/bookmarks.csv", "input CSV path for bookmarks")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.MustLoad()
	db := database.MustOpen(cfg.DBPath)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importBooks(ctx, db, *booksIn); err != nil {
		log.Fatalf("import books failed: %v", err)
	}
	if err := importBookmarks(ctx, db, *bookmarksIn); err != nil {
		log.Fatalf("import bookmarks failed: %v", err)
	}

	log.Printf("imported books from %s and bookmarks from %s", *booksIn, *bookmarksIn)
}

func importBooks(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		name := valueAt(header, row, "name")
		bookSlug := valueAt(header, row, "slug")
		if name == "" {
			continue
		}
		if bookSlug == "" {
			bookSlug = slug.From(name)
		}

		if err := importBook(ctx, tx, header, row, name, bookSlug); err != nil {
			return fmt.Errorf("import %s: %w", bookSlug, err)
		}
	}

	return tx.Commit()
}

func importBook(ctx context.Context, tx *sql.Tx, header map[string]int, row []string, name, bookSlug string) error {
	authorID, err := upsertAuthor(ctx, tx,
		valueAt(header, row, "author"),
		valueAt(header, row, "author_local"))
	if err != nil {
		return err
	}

	status, err := parseNullInt(valueAt(header, row, "status"))
	if err != nil {
		return fmt.Errorf("parse status: %w", err)
	}

	counters := make(map[string]sql.NullInt64, 6)
	for _, col := range []string{"chapter_count", "word_count", "view_count", "bookmark_count", "comment_count", "vote_count"} {
		n, err := parseNullInt(valueAt(header, row, col))
		if err != nil {
			return fmt.Errorf("parse %s: %w", col, err)
		}
		counters[col] = n
	}

	var bookID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO books (name, slug, synopsis, status, source, author_id,
		                   chapter_count, word_count, view_count,
		                   bookmark_count, comment_count, vote_count, cover_url)
		VALUES (?, ?, ?, COALESCE(?, 0), ?, ?, COALESCE(?, 0), COALESCE(?, 0),
		        COALESCE(?, 0), COALESCE(?, 0), COALESCE(?, 0), COALESCE(?, 0), ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			synopsis = COALESCE(excluded.synopsis, synopsis),
			status = excluded.status,
			source = excluded.source,
			author_id = COALESCE(excluded.author_id, author_id),
			chapter_count = excluded.chapter_count,
			word_count = excluded.word_count,
			view_count = excluded.view_count,
			bookmark_count = excluded.bookmark_count,
			comment_count = excluded.comment_count,
			vote_count = excluded.vote_count,
			cover_url = COALESCE(excluded.cover_url, cover_url),
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`,
		name, bookSlug,
		nullString(valueAt(header, row, "synopsis")),
		status,
		valueAt(header, row, "source"),
		authorID,
		counters["chapter_count"], counters["word_count"], counters["view_count"],
		counters["bookmark_count"], counters["comment_count"], counters["vote_count"],
		nullString(valueAt(header, row, "cover_url")),
	).Scan(&bookID)
	if err != nil {
		return fmt.Errorf("upsert book: %w", err)
	}

	if err := linkGenres(ctx, tx, bookID, splitList(valueAt(header, row, "genres"))); err != nil {
		return err
	}
	return linkTags(ctx, tx, bookID, splitList(valueAt(header, row, "tags")))
}

func upsertAuthor(ctx context.Context, tx *sql.Tx, name, localName string) (sql.NullInt64, error) {
	if name == "" {
		return sql.NullInt64{}, nil
	}
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO authors (name, local_name) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			local_name = COALESCE(excluded.local_name, local_name)
		RETURNING id
	`, name, nullString(localName)).Scan(&id)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("upsert author %q: %w", name, err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func linkGenres(ctx context.Context, tx *sql.Tx, bookID int64, names []string) error {
	for _, name := range names {
		var genreID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO genres (name, slug) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET name = excluded.name
			RETURNING id
		`, name, slug.From(name)).Scan(&genreID)
		if err != nil {
			return fmt.Errorf("upsert genre %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO books_genres (book_id, genre_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, bookID, genreID); err != nil {
			return fmt.Errorf("link genre %q: %w", name, err)
		}
	}
	return nil
}

func linkTags(ctx context.Context, tx *sql.Tx, bookID int64, names []string) error {
	for _, name := range names {
		var tagID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tags (name) VALUES (?)
			ON CONFLICT(name) DO UPDATE SET name = excluded.name
			RETURNING id
		`, name).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO books_tags (book_id, tag_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, bookID, tagID); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

func importBookmarks(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	// Rows for books or users the database does not know are skipped rather
	// than aborting the whole import.
	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO bookmarks (user_id, book_id, chapter, shelf, updated_at)
		SELECT u.id, b.id, ?, ?, COALESCE(?, CURRENT_TIMESTAMP)
		FROM users u, books b
		WHERE u.id = ? AND b.slug = ?
		ON CONFLICT(user_id, book_id) DO UPDATE SET
			chapter = excluded.chapter,
			shelf = excluded.shelf,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	skipped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		userID := valueAt(header, row, "user_id")
		bookSlug := valueAt(header, row, "book_slug")
		if userID == "" || bookSlug == "" {
			continue
		}

		chapter, err := parseNullInt(valueAt(header, row, "chapter"))
		if err != nil {
			return fmt.Errorf("parse chapter for %s/%s: %w", userID, bookSlug, err)
		}
		updatedAt, err := parseTime(valueAt(header, row, "updated_at"))
		if err != nil {
			return fmt.Errorf("parse updated_at for %s/%s: %w", userID, bookSlug, err)
		}

		shelf := valueAt(header, row, "shelf")
		if shelf == "" {
			shelf = "reading"
		}

		res, err := stmt.ExecContext(ctx, chapter, shelf, updatedAt, userID, bookSlug)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			skipped++
		}
	}

	if skipped > 0 {
		log.Printf("skipped %d bookmark rows with unknown user or book", skipped)
	}
	return nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseNullInt(raw string) (sql.NullInt64, error) {
	if raw == "" {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func parseTime(raw string) (sql.NullTime, error) {
	if raw == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
