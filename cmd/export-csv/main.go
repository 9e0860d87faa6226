// export-csv dumps the catalog and per-user bookmarks to CSV for backup.
// The files round-trip through import-csv.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tusach/pkg/config"
	"tusach/pkg/database"
)

func main() {
	var (
		booksOut     = flag.String("books", "data/books.csv", "output CSV path for books")
		bookmarksOut = flag.String("bookmarks", "data/bookmarks.csv", "output CSV path for bookmarks")
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

	if err := exportBooks(ctx, db, *booksOut); err != nil {
		log.Fatalf("export books failed: %v", err)
	}
	if err := exportBookmarks(ctx, db, *bookmarksOut); err != nil {
		log.Fatalf("export bookmarks failed: %v", err)
	}

	log.Printf("exported books to %s and bookmarks to %s", *booksOut, *bookmarksOut)
}

func exportBooks(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"name", "slug", "author", "author_local", "synopsis", "status", "source",
		"genres", "tags", "chapter_count", "word_count", "view_count",
		"bookmark_count", "comment_count", "vote_count", "cover_url",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT b.name, b.slug, a.name, a.local_name, b.synopsis, b.status, b.source,
		       (SELECT GROUP_CONCAT(g.name, '|') FROM genres g
		        JOIN books_genres bg ON bg.genre_id = g.id WHERE bg.book_id = b.id),
		       (SELECT GROUP_CONCAT(t.name, '|') FROM tags t
		        JOIN books_tags bt ON bt.tag_id = t.id WHERE bt.book_id = b.id),
		       b.chapter_count, b.word_count, b.view_count,
		       b.bookmark_count, b.comment_count, b.vote_count, b.cover_url
		FROM books b
		LEFT JOIN authors a ON a.id = b.author_id
		ORDER BY b.slug
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, slug, source string
		var status int
		var author, authorLocal, synopsis, genres, tags, cover sql.NullString
		var chapters, words, views, bookmarkN, comments, votes int64
		if err := rows.Scan(&name, &slug, &author, &authorLocal, &synopsis, &status, &source,
			&genres, &tags, &chapters, &words, &views, &bookmarkN, &comments, &votes, &cover); err != nil {
			return err
		}

		if err := w.Write([]string{
			name, slug, author.String, authorLocal.String, synopsis.String,
			strconv.Itoa(status), source, genres.String, tags.String,
			strconv.FormatInt(chapters, 10), strconv.FormatInt(words, 10),
			strconv.FormatInt(views, 10), strconv.FormatInt(bookmarkN, 10),
			strconv.FormatInt(comments, 10), strconv.FormatInt(votes, 10),
			cover.String,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportBookmarks(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"user_id", "book_slug", "chapter", "shelf", "updated_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT bm.user_id, b.slug, bm.chapter, bm.shelf, bm.updated_at
		FROM bookmarks bm
		JOIN books b ON b.id = bm.book_id
		ORDER BY bm.updated_at DESC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var userID, slug, shelf string
		var chapter int64
		var updatedAt time.Time
		if err := rows.Scan(&userID, &slug, &chapter, &shelf, &updatedAt); err != nil {
			return err
		}
		if err := w.Write([]string{
			userID, slug, strconv.FormatInt(chapter, 10), shelf,
			updatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
