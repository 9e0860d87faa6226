// export-mirror dumps the catalog into the mirror JSON shape that
// cmd/mirror-server serves and the thuquan crawler source consumes. Useful
// for seeding a second instance from an existing library.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"tusach/pkg/config"
	"tusach/pkg/database"
	"tusach/pkg/models"
)

type mirrorChapter struct {
	Idx     int64  `json:"idx"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type mirrorBook struct {
	Name        string          `json:"name"`
	AltNames    []string        `json:"alt_names"`
	Author      string          `json:"author"`
	AuthorLocal string          `json:"author_local"`
	Summary     string          `json:"summary"`
	State       string          `json:"state"`
	Genres      []string        `json:"genres"`
	Tags        []string        `json:"tags"`
	WordCount   int64           `json:"word_count"`
	CoverURL    string          `json:"cover_url"`
	Chapters    []mirrorChapter `json:"chapters"`
}

func main() {
	var (
		outPath = flag.String("out", "data/mirror.json", "output JSON path")
		limit   = flag.Int("limit", 200, "how many books to export")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := config.MustLoad()
	db := database.MustOpen(cfg.DBPath)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	out, err := export(ctx, db, *limit)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("mkdir failed: %v", err)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		log.Fatalf("write failed: %v", err)
	}

	log.Printf("exported %d books to %s", len(out), *outPath)
}

func export(ctx context.Context, db *sql.DB, limit int) ([]mirrorBook, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT b.id, b.name, a.name, a.local_name, b.synopsis, b.status,
		       b.word_count, b.cover_url
		FROM books b
		LEFT JOIN authors a ON a.id = b.author_id
		ORDER BY b.name
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []mirrorBook
	var ids []int64
	for rows.Next() {
		var id int64
		var name string
		var author, authorLocal, synopsis, cover sql.NullString
		var status int
		var wordCount int64
		if err := rows.Scan(&id, &name, &author, &authorLocal, &synopsis, &status, &wordCount, &cover); err != nil {
			return nil, err
		}

		out = append(out, mirrorBook{
			Name:        name,
			AltNames:    []string{},
			Author:      author.String,
			AuthorLocal: authorLocal.String,
			Summary:     synopsis.String,
			State:       models.Status(status).String(),
			WordCount:   wordCount,
			CoverURL:    cover.String,
			Chapters:    []mirrorChapter{},
		})
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		if out[i].Genres, err = names(ctx, db, `
			SELECT g.name FROM genres g
			JOIN books_genres bg ON bg.genre_id = g.id
			WHERE bg.book_id = ? ORDER BY g.name
		`, id); err != nil {
			return nil, err
		}
		if out[i].Tags, err = names(ctx, db, `
			SELECT t.name FROM tags t
			JOIN books_tags bt ON bt.tag_id = t.id
			WHERE bt.book_id = ? ORDER BY t.name
		`, id); err != nil {
			return nil, err
		}
		if out[i].Chapters, err = chapters(ctx, db, id); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func names(ctx context.Context, db *sql.DB, query string, bookID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func chapters(ctx context.Context, db *sql.DB, bookID int64) ([]mirrorChapter, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT idx, title, COALESCE(content, '')
		FROM chapters
		WHERE book_id = ?
		ORDER BY idx
	`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []mirrorChapter{}
	for rows.Next() {
		var ch mirrorChapter
		if err := rows.Scan(&ch.Idx, &ch.Title, &ch.Content); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
