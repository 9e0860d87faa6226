package search

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

// BookHit is one book-scope search result.
type BookHit struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	CoverURL string `json:"cover_url,omitempty"`
}

// SearchBooks matches the sanitized form of q against the name mirror and
// joins back to books for display fields. An input that sanitizes to nothing
// returns an empty slice without touching the store. Ordering is the
// mirror's natural match order; ties carry no stability guarantee.
func (r *Repo) SearchBooks(ctx context.Context, q string, limit, offset int) ([]BookHit, error) {
	match := Sanitize(q)
	if match == "" {
		return []BookHit{}, nil
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT b.id, b.name, b.slug, b.cover_url
		FROM books_fts
		JOIN books b ON b.id = books_fts.rowid
		WHERE books_fts MATCH ?
		LIMIT ? OFFSET ?
	`, match, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("book search query: %w", err)
	}
	defer rows.Close()

	out := make([]BookHit, 0, limit)
	for rows.Next() {
		var (
			hit   BookHit
			cover sql.NullString
		)
		if err := rows.Scan(&hit.ID, &hit.Name, &hit.Slug, &cover); err != nil {
			return nil, fmt.Errorf("scan book hit: %w", err)
		}
		hit.CoverURL = cover.String
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// SearchAuthors is a case-insensitive substring match on author names. The
// mirror and the sanitizer play no part here; errors on this path are
// isolated from book search by the handler.
func (r *Repo) SearchAuthors(ctx context.Context, q string, limit int) ([]models.Author, error) {
	kw := "%" + escapeLike(strings.ToLower(strings.TrimSpace(q))) + "%"

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, local_name
		FROM authors
		WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(local_name) LIKE ? ESCAPE '\'
		ORDER BY name ASC
		LIMIT ?
	`, kw, kw, limit)
	if err != nil {
		return nil, fmt.Errorf("author search query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Author, 0, limit)
	for rows.Next() {
		var (
			a     models.Author
			local sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &local); err != nil {
			return nil, fmt.Errorf("scan author hit: %w", err)
		}
		a.LocalName = local.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%', '_':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}
