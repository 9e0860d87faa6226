// Package searchindex owns the full-text mirror of book names.
//
// The mirror is an FTS5 virtual table (books_fts) with external content
// rowid-joined to books, kept in sync by three triggers on the books table.
// Nothing else in the repository may create, drop, or write the mirror
// directly; book mutations reach it only through the triggers, inside the
// mutating transaction.
//
// Ensure validates the stored mirror definition at startup and rebuilds the
// mirror when it is missing or stale. Callers decide what a failure means:
// the API server logs and keeps serving (search may degrade until an
// operator runs the migrate command), the migrate command treats it as
// fatal.
package searchindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Table is the name of the FTS5 mirror over books.name.
const Table = "books_fts"

// Trigger names on the books table, in sqlite_master.
const (
	insertTrigger = "books_ai"
	deleteTrigger = "books_ad"
	updateTrigger = "books_au"
)

// createMirrorSQL declares the mirror schema. remove_diacritics 0 keeps
// accented characters distinct: "Quỷ" must not match bare "quy". The
// unicode61 default (remove_diacritics 1) folds them together, which is why
// a mirror created without the explicit option is treated as stale.
const createMirrorSQL = `
CREATE VIRTUAL TABLE books_fts USING fts5(
	name,
	content='books',
	content_rowid='id',
	tokenize='unicode61 remove_diacritics 0'
)`

// Updates are written as delete-then-insert: FTS5 external-content tables
// have no REPLACE, and the pair stays correct no matter which book columns
// the UPDATE actually touched.
var createTriggerSQL = []string{
	`CREATE TRIGGER books_ai AFTER INSERT ON books BEGIN
		INSERT INTO books_fts(rowid, name) VALUES (new.id, new.name);
	END`,
	`CREATE TRIGGER books_ad AFTER DELETE ON books BEGIN
		INSERT INTO books_fts(books_fts, rowid, name) VALUES ('delete', old.id, old.name);
	END`,
	`CREATE TRIGGER books_au AFTER UPDATE ON books BEGIN
		INSERT INTO books_fts(books_fts, rowid, name) VALUES ('delete', old.id, old.name);
		INSERT INTO books_fts(rowid, name) VALUES (new.id, new.name);
	END`,
}

// Result reports what Ensure found and did.
type Result struct {
	// BooksTableMissing is set when the books table does not exist yet
	// (pre-migration database). Ensure does nothing in that state.
	BooksTableMissing bool

	// Rebuilt is set when the mirror was missing or stale and has been
	// rebuilt. A second Ensure on a healthy database reports false.
	Rebuilt bool
}

// Ensure validates the mirror and rebuilds it if needed. Idempotent; call
// once at startup before serving search traffic. It is not safe to run
// concurrently with itself or with live search queries.
func Ensure(ctx context.Context, db *sql.DB) (Result, error) {
	booksExists, err := tableExists(ctx, db, "books")
	if err != nil {
		return Result{}, fmt.Errorf("inspect schema: %w", err)
	}
	if !booksExists {
		return Result{BooksTableMissing: true}, nil
	}

	ddl, err := tableDDL(ctx, db, Table)
	if err != nil {
		return Result{}, fmt.Errorf("inspect mirror: %w", err)
	}
	if mirrorCurrent(ddl) {
		return Result{}, nil
	}

	if err := Rebuild(ctx, db); err != nil {
		return Result{}, err
	}
	return Result{Rebuilt: true}, nil
}

// mirrorCurrent reports whether the stored CREATE VIRTUAL TABLE text
// matches the current mirror contract: the diacritic-preserving tokenizer,
// and no leftover synopsis column from the abandoned synopsis-search
// experiment.
func mirrorCurrent(ddl string) bool {
	if ddl == "" {
		return false
	}
	if !strings.Contains(ddl, "remove_diacritics 0") {
		return false
	}
	if strings.Contains(strings.ToLower(ddl), "synopsis") {
		return false
	}
	return true
}

// Rebuild drops and recreates the mirror and its triggers, then repopulates
// it from every current book row, all in one transaction. Exposed for the
// migrate command's forced-repair flag; Ensure calls it when validation
// fails.
func Rebuild(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DROP TRIGGER IF EXISTS ` + insertTrigger,
		`DROP TRIGGER IF EXISTS ` + deleteTrigger,
		`DROP TRIGGER IF EXISTS ` + updateTrigger,
		`DROP TABLE IF EXISTS ` + Table,
		createMirrorSQL,
		`INSERT INTO books_fts(rowid, name) SELECT id, name FROM books`,
	}
	stmts = append(stmts, createTriggerSQL...)

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild mirror: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	return nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = ?
	`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// tableDDL returns the stored CREATE statement for a table, or "" when the
// table does not exist.
func tableDDL(ctx context.Context, db *sql.DB, name string) (string, error) {
	var ddl sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT sql FROM sqlite_master
		WHERE type = 'table' AND name = ?
	`, name).Scan(&ddl)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ddl.String, nil
}
