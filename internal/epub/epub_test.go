package epub

import (
	"archive/zip"
	"context"
	"database/sql"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusach/pkg/database"
	"tusach/pkg/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func seedBookWithChapters(t *testing.T, db *sql.DB) *models.BookDetail {
	t.Helper()
	res, err := db.Exec(`
		INSERT INTO books (name, slug, chapter_count) VALUES ('Tiên Nghịch', 'tien-nghich', 2)
	`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	for idx, content := range map[int64]string{1: "Dòng đầu.\n\nDòng hai.", 2: "Chương hai."} {
		_, err := db.Exec(`
			INSERT INTO chapters (book_id, idx, title, content) VALUES (?, ?, ?, ?)
		`, id, idx, "Chương", content)
		require.NoError(t, err)
	}

	detail := &models.BookDetail{}
	detail.ID = id
	detail.Name = "Tiên Nghịch"
	detail.Slug = "tien-nghich"
	detail.ChapterCount = 2
	return detail
}

func TestBuild_ZipLayout(t *testing.T) {
	db := newTestDB(t)
	book := seedBookWithChapters(t, db)
	builder := NewBuilder(db, t.TempDir())

	path, err := builder.Build(context.Background(), book)
	require.NoError(t, err)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	require.NotEmpty(t, zr.File)

	// OCF: mimetype first, stored uncompressed, exact content.
	first := zr.File[0]
	assert.Equal(t, "mimetype", first.Name)
	assert.Equal(t, zip.Store, first.Method)
	rc, err := first.Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "application/epub+zip", string(content))

	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{
		"META-INF/container.xml",
		"OEBPS/content.opf",
		"OEBPS/toc.ncx",
		"OEBPS/chapter-0001.xhtml",
		"OEBPS/chapter-0002.xhtml",
	} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestBuild_CachesUntilChapterCountChanges(t *testing.T) {
	db := newTestDB(t)
	book := seedBookWithChapters(t, db)
	builder := NewBuilder(db, t.TempDir())
	ctx := context.Background()

	path, err := builder.Build(ctx, book)
	require.NoError(t, err)
	firstInfo, err := os.Stat(path)
	require.NoError(t, err)

	// Same chapter count: artifact untouched.
	_, err = builder.Build(ctx, book)
	require.NoError(t, err)
	secondInfo, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, firstInfo.ModTime(), secondInfo.ModTime())

	// New chapter invalidates the cache.
	_, err = db.Exec(`
		INSERT INTO chapters (book_id, idx, title, content) VALUES (?, 3, 'Chương 3', 'mới')
	`, book.ID)
	require.NoError(t, err)
	book.ChapterCount = 3

	path, err = builder.Build(ctx, book)
	require.NoError(t, err)
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	found := false
	for _, f := range zr.File {
		if f.Name == "OEBPS/chapter-0003.xhtml" {
			found = true
		}
	}
	assert.True(t, found, "rebuilt artifact contains the new chapter")
}

func TestBuild_NoContentFails(t *testing.T) {
	db := newTestDB(t)
	res, err := db.Exec(`INSERT INTO books (name, slug) VALUES ('Empty', 'empty')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	builder := NewBuilder(db, t.TempDir())
	detail := &models.BookDetail{}
	detail.ID = id
	detail.Slug = "empty"

	_, err = builder.Build(context.Background(), detail)
	assert.Error(t, err)
}
