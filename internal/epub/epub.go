// Package epub builds EPUB 2 artifacts from stored chapters on demand.
//
// Generation is guarded by a file lock so the API server and operator runs
// never write the same artifact concurrently, and by an expirable cache so a
// book that has not grown since the last build is served from disk.
package epub

import (
	"archive/zip"
	"context"
	"database/sql"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"tusach/pkg/models"
)

// Builder renders and caches one artifact per book slug.
type Builder struct {
	DB  *sql.DB
	Dir string

	// built remembers the chapter count an artifact was generated at; a
	// matching count means the file on disk is still current.
	built *expirable.LRU[string, int64]
}

func NewBuilder(db *sql.DB, dir string) *Builder {
	return &Builder{
		DB:    db,
		Dir:   dir,
		built: expirable.NewLRU[string, int64](256, nil, time.Hour),
	}
}

// Build returns the path of a current EPUB for the book, generating it if
// the cached artifact is missing or stale.
func (b *Builder) Build(ctx context.Context, book *models.BookDetail) (string, error) {
	path := filepath.Join(b.Dir, book.Slug+".epub")

	if count, ok := b.built.Get(book.Slug); ok && count == book.ChapterCount {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure artifact dir: %w", err)
	}

	// One process generates at a time; the rest block and then find a fresh
	// artifact under the lock.
	lock := flock.New(filepath.Join(b.Dir, book.Slug+".lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("acquire epub lock: %w", err)
	}
	defer lock.Unlock()

	if count, ok := b.built.Get(book.Slug); ok && count == book.ChapterCount {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	chapters, err := b.loadChapters(ctx, book.ID)
	if err != nil {
		return "", err
	}
	if len(chapters) == 0 {
		return "", fmt.Errorf("book %q has no chapter content", book.Slug)
	}

	if err := writeEpub(path, book, chapters); err != nil {
		return "", err
	}

	b.built.Add(book.Slug, book.ChapterCount)
	return path, nil
}

func (b *Builder) loadChapters(ctx context.Context, bookID int64) ([]models.Chapter, error) {
	rows, err := b.DB.QueryContext(ctx, `
		SELECT idx, title, content
		FROM chapters
		WHERE book_id = ? AND content IS NOT NULL
		ORDER BY idx ASC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("load chapters: %w", err)
	}
	defer rows.Close()

	var out []models.Chapter
	for rows.Next() {
		var ch models.Chapter
		if err := rows.Scan(&ch.Idx, &ch.Title, &ch.Content); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// writeEpub lays out the EPUB 2 container: the mimetype entry must come
// first and be stored uncompressed, per the OCF spec.
func writeEpub(path string, book *models.BookDetail, chapters []models.Chapter) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer os.Remove(tmp)

	zw := zip.NewWriter(f)

	mimetype, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return closeAll(zw, f, err)
	}
	if _, err := mimetype.Write([]byte("application/epub+zip")); err != nil {
		return closeAll(zw, f, err)
	}

	files := []struct {
		name string
		body string
	}{
		{"META-INF/container.xml", containerXML},
		{"OEBPS/content.opf", opfXML(book, chapters)},
		{"OEBPS/toc.ncx", ncxXML(book, chapters)},
	}
	for _, ch := range chapters {
		files = append(files, struct{ name, body string }{
			chapterFile(ch.Idx), chapterXHTML(ch),
		})
	}

	for _, file := range files {
		w, err := zw.Create(file.name)
		if err != nil {
			return closeAll(zw, f, err)
		}
		if _, err := w.Write([]byte(file.body)); err != nil {
			return closeAll(zw, f, err)
		}
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finish artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return os.Rename(tmp, path)
}

func closeAll(zw *zip.Writer, f *os.File, err error) error {
	_ = zw.Close()
	_ = f.Close()
	return fmt.Errorf("write artifact: %w", err)
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

func chapterFile(idx int64) string {
	return fmt.Sprintf("OEBPS/chapter-%04d.xhtml", idx)
}

func opfXML(book *models.BookDetail, chapters []models.Chapter) string {
	var manifest, spine strings.Builder
	for _, ch := range chapters {
		id := fmt.Sprintf("chapter-%04d", ch.Idx)
		fmt.Fprintf(&manifest,
			`    <item id="%s" href="chapter-%04d.xhtml" media-type="application/xhtml+xml"/>`+"\n",
			id, ch.Idx)
		fmt.Fprintf(&spine, `    <itemref idref="%s"/>`+"\n", id)
	}

	author := ""
	if book.Author != nil {
		author = book.Author.Name
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    <dc:language>vi</dc:language>
    <dc:identifier id="bookid">tusach:%s</dc:identifier>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
%s  </manifest>
  <spine toc="ncx">
%s  </spine>
</package>
`, html.EscapeString(book.Name), html.EscapeString(author), book.Slug, manifest.String(), spine.String())
}

func ncxXML(book *models.BookDetail, chapters []models.Chapter) string {
	var points strings.Builder
	for i, ch := range chapters {
		fmt.Fprintf(&points, `    <navPoint id="nav-%04d" playOrder="%d">
      <navLabel><text>%s</text></navLabel>
      <content src="chapter-%04d.xhtml"/>
    </navPoint>
`, ch.Idx, i+1, html.EscapeString(ch.Title), ch.Idx)
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
    <meta name="dtb:uid" content="tusach:%s"/>
  </head>
  <docTitle><text>%s</text></docTitle>
  <navMap>
%s  </navMap>
</ncx>
`, book.Slug, html.EscapeString(book.Name), points.String())
}

func chapterXHTML(ch models.Chapter) string {
	var body strings.Builder
	for _, para := range strings.Split(ch.Content, "\n") {
		if para = strings.TrimSpace(para); para != "" {
			body.WriteString("    <p>" + html.EscapeString(para) + "</p>\n")
		}
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
  <head><title>%s</title></head>
  <body>
    <h2>%s</h2>
%s  </body>
</html>
`, html.EscapeString(ch.Title), html.EscapeString(ch.Title), body.String())
}
