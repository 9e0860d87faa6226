// Package crawler ingests upstream book collections into the catalog.
//
// Each source maps its own wire format into models.BookCanonical; the
// aggregator fetches every source concurrently, merges entries that describe
// the same book, and Persist writes the result transactionally. Book name
// changes reach the search mirror through its triggers, never directly.
package crawler

import (
	"context"
	"log"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"tusach/pkg/models"
)

// Source is implemented by each upstream collection.
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]models.BookCanonical, error)
}

type Aggregator struct {
	Sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{Sources: sources}
}

// FetchAndMerge pulls every source in parallel and folds the results into one
// canonical set. A failing source is logged and skipped; one broken upstream
// must not block ingestion of the others.
func (a *Aggregator) FetchAndMerge(ctx context.Context) ([]models.BookCanonical, error) {
	var (
		mu      sync.Mutex
		fetched = make([][]models.BookCanonical, len(a.Sources))
	)

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range a.Sources {
		g.Go(func() error {
			log.Printf("[crawler] fetching from %s", src.Name())
			books, err := src.FetchAll(ctx)
			if err != nil {
				log.Printf("[crawler] source %s error: %v", src.Name(), err)
				return nil
			}
			mu.Lock()
			fetched[i] = books
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in declaration order so conflict resolution is deterministic
	// regardless of which fetch finished first.
	byKey := make(map[string]models.BookCanonical)
	var order []string
	for _, books := range fetched {
		for _, b := range books {
			key := normalizeKey(b.Name)
			if key == "" {
				continue
			}
			if existing, ok := byKey[key]; ok {
				byKey[key] = merge(existing, b)
			} else {
				byKey[key] = b
				order = append(order, key)
			}
		}
	}

	result := make([]models.BookCanonical, 0, len(order))
	for _, key := range order {
		result = append(result, byKey[key])
	}
	return result, nil
}

// normalizeKey groups entries that describe the same book across sources:
// lowercase, letters and digits only, single-space separated. Diacritics are
// kept; two titles differing only in accents are different books.
func normalizeKey(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// merge resolves two descriptions of the same book:
//
//   - the incoming name becomes an alt name when it differs,
//   - the longer synopsis wins,
//   - completed beats every other status,
//   - chapter/word and popularity counters take the maximum,
//   - genres and tags are unioned,
//   - empty fields fill from the incoming side,
//   - whichever side carries chapter content keeps it.
func merge(base, incoming models.BookCanonical) models.BookCanonical {
	if incoming.Name != "" && incoming.Name != base.Name {
		base.AltNames = appendIfMissing(base.AltNames, incoming.Name)
	}
	for _, alt := range incoming.AltNames {
		if alt != base.Name {
			base.AltNames = appendIfMissing(base.AltNames, alt)
		}
	}

	if base.Author == "" {
		base.Author = incoming.Author
	}
	if base.AuthorLocal == "" {
		base.AuthorLocal = incoming.AuthorLocal
	}
	if len(incoming.Synopsis) > len(base.Synopsis) {
		base.Synopsis = incoming.Synopsis
	}
	if base.CoverURL == "" {
		base.CoverURL = incoming.CoverURL
	}

	base.Status = resolveStatus(base.Status, incoming.Status)

	base.Genres = union(base.Genres, incoming.Genres)
	base.Tags = union(base.Tags, incoming.Tags)

	base.ChapterCount = maxInt64(base.ChapterCount, incoming.ChapterCount)
	base.WordCount = maxInt64(base.WordCount, incoming.WordCount)
	base.ViewCount = maxInt64(base.ViewCount, incoming.ViewCount)
	base.BookmarkCount = maxInt64(base.BookmarkCount, incoming.BookmarkCount)
	base.CommentCount = maxInt64(base.CommentCount, incoming.CommentCount)
	base.VoteCount = maxInt64(base.VoteCount, incoming.VoteCount)
	if incoming.ReviewCount > base.ReviewCount {
		base.ReviewCount = incoming.ReviewCount
		base.ReviewScore = incoming.ReviewScore
	}

	if len(incoming.Chapters) > len(base.Chapters) {
		base.Chapters = incoming.Chapters
	}

	return base
}

// resolveStatus: completed is terminal and wins; otherwise the first source
// to report a status keeps it.
func resolveStatus(a, b models.Status) models.Status {
	if a == models.StatusCompleted || b == models.StatusCompleted {
		return models.StatusCompleted
	}
	if a != models.StatusOngoing {
		return a
	}
	return b
}

func appendIfMissing(slice []string, v string) []string {
	for _, x := range slice {
		if x == v {
			return slice
		}
	}
	return append(slice, v)
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	for _, v := range b {
		out = appendIfMissing(out, v)
	}
	return out
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
