package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tusach/pkg/models"
)

// ThuQuan reads a locally mirrored collection (served by cmd/mirror-server).
// Unlike the live API it carries full chapter text, so books ingested from
// here are readable and exportable to EPUB.
type ThuQuan struct {
	BaseURL string
	Client  *http.Client
}

func NewThuQuan(baseURL string) *ThuQuan {
	return &ThuQuan{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *ThuQuan) Name() string { return "thuquan" }

type tqBook struct {
	Name        string   `json:"name"`
	AltNames    []string `json:"alt_names"`
	Author      string   `json:"author"`
	AuthorLocal string   `json:"author_local"`
	Summary     string   `json:"summary"`
	State       string   `json:"state"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	WordCount   int64    `json:"word_count"`
	CoverURL    string   `json:"cover_url"`
	Chapters    []struct {
		Idx     int64  `json:"idx"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"chapters"`
}

func (s *ThuQuan) FetchAll(ctx context.Context) ([]models.BookCanonical, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/books", nil)
	if err != nil {
		return nil, fmt.Errorf("thuquan: build request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("thuquan: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("thuquan: status %d: %s", resp.StatusCode, string(body))
	}

	var raw []tqBook
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("thuquan: decode: %w", err)
	}

	result := make([]models.BookCanonical, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}

		chapters := make([]models.ChapterDraft, 0, len(r.Chapters))
		for _, ch := range r.Chapters {
			chapters = append(chapters, models.ChapterDraft{
				Idx:     ch.Idx,
				Title:   ch.Title,
				Content: ch.Content,
			})
		}

		result = append(result, models.BookCanonical{
			Name:         name,
			AltNames:     r.AltNames,
			Author:       strings.TrimSpace(r.Author),
			AuthorLocal:  strings.TrimSpace(r.AuthorLocal),
			Synopsis:     strings.TrimSpace(r.Summary),
			Status:       statusFromTQ(r.State),
			Source:       models.SourceThuQuan,
			Genres:       r.Genres,
			Tags:         r.Tags,
			ChapterCount: int64(len(chapters)),
			WordCount:    r.WordCount,
			CoverURL:     strings.TrimSpace(r.CoverURL),
			Chapters:     chapters,
		})
	}
	return result, nil
}

func statusFromTQ(s string) models.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "finished", "completed", "done":
		return models.StatusCompleted
	case "paused", "hiatus":
		return models.StatusPaused
	default:
		return models.StatusOngoing
	}
}
