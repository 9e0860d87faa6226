package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tusach/pkg/models"
)

const truyenFullBase = "https://api.truyenfull.vn"

// TruyenFull fetches the live listing API. The list endpoint reports counts
// only; chapter text is not available from this source.
type TruyenFull struct {
	BaseURL string
	Client  *http.Client
	Limit   int // items per request
	Max     int // total item cap per run
}

func NewTruyenFull() *TruyenFull {
	return &TruyenFull{
		BaseURL: truyenFullBase,
		Client:  &http.Client{Timeout: 12 * time.Second},
		Limit:   50,
		Max:     500,
	}
}

func (s *TruyenFull) Name() string { return "truyenfull" }

type tfResponse struct {
	Data []struct {
		ID           int64  `json:"id"`
		Title        string `json:"title"`
		Author       string `json:"author"`
		Categories   string `json:"categories"` // comma separated
		Status       string `json:"status"`
		TotalChapter int64  `json:"total_chapters"`
		Description  string `json:"description"`
		Image        string `json:"image"`
		ViewCount    int64  `json:"view"`
		VoteCount    int64  `json:"vote"`
	} `json:"data"`
	Meta struct {
		Pagination struct {
			CurrentPage int `json:"current_page"`
			TotalPages  int `json:"total_pages"`
		} `json:"pagination"`
	} `json:"meta"`
}

func (s *TruyenFull) FetchAll(ctx context.Context) ([]models.BookCanonical, error) {
	var all []models.BookCanonical

	page := 1
	for len(all) < s.Max {
		u, err := url.Parse(s.BaseURL + "/v1/story/all")
		if err != nil {
			return nil, fmt.Errorf("truyenfull: parse url: %w", err)
		}
		q := u.Query()
		q.Set("type", "story_update")
		q.Set("limit", fmt.Sprintf("%d", s.Limit))
		q.Set("page", fmt.Sprintf("%d", page))
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("truyenfull: build request: %w", err)
		}

		resp, err := s.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("truyenfull: request: %w", err)
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("truyenfull: status %d: %s", resp.StatusCode, string(body))
		}

		var tf tfResponse
		if err := json.Unmarshal(body, &tf); err != nil {
			return nil, fmt.Errorf("truyenfull: decode: %w", err)
		}
		if len(tf.Data) == 0 {
			break
		}

		for _, item := range tf.Data {
			title := strings.TrimSpace(item.Title)
			if title == "" {
				continue
			}

			var genres []string
			for _, g := range strings.Split(item.Categories, ",") {
				if g = strings.TrimSpace(g); g != "" {
					genres = append(genres, g)
				}
			}

			all = append(all, models.BookCanonical{
				Name:         title,
				Author:       strings.TrimSpace(item.Author),
				Synopsis:     strings.TrimSpace(item.Description),
				Status:       statusFromTF(item.Status),
				Source:       models.SourceTruyenFull,
				Genres:       genres,
				ChapterCount: item.TotalChapter,
				ViewCount:    item.ViewCount,
				VoteCount:    item.VoteCount,
				CoverURL:     strings.TrimSpace(item.Image),
			})
			if len(all) >= s.Max {
				break
			}
		}

		if p := tf.Meta.Pagination; p.TotalPages > 0 && p.CurrentPage >= p.TotalPages {
			break
		}
		page++
	}

	return all, nil
}

// statusFromTF maps the upstream Vietnamese status labels.
func statusFromTF(s string) models.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "hoàn thành", "completed":
		return models.StatusCompleted
	case "tạm dừng", "tạm ngưng", "paused":
		return models.StatusPaused
	default:
		return models.StatusOngoing
	}
}
