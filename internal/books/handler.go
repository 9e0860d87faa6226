package books

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tusach/pkg/models"
)

const (
	defaultLimit        = 50
	defaultChapterLimit = 100
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                        // GET /books
	rg.GET("/:slug", h.getBySlug)             // GET /books/:slug
	rg.GET("/:slug/chapters", h.chapters)     // GET /books/:slug/chapters
	rg.GET("/:slug/chapters/:idx", h.chapter) // GET /books/:slug/chapters/:idx
}

func (h *Handler) RegisterGenreRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.genres) // GET /genres
}

// list is the ranked listing. With a page parameter the response is the page
// envelope; without one it is a bare array. Ranking store errors are hard
// failures, unlike the search scopes.
func (h *Handler) list(c *gin.Context) {
	q := RankQuery{
		Metric: c.Query("metric"),
		Genre:  strings.TrimSpace(c.Query("genre")),
		Source: strings.TrimSpace(c.Query("source")),
		Limit:  parseInt(c.Query("limit"), defaultLimit),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		if status, err := strconv.Atoi(raw); err == nil {
			q.Status = &status
		}
	}

	q.Limit = clampLimit(q.Limit)

	pageRaw := strings.TrimSpace(c.Query("page"))
	if pageRaw == "" {
		items, err := h.Repo.Rank(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}

	page := parseInt(pageRaw, 1)
	if page < 1 {
		page = 1
	}
	q.Offset = (page - 1) * q.Limit

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.Rank(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, models.NewPage(items, total, page, q.Limit))
}

func (h *Handler) genres(c *gin.Context) {
	source := strings.TrimSpace(c.Query("source"))
	genres, err := h.Repo.GenresWithCounts(c.Request.Context(), source)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "genres failed"})
		return
	}
	if genres == nil {
		genres = []models.Genre{}
	}
	c.JSON(http.StatusOK, genres)
}

func (h *Handler) getBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	detail, err := h.Repo.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	// View bump is best-effort; a failed counter never blocks the read.
	_ = h.Repo.IncrementView(c.Request.Context(), detail.ID)

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) chapters(c *gin.Context) {
	detail, ok := h.resolveBook(c)
	if !ok {
		return
	}

	limit := parseInt(c.Query("limit"), defaultChapterLimit)
	if limit < 1 || limit > 500 {
		limit = defaultChapterLimit
	}
	page := parseInt(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}

	items, total, err := h.Repo.Chapters(c.Request.Context(), detail.ID, limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chapters failed"})
		return
	}
	c.JSON(http.StatusOK, models.NewPage(items, total, page, limit))
}

func (h *Handler) chapter(c *gin.Context) {
	detail, ok := h.resolveBook(c)
	if !ok {
		return
	}

	idx, err := strconv.ParseInt(strings.TrimSpace(c.Param("idx")), 10, 64)
	if err != nil || idx < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chapter index"})
		return
	}

	ch, err := h.Repo.Chapter(c.Request.Context(), detail.ID, idx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chapter failed"})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *Handler) resolveBook(c *gin.Context) (*models.BookDetail, bool) {
	slug := strings.TrimSpace(c.Param("slug"))
	detail, err := h.Repo.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return nil, false
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return detail, true
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
