package search

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"tusach/pkg/models"
)

const (
	defaultLimit = 20
	maxLimit     = 50

	// Queries shorter than this (in runes, after trimming) are answered
	// with an empty result before any repo call.
	minQueryLen = 2
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.search) // GET /search
}

// search dispatches on scope. Store failures never break the response
// shape: each scope degrades to an empty result with an error field, still
// HTTP 200, and one scope failing says nothing about the other.
func (h *Handler) search(c *gin.Context) {
	scope := strings.TrimSpace(c.DefaultQuery("scope", "books"))
	q := strings.TrimSpace(c.Query("q"))

	limit := parseInt(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if utf8.RuneCountInString(q) < minQueryLen {
		c.JSON(http.StatusOK, gin.H{"results": []BookHit{}})
		return
	}

	switch scope {
	case "authors":
		hits, err := h.Repo.SearchAuthors(c.Request.Context(), q, limit)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{
				"results": []models.Author{},
				"error":   "Author search failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": hits})
	default:
		page := parseInt(c.Query("page"), 1)
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * limit

		hits, err := h.Repo.SearchBooks(c.Request.Context(), q, limit, offset)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{
				"results": []BookHit{},
				"error":   "Search failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": hits})
	}
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
