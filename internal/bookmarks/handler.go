package bookmarks

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tusach/internal/auth"
	synchub "tusach/internal/sync"
	"tusach/pkg/models"
)

type Handler struct {
	Repo *Repo
	Hub  *synchub.Hub
}

func NewHandler(repo *Repo, hub *synchub.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

// RegisterRoutes attaches the shelf endpoints to an auth-protected group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookmarks", h.list)
	rg.POST("/bookmarks", h.upsert)
	rg.PUT("/bookmarks/:book_id", h.upsert)
	rg.DELETE("/bookmarks/:book_id", h.remove)
	rg.GET("/bookmarks/:book_id", h.getOne)
	rg.GET("/history", h.history)
}

type upsertReq struct {
	BookID  int64  `json:"book_id"` // required for POST; PUT takes it from the path
	Chapter int64  `json:"chapter"`
	Shelf   string `json:"shelf"`
}

func (h *Handler) upsert(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	bookID := req.BookID
	if raw := strings.TrimSpace(c.Param("book_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book_id"})
			return
		}
		bookID = id
	}
	if bookID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book_id required"})
		return
	}

	shelf := normalizeShelf(req.Shelf)
	if shelf == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "shelf must be one of: reading, finished, wishlist, dropped",
		})
		return
	}
	if req.Chapter < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapter must be >= 0"})
		return
	}

	bm := models.Bookmark{
		UserID:  claims.UserID,
		BookID:  bookID,
		Chapter: req.Chapter,
		Shelf:   shelf,
	}
	if err := h.Repo.Upsert(c.Request.Context(), bm); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	saved, err := h.Repo.Get(c.Request.Context(), claims.UserID, bookID)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}

	if h.Hub != nil {
		ev := synchub.BookmarkEvent{
			Type:    "bookmark.update",
			UserID:  claims.UserID,
			BookID:  bookID,
			Chapter: saved.Chapter,
			Shelf:   saved.Shelf,
			At:      time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, saved)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	shelf := strings.TrimSpace(c.Query("shelf"))
	if shelf != "" {
		shelf = normalizeShelf(shelf)
		if shelf == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shelf filter"})
			return
		}
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, shelf, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookID, err := strconv.ParseInt(strings.TrimSpace(c.Param("book_id")), 10, 64)
	if err != nil || bookID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book_id"})
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), claims.UserID, bookID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if h.Hub != nil {
		ev := synchub.BookmarkEvent{
			Type:   "bookmark.delete",
			UserID: claims.UserID,
			BookID: bookID,
			At:     time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) getOne(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookID, err := strconv.ParseInt(strings.TrimSpace(c.Param("book_id")), 10, 64)
	if err != nil || bookID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book_id"})
		return
	}

	bm, err := h.Repo.Get(c.Request.Context(), claims.UserID, bookID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if bm == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, bm)
}

func (h *Handler) history(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var bookID int64
	if raw := strings.TrimSpace(c.Query("book_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book_id"})
			return
		}
		bookID = id
	}

	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.History(c.Request.Context(), claims.UserID, bookID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func normalizeShelf(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reading":
		return "reading"
	case "finished", "done":
		return "finished"
	case "wishlist", "wish_list", "wish list":
		return "wishlist"
	case "dropped":
		return "dropped"
	default:
		return ""
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
