package reviews

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tusach/internal/auth"
	"tusach/internal/books"
)

type Handler struct {
	Repo  *Repo
	Books *books.Repo
}

func NewHandler(repo *Repo, booksRepo *books.Repo) *Handler {
	return &Handler{Repo: repo, Books: booksRepo}
}

// RegisterRoutes attaches reviews under the books group: listing is public,
// submission requires the auth middleware passed by the caller.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/:slug/reviews", h.listByBook)
	rg.POST("/:slug/reviews", authMW, h.create)
	rg.DELETE("/:slug/reviews/:id", authMW, h.delete)
}

type createReq struct {
	Rating int    `json:"rating"`
	Body   string `json:"body"`
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	book, ok := h.resolveBook(c)
	if !ok {
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	review, err := h.Repo.Create(c.Request.Context(), claims.UserID, book, req.Rating, strings.TrimSpace(req.Body))
	if err != nil {
		// The UNIQUE(user_id, book_id) constraint lands here on a second
		// submission from the same user.
		c.JSON(http.StatusConflict, gin.H{"error": "already reviewed"})
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (h *Handler) listByBook(c *gin.Context) {
	book, ok := h.resolveBook(c)
	if !ok {
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, err := h.Repo.ListByBook(c.Request.Context(), book, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) delete(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), id, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// resolveBook maps the slug path parameter to a book id, answering 404 when
// the slug is unknown.
func (h *Handler) resolveBook(c *gin.Context) (int64, bool) {
	slug := strings.TrimSpace(c.Param("slug"))
	detail, err := h.Books.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return 0, false
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return detail.ID, true
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
