package epub

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tusach/internal/books"
)

type Handler struct {
	Builder *Builder
	Books   *books.Repo
}

func NewHandler(builder *Builder, booksRepo *books.Repo) *Handler {
	return &Handler{Builder: builder, Books: booksRepo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:slug/epub", h.download)
}

func (h *Handler) download(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	detail, err := h.Books.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	path, err := h.Builder.Build(c.Request.Context(), detail)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "epub generation failed"})
		return
	}

	c.Header("Content-Type", "application/epub+zip")
	c.Header("Content-Disposition", `attachment; filename="`+detail.Slug+`.epub"`)
	c.File(path)
}
