package handlers

import (
	"net/http"

	"booklog/internal/services"

	"github.com/gin-gonic/gin"
)

type BookHandler struct {
	books *services.BookSearchService
}

func NewBookHandler(books *services.BookSearchService) *BookHandler {
	return &BookHandler{books: books}
}

// Search 发布帖子时选书
func (h *BookHandler) Search(c *gin.Context) {
	books, err := h.books.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}
