package handler

import (
	"net/http"
	"strconv"
	"strings"

	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler exposes the vector search used by the chat pipeline.
type SearchHandler struct {
	retrieval service.RetrievalService
}

func NewSearchHandler(retrieval service.RetrievalService) *SearchHandler {
	return &SearchHandler{retrieval: retrieval}
}

// Search handles GET /search?query=&topK=&docIds=a,b.
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if strings.TrimSpace(query) == "" {
		badRequest(c, "query is required")
		return
	}
	topK, err := strconv.Atoi(c.DefaultQuery("topK", "5"))
	if err != nil || topK <= 0 {
		topK = 5
	}
	var docIDs []string
	if raw := c.Query("docIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				docIDs = append(docIDs, id)
			}
		}
	}

	hits, err := h.retrieval.Search(c.Request.Context(), query, topK, docIDs)
	if err != nil {
		fail(c, err)
		return
	}
	log.Infof("[SearchHandler] query %q returned %d hits", query, len(hits))
	success(c, http.StatusOK, "success", hits)
}
