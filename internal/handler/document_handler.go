package handler

import (
	"io"
	"net/http"

	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler serves the stored files under /files.
type DocumentHandler struct {
	fileService service.FileService
}

func NewDocumentHandler(fileService service.FileService) *DocumentHandler {
	return &DocumentHandler{fileService: fileService}
}

// List returns the metadata of the caller's uploads.
func (h *DocumentHandler) List(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	files, err := h.fileService.List(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", files)
}

// Download streams the file body. Errors use the JSON envelope.
func (h *DocumentHandler) Download(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	content, err := h.fileService.Open(c.Request.Context(), user.ID, c.Param("docId"))
	if err != nil {
		fail(c, err)
		return
	}
	defer content.Body.Close()

	c.Header("Content-Type", content.ContentType)
	c.Header("Content-Disposition", "inline; filename=\""+content.Metadata.FileName+"\"")
	c.Status(http.StatusOK)
	n, err := io.Copy(c.Writer, content.Body)
	if err != nil {
		log.Warnf("[DocumentHandler] streaming %s stopped after %d bytes: %v", content.Metadata.DocID, n, err)
	}
}

func (h *DocumentHandler) Metadata(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	meta, err := h.fileService.Metadata(c.Request.Context(), user.ID, c.Param("docId"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", meta)
}

// Delete removes the file, its index entries and its records.
func (h *DocumentHandler) Delete(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	docID := c.Param("docId")
	if err := h.fileService.Delete(c.Request.Context(), user.ID, docID); err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "File deleted successfully", gin.H{"docId": docID})
}
