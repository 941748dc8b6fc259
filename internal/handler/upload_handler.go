package handler

import (
	"mime/multipart"
	"net/http"

	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// processFlags are the form fields that request indexing; the last two are
// kept for clients written against the previous vector store integrations.
var processFlags = []string{"process", "processWithPinecone", "processWithPrivateGPT"}

// UploadHandler serves POST /upload.
type UploadHandler struct {
	uploadService service.UploadService
}

func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload stores a document and, when asked, indexes it.
func (h *UploadHandler) Upload(c *gin.Context) {
	req := service.UploadRequest{
		Folder:   c.PostForm("folder"),
		Metadata: c.PostForm("metadata"),
		Process:  wantsProcessing(c),
	}
	if user := currentUser(c); user != nil {
		req.UserID = user.ID
	}

	header, err := c.FormFile("file")
	if err == nil {
		file, err := header.Open()
		if err != nil {
			log.Error("[UploadHandler] open multipart file failed", err)
			badRequest(c, "could not read the uploaded file")
			return
		}
		defer file.Close()
		req.File = attachment(header, file)
	}

	res, err := h.uploadService.Upload(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, res.Message, res)
}

func wantsProcessing(c *gin.Context) bool {
	for _, field := range processFlags {
		if c.PostForm(field) == "true" {
			return true
		}
	}
	return false
}

func attachment(header *multipart.FileHeader, file multipart.File) *service.Attachment {
	return &service.Attachment{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	}
}
