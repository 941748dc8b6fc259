package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentRouter(svc service.FileService) *gin.Engine {
	h := NewDocumentHandler(svc)
	r := newRouter(testUser)
	r.GET("/files/:docId", h.Download)
	r.DELETE("/files/:docId", h.Delete)
	return r
}

func TestDownload(t *testing.T) {
	svc := &mockFileService{
		OpenFunc: func(_ context.Context, userID, docID string) (*service.FileContent, error) {
			if userID != testUser.ID {
				return nil, apperr.NotFound("document %s not found", docID)
			}
			switch docID {
			case "d-1":
				return &service.FileContent{
					Metadata:    &model.Metadata{DocID: "d-1", FileName: "Reglement.pdf"},
					ContentType: "application/pdf",
					Body:        io.NopCloser(strings.NewReader("%PDF-1.4")),
				}, nil
			case "..":
				return nil, apperr.Validation("invalid document id")
			default:
				return nil, apperr.NotFound("document %s not found", docID)
			}
		},
	}
	r := documentRouter(svc)

	w := doJSON(r, http.MethodGet, "/files/d-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Reglement.pdf")
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	w = doJSON(r, http.MethodGet, "/files/d-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "document d-404 not found", decode(t, w).Message)
}

func TestDeleteFile(t *testing.T) {
	var owner, deleted string
	svc := &mockFileService{
		DeleteFunc: func(_ context.Context, userID, docID string) error {
			owner, deleted = userID, docID
			return nil
		},
	}
	w := doJSON(documentRouter(svc), http.MethodDelete, "/files/d-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testUser.ID, owner)
	assert.Equal(t, "d-1", deleted)
}
