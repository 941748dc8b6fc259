package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/config"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/filename"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/storage"
	"copro-smart-go/pkg/tasks"

	"github.com/google/uuid"
)

// Ingestion modes.
const (
	IngestionSync  = "sync"
	IngestionKafka = "kafka"
)

var (
	uploadFolders = []string{"document", "legal", "resident"}

	acceptedExtensions = map[string]bool{".pdf": true, ".docx": true}
	acceptedMimeTypes  = map[string]bool{
		"application/pdf": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	}
)

// TaskProcessor indexes a stored document.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestionTask) error
}

// TaskPublisher hands an ingestion task to the queue.
type TaskPublisher interface {
	Publish(ctx context.Context, task tasks.IngestionTask) error
}

// UploadService stores uploaded documents and schedules their indexing.
type UploadService interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// UploadRequest is a validated multipart upload.
type UploadRequest struct {
	File     *Attachment
	Folder   string
	Metadata string
	Process  bool
	UserID   string
}

// UploadResult is returned to the client.
type UploadResult struct {
	Message string `json:"message"`
	FileURL string `json:"fileUrl"`
	DocID   string `json:"docId"`
	Status  string `json:"status"`
}

type uploadService struct {
	store        storage.Storage
	metadataRepo repository.MetadataRepository
	processor    TaskProcessor
	publisher    TaskPublisher
	cfg          config.UploadConfig
}

// NewUploadService creates an UploadService. publisher is only needed in
// kafka mode.
func NewUploadService(store storage.Storage, metadataRepo repository.MetadataRepository, processor TaskProcessor, publisher TaskPublisher, cfg config.UploadConfig) UploadService {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.IngestionMode == "" {
		cfg.IngestionMode = IngestionSync
	}
	return &uploadService{
		store:        store,
		metadataRepo: metadataRepo,
		processor:    processor,
		publisher:    publisher,
		cfg:          cfg,
	}
}

func (s *uploadService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.Folder == "" {
		req.Folder = "document"
	}
	if !oneOf(req.Folder, uploadFolders) {
		return nil, apperr.Validation(`invalid folder, allowed values are "document", "legal" or "resident"`)
	}
	if err := s.validateFile(req.File); err != nil {
		return nil, err
	}
	recordType, err := metadataType(req.Metadata)
	if err != nil {
		return nil, err
	}

	name := filename.Sanitize(req.File.Name)
	if recordType == "" {
		recordType = strings.TrimPrefix(filepath.Ext(name), ".")
	}
	meta := &model.Metadata{
		FileName: name,
		DocID:    uuid.NewString(),
		Type:     recordType,
		Folder:   req.Folder,
		UserID:   req.UserID,
		Status:   model.StatusStored,
	}
	meta.FileURL = "/uploads/" + meta.ObjectKey()

	contentType := req.File.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(name)
	}
	if err := s.store.Put(ctx, meta.ObjectKey(), req.File.Reader, req.File.Size, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.metadataRepo.Create(ctx, meta); err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}
	log.Infof("[UploadService] stored %s as docId=%s, process=%t", meta.ObjectKey(), meta.DocID, req.Process)

	result := &UploadResult{
		Message: "File uploaded successfully",
		FileURL: meta.FileURL,
		DocID:   meta.DocID,
		Status:  meta.Status,
	}
	if !req.Process {
		return result, nil
	}

	task := tasks.IngestionTask{
		DocID:     meta.DocID,
		FileName:  meta.FileName,
		ObjectKey: meta.ObjectKey(),
		UserID:    meta.UserID,
	}
	if s.cfg.IngestionMode == IngestionKafka && s.publisher != nil {
		if err := s.publisher.Publish(ctx, task); err != nil {
			return nil, apperr.Upstream("failed to queue document for processing", err)
		}
		result.Message = "File uploaded and queued for processing"
		result.Status = model.StatusProcessing
		return result, nil
	}

	if err := s.processor.Process(ctx, task); err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Upstream("failed to process the document", err)
	}
	result.Message = "File uploaded and processed successfully"
	result.Status = model.StatusIndexed
	return result, nil
}

func (s *uploadService) validateFile(f *Attachment) error {
	if f == nil || f.Reader == nil {
		return apperr.Validation("no file uploaded, please upload a PDF or DOCX file")
	}
	if f.Size <= 0 {
		return apperr.Validation("uploaded file is empty")
	}
	if limit := int64(s.cfg.MaxSizeMB) << 20; f.Size > limit {
		return apperr.Validation("file exceeds the %d MB limit", s.cfg.MaxSizeMB)
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	if !acceptedExtensions[ext] && !acceptedMimeTypes[mime] {
		return apperr.Validation("unsupported file type, only PDF and DOCX are accepted")
	}
	return nil
}

// metadataType parses the optional metadata JSON and returns its "type".
func metadataType(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return "", apperr.Validation("metadata must be a JSON object")
	}
	t, _ := meta["type"].(string)
	return t, nil
}

// contentTypeFor picks a content type from the file extension.
func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
