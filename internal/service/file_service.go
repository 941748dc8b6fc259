package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/es"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/storage"
)

// FileService serves and removes uploaded documents by document id.
// Documents owned by another user are reported as not found. An empty
// userID skips the ownership check.
type FileService interface {
	List(ctx context.Context, userID string) ([]model.Metadata, error)
	Metadata(ctx context.Context, userID, docID string) (*model.Metadata, error)
	// Open returns the stored file. The caller closes the reader.
	Open(ctx context.Context, userID, docID string) (*FileContent, error)
	// Delete removes the vectors, the chunks, the file and its metadata.
	Delete(ctx context.Context, userID, docID string) error
}

// FileContent is an opened stored file.
type FileContent struct {
	Metadata    *model.Metadata
	ContentType string
	Body        io.ReadCloser
}

type fileService struct {
	store        storage.Storage
	metadataRepo repository.MetadataRepository
	chunkRepo    repository.DocumentChunkRepository
	index        es.VectorIndex
}

func NewFileService(store storage.Storage, metadataRepo repository.MetadataRepository, chunkRepo repository.DocumentChunkRepository, index es.VectorIndex) FileService {
	return &fileService{store: store, metadataRepo: metadataRepo, chunkRepo: chunkRepo, index: index}
}

func checkDocID(docID string) error {
	if docID == "" || strings.Contains(docID, "..") {
		return apperr.Validation("invalid document id")
	}
	return nil
}

func (s *fileService) List(ctx context.Context, userID string) ([]model.Metadata, error) {
	return s.metadataRepo.FindByUser(ctx, userID)
}

func (s *fileService) Metadata(ctx context.Context, userID, docID string) (*model.Metadata, error) {
	if err := checkDocID(docID); err != nil {
		return nil, err
	}
	meta, err := s.metadataRepo.FindByDocID(ctx, docID)
	if err != nil {
		return nil, notFoundOr(err, "metadata", "find metadata")
	}
	if userID != "" && meta.UserID != userID {
		return nil, apperr.NotFound("metadata not found")
	}
	return meta, nil
}

func (s *fileService) Open(ctx context.Context, userID, docID string) (*FileContent, error) {
	meta, err := s.Metadata(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	body, err := s.store.Get(ctx, meta.ObjectKey())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Warnf("[FileService] metadata %s points at missing object %s", docID, meta.ObjectKey())
			return nil, apperr.NotFound("file not found")
		}
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return &FileContent{Metadata: meta, ContentType: contentTypeFor(meta.FileName), Body: body}, nil
}

func (s *fileService) Delete(ctx context.Context, userID, docID string) error {
	meta, err := s.Metadata(ctx, userID, docID)
	if err != nil {
		return err
	}
	// Vectors first, so a failed index call leaves the file in place.
	if err := s.index.DeleteByDocID(ctx, docID); err != nil {
		return apperr.Upstream("failed to delete document vectors", err)
	}
	if err := s.chunkRepo.DeleteByDocID(ctx, docID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.store.Delete(ctx, meta.ObjectKey()); err != nil {
		return fmt.Errorf("delete stored file: %w", err)
	}
	if err := s.metadataRepo.DeleteByDocID(ctx, docID); err != nil {
		return notFoundOr(err, "metadata", "delete metadata")
	}
	log.Infof("[FileService] deleted document %s", docID)
	return nil
}
