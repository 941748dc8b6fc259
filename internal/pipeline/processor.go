// Package pipeline turns stored documents into indexed, searchable chunks.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"copro-smart-go/internal/config"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/embedding"
	"copro-smart-go/pkg/es"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/storage"
	"copro-smart-go/pkg/tasks"

	"golang.org/x/sync/errgroup"
)

// TextExtractor pulls plain text out of a binary document.
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// Processor wires together everything needed to index one document.
type Processor struct {
	store           storage.Storage
	extractor       TextExtractor
	embeddingClient embedding.Client
	index           es.VectorIndex
	metadataRepo    repository.MetadataRepository
	chunkRepo       repository.DocumentChunkRepository
	cfg             config.UploadConfig
}

// NewProcessor creates a Processor.
func NewProcessor(
	store storage.Storage,
	extractor TextExtractor,
	embeddingClient embedding.Client,
	index es.VectorIndex,
	metadataRepo repository.MetadataRepository,
	chunkRepo repository.DocumentChunkRepository,
	cfg config.UploadConfig,
) *Processor {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = 10
	}
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = 4
	}
	return &Processor{
		store:           store,
		extractor:       extractor,
		embeddingClient: embeddingClient,
		index:           index,
		metadataRepo:    metadataRepo,
		chunkRepo:       chunkRepo,
		cfg:             cfg,
	}
}

// Process indexes the document described by task and records the outcome on
// its metadata row.
func (p *Processor) Process(ctx context.Context, task tasks.IngestionTask) error {
	log.Infof("[Processor] start docId=%s fileName=%s userId=%s", task.DocID, task.FileName, task.UserID)
	if err := p.metadataRepo.UpdateStatus(ctx, task.DocID, model.StatusProcessing, 0); err != nil {
		log.Warnf("[Processor] failed to mark docId=%s processing: %v", task.DocID, err)
	}

	count, err := p.process(ctx, task)
	if err != nil {
		log.Errorf("[Processor] docId=%s failed: %v", task.DocID, err)
		if statusErr := p.metadataRepo.UpdateStatus(context.WithoutCancel(ctx), task.DocID, model.StatusFailed, 0); statusErr != nil {
			log.Warnf("[Processor] failed to mark docId=%s failed: %v", task.DocID, statusErr)
		}
		return err
	}

	if err := p.metadataRepo.UpdateStatus(ctx, task.DocID, model.StatusIndexed, count); err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}
	log.Infof("[Processor] done docId=%s chunks=%d", task.DocID, count)
	return nil
}

func (p *Processor) process(ctx context.Context, task tasks.IngestionTask) (int, error) {
	// 1. Load the binary.
	object, err := p.store.Get(ctx, task.ObjectKey)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", task.ObjectKey, err)
	}
	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	object.Close()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", task.ObjectKey, err)
	}
	if size == 0 {
		return 0, errors.New("document is empty")
	}

	// 2. Extract text.
	text, err := p.extractor.ExtractText(ctx, bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		return 0, fmt.Errorf("failed to extract text: %w", err)
	}
	if text == "" {
		return 0, errors.New("extracted text is empty")
	}
	log.Infof("[Processor] extracted %d characters from docId=%s", utf8.RuneCountInString(text), task.DocID)

	// 3. Split and store chunk texts. Re-processing replaces earlier chunks.
	pieces := SplitText(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if len(pieces) == 0 {
		return 0, errors.New("no chunks produced")
	}
	if err := p.chunkRepo.DeleteByDocID(ctx, task.DocID); err != nil {
		log.Warnf("[Processor] failed to clear old chunks of docId=%s: %v", task.DocID, err)
	}
	if err := p.index.DeleteByDocID(ctx, task.DocID); err != nil {
		log.Warnf("[Processor] failed to clear old vectors of docId=%s: %v", task.DocID, err)
	}
	rows := make([]*model.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		rows[i] = &model.DocumentChunk{
			DocID:       task.DocID,
			ChunkIndex:  i,
			TotalChunks: len(pieces),
			TextContent: piece,
			FileName:    task.FileName,
			UserID:      task.UserID,
		}
	}
	if err := p.chunkRepo.BatchCreate(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	// 4. Embed with bounded concurrency.
	docs := make([]model.ChunkDocument, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.EmbedWorkers)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			vector, err := p.embeddingClient.CreateEmbedding(gctx, row.TextContent)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", row.ChunkIndex, err)
			}
			docs[i] = model.ChunkDocument{
				VectorID:    fmt.Sprintf("%s_%d", row.DocID, row.ChunkIndex),
				DocID:       row.DocID,
				FileName:    row.FileName,
				ChunkIndex:  row.ChunkIndex,
				TotalChunks: row.TotalChunks,
				TextContent: row.TextContent,
				Vector:      vector,
				UserID:      row.UserID,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	// 5. Upsert in batches.
	for start := 0; start < len(docs); start += p.cfg.UpsertBatchSize {
		end := start + p.cfg.UpsertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := p.index.Upsert(ctx, docs[start:end]); err != nil {
			return 0, fmt.Errorf("failed to index chunks %d-%d: %w", start, end-1, err)
		}
	}
	return len(docs), nil
}

// SplitText cuts text into chunks of chunkSize runes, consecutive chunks
// sharing chunkOverlap runes. An overlap not smaller than chunkSize is ignored.
func SplitText(text string, chunkSize, chunkOverlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 || chunkSize <= 0 {
		return nil
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}

	var chunks []string
	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
