package service

import (
	"context"
	"strings"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/pkg/embedding"
	"copro-smart-go/pkg/es"
	"copro-smart-go/pkg/log"
)

const (
	minTopK = 3
	maxTopK = 10
)

// RetrievalService finds the indexed chunks closest to a question.
type RetrievalService interface {
	// Search embeds query and returns up to topK hits, optionally restricted
	// to docIDs. Embedding failures are returned as upstream errors; index
	// failures degrade to an empty result.
	Search(ctx context.Context, query string, topK int, docIDs []string) ([]model.SearchHit, error)
}

type retrievalService struct {
	embeddingClient embedding.Client
	index           es.VectorIndex
}

func NewRetrievalService(embeddingClient embedding.Client, index es.VectorIndex) RetrievalService {
	return &retrievalService{embeddingClient: embeddingClient, index: index}
}

// clampTopK keeps k within [3, 10].
func clampTopK(k int) int {
	if k < minTopK {
		return minTopK
	}
	if k > maxTopK {
		return maxTopK
	}
	return k
}

func (s *retrievalService) Search(ctx context.Context, query string, topK int, docIDs []string) ([]model.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("query is required")
	}
	topK = clampTopK(topK)

	vector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[RetrievalService] embedding failed: %v", err)
		if apperr.KindOf(err) == apperr.KindUpstream {
			return nil, err
		}
		return nil, apperr.Upstream("embedding request failed", err)
	}

	hits, err := s.index.Query(ctx, vector, topK, docIDs)
	if err != nil {
		log.Warnf("[RetrievalService] vector index query failed, continuing without context: %v", err)
		return []model.SearchHit{}, nil
	}
	if len(hits) == 0 {
		log.Infof("[RetrievalService] no chunk matched, topK=%d docIds=%v", topK, docIDs)
	}
	return hits, nil
}
