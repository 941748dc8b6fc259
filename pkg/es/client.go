// Package es stores chunk vectors in Elasticsearch and answers kNN queries.
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"copro-smart-go/internal/config"
	"copro-smart-go/internal/model"
	"copro-smart-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// VectorIndex is the similarity index used for retrieval.
type VectorIndex interface {
	// Upsert writes docs in one bulk request, replacing documents with the same VectorID.
	Upsert(ctx context.Context, docs []model.ChunkDocument) error
	// Query returns up to topK chunks nearest to vector. When docIDs is not
	// empty only chunks of those documents are considered.
	Query(ctx context.Context, vector []float32, topK int, docIDs []string) ([]model.SearchHit, error)
	DeleteByDocID(ctx context.Context, docID string) error
}

type esIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewClient builds the Elasticsearch client from configuration.
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
}

// InitIndex connects to Elasticsearch and makes sure the index exists.
func InitIndex(ctx context.Context, esCfg config.ElasticsearchConfig) (VectorIndex, error) {
	client, err := NewClient(esCfg)
	if err != nil {
		return nil, err
	}
	if err := createIndexIfNotExists(ctx, client, esCfg.IndexName, esCfg.Dimension); err != nil {
		return nil, err
	}
	return NewVectorIndex(client, esCfg.IndexName), nil
}

// NewVectorIndex wraps an existing client.
func NewVectorIndex(client *elasticsearch.Client, indexName string) VectorIndex {
	return &esIndex{client: client, indexName: indexName}
}

func indexMapping(dims int) string {
	return fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id": { "type": "keyword" },
				"doc_id": { "type": "keyword" },
				"file_name": { "type": "keyword" },
				"chunk_index": { "type": "integer" },
				"total_chunks": { "type": "integer" },
				"text_content": { "type": "text", "analyzer": "french" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"user_id": { "type": "keyword" }
			}
		}
	}`, dims)
}

func createIndexIfNotExists(ctx context.Context, client *elasticsearch.Client, indexName string, dims int) error {
	res, err := client.Indices.Exists([]string{indexName}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", indexName, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("[ES] index '%s' already exists", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status %d while checking index %s", res.StatusCode, indexName)
	}

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(strings.NewReader(indexMapping(dims))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch refused to create index %s: %s", indexName, res.String())
	}
	log.Infof("[ES] index '%s' created", indexName)
	return nil
}

func (e *esIndex) Upsert(ctx context.Context, docs []model.ChunkDocument) error {
	if len(docs) == 0 {
		return nil
	}
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		action := map[string]interface{}{"index": map[string]interface{}{"_index": e.indexName, "_id": doc.VectorID}}
		if err := enc.Encode(action); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{Body: &body, Refresh: "true"}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("bulk index request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index returned an error: %s", res.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, result := range item {
				if result.Status >= 300 {
					return fmt.Errorf("bulk index item failed (%d): %s", result.Status, string(result.Error))
				}
			}
		}
		return errors.New("bulk index reported errors")
	}
	return nil
}

// buildKNNQuery builds the search body for a filtered kNN query.
func buildKNNQuery(vector []float32, topK int, docIDs []string) map[string]interface{} {
	knn := map[string]interface{}{
		"field":          "vector",
		"query_vector":   vector,
		"k":              topK,
		"num_candidates": topK * 10,
	}
	if len(docIDs) > 0 {
		knn["filter"] = map[string]interface{}{
			"terms": map[string]interface{}{"doc_id": docIDs},
		}
	}
	return map[string]interface{}{
		"knn":     knn,
		"size":    topK,
		"_source": []string{"doc_id", "file_name", "chunk_index", "text_content"},
	}
}

func (e *esIndex) Query(ctx context.Context, vector []float32, topK int, docIDs []string) ([]model.SearchHit, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildKNNQuery(vector, topK, docIDs)); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch returned an error: %s %s", res.Status(), string(body))
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.ChunkDocument `json:"_source"`
				Score  float64             `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]model.SearchHit, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		hits = append(hits, model.SearchHit{
			DocID:       hit.Source.DocID,
			FileName:    hit.Source.FileName,
			ChunkIndex:  hit.Source.ChunkIndex,
			TextContent: hit.Source.TextContent,
			Score:       hit.Score,
		})
	}
	return hits, nil
}

func (e *esIndex) DeleteByDocID(ctx context.Context, docID string) error {
	query := fmt.Sprintf(`{"query":{"term":{"doc_id":%q}}}`, docID)
	res, err := e.client.DeleteByQuery(
		[]string{e.indexName},
		strings.NewReader(query),
		e.client.DeleteByQuery.WithContext(ctx),
		e.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("delete by query failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete by query returned an error: %s", res.String())
	}
	return nil
}
