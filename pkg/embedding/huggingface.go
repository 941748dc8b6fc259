package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"copro-smart-go/internal/config"
	"copro-smart-go/pkg/log"
)

// huggingFaceClient talks to the Hugging Face feature-extraction pipeline.
type huggingFaceClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

func newHuggingFaceClient(cfg config.EmbeddingConfig, client *http.Client) *huggingFaceClient {
	return &huggingFaceClient{cfg: cfg, client: client}
}

func (c *huggingFaceClient) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/pipeline/feature-extraction/" + c.cfg.Model
}

func (c *huggingFaceClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	log.Infof("[EmbeddingClient] calling feature-extraction, model: %s, input_len: %d", c.cfg.Model, len(text))
	reqBytes, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > 1024 {
			body = body[:1024]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return decodeFeatureVector(body)
}

// decodeFeatureVector accepts either a flat vector or a single-row matrix.
func decodeFeatureVector(body []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil {
		if len(flat) == 0 {
			return nil, fmt.Errorf("received empty embedding from api")
		}
		return flat, nil
	}
	var nested [][]float32
	if err := json.Unmarshal(body, &nested); err != nil {
		return nil, fmt.Errorf("embedding response contains non-numeric values: %w", err)
	}
	if len(nested) == 0 || len(nested[0]) == 0 {
		return nil, fmt.Errorf("received empty embedding from api")
	}
	return nested[0], nil
}
