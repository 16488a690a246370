// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// EmbedMode selects the embedding task type. Documents are embedded
// once at ingestion with EmbedDocument; queries are embedded per call
// with EmbedQuery. The two modes produce different vectors for the
// same text (asymmetric embedding).
type EmbedMode string

const (
	EmbedDocument EmbedMode = "RETRIEVAL_DOCUMENT"
	EmbedQuery    EmbedMode = "RETRIEVAL_QUERY"
)

type embedRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType"`
}

type embedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
	Error *apiError `json:"error,omitempty"`
}

type batchEmbedRequest struct {
	Requests []embedRequest `json:"requests"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
	Error *apiError `json:"error,omitempty"`
}

// Embed returns the embedding vector for text in the given mode.
// Embedding uses only the primary credential; embedding volume is tiny
// next to generation and does not hit quota in practice.
func (c *Client) Embed(ctx context.Context, text string, mode EmbedMode) ([]float64, error) {
	if len(c.creds) == 0 {
		return nil, fmt.Errorf("genai: no credentials configured")
	}

	reqBody := embedRequest{
		Model:    "models/" + c.cfg.EmbedModel,
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: string(mode),
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:embedContent", apiBase, c.cfg.EmbedModel)
	var er embedResponse
	if err := c.postJSON(ctx, url, body, &er); err != nil {
		return nil, err
	}
	if len(er.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding API returned an empty vector")
	}
	return er.Embedding.Values, nil
}

// EmbedBatch embeds several texts in one call, preserving order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, mode EmbedMode) ([][]float64, error) {
	if len(c.creds) == 0 {
		return nil, fmt.Errorf("genai: no credentials configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := batchEmbedRequest{Requests: make([]embedRequest, len(texts))}
	for i, t := range texts {
		reqBody.Requests[i] = embedRequest{
			Model:    "models/" + c.cfg.EmbedModel,
			Content:  content{Parts: []part{{Text: t}}},
			TaskType: string(mode),
		}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling batch embed request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:batchEmbedContents", apiBase, c.cfg.EmbedModel)
	var br batchEmbedResponse
	if err := c.postJSON(ctx, url, body, &br); err != nil {
		return nil, err
	}
	if len(br.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d texts", len(br.Embeddings), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, e := range br.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// postJSON posts body to url with the primary credential and decodes
// the response into out.
func (c *Client) postJSON(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.creds[0].Key)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling embedding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding API returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding embedding response: %w", err)
	}
	return nil
}
