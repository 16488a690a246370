// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package genai is a client for the Gemini generation and embedding API.
// Generation calls walk an ordered credential list: when one credential
// reports quota exhaustion the next is tried, and only after the whole
// chain is exhausted does the caller see ErrQuotaExhausted.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/pkg/types"
)

// apiBase is the Gemini API endpoint prefix. Declared as a var so tests
// can substitute an httptest server.
var apiBase = "https://generativelanguage.googleapis.com/v1beta/models"

// ErrQuotaExhausted reports that every configured credential has
// exhausted its quota.
var ErrQuotaExhausted = errors.New("genai: quota exhausted on all credentials")

// defaultTimeout bounds each API call when the config does not set one.
const defaultTimeout = 20 * time.Second

// Credential is one API key in the fallback chain.
type Credential struct {
	// Name labels the credential in logs (e.g. "primary").
	Name string

	// Key is the API key value.
	Key string
}

// Client calls the Gemini API for generation and embeddings.
type Client struct {
	cfg    types.GenAIConfig
	creds  []Credential
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a Client from config. The credential chain is the
// primary key followed by the secondary key when one is configured.
func NewClient(cfg types.GenAIConfig, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-lite"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-004"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var creds []Credential
	if cfg.APIKey != "" {
		creds = append(creds, Credential{Name: "primary", Key: cfg.APIKey})
	}
	if cfg.SecondaryAPIKey != "" {
		creds = append(creds, Credential{Name: "secondary", Key: cfg.SecondaryAPIKey})
	}

	return &Client{
		cfg:    cfg,
		creds:  creds,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Gemini generateContent request and response bodies.

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// quotaError reports whether an HTTP status plus API error body signals
// quota exhaustion rather than a transient or caller error.
func quotaError(httpStatus int, ae *apiError) bool {
	if ae != nil && ae.Status == "RESOURCE_EXHAUSTED" {
		return true
	}
	return httpStatus == http.StatusTooManyRequests
}

// Generate sends a prompt to the generation model and returns the text
// of the first candidate. Credentials are tried in order; quota
// exhaustion moves to the next credential, any other failure is
// returned immediately. With no credentials configured Generate fails.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if len(c.creds) == 0 {
		return "", fmt.Errorf("genai: no credentials configured")
	}

	var lastQuota error
	for _, cred := range c.creds {
		text, err := c.generateWith(ctx, cred, prompt)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, ErrQuotaExhausted) {
			c.logger.Warn("credential quota exhausted, trying next",
				zap.String("credential", cred.Name))
			lastQuota = err
			continue
		}
		return "", err
	}
	return "", lastQuota
}

func (c *Client) generateWith(ctx context.Context, cred Credential, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature: c.cfg.Temperature,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", apiBase, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cred.Key)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generation API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading generation response: %w", err)
	}

	var gr generateResponse
	// Error details may arrive with a non-200 status and a JSON body;
	// a decode failure on those is reported via the status code below.
	_ = json.Unmarshal(respBody, &gr)

	if resp.StatusCode != http.StatusOK {
		if quotaError(resp.StatusCode, gr.Error) {
			return "", fmt.Errorf("credential %s: %w", cred.Name, ErrQuotaExhausted)
		}
		return "", fmt.Errorf("generation API returned HTTP %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generation API returned no candidates")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
