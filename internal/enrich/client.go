// Package enrich produces the narrative enrichment for a run: one bounded
// call to an external text-generation endpoint, multi-strategy parsing of
// whatever comes back, and a deterministic heuristic fallback that guarantees
// the pipeline never blocks on this step.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/internal/config"
)

// Generator issues one narrative-generation request. The orchestrator depends
// on this interface so tests can substitute failing or scripted endpoints.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// -- Generation API Request/Response Structures --

type generationContent struct {
	Parts []generationPart `json:"parts"`
	Role  string           `json:"role,omitempty"`
}

type generationPart struct {
	Text string `json:"text"`
}

type generationRequest struct {
	Contents []generationContent `json:"contents"`
}

type generationResponse struct {
	Candidates []struct {
		Content      generationContent `json:"content"`
		FinishReason string            `json:"finishReason"`
	} `json:"candidates"`
}

// Client calls the external narrative-generation endpoint. Policy per run:
// a single attempt bounded by the configured timeout, no automatic retry (the
// pipeline is rerun externally at a fixed cadence); on timeout the in-flight
// request is cancelled to free the connection before the fallback takes over.
type Client struct {
	apiKey   string
	endpoint string
	timeout  time.Duration
	client   *http.Client
	logger   *zap.Logger
}

// NewClient initializes the narrative client from the enrichment config.
func NewClient(cfg config.EnrichmentConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.Named("enrich.client"),
	}
}

// Generate sends the prompt and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload := generationRequest{
		Contents: []generationContent{
			{Role: "user", Parts: []generationPart{{Text: prompt}}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation endpoint returned status %d", resp.StatusCode)
	}

	var parsed generationResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generation endpoint returned no content")
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("generation endpoint returned empty text")
	}

	c.logger.Info("Narrative generation complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("chars", len(text)))
	return text, nil
}
