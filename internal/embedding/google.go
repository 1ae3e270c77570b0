package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DreamCats/medindex/internal/config"
)

const defaultGoogleEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// GoogleClient calls the Google AI Studio embedContent endpoint.
type GoogleClient struct {
	apiKey     string
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

type googleEmbedRequest struct {
	Model                string        `json:"model"`
	Content              googleContent `json:"content"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleEmbedResponse struct {
	Embedding *struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// NewGoogleClient creates a new Google AI Studio embedding client
func NewGoogleClient(cfg *config.EmbeddingConfig) (*GoogleClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google api_key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultGoogleEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GoogleClient{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      strings.TrimPrefix(model, "models/"),
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Name identifies the provider in logs.
func (c *GoogleClient) Name() string { return "google" }

// EmbedContent embeds a single text
func (c *GoogleClient) EmbedContent(ctx context.Context, text string) ([]float64, error) {
	req := googleEmbedRequest{
		Model:   "models/" + c.model,
		Content: googleContent{Parts: []googlePart{{Text: text}}},
	}
	// text-embedding-004 is fixed at 768; only send an override when it differs.
	if c.dimensions > 0 && c.dimensions != 768 {
		req.OutputDimensionality = c.dimensions
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:embedContent?key=%s", c.endpoint, c.model, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var apiResp googleEmbedResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Embedding == nil {
		return nil, nil
	}
	return apiResp.Embedding.Values, nil
}
