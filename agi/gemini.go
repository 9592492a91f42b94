// Package agi suggests menu items for a free-text craving using Gemini.
package agi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

type GenerationConfig struct {
	Temperature      float32 `json:"temperature,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

// Schema is the subset of the OpenAPI schema Gemini accepts for structured output.
type Schema struct {
	Type       string             `json:"type"`
	Items      *Schema            `json:"items,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type GeminiResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Client calls the native generateContent endpoint.
type Client struct {
	HTTP    *http.Client
	apiKey  string
	baseURL string
	model   string
}

func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}
}

// GenerateJSON sends prompt and returns the text of the first candidate, which Gemini
// constrains to match schema.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema *Schema) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("gemini API key not configured")
	}

	body, err := json.Marshal(GeminiRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	log.WithFields(log.Fields{
		"model":    c.model,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("gemini: generateContent")

	if resp.StatusCode != http.StatusOK {
		var apiErr ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", errors.Errorf("gemini: %s (%d)", apiErr.Error.Message, resp.StatusCode)
		}
		return "", errors.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}

	var out GeminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrap(err, "parse response")
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
