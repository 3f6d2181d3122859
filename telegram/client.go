package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lexrag/lexrag/core"
	"github.com/lexrag/lexrag/httpapi"
)

// Client posts queries to the HTTP API on behalf of the bot.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a query client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Query sends one question and returns the pipeline's answer.
func (c *Client) Query(ctx context.Context, query, chatID string) (*core.QueryResult, error) {
	body, err := json.Marshal(httpapi.QueryRequest{Query: query, ChatID: chatID})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling query api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&apiErr); decErr == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("query api returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("query api returned %d", resp.StatusCode)
	}

	var result core.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}
	return &result, nil
}
