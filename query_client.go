package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"assetedge/market"
)

// QueryExecutor is the surface the app needs from the remote query engine.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (*market.QueryResult, error)
	ExecuteCategory(ctx context.Context, category Category, query string) (string, error)
}

// QueryClient talks to the remote natural-language query engine over HTTP.
// The engine is an opaque collaborator: requests are {"query": ...} and the
// interactive response arrives as {"qr": <string or object>}.
type QueryClient struct {
	baseURL string
	client  *http.Client
	logger  func(string)
}

// NewQueryClient creates a client for the engine at baseURL.
func NewQueryClient(baseURL string, logger func(string)) *QueryClient {
	return &QueryClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (c *QueryClient) log(msg string) {
	if c.logger != nil {
		c.logger(msg)
	}
}

// Execute sends one interactive question and returns its result.
func (c *QueryClient) Execute(ctx context.Context, query string) (*market.QueryResult, error) {
	var resp struct {
		QR    market.QueryResult `json:"qr"`
		Error string             `json:"error"`
	}
	if err := c.post(ctx, c.baseURL+"/query", query, &resp); err != nil {
		return nil, WrapError("query", "Execute", err)
	}
	if resp.Error != "" {
		return nil, WrapError("query", "Execute", fmt.Errorf("engine error: %s", resp.Error))
	}
	return &resp.QR, nil
}

// ExecuteCategory sends one canned dashboard query to the category's
// endpoint (/query-all, /query-ytd, ...) and returns the raw response text
// found under the category key. Non-string payloads are returned as their
// JSON text so the extractor can still scan them.
func (c *QueryClient) ExecuteCategory(ctx context.Context, category Category, query string) (string, error) {
	var resp map[string]json.RawMessage
	if err := c.post(ctx, c.baseURL+"/query-"+category.Endpoint(), query, &resp); err != nil {
		return "", WrapError("query", "ExecuteCategory", err)
	}
	if raw, ok := resp["error"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		if msg != "" {
			return "", WrapError("query", "ExecuteCategory", fmt.Errorf("engine error: %s", msg))
		}
	}

	raw, ok := resp[string(category)]
	if !ok {
		return "", WrapError("query", "ExecuteCategory",
			fmt.Errorf("response missing %q field", string(category)))
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	return text, nil
}

func (c *QueryClient) post(ctx context.Context, url, query string, out interface{}) error {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		c.log(fmt.Sprintf("[QUERY] engine returned %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
		return fmt.Errorf("query engine error (%d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
