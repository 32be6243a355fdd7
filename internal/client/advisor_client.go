package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AdvisorClient calls the external generative-AI advisory endpoint. The
// model does the reasoning; we only shuttle structured JSON both ways.
type AdvisorClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewAdvisorClient(baseURL, apiKey string, timeout time.Duration) *AdvisorClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AdvisorClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type adviceRequest struct {
	RequestID string          `json:"request_id"`
	Kind      string          `json:"kind"`
	Input     json.RawMessage `json:"input"`
}

type adviceResponse struct {
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error,omitempty"`
}

// Advise forwards the structured input for one advisory kind and
// returns the model's JSON output verbatim.
func (c *AdvisorClient) Advise(ctx context.Context, requestID, kind string, input json.RawMessage) (json.RawMessage, error) {
	body, err := json.Marshal(adviceRequest{
		RequestID: requestID,
		Kind:      kind,
		Input:     input,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/advice", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result adviceResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
	}

	if resp.StatusCode != http.StatusOK {
		errMsg := result.Error
		if errMsg == "" {
			errMsg = string(respBody)
		}
		return nil, fmt.Errorf("advisor returned status %d: %s", resp.StatusCode, errMsg)
	}

	return result.Output, nil
}
