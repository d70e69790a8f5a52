package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Complete submits the full ordered message sequence and returns the model's
// single textual reply.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	var answer string
	err := c.doWithRetry(ctx, func(ctx context.Context) error {
		reqBody := map[string]interface{}{
			"model":    c.chatModel,
			"messages": messages,
			"stream":   false,
		}
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal llm request failed: %w", err)
		}

		url := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("build llm request failed: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &transientError{err: fmt.Errorf("llm request failed: %w", err)}
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return &transientError{err: fmt.Errorf("read llm response failed: %w", err)}
		}
		if resp.StatusCode >= 500 {
			return &transientError{err: fmt.Errorf("llm response status %d: %s", resp.StatusCode, string(raw))}
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("llm response status %d: %s", resp.StatusCode, string(raw))
		}

		var parsed struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("parse llm json failed: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return fmt.Errorf("empty llm choices")
		}
		answer = parsed.Choices[0].Message.Content
		return nil
	})
	return answer, err
}
