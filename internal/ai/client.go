package ai

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to an OpenAI-compatible API for both chat completions and
// embeddings. One instance is constructed at process start and shared across
// requests; it is safe for concurrent use.
type Client struct {
	baseURL        string
	apiKey         string
	chatModel      string
	embeddingModel string

	httpClient       *http.Client
	requestTimeout   time.Duration
	transientRetries int
}

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	RequestTimeout time.Duration
	// TransientRetries is the number of extra attempts after a transport-level
	// failure (connection error or HTTP 5xx). Semantic failures are never
	// retried.
	TransientRetries int
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retries := cfg.TransientRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:          cfg.BaseURL,
		apiKey:           cfg.APIKey,
		chatModel:        cfg.ChatModel,
		embeddingModel:   cfg.EmbeddingModel,
		httpClient:       &http.Client{Timeout: timeout},
		requestTimeout:   timeout,
		transientRetries: retries,
	}
}

// transientError marks a failure worth one more attempt: the request never
// produced a usable response from the server's side.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// doWithRetry runs call with a per-attempt timeout, retrying transport-level
// failures up to the configured budget.
func (c *Client) doWithRetry(ctx context.Context, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.transientRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		err := call(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) || ctx.Err() != nil {
			break
		}
	}
	return lastErr
}
