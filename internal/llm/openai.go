package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deskwork/deskwork/internal/config"
	"github.com/deskwork/deskwork/internal/httpkit"
	"github.com/deskwork/deskwork/internal/retry"
)

// DefaultBaseURL is the OpenAI API endpoint. Compatible backends can
// override it via configuration.
const DefaultBaseURL = "https://api.openai.com/v1"

// Transport retry policy: three attempts with exponential backoff
// (300ms, 600ms, 1200ms). Transport failure, a non-2xx status, and a
// payload that fails to parse are all retryable; anything surviving
// all attempts is a terminal round failure.
const (
	chatAttempts    = 3
	chatBackoffBase = 300 * time.Millisecond
	errorBodyLimit  = 4 * 1024
	requestTimeout  = 5 * time.Minute // large models with tools need time
)

// OpenAIClient talks to an OpenAI-compatible chat-completions API.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIClient creates a client. An empty baseURL selects
// [DefaultBaseURL].
func NewOpenAIClient(baseURL, apiKey string, logger *slog.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(requestTimeout),
		),
		logger: logger,
	}
}

// Chat sends one chat-completions request, retrying transient
// failures per the transport policy.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	c.logger.Log(ctx, config.LevelTrace, "chat request", "payload", string(body))

	var resp *ChatResponse
	err = retry.Do(ctx, chatAttempts, retry.Exponential(chatBackoffBase), func() error {
		resp, err = c.chatOnce(ctx, body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *OpenAIClient) chatOnce(ctx context.Context, body []byte) (*ChatResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		msg := httpkit.ReadErrorBody(httpResp.Body, errorBodyLimit)
		return nil, fmt.Errorf("API status %d: %s", httpResp.StatusCode, msg)
	}

	var resp ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	return &resp, nil
}
