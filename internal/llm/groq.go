package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/laxmihoney/honeychat/internal/reliability"
)

const (
	defaultBaseURL     = "https://api.groq.com/openai/v1"
	defaultModel       = "llama-3.1-8b-instant"
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
	defaultTimeout     = 30 * time.Second
)

// GroqConfig carries settings for the Groq chat-completions client. A nil
// Temperature means the default; an explicit zero is a legal setting and is
// sent as-is.
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxTokens   int
	Timeout     time.Duration
}

// GroqClient turns an assembled prompt string into a completion via Groq's
// chat API. The conversation layer treats it as an opaque text-in/text-out
// function; transient transport failures are retried here, never above.
type GroqClient struct {
	cfg         GroqConfig
	temperature float64
	httpClient  *http.Client
	logger      *slog.Logger
	retryCount  int
	backoff     time.Duration
	backoffCap  time.Duration
}

func NewGroqClient(cfg GroqConfig, logger *slog.Logger) *GroqClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	temperature := defaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GroqClient{
		cfg:         cfg,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		logger:      logger,
		retryCount:  2,
		backoff:     500 * time.Millisecond,
		backoffCap:  5 * time.Second,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type statusError struct {
	code    int
	snippet string
}

func (e *statusError) Error() string {
	if e.snippet == "" {
		return fmt.Sprintf("groq status %d", e.code)
	}
	return fmt.Sprintf("groq status %d: %s", e.code, e.snippet)
}

// Complete sends the prompt as a single user message and returns the model's
// reply text.
func (c *GroqClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	for attempt := 0; ; attempt++ {
		text, err := c.doRequest(ctx, req)
		if err == nil {
			return text, nil
		}
		if !retryable(err) || attempt == c.retryCount {
			return "", err
		}
		c.logger.Warn("groq retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(reliability.ExponentialBackoff(attempt, c.backoff, c.backoffCap)):
		}
	}
}

func (c *GroqClient) doRequest(ctx context.Context, body chatRequest) (string, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, snippet: bodySnippet(data)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("groq response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return reliability.IsRetryableHTTPStatus(se.code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func bodySnippet(data []byte) string {
	const limit = 200
	if len(data) > limit {
		data = data[:limit]
	}
	return string(data)
}
