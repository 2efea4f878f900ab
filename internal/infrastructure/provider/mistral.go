package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

const (
	DefaultMistralURL   = "https://api.mistral.ai/v1/chat/completions"
	DefaultMistralModel = "mistral-small-latest"

	maxErrorBody = 4 << 10
)

// MistralConfig configures the Mistral chat-completions adapter.
type MistralConfig struct {
	APIKey       string
	Model        string
	URL          string
	SystemPrompt string
}

// Mistral implements ports.Provider against the Mistral chat-completions API.
type Mistral struct {
	client *http.Client
	cfg    MistralConfig
}

// NewMistral builds the adapter. Deadlines come from the caller's context,
// so the HTTP client should not carry its own timeout.
func NewMistral(client *http.Client, cfg MistralConfig) (*Mistral, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("mistral: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultMistralModel
	}
	if cfg.URL == "" {
		cfg.URL = DefaultMistralURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Mistral{client: client, cfg: cfg}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user turn and returns the first choice.
func (m *Mistral) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{Model: m.cfg.Model}
	if m.cfg.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: m.cfg.SystemPrompt})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(req)
	if err != nil {
		return "", rejected(fmt.Errorf("mistral: marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", rejected(fmt.Errorf("mistral: creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", &domain.ProviderError{Kind: domain.ProviderTimeout, Err: err}
		}
		if isConnectionError(err) {
			return "", &domain.ProviderError{Kind: domain.ProviderTransient, Err: fmt.Errorf("mistral: reading response: %w", err)}
		}
		return "", rejected(fmt.Errorf("mistral: decoding response: %w", err))
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", rejected(errors.New("mistral: empty completion"))
	}
	return out.Choices[0].Message.Content, nil
}

func rejected(err error) error {
	return &domain.ProviderError{Kind: domain.ProviderRejected, Err: err}
}

// classifyTransport maps errors from http.Client.Do.
func classifyTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &domain.ProviderError{Kind: domain.ProviderTimeout, Err: err}
	}
	if isConnectionError(err) {
		return &domain.ProviderError{Kind: domain.ProviderTransient, Err: fmt.Errorf("mistral: sending request: %w", err)}
	}
	return rejected(fmt.Errorf("mistral: sending request: %w", err))
}

func isConnectionError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// classifyStatus maps a non-200 response: 408, 429 and 5xx are transient,
// every other status is a rejection.
func classifyStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := fmt.Errorf("mistral: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))

	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return &domain.ProviderError{Kind: domain.ProviderTransient, Err: err}
	default:
		return rejected(err)
	}
}
