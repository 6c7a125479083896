package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultPostTimeout is the maximum time to wait for the chat platform
// to accept an outbound message.
const DefaultPostTimeout = 15 * time.Second

// Poster sends messages back to the chat platform.
// Use this interface for dependency injection to enable mocking in tests.
type Poster interface {
	PostMessage(ctx context.Context, channel, threadID, text string) error
}

// HTTPPoster posts messages to the platform's response webhook.
type HTTPPoster struct {
	responseURL string
	secret      string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewHTTPPoster creates a poster for the given response URL.
func NewHTTPPoster(responseURL, secret string, logger *zap.Logger) *HTTPPoster {
	return &HTTPPoster{
		responseURL: responseURL,
		secret:      secret,
		httpClient: &http.Client{
			Timeout: DefaultPostTimeout,
		},
		logger: logger.Named("chat-poster"),
	}
}

type outboundMessage struct {
	Channel  string `json:"channel"`
	ThreadID string `json:"thread_id,omitempty"`
	Text     string `json:"text"`
}

// PostMessage sends one message, threading it when threadID is set.
func (p *HTTPPoster) PostMessage(ctx context.Context, channel, threadID, text string) error {
	body, err := json.Marshal(outboundMessage{
		Channel:  channel,
		ThreadID: threadID,
		Text:     text,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.responseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.secret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		p.logger.Error("chat platform rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)))
		return fmt.Errorf("chat platform returned status %d", resp.StatusCode)
	}

	return nil
}

// Ensure HTTPPoster implements Poster at compile time.
var _ Poster = (*HTTPPoster)(nil)
