// Package wiki provides a client for publishing query results to the
// team wiki.
package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/warehouse"
)

// DefaultTimeout is the maximum time to wait for wiki responses.
const DefaultTimeout = 30 * time.Second

// Page describes a created wiki page.
type Page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// PageWriter publishes query results as wiki pages.
// Use this interface for dependency injection to enable mocking in tests.
type PageWriter interface {
	PublishResult(ctx context.Context, title, summary string, result *warehouse.QueryResult) (*Page, error)
}

// Config holds wiki connection settings.
type Config struct {
	BaseURL  string
	SpaceKey string
	APIToken string
}

// Client publishes pages through the wiki's content REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new wiki client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logger.Named("wiki"),
	}
}

type createPageRequest struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Body struct {
		Storage struct {
			Value          string `json:"value"`
			Representation string `json:"representation"`
		} `json:"storage"`
	} `json:"body"`
}

type createPageResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Links struct {
		Base  string `json:"base"`
		WebUI string `json:"webui"`
	} `json:"_links"`
}

// PublishResult renders the query result as a storage-format table and
// creates a page for it in the configured space.
func (c *Client) PublishResult(ctx context.Context, title, summary string, result *warehouse.QueryResult) (*Page, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if result == nil || result.RowCount == 0 {
		return nil, fmt.Errorf("nothing to publish: empty result")
	}

	payload := createPageRequest{Type: "page", Title: title}
	payload.Space.Key = c.cfg.SpaceKey
	payload.Body.Storage.Value = RenderStorageBody(summary, result)
	payload.Body.Storage.Representation = "storage"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal page: %w", err)
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/rest/api/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Info("Publishing wiki page",
		zap.String("title", title),
		zap.String("space", c.cfg.SpaceKey),
		zap.Int("rows", result.RowCount))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call wiki: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("wiki returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)))
		return nil, fmt.Errorf("wiki returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var created createPageResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	pageURL := created.Links.Base + created.Links.WebUI
	if created.Links.WebUI == "" {
		pageURL = endpoint + "/" + created.ID
	}

	return &Page{
		ID:    created.ID,
		Title: created.Title,
		URL:   pageURL,
	}, nil
}

// Ensure Client implements PageWriter at compile time.
var _ PageWriter = (*Client)(nil)
