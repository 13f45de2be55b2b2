// Package workflowy fetches the shared Workflowy document the bot answers
// questions about. It supports the JSON initialization-data endpoint and the
// public share page.
package workflowy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/wtfconf/workflowybot/internal/config"
)

// Node is one entry of the shared outline. The document is consumed two
// levels deep; deeper nesting is carried along but never rendered.
type Node struct {
	Name     string `json:"nm"`
	Children []Node `json:"ch"`
}

// initData mirrors the nested shape of the initialization-data payload down
// to the root children array.
type initData struct {
	ProjectTreeData struct {
		MainProjectTreeInfo struct {
			RootProjectChildren []Node `json:"rootProjectChildren"`
		} `json:"mainProjectTreeInfo"`
	} `json:"projectTreeData"`
}

// Client retrieves the shared document for a single fixed project id.
type Client struct {
	httpClient *http.Client
	baseURL    string
	projectID  string
	logger     *slog.Logger
}

// NewClient creates a document client for the configured shared project.
func NewClient(cfg config.WorkflowyConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: http.DefaultClient,
		baseURL:    cfg.BaseURL,
		projectID:  cfg.SharedProjectID,
		logger:     logger.With("component", "workflowy"),
	}
}

// FetchOutline retrieves the document's top-level nodes from the
// initialization-data endpoint.
func (c *Client) FetchOutline(ctx context.Context) ([]Node, error) {
	u := fmt.Sprintf("%s/get_initialization_data?shared_projectid=%s",
		c.baseURL, url.QueryEscape(c.projectID))

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var payload initData
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode initialization data: %w", err)
	}

	children := payload.ProjectTreeData.MainProjectTreeInfo.RootProjectChildren
	if children == nil {
		// The nested path is absent; treat the unexpected shape as a
		// recoverable fetch error rather than dereferencing blindly.
		return nil, fmt.Errorf("initialization data has no root project children")
	}

	c.logger.DebugContext(ctx, "Fetched outline", "top_level_nodes", len(children))
	return children, nil
}

// FetchSharedTitle retrieves the public share page and returns the text of
// its <title> element.
func (c *Client) FetchSharedTitle(ctx context.Context) (string, error) {
	u := fmt.Sprintf("%s/s/%s", c.baseURL, url.PathEscape(c.projectID))

	body, err := c.get(ctx, u)
	if err != nil {
		return "", err
	}

	title, err := extractTitle(body)
	if err != nil {
		return "", err
	}

	c.logger.DebugContext(ctx, "Fetched shared page title", "title", title)
	return title, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %q: %w", u, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP response status for %q: %s", u, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %q: %w", u, err)
	}
	return body, nil
}
