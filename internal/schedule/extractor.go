// Package schedule turns the fetched Workflowy document and a free-text
// query into a human-readable chat reply.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/wtfconf/workflowybot/internal/workflowy"
)

// tagPattern strips HTML markup from outline node names. The match is
// non-greedy and crosses line boundaries; unterminated tag content after the
// last valid tag is left as-is.
var tagPattern = regexp.MustCompile(`(?s)<.*?>`)

// Extractor renders a reply for a free-text query against the shared
// document.
type Extractor interface {
	Reply(ctx context.Context, query string) (string, error)
}

// OutlineSource supplies the structured document tree.
type OutlineSource interface {
	FetchOutline(ctx context.Context) ([]workflowy.Node, error)
}

// TitleSource supplies the shared page title.
type TitleSource interface {
	FetchSharedTitle(ctx context.Context) (string, error)
}

// OutlineExtractor answers queries by walking the document tree two levels
// deep. This is the primary extraction strategy.
type OutlineExtractor struct {
	source OutlineSource
	logger *slog.Logger
}

// NewOutlineExtractor creates the tree-walking extractor.
func NewOutlineExtractor(source OutlineSource, logger *slog.Logger) *OutlineExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutlineExtractor{
		source: source,
		logger: logger.With("component", "extractor", "variant", "outline"),
	}
}

// Reply fetches the document and renders the schedule for the first
// top-level node whose name appears in the query.
func (e *OutlineExtractor) Reply(ctx context.Context, query string) (string, error) {
	nodes, err := e.source.FetchOutline(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch outline: %w", err)
	}

	reply := Render(nodes, query)
	e.logger.DebugContext(ctx, "Rendered schedule reply", "query", query, "top_level_nodes", len(nodes))
	return reply, nil
}

// Render selects the first top-level node whose lowercased name is a
// substring of the lowercased query and formats its children and
// grandchildren. Depth is capped at two levels.
func Render(nodes []workflowy.Node, query string) string {
	var matched *workflowy.Node
	lowerQuery := strings.ToLower(query)

	for i := range nodes {
		if nodes[i].Name == "" {
			continue
		}
		if strings.Contains(lowerQuery, strings.ToLower(nodes[i].Name)) {
			matched = &nodes[i]
			break
		}
	}

	if matched == nil {
		return "I'm sorry, I couldn't find anything on the schedule for " + query
	}

	var b strings.Builder
	b.WriteString("Schedule for " + matched.Name + ": \n")
	for _, child := range matched.Children {
		b.WriteString("*" + stripTags(child.Name) + "*\n")
		for _, grandchild := range child.Children {
			b.WriteString("    -" + stripTags(grandchild.Name) + "\n")
		}
	}
	return b.String()
}

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// TitleExtractor answers every query with the shared page's title. This is
// the alternate extraction strategy; its reply format is unrelated to the
// outline variant and the two are never combined.
type TitleExtractor struct {
	source TitleSource
	logger *slog.Logger
}

// NewTitleExtractor creates the page-title extractor.
func NewTitleExtractor(source TitleSource, logger *slog.Logger) *TitleExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TitleExtractor{
		source: source,
		logger: logger.With("component", "extractor", "variant", "title"),
	}
}

// Reply fetches the shared page and replies with its title.
func (e *TitleExtractor) Reply(ctx context.Context, _ string) (string, error) {
	title, err := e.source.FetchSharedTitle(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch shared page title: %w", err)
	}

	e.logger.DebugContext(ctx, "Replying with shared page title", "title", title)
	return title, nil
}
