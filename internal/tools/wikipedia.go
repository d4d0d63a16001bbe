package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KafClaw/tribunal/internal/knowledge"
)

// WikipediaTool exposes a knowledge.Lookup to the backend.
type WikipediaTool struct {
	lookup knowledge.Lookup
}

func NewWikipediaTool(lookup knowledge.Lookup) *WikipediaTool {
	return &WikipediaTool{lookup: lookup}
}

func (t *WikipediaTool) Name() string { return "wikipedia" }

func (t *WikipediaTool) Description() string {
	return "Search Wikipedia and return page summaries. Use the page title in citations."
}

func (t *WikipediaTool) Parameters() map[string]any {
	return objectSchema([]string{"query"}, map[string]any{
		"query": stringParam("Search query"),
	})
}

func (t *WikipediaTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query := strings.TrimSpace(GetString(params, "query", ""))
	if query == "" {
		return jsonResult(knowledge.Result{})
	}
	res, err := t.lookup.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("wikipedia lookup %q: %w", query, err)
	}
	slog.Debug("Wikipedia lookup", "query", query, "found", res.Found, "title", res.Title)
	return jsonResult(res)
}
