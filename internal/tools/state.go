package tools

import (
	"context"
	"log/slog"
	"strings"

	"github.com/KafClaw/tribunal/internal/state"
)

func viewFrom(ctx context.Context) (*state.View, error) {
	v, ok := state.FromContext(ctx)
	if !ok {
		return nil, ErrNoState
	}
	return v, nil
}

func listParam(params map[string]any) state.ListID {
	key := GetString(params, "key", "")
	if id, ok := state.ParseListID(key); ok {
		return id
	}
	return state.ListID(key)
}

// InitTopicTool resets the execution state for a new topic.
type InitTopicTool struct{}

func NewInitTopicTool() *InitTopicTool { return &InitTopicTool{} }

func (t *InitTopicTool) Name() string { return "init_topic" }

func (t *InitTopicTool) Description() string {
	return "Reset the court state and set the topic under review."
}

func (t *InitTopicTool) Parameters() map[string]any {
	return objectSchema([]string{"topic"}, map[string]any{
		"topic": stringParam("Historical person or event to review"),
	})
}

func (t *InitTopicTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	v, err := viewFrom(ctx)
	if err != nil {
		return "", err
	}
	topic := strings.TrimSpace(GetString(params, "topic", ""))
	res := v.InitTopic(topic)
	slog.Info("Topic initialized", "topic", topic)
	return jsonResult(res)
}

// AppendFactTool adds evidence lines to a fact list.
type AppendFactTool struct{}

func NewAppendFactTool() *AppendFactTool { return &AppendFactTool{} }

func (t *AppendFactTool) Name() string { return "append_fact" }

func (t *AppendFactTool) Description() string {
	return "Append a fact line to the positive or negative list. Lists hold at most 3 unique facts. " +
		"Several lines may be sent at once separated by newlines."
}

func (t *AppendFactTool) Parameters() map[string]any {
	return objectSchema([]string{"key", "fact"}, map[string]any{
		"key": map[string]any{
			"type":        "string",
			"description": "Target list",
			"enum":        []string{string(state.Positive), string(state.Negative)},
		},
		"fact": stringParam("Fact line, e.g. \"[Legal]: ... (Ref: Page Title)\""),
	})
}

func (t *AppendFactTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	v, err := viewFrom(ctx)
	if err != nil {
		return "", err
	}
	list := listParam(params)
	fact := GetString(params, "fact", "")
	res := v.AppendFacts(list, fact)
	switch res.Status {
	case state.StatusSuccess:
		slog.Info("Fact added", "list", list, "added", res.AddedCount, "total", res.TotalCount, "fact", state.Normalize(fact))
	case state.StatusSkipped:
		slog.Info("Fact skipped", "list", list, "reason", res.Reason, "fact", state.Normalize(fact))
	case state.StatusIgnored:
		slog.Warn("Fact ignored", "list", list, "reason", res.Reason)
	}
	return jsonResult(res)
}

// AppendTitleTool records a cited page title so it is not reused.
type AppendTitleTool struct{}

func NewAppendTitleTool() *AppendTitleTool { return &AppendTitleTool{} }

func (t *AppendTitleTool) Name() string { return "append_title_used" }

func (t *AppendTitleTool) Description() string {
	return "Record a reference page title as used so later searches avoid it."
}

func (t *AppendTitleTool) Parameters() map[string]any {
	return objectSchema([]string{"key", "title"}, map[string]any{
		"key": map[string]any{
			"type":        "string",
			"description": "Title registry",
			"enum":        []string{string(state.Positive), string(state.Negative)},
		},
		"title": stringParam("Page title that was cited"),
	})
}

func (t *AppendTitleTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	v, err := viewFrom(ctx)
	if err != nil {
		return "", err
	}
	list := listParam(params)
	title := GetString(params, "title", "")
	res := v.AppendTitle(list, title)
	if res.Status == state.StatusSuccess {
		slog.Info("Title added", "list", list, "title", state.Normalize(title))
	}
	return jsonResult(res)
}

// CheckNegTagsTool reports whether the negative list covers every required tag.
type CheckNegTagsTool struct{}

func NewCheckNegTagsTool() *CheckNegTagsTool { return &CheckNegTagsTool{} }

func (t *CheckNegTagsTool) Name() string { return "check_neg_tags" }

func (t *CheckNegTagsTool) Description() string {
	return "Check that the negative list has exactly 3 facts using each of [Legal], [Event] and [Other] once."
}

func (t *CheckNegTagsTool) Parameters() map[string]any {
	return objectSchema(nil, map[string]any{})
}

func (t *CheckNegTagsTool) Execute(ctx context.Context, _ map[string]any) (string, error) {
	v, err := viewFrom(ctx)
	if err != nil {
		return "", err
	}
	return jsonResult(v.CheckRequiredTags())
}

// SetSuffixesTool replaces both search suffixes.
type SetSuffixesTool struct{}

func NewSetSuffixesTool() *SetSuffixesTool { return &SetSuffixesTool{} }

func (t *SetSuffixesTool) Name() string { return "set_suffixes" }

func (t *SetSuffixesTool) Description() string {
	return "Refine the search keywords appended to the topic for the next review round."
}

func (t *SetSuffixesTool) Parameters() map[string]any {
	return objectSchema([]string{"pos_suffix", "neg_suffix"}, map[string]any{
		"pos_suffix": stringParam("Keywords for positive searches"),
		"neg_suffix": stringParam("Keywords for negative searches"),
	})
}

func (t *SetSuffixesTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	v, err := viewFrom(ctx)
	if err != nil {
		return "", err
	}
	pos := GetString(params, "pos_suffix", "")
	neg := GetString(params, "neg_suffix", "")
	res := v.SetSuffixes(pos, neg)
	slog.Info("Suffix updated", "pos_suffix", pos, "neg_suffix", neg)
	return jsonResult(res)
}
