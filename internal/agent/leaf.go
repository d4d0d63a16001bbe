// Package agent runs reasoning leaves: one bounded conversation with the
// backend in which returned tool calls are executed against the shared
// state and fed back until the backend answers with plain text.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KafClaw/tribunal/internal/orchestrator"
	"github.com/KafClaw/tribunal/internal/provider"
	"github.com/KafClaw/tribunal/internal/retry"
	"github.com/KafClaw/tribunal/internal/state"
	"github.com/KafClaw/tribunal/internal/tools"
)

const defaultMaxToolIterations = 20

// Options carries the runtime collaborators shared by every leaf.
type Options struct {
	Provider          provider.LLMProvider
	Tools             *tools.Registry
	Model             string
	MaxTokens         int
	Temperature       float64
	MaxToolIterations int
}

// Leaf is an orchestrator.Node backed by the reasoning backend.
type Leaf struct {
	def           Definition
	builder       *ContextBuilder
	provider      provider.LLMProvider
	registry      *tools.Registry
	partition     []state.ListID
	model         string
	maxTokens     int
	temperature   float64
	maxIterations int
}

// NewLeaf builds a leaf for def. The tool registry is narrowed to the
// definition's allow-list; naming an unregistered tool is an error.
func NewLeaf(def Definition, opts Options) (*Leaf, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: %s: no provider", ErrInvalidDefinition, def.Name)
	}
	builder, err := NewContextBuilder(def)
	if err != nil {
		return nil, err
	}
	partition, err := def.Lists()
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry()
	if len(def.Tools) > 0 {
		if opts.Tools == nil {
			return nil, fmt.Errorf("%w: %s: tools requested without a registry", ErrInvalidDefinition, def.Name)
		}
		registry, err = opts.Tools.Subset(def.Tools...)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", def.Name, err)
		}
	}

	l := &Leaf{
		def:           def,
		builder:       builder,
		provider:      opts.Provider,
		registry:      registry,
		partition:     partition,
		model:         opts.Model,
		maxTokens:     opts.MaxTokens,
		temperature:   opts.Temperature,
		maxIterations: opts.MaxToolIterations,
	}
	if def.Model != "" {
		l.model = def.Model
	}
	if def.Temperature != nil {
		l.temperature = *def.Temperature
	}
	if l.maxIterations <= 0 {
		l.maxIterations = defaultMaxToolIterations
	}
	return l, nil
}

func (l *Leaf) Name() string { return l.def.Name }

// Definition returns the definition the leaf was built from.
func (l *Leaf) Definition() Definition { return l.def }

// Run executes one conversation. The terminal text is stored under the
// leaf's name in the state outputs.
func (l *Leaf) Run(ctx context.Context, st *state.Store) (orchestrator.Outcome, error) {
	started := time.Now()
	text, stats, err := l.run(ctx, st)
	detail := fmt.Sprintf("model=%s tokens=%d llm_calls=%d tool_calls=%d", l.modelName(), stats.tokens, stats.llmCalls, stats.toolCalls)
	orchestrator.Record(ctx, orchestrator.Span{
		Node:     l.def.Name,
		Kind:     orchestrator.KindLeaf,
		Started:  started,
		Duration: time.Since(started),
		Outcome:  orchestrator.Continue,
		Err:      err,
		Detail:   detail,
	})
	if err != nil {
		return orchestrator.Continue, err
	}
	st.SetOutput(l.def.Name, text)
	return orchestrator.Continue, nil
}

type runStats struct {
	llmCalls  int
	toolCalls int
	tokens    int
}

func (l *Leaf) run(ctx context.Context, st *state.Store) (string, runStats, error) {
	var stats runStats
	messages, err := l.builder.BuildMessages(st.Snapshot())
	if err != nil {
		return "", stats, err
	}

	toolCtx := state.NewContext(ctx, st.View(l.partition...))
	toolDefs := l.buildToolDefinitions()
	slog.Debug("Agent run started", "agent", l.def.Name, "tools", l.registry.Names(), "iteration", orchestrator.IterationFrom(ctx))

	var last string
	for i := 0; i < l.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", stats, err
		}

		resp, err := l.provider.Chat(ctx, &provider.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Model:       l.model,
			MaxTokens:   l.maxTokens,
			Temperature: l.temperature,
		})
		stats.llmCalls++
		if err != nil {
			return "", stats, fmt.Errorf("agent %s: backend call: %w", l.def.Name, err)
		}
		if resp == nil {
			return "", stats, fmt.Errorf("agent %s: backend call: %w", l.def.Name, provider.ErrEmptyResponse)
		}
		stats.tokens += resp.Usage.TotalTokens
		last = resp.Content

		if !resp.HasToolCalls() {
			slog.Debug("Agent run finished", "agent", l.def.Name, "llm_calls", stats.llmCalls, "tool_calls", stats.toolCalls)
			return strings.TrimSpace(resp.Content), stats, nil
		}

		messages = append(messages, provider.Message{
			Role:      provider.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			stats.toolCalls++
			result, err := l.executeTool(toolCtx, tc)
			if err != nil {
				return "", stats, fmt.Errorf("agent %s: tool %s: %w", l.def.Name, tc.Name, err)
			}
			messages = append(messages, provider.Message{
				Role:       provider.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	slog.Warn("Tool iteration limit reached", "agent", l.def.Name, "limit", l.maxIterations)
	return strings.TrimSpace(last), stats, nil
}

// executeTool runs one call. Only external service failures are returned as
// errors; everything else becomes error text for the backend.
func (l *Leaf) executeTool(ctx context.Context, tc provider.ToolCall) (string, error) {
	if !l.registry.Has(tc.Name) {
		slog.Warn("Tool not allowed", "agent", l.def.Name, "tool", tc.Name)
		return fmt.Sprintf("Error: tool %q is not available to %s", tc.Name, l.def.Name), nil
	}

	started := time.Now()
	result, err := l.registry.Execute(ctx, tc.Name, tc.Arguments)
	orchestrator.Record(ctx, orchestrator.Span{
		Node:     tc.Name,
		Kind:     orchestrator.KindTool,
		Started:  started,
		Duration: time.Since(started),
		Err:      err,
		Detail:   "agent=" + l.def.Name,
	})
	if err != nil {
		if retry.IsExternal(err) {
			return "", err
		}
		slog.Warn("Tool failed", "agent", l.def.Name, "tool", tc.Name, "error", err)
		return fmt.Sprintf("Error: %v", err), nil
	}
	slog.Debug("Tool executed", "agent", l.def.Name, "name", tc.Name, "result_length", len(result))
	return result, nil
}

func (l *Leaf) buildToolDefinitions() []provider.ToolDefinition {
	list := l.registry.List()
	if len(list) == 0 {
		return nil
	}
	defs := make([]provider.ToolDefinition, len(list))
	for i, tool := range list {
		defs[i] = provider.ToolDefinition{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		}
	}
	return defs
}

func (l *Leaf) modelName() string {
	if l.model != "" {
		return l.model
	}
	return l.provider.DefaultModel()
}
