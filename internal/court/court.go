// Package court assembles the historical court: two evidence gatherers run
// in parallel inside a bounded review loop governed by the balance judge,
// then a verdict writer persists the report.
package court

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KafClaw/tribunal/internal/agent"
	"github.com/KafClaw/tribunal/internal/balance"
	"github.com/KafClaw/tribunal/internal/orchestrator"
	"github.com/KafClaw/tribunal/internal/provider"
	"github.com/KafClaw/tribunal/internal/sink"
	"github.com/KafClaw/tribunal/internal/state"
	"github.com/KafClaw/tribunal/internal/tools"
)

const defaultMaxIterations = 5

// Notifier is told about every report the court writes.
type Notifier interface {
	ReportWritten(ctx context.Context, res *Result) error
}

// Options configures a Court.
type Options struct {
	Provider          provider.LLMProvider
	Tools             *tools.Registry
	Catalog           Catalog
	Model             string
	MaxTokens         int
	Temperature       float64
	MaxToolIterations int
	MaxIterations     int
	MaxParallel       int
	UseModelJudge     bool
	OutputDir         string
	Recorder          orchestrator.Recorder
	Notifier          Notifier
}

// Result describes one finished session.
type Result struct {
	RunID      string
	Topic      string
	OutputPath string
	Fallback   bool
	Iterations int
	Balanced   bool
	Verdict    balance.Verdict
	Snapshot   state.Snapshot
	Duration   time.Duration
}

// Court runs sessions. It is safe to run several topics concurrently; each
// run gets its own state store.
type Court struct {
	admirer   *agent.Leaf
	critic    *agent.Leaf
	writer    *agent.Leaf
	judge     *Judge
	maxIter   int
	parallel  int
	outputDir string
	recorder  orchestrator.Recorder
	notifier  Notifier
}

// New builds the court's leaves from the catalog.
func New(opts Options) (*Court, error) {
	required := []string{AgentAdmirer, AgentCritic, AgentWriter}
	if opts.UseModelJudge {
		required = append(required, AgentJudge)
	}
	if err := opts.Catalog.Require(required...); err != nil {
		return nil, err
	}
	if opts.Tools == nil {
		return nil, errors.New("court: tool registry is required")
	}

	leafOpts := agent.Options{
		Provider:          opts.Provider,
		Tools:             opts.Tools,
		Model:             opts.Model,
		MaxTokens:         opts.MaxTokens,
		Temperature:       opts.Temperature,
		MaxToolIterations: opts.MaxToolIterations,
	}
	build := func(name string) (*agent.Leaf, error) {
		def, _ := opts.Catalog.Agents.Get(name)
		def.Tools = availableTools(def, opts.Tools)
		leaf, err := agent.NewLeaf(def, leafOpts)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
		return leaf, nil
	}

	c := &Court{
		maxIter:   opts.MaxIterations,
		parallel:  opts.MaxParallel,
		outputDir: opts.OutputDir,
		recorder:  opts.Recorder,
		notifier:  opts.Notifier,
	}
	if c.maxIter == 0 {
		c.maxIter = defaultMaxIterations
	}
	if c.outputDir == "" {
		c.outputDir = "outputs"
	}

	var err error
	if c.admirer, err = build(AgentAdmirer); err != nil {
		return nil, err
	}
	if c.critic, err = build(AgentCritic); err != nil {
		return nil, err
	}
	if c.writer, err = build(AgentWriter); err != nil {
		return nil, err
	}
	var advisor orchestrator.Node
	if opts.UseModelJudge {
		if advisor, err = build(AgentJudge); err != nil {
			return nil, err
		}
	}
	c.judge = NewJudge(opts.Catalog.Policy, advisor)
	return c, nil
}

// availableTools drops allow-listed tools the registry does not provide,
// such as wikipedia when lookups are disabled.
func availableTools(def agent.Definition, reg *tools.Registry) []string {
	out := make([]string, 0, len(def.Tools))
	for _, name := range def.Tools {
		if reg.Has(name) {
			out = append(out, name)
			continue
		}
		slog.Warn("Tool unavailable, removed from allow-list", "agent", def.Name, "tool", name)
	}
	return out
}

// Tree returns the node tree for one session on topic.
func (c *Court) Tree(topic string) orchestrator.Node {
	investigation := orchestrator.Parallel("investigation", c.admirer, c.critic).WithLimit(c.parallel)
	round := orchestrator.Sequential("review_round", investigation, c.judge)
	return orchestrator.Sequential("historical_court_root",
		InitTopic(topic),
		orchestrator.Sequential("court_system",
			orchestrator.Loop("trial_loop", round, c.maxIter),
			c.writer,
		),
	)
}

// InitTopic returns the node that resets the state for topic.
func InitTopic(topic string) orchestrator.Node {
	return orchestrator.Func("init_topic", func(_ context.Context, st *state.Store) (orchestrator.Outcome, error) {
		st.Reset(topic)
		slog.Info("Topic initialized", "topic", topic)
		return orchestrator.Continue, nil
	})
}

// Run executes a full session on topic and returns where the report went.
// A run ID already carried by ctx is reused; otherwise a new one is made.
func (c *Court) Run(ctx context.Context, topic string) (*Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	started := time.Now()
	runID := orchestrator.RunIDFrom(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = orchestrator.WithRunID(ctx, runID)
	}
	if c.recorder != nil {
		ctx = orchestrator.WithRecorder(ctx, c.recorder)
	}
	slog.Info("Court session started", "run_id", runID, "topic", topic, "max_iterations", c.maxIter)

	st := state.New()
	if _, err := c.Tree(topic).Run(ctx, st); err != nil {
		slog.Error("Court session failed", "run_id", runID, "topic", topic, "error", err)
		return nil, fmt.Errorf("court session %q: %w", topic, err)
	}

	res, err := c.finish(st, runID, topic)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(started)
	slog.Info("Court session finished",
		"run_id", runID,
		"topic", topic,
		"iterations", res.Iterations,
		"balanced", res.Balanced,
		"output", res.OutputPath,
		"duration", res.Duration,
	)

	if c.notifier != nil {
		if err := c.notifier.ReportWritten(ctx, res); err != nil {
			slog.Warn("Report notification failed", "run_id", runID, "error", err)
		}
	}
	return res, nil
}

// finish applies the report fallback and builds the result.
func (c *Court) finish(st *state.Store, runID, topic string) (*Result, error) {
	snap := st.Snapshot()
	res := &Result{
		RunID:      runID,
		Topic:      topic,
		OutputPath: snap.OutputPath,
		Iterations: snap.Iteration,
		Verdict:    balance.Evaluate(snap),
	}
	res.Balanced = res.Verdict.Balanced

	if res.OutputPath == "" {
		text := snap.Outputs[AgentWriter]
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("court session %q: %w", topic, ErrNoReport)
		}
		path, err := sink.WriteFile(c.outputDir, topic, text)
		if err != nil {
			return nil, fmt.Errorf("court session %q: %w", topic, err)
		}
		st.SetOutputPath(path)
		slog.Info("Saved", "path", path, "fallback", true)
		res.OutputPath = path
		res.Fallback = true
	}
	res.Snapshot = st.Snapshot()
	return res, nil
}
