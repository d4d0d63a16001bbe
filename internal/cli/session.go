package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KafClaw/tribunal/internal/bus"
	"github.com/KafClaw/tribunal/internal/config"
	"github.com/KafClaw/tribunal/internal/court"
	"github.com/KafClaw/tribunal/internal/knowledge"
	"github.com/KafClaw/tribunal/internal/notify"
	"github.com/KafClaw/tribunal/internal/provider"
	"github.com/KafClaw/tribunal/internal/timeline"
	"github.com/KafClaw/tribunal/internal/tools"
)

// resolveProvider is replaced in tests.
var resolveProvider = provider.Resolve

// session holds everything one court run needs, including the optional
// timeline, Kafka and Slack sinks.
type session struct {
	court    *court.Court
	model    string
	trace    *bus.TraceBus
	timeline *timeline.TimelineService
	kafka    *bus.KafkaPublisher
	dispatch chan error
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	root, err := config.EnsureWorkspace(cfg)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	outDir, err := cfg.OutputDir()
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	prov, err := resolveProvider(ctx, cfg, "")
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	catalog, err := court.LoadCatalog(cfg.Paths.AgentsFile)
	if err != nil {
		return nil, err
	}

	var lookup knowledge.Lookup
	if cfg.Lookup.Enabled {
		lookup = knowledge.NewWikipedia(knowledge.Options{
			BaseURL:    cfg.Lookup.BaseURL,
			Lang:       cfg.Lookup.Lang,
			TopK:       cfg.Lookup.TopK,
			MaxChars:   cfg.Lookup.MaxChars,
			UserAgent:  "tribunal/" + version,
			HTTPClient: &http.Client{Timeout: 30 * time.Second},
			Retry:      cfg.Retry.Policy(),
		})
	}
	registry := tools.NewCourtRegistry(tools.CourtOptions{
		Workspace: func() string { return root },
		OutputDir: outDir,
		Lookup:    lookup,
	})

	s := &session{
		model:    prov.DefaultModel(),
		trace:    bus.NewTraceBus(0),
		dispatch: make(chan error, 1),
	}
	s.trace.Subscribe("log", bus.LogHandler)
	if cfg.Timeline.DBPath != "" {
		s.timeline, err = timeline.NewTimelineService(cfg.Timeline.DBPath)
		if err != nil {
			return nil, fmt.Errorf("timeline: %w", err)
		}
		s.trace.Subscribe("timeline", s.timeline.Handler())
	}
	if cfg.Trace.Brokers != "" {
		s.kafka, err = bus.NewKafkaPublisher(cfg.Trace.Brokers, cfg.Trace.Topic)
		if err != nil {
			s.closeStores()
			return nil, fmt.Errorf("trace: %w", err)
		}
		s.trace.Subscribe("kafka", s.kafka.Handler())
	}

	var notifier court.Notifier
	if cfg.Notify.SlackToken != "" {
		n, err := notify.NewSlack(cfg.Notify.SlackToken, cfg.Notify.SlackChannel, cfg.Notify.SlackAPIBase)
		if err != nil {
			s.closeStores()
			return nil, fmt.Errorf("notify: %w", err)
		}
		notifier = n
	}

	s.court, err = court.New(court.Options{
		Provider:          prov,
		Tools:             registry,
		Catalog:           catalog,
		MaxTokens:         cfg.Model.MaxTokens,
		Temperature:       cfg.Model.Temperature,
		MaxToolIterations: cfg.Model.MaxToolIterations,
		MaxIterations:     cfg.Loop.MaxIterations,
		MaxParallel:       cfg.Loop.MaxParallel,
		UseModelJudge:     cfg.Judge.UseModel,
		OutputDir:         outDir,
		Recorder:          s.trace,
		Notifier:          notifier,
	})
	if err != nil {
		s.closeStores()
		return nil, err
	}

	// Spans must reach the stores even after an interrupt.
	go func() { s.dispatch <- s.trace.Dispatch(context.WithoutCancel(ctx)) }()
	return s, nil
}

// run executes one topic and records it in the timeline when enabled.
func (s *session) run(ctx context.Context, runID, topic string) (*court.Result, error) {
	store := context.WithoutCancel(ctx)
	if s.timeline != nil {
		if err := s.timeline.StartRun(store, &timeline.RunRecord{RunID: runID, Topic: topic, Model: s.model}); err != nil {
			slog.Warn("Timeline start failed", "run_id", runID, "error", err)
		}
	}

	res, runErr := s.court.Run(ctx, topic)

	if s.timeline != nil {
		rec := &timeline.RunRecord{RunID: runID, Status: timeline.RunStatusCompleted}
		if runErr != nil {
			rec.Status = timeline.RunStatusFailed
			rec.ErrorText = runErr.Error()
		} else {
			rec.Iterations = res.Iterations
			rec.Balanced = res.Balanced
			rec.OutputPath = res.OutputPath
		}
		if err := s.timeline.FinishRun(store, rec); err != nil {
			slog.Warn("Timeline finish failed", "run_id", runID, "error", err)
		}
	}
	return res, runErr
}

// close drains the trace bus before closing the stores behind it.
func (s *session) close() error {
	s.trace.Close()
	err := <-s.dispatch
	if dropped := s.trace.Dropped(); dropped > 0 {
		slog.Warn("Trace events dropped", "count", dropped)
	}
	return errors.Join(err, s.closeStores())
}

func (s *session) closeStores() error {
	var errs []error
	if s.kafka != nil {
		errs = append(errs, s.kafka.Close())
	}
	if s.timeline != nil {
		errs = append(errs, s.timeline.Close())
	}
	return errors.Join(errs...)
}
