package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/KafClaw/tribunal/internal/config"
	"github.com/KafClaw/tribunal/internal/orchestrator"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runTopic         string
	runOutputDir     string
	runMaxIterations int
	runAgentsFile    string
	runModel         string
)

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Hold a court session on a historical topic and write the report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCourt,
}

func init() {
	runCmd.Flags().StringVarP(&runTopic, "topic", "t", "", "Historical topic (prompted when empty)")
	runCmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "Report directory (default from config)")
	runCmd.Flags().IntVarP(&runMaxIterations, "max-iterations", "n", 0, "Review round budget (default from config)")
	runCmd.Flags().StringVar(&runAgentsFile, "agents-file", "", "YAML file overriding agent definitions")
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model as provider/model or a bare model name")
}

func runCourt(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	slog.SetDefault(slog.New(newLogHandler(cmd.ErrOrStderr(), cfg.Logging)))

	topic, err := resolveTopic(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	ctx = orchestrator.WithRunID(ctx, runID)
	res, runErr := sess.run(ctx, runID, topic)
	if err := sess.close(); err != nil {
		slog.Warn("Session shutdown incomplete", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	verdict := "balanced"
	if !res.Balanced {
		verdict = "not balanced, iteration budget exhausted"
	}
	fmt.Fprintf(out, "Report: %s\n", res.OutputPath)
	fmt.Fprintf(out, "Rounds: %d (%s)\n", res.Iterations, verdict)
	fmt.Fprintf(out, "Run ID: %s\n", res.RunID)
	return nil
}

func applyRunFlags(cfg *config.Config) {
	if v := strings.TrimSpace(runOutputDir); v != "" {
		cfg.Paths.OutputDir = v
	}
	if runMaxIterations > 0 {
		cfg.Loop.MaxIterations = runMaxIterations
	}
	if v := strings.TrimSpace(runAgentsFile); v != "" {
		cfg.Paths.AgentsFile = v
	}
	if v := strings.TrimSpace(runModel); v != "" {
		cfg.Model.Name = v
	}
}

// resolveTopic takes the positional argument, then --topic, then asks on stdin.
func resolveTopic(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if t := strings.TrimSpace(runTopic); t != "" {
		return t, nil
	}
	fmt.Fprint(cmd.OutOrStdout(), "Which historical figure or event should the court examine? ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read topic: %w", err)
	}
	topic := strings.TrimSpace(line)
	if topic == "" {
		return "", errors.New("a topic is required")
	}
	return topic, nil
}
