package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/KafClaw/tribunal/internal/config"
	"github.com/KafClaw/tribunal/internal/timeline"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyKind  string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded court runs, or the spans of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum rows to show")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "Only spans of this kind (leaf, tool, control, ...)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Timeline.DBPath == "" {
		return errors.New("timeline is disabled; set timeline.dbPath or TRIBUNAL_TIMELINE_DB_PATH")
	}
	svc, err := timeline.NewTimelineService(cfg.Timeline.DBPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cmd.Context()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if len(args) == 0 {
		runs, err := svc.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "RUN\tTOPIC\tSTATUS\tROUNDS\tBALANCED\tSTARTED\tOUTPUT")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\t%s\t%s\n",
				r.RunID, r.Topic, r.Status, r.Iterations, r.Balanced, r.StartedAt.Local().Format(time.DateTime), r.OutputPath)
		}
		return nil
	}

	if _, err := svc.GetRun(ctx, args[0]); err != nil {
		return err
	}
	spans, err := svc.GetSpans(ctx, timeline.SpanFilter{RunID: args[0], Kind: historyKind, Limit: historyLimit})
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "ITER\tKIND\tNODE\tMS\tOUTCOME\tDETAIL")
	for _, sp := range spans {
		detail := sp.Detail
		if sp.ErrorText != "" {
			detail = "error: " + sp.ErrorText
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", sp.Iteration, sp.Kind, sp.Node, sp.DurationMs, sp.Outcome, detail)
	}
	return nil
}
