package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/KafClaw/tribunal/internal/config"
	"github.com/KafClaw/tribunal/internal/court"
	"github.com/spf13/cobra"
)

var agentsFile string

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agent definitions and their tool allow-lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := strings.TrimSpace(agentsFile)
		if path == "" {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path = cfg.Paths.AgentsFile
		}
		catalog, err := court.LoadCatalog(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tPARTITION\tTOOLS\tDESCRIPTION")
		for _, def := range catalog.Agents {
			partition := strings.Join(def.Partition, ",")
			if partition == "" {
				partition = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Name, partition, strings.Join(def.Tools, ","), def.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nPolicy: positive=%q negative=%q\n", catalog.Policy.Positive, catalog.Policy.Negative)
		return nil
	},
}

func init() {
	agentsCmd.Flags().StringVar(&agentsFile, "agents-file", "", "YAML file overriding agent definitions")
}
