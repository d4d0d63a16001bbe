package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/KafClaw/tribunal/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  _____     _ _                       _\n" +
		" |_   _| __(_) |__  _   _ _ __   __ _| |\n" +
		"   | || '__| | '_ \\| | | | '_ \\ / _` | |\n" +
		"   | || |  | | |_) | |_| | | | | (_| | |\n" +
		"   |_||_|  |_|_.__/ \\__,_|_| |_|\\__,_|_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "tribunal",
	Short: "Tribunal - historical court for balanced reports",
	Long:  color.CyanString(logo) + "\nAdmirer and critic agents gather evidence on a historical topic until a judge finds it balanced.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader(cmd.OutOrStdout(), "Tribunal Version")
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, color.CyanString(logo))
	if title != "" {
		fmt.Fprintln(w, title)
		fmt.Fprintln(w, "─────────────────────")
	}
}
