// Package main is the entry point for the tribunal CLI.
package main

import (
	"os"

	"github.com/KafClaw/tribunal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
