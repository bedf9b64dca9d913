package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scrim-booking",
		Short:         "Scrim booking lifecycle and payment reconciliation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "env", ".env", "path to the env file")

	root.AddCommand(serveCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(pollCmd())

	return root
}

// Execute runs the CLI and exits non-zero on error
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
