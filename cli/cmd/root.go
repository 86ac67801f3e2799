package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hookctl",
	Short: "hookline relay CLI",
	Long: `hookctl is the command-line companion for the hookline webhook relay.

Send signed test webhook deliveries to a running relay to exercise the full
verification and notification pipeline end to end.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}
