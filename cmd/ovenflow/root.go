package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ovenflow",
	Short: "ovenflow - pizza order submission pipeline demo",
	Long: `ovenflow runs the order submission pipeline against an in-process stub
kitchen backend: validate input, commit the order with bounded kitchen
retries, clear the cart, emit analytics. Every step produces a
three-valued outcome recorded in an inspectable timeline.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(menuCmd)
}
