package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dverity/docdrill/internal/cli"
)

// planCmd shows the expanded variant instances without executing them.
var planCmd = &cobra.Command{
	Use:   "plan [files...]",
	Short: "Show the concrete variant instances that a run would execute",
	Run: func(cmd *cobra.Command, args []string) {
		opts := runOptionsFrom(cmd)
		opts.Files = args
		if err := cli.Plan(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
