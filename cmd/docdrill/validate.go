package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dverity/docdrill/internal/cli"
)

// validateCmd parses and builds without executing anything.
var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Parse and build the sources without executing anything",
	Run: func(cmd *cobra.Command, args []string) {
		opts := runOptionsFrom(cmd)
		opts.Files = args
		if err := cli.Validate(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
