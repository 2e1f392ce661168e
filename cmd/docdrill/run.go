package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/dverity/docdrill/internal/cli"
	"github.com/dverity/docdrill/pkg/domain"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Execute the documented procedures and report pass/fail",
	Run: func(cmd *cobra.Command, args []string) {
		opts := runOptionsFrom(cmd)
		opts.Files = args
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Plain, _ = cmd.Flags().GetBool("plain")
		opts.StrictCleanup, _ = cmd.Flags().GetBool("strict-cleanup")
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := cli.Run(ctx, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if result.Status == domain.StatusFailed {
			os.Exit(1)
		}
	},
}

func runOptionsFrom(cmd *cobra.Command) cli.RunOptions {
	sourceDir, _ := cmd.Flags().GetString("source")
	envFile, _ := cmd.Flags().GetString("env-file")
	constants, _ := cmd.Flags().GetString("constants")
	roles, _ := cmd.Flags().GetString("roles")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.RunOptions{
		SourceDir:     sourceDir,
		EnvFile:       envFile,
		ConstantsFile: constants,
		RolesFile:     roles,
		Debug:         debug,
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Emit the raw result tree as JSON")
	runCmd.Flags().Bool("plain", false, "Plain text report (no terminal styling)")
	runCmd.Flags().Bool("strict-cleanup", false, "Halt the run when a cleanup obligation fails")
	runCmd.Flags().Duration("timeout", 2*time.Minute, "Per-action execution timeout")
}
