package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dverity/docdrill/internal/cli"
)

// serveCmd publishes run results and metrics over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve [files...]",
	Short: "Run the suite and serve the result tree and metrics over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.ServeOptions{RunOptions: runOptionsFrom(cmd)}
		opts.Files = args
		opts.Addr, _ = cmd.Flags().GetString("addr")
		opts.Interval, _ = cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := cli.Serve(ctx, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8632", "Listen address")
	serveCmd.Flags().Duration("interval", 0, "Re-run interval (0 runs once)")
}
