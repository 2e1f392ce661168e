package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/dverity/docdrill/internal/adapters/http"
)

// ServeOptions extends RunOptions with the listen address and re-run
// interval for the serve command.
type ServeOptions struct {
	RunOptions
	Addr     string
	Interval time.Duration
}

// Serve runs the suite, publishes the result tree and metrics over HTTP,
// and re-runs on the configured interval.
func Serve(ctx context.Context, opts ServeOptions) error {
	logger := Logger(opts.Debug)
	eng, err := newEngine(opts.RunOptions, logger)
	if err != nil {
		return err
	}
	files, err := selectFiles(eng, opts.RunOptions)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collector := httpadapter.NewCollector(registry)

	runOnce := func() {
		result, err := eng.Run(ctx, files)
		if err != nil {
			logger.Error("run failed", "err", err)
			return
		}
		collector.Observe(result)
		logger.Info("run recorded", "id", result.ID, "status", result.Status)
	}
	runOnce()

	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					runOnce()
				}
			}
		}()
	}

	server := &http.Server{
		Addr:    opts.Addr,
		Handler: httpadapter.NewHandler(collector, logger, registry),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("serving results", "addr", opts.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
