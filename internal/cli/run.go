// Package cli implements the docdrill command surface on top of the engine
// facade: loading configuration sources, selecting files and rendering the
// result tree for a terminal.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dverity/docdrill"
	"github.com/dverity/docdrill/internal/logging"
	"github.com/dverity/docdrill/pkg/config"
	"github.com/dverity/docdrill/pkg/domain"
)

// RunOptions contains the configuration for the run command.
type RunOptions struct {
	SourceDir     string
	Files         []string
	EnvFile       string
	ConstantsFile string
	RolesFile     string
	Timeout       time.Duration
	StrictCleanup bool
	JSON          bool
	Plain         bool
	Debug         bool
}

// newEngine builds an engine from CLI options, applying smart defaults for
// configuration files living next to the sources.
func newEngine(opts RunOptions, logger *slog.Logger) (*docdrill.Engine, error) {
	sources, err := loadSources(opts)
	if err != nil {
		return nil, err
	}

	engineOpts := []docdrill.Option{
		docdrill.WithSources(sources),
		docdrill.WithLogger(logger),
	}
	if opts.Timeout > 0 {
		engineOpts = append(engineOpts, docdrill.WithTimeout(opts.Timeout))
	}
	if opts.StrictCleanup {
		engineOpts = append(engineOpts, docdrill.WithCleanupPolicy(domain.CleanupStrict))
	}
	return docdrill.New(opts.SourceDir, engineOpts...)
}

// loadSources reads the layered configuration. Unset paths fall back to
// conventional files in the source directory when those exist.
func loadSources(opts RunOptions) (*config.Sources, error) {
	env := fallbackPath(opts.EnvFile, opts.SourceDir, ".env")
	constants := fallbackPath(opts.ConstantsFile, opts.SourceDir, "constants.toml")
	roles := fallbackPath(opts.RolesFile, opts.SourceDir, "roles.yaml")
	return config.Load(env, constants, roles)
}

func fallbackPath(explicit, dir, name string) string {
	if explicit != "" {
		return explicit
	}
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Logger builds the CLI logger at the requested verbosity.
func Logger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return logging.New(level)
}

// Run executes the documentation suite and renders the report to Stdout.
// It returns the run result so callers can pick the process exit code.
func Run(ctx context.Context, opts RunOptions) (domain.RunResult, error) {
	logger := Logger(opts.Debug)
	eng, err := newEngine(opts, logger)
	if err != nil {
		return domain.RunResult{}, err
	}

	files, err := selectFiles(eng, opts)
	if err != nil {
		return domain.RunResult{}, err
	}

	result, err := eng.Run(ctx, files)
	if err != nil {
		return domain.RunResult{}, err
	}

	if opts.JSON {
		err = RenderJSON(os.Stdout, result)
	} else {
		err = Render(os.Stdout, result, opts.Plain)
	}
	return result, err
}

func selectFiles(eng *docdrill.Engine, opts RunOptions) ([]string, error) {
	if len(opts.Files) > 0 {
		return opts.Files, nil
	}
	files, err := eng.DiscoverFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no markup source files under %s", opts.SourceDir)
	}
	return files, nil
}
