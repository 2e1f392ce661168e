package docdrill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dverity/docdrill/internal/logging"
	"github.com/dverity/docdrill/pkg/adapters/httpcheck"
	"github.com/dverity/docdrill/pkg/adapters/process"
	"github.com/dverity/docdrill/pkg/config"
	"github.com/dverity/docdrill/pkg/domain"
	"github.com/dverity/docdrill/pkg/markup"
	"github.com/dverity/docdrill/pkg/model"
	"github.com/dverity/docdrill/pkg/placeholders"
	"github.com/dverity/docdrill/pkg/ports"
	"github.com/dverity/docdrill/pkg/runner"
	"github.com/dverity/docdrill/pkg/transclude"
	"github.com/dverity/docdrill/pkg/variants"
)

// Engine is the high-level entry point for the docdrill library. It wires
// the parsing pipeline to the execution orchestrator behind a simplified
// API for consumers.
type Engine struct {
	sourceRoot string
	sources    *config.Sources
	executor   ports.Executor
	urls       ports.URLChecker
	logger     *slog.Logger
	timeout    time.Duration
	policy     domain.CleanupPolicy
	workDir    string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSources injects pre-loaded configuration sources.
func WithSources(s *config.Sources) Option {
	return func(e *Engine) { e.sources = s }
}

// WithExecutor injects a custom executor, bypassing the default process
// runner.
func WithExecutor(ex ports.Executor) Option {
	return func(e *Engine) { e.executor = ex }
}

// WithURLChecker injects a custom URL-probing capability.
func WithURLChecker(c ports.URLChecker) Option {
	return func(e *Engine) { e.urls = c }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTimeout sets the per-action execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithCleanupPolicy decides whether a cleanup failure halts the run.
func WithCleanupPolicy(p domain.CleanupPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithWorkDir sets the working directory for executed actions.
func WithWorkDir(dir string) Option {
	return func(e *Engine) { e.workDir = dir }
}

// New initializes an Engine rooted at the project source directory.
// Defaults: local process executor, HTTP URL checker, empty configuration
// sources, no-op logger.
func New(sourceRoot string, opts ...Option) (*Engine, error) {
	if sourceRoot == "" {
		return nil, fmt.Errorf("sourceRoot is required")
	}
	abs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}

	e := &Engine{
		sourceRoot: abs,
		sources:    config.Empty(),
		timeout:    runner.DefaultTimeout,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.executor == nil {
		e.executor = process.NewRunner()
	}
	if e.urls == nil {
		e.urls = httpcheck.NewChecker()
	}
	return e, nil
}

// FileReport is the build outcome of one source file.
type FileReport struct {
	File        string
	Procedures  []*domain.Procedure
	ParseErrors []*domain.ParseError
	Failures    []domain.BuildFailure
}

// Validate parses and builds the given files without executing anything.
func (e *Engine) Validate(files []string) ([]FileReport, error) {
	reports := make([]FileReport, 0, len(files))
	for _, file := range files {
		report, err := e.buildFile(file)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Plan expands every procedure of the given files into its concrete
// instances, without executing anything.
func (e *Engine) Plan(files []string) ([]*domain.ProcedureInstance, []domain.BuildFailure, error) {
	var instances []*domain.ProcedureInstance
	var failures []domain.BuildFailure
	for _, file := range files {
		report, err := e.buildFile(file)
		if err != nil {
			return nil, nil, err
		}
		failures = append(failures, report.Failures...)
		for _, p := range report.Procedures {
			instances = append(instances, variants.Expand(p)...)
		}
	}
	return instances, failures, nil
}

// Run builds, expands and executes the given files, returning the full
// result tree.
func (e *Engine) Run(ctx context.Context, files []string) (domain.RunResult, error) {
	instances, failures, err := e.Plan(files)
	if err != nil {
		return domain.RunResult{}, err
	}

	orch := runner.New(e.executor, placeholders.New(e.sources),
		runner.WithLogger(e.logger),
		runner.WithTimeout(e.timeout),
		runner.WithCleanupPolicy(e.policy),
		runner.WithWorkDir(e.workDir),
		runner.WithURLChecker(e.urls),
		runner.WithBaseEnv(e.sources.Env),
	)
	result := orch.Run(ctx, instances)
	result.Failures = failures
	return result, nil
}

// buildFile runs the document-to-procedure pipeline for one file:
// parse, transclude, build.
func (e *Engine) buildFile(file string) (FileReport, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return FileReport{}, fmt.Errorf("reading %s: %w", file, err)
	}

	tree, parseErrs := markup.Parse(file, string(data))
	resolver := transclude.NewResolver(e.sourceRoot)
	resolved, includeErrs := transclude.Expand(tree, resolver, markup.Parse)
	parseErrs = append(parseErrs, includeErrs...)
	built := model.Build(resolved)

	return FileReport{
		File:        file,
		Procedures:  built.Procedures,
		ParseErrors: parseErrs,
		Failures:    built.Failures,
	}, nil
}

// DiscoverFiles lists the markup source files under the engine's source
// root, in lexical order.
func (e *Engine) DiscoverFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(e.sourceRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".txt", ".rst":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
