package ports

import (
	"context"
	"time"

	"github.com/dverity/docdrill/pkg/domain"
)

// ExecRequest asks an Executor to run one accumulated source unit.
type ExecRequest struct {
	// Kind is the action kind (shell, cli, code).
	Kind string
	// Language is the canonical source language.
	Language string
	// Source is the accumulated, placeholder-resolved program text.
	Source string
	// WorkDir is the working directory for the spawned process.
	WorkDir string
	// Env holds the resolved environment bindings for this unit, including
	// bindings accumulated earlier in the same Step.
	Env map[string]string
}

// ExecResult reports the outcome of one execution.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration

	// Bindings are variables the unit defined (e.g. exported shell
	// variables), carried into the per-Step execution context for later
	// units of the same Step.
	Bindings map[string]string

	// Cleanups are teardown obligations the execution created. The
	// orchestrator runs them in reverse registration order after the
	// instance finishes, whether or not all actions passed.
	Cleanups []domain.CleanupObligation
}

// Executor runs programs for the orchestrator. Implementations must honor
// context cancellation by terminating the underlying process; expiry of the
// per-action timeout is the only cancellation mechanism.
type Executor interface {
	// Available reports whether the execution environment for the language
	// is present on the host. The orchestrator probes once per language per
	// process and skips (never fails) actions whose environment is missing.
	Available(language string) bool

	Execute(ctx context.Context, req ExecRequest) (ExecResult, error)
}

// URLChecker probes a URL with a HEAD-equivalent request, returning the
// status code. Used for url and api actions.
type URLChecker interface {
	Check(ctx context.Context, method, url string) (int, error)
}
