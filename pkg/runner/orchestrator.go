// Package runner drives ProcedureInstances to completion: sequencing, state
// threading, executor invocation, cleanup and result aggregation.
//
// Instances run strictly sequentially, never overlapping, because actions
// may share external stateful resources (a local database, a filesystem).
// Within an instance, Steps run in document order and Actions within a Step
// run in document order. Execution bindings accumulate in a per-Step context
// and do not cross Step boundaries.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dverity/docdrill/pkg/classify"
	"github.com/dverity/docdrill/pkg/domain"
	"github.com/dverity/docdrill/pkg/placeholders"
	"github.com/dverity/docdrill/pkg/ports"
)

// DefaultTimeout bounds one action's execution when no timeout is configured.
const DefaultTimeout = 2 * time.Minute

// Orchestrator runs procedure instances one at a time, in deterministic
// order, and owns their results for the duration of one run.
type Orchestrator struct {
	executor ports.Executor
	urls     ports.URLChecker
	resolver *placeholders.Resolver
	logger   *slog.Logger
	timeout  time.Duration
	policy   domain.CleanupPolicy
	workDir  string
	baseEnv  map[string]string

	// available memoizes the per-language environment probe: one probe per
	// language per process.
	available map[string]bool
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTimeout sets the per-action execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithCleanupPolicy decides whether a cleanup failure halts the run.
func WithCleanupPolicy(p domain.CleanupPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithWorkDir sets the working directory handed to executors.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) { o.workDir = dir }
}

// WithURLChecker sets the capability used for url and api actions.
func WithURLChecker(c ports.URLChecker) Option {
	return func(o *Orchestrator) { o.urls = c }
}

// WithBaseEnv seeds every Step's execution context with the given bindings.
func WithBaseEnv(env map[string]string) Option {
	return func(o *Orchestrator) { o.baseEnv = env }
}

// New creates an orchestrator around a pluggable executor and a placeholder
// resolver.
func New(executor ports.Executor, resolver *placeholders.Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		executor:  executor,
		resolver:  resolver,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:   DefaultTimeout,
		available: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes every instance in order and returns the aggregated result
// tree. A strict cleanup policy may halt the run between instances; the
// remaining instances are not reported at all, and RunResult.Halted is set.
func (o *Orchestrator) Run(ctx context.Context, instances []*domain.ProcedureInstance) domain.RunResult {
	run := domain.RunResult{
		ID:      uuid.NewString(),
		Started: time.Now(),
	}
	o.logger.InfoContext(ctx, "run started", "id", run.ID, "instances", len(instances))

	for _, inst := range instances {
		result, halt := o.runInstance(ctx, inst)
		run.Instances = append(run.Instances, result)
		if halt {
			o.logger.WarnContext(ctx, "run halted by cleanup policy", "procedure", result.Procedure)
			run.Halted = true
			break
		}
	}

	statuses := make([]string, 0, len(run.Instances))
	for _, r := range run.Instances {
		statuses = append(statuses, r.Status)
	}
	run.Status = domain.Aggregate(statuses)
	run.Duration = time.Since(run.Started)
	o.logger.InfoContext(ctx, "run finished", "id", run.ID, "status", run.Status)
	return run
}

// runInstance moves one instance through pending → running → passed/failed.
// Cleanup is always attempted on exit from running, regardless of outcome.
func (o *Orchestrator) runInstance(ctx context.Context, inst *domain.ProcedureInstance) (domain.InstanceResult, bool) {
	result := domain.InstanceResult{
		Procedure: inst.Procedure.Title,
		File:      inst.Procedure.File,
		Keys:      inst.Keys,
	}
	o.logger.InfoContext(ctx, "instance running", "procedure", result.Procedure, "keys", inst.Keys)

	cleanups := newCleanupStack()

	for _, step := range inst.Steps {
		result.Steps = append(result.Steps, o.runStep(ctx, step, cleanups))
	}

	statuses := make([]string, 0, len(result.Steps))
	for _, s := range result.Steps {
		statuses = append(statuses, s.Status)
	}
	result.Status = domain.Aggregate(statuses)

	result.CleanupWarnings = cleanups.unwind(ctx, o.logger)
	halt := o.policy == domain.CleanupStrict && len(result.CleanupWarnings) > 0
	return result, halt
}

// runStep executes one resolved Step. Each unit's bindings are carried into
// an accumulating per-Step context available to later units of the same
// Step; the context is dropped at Step exit.
func (o *Orchestrator) runStep(ctx context.Context, step domain.ResolvedStep, cleanups *cleanupStack) domain.StepResult {
	result := domain.StepResult{Title: step.Title}
	stepEnv := make(map[string]string, len(o.baseEnv))
	for k, v := range o.baseEnv {
		stepEnv[k] = v
	}

	// Languages with a failed unit in this step: later units of the same
	// language depend on state that was never produced and are marked
	// failed without being attempted blindly.
	failed := map[string]bool{}

	for _, unit := range classify.Units(step.Actions()) {
		res := o.runUnit(ctx, unit, stepEnv, failed, cleanups)
		if res.Status == domain.StatusFailed {
			failed[unit.Language] = true
		}
		for _, a := range unit.Actions {
			ar := res
			ar.Kind = a.Kind
			ar.Language = a.Language
			ar.Line = a.Line
			result.Actions = append(result.Actions, ar)
		}
	}

	statuses := make([]string, 0, len(result.Actions))
	for _, a := range result.Actions {
		statuses = append(statuses, a.Status)
	}
	result.Status = domain.Aggregate(statuses)
	return result
}

func (o *Orchestrator) runUnit(ctx context.Context, unit classify.Unit, stepEnv map[string]string, failed map[string]bool, cleanups *cleanupStack) domain.ActionResult {
	if !unit.Actions[0].Executable {
		return domain.ActionResult{Status: domain.StatusSkippedNotExecutable}
	}

	if unit.Kind == domain.ActionURL || unit.Kind == domain.ActionAPI {
		// Probing a URL is execution: an unresolved placeholder must fail
		// the action, never leak the literal token into the request.
		resolution := o.resolver.Resolve(unit.Source)
		if err := resolution.Err(); err != nil {
			return domain.ActionResult{Status: domain.StatusFailed, Detail: err.Error()}
		}
		return o.checkURL(ctx, unit.Kind, resolution.Text)
	}

	if !o.languageAvailable(unit.Language) {
		return domain.ActionResult{
			Status: domain.StatusSkippedMissingPrereq,
			Detail: fmt.Sprintf("no %s environment on this host", unit.Language),
		}
	}

	if failed[unit.Language] {
		return domain.ActionResult{
			Status: domain.StatusFailed,
			Detail: fmt.Sprintf("dependency not satisfied: an earlier %s action in this step failed", unit.Language),
		}
	}

	resolution := o.resolver.Resolve(unit.Source)
	if err := resolution.Err(); err != nil {
		return domain.ActionResult{Status: domain.StatusFailed, Detail: err.Error()}
	}

	execCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res, err := o.executor.Execute(execCtx, ports.ExecRequest{
		Kind:     unit.Kind,
		Language: unit.Language,
		Source:   resolution.Text,
		WorkDir:  o.workDir,
		Env:      stepEnv,
	})
	cleanups.push(res.Cleanups...)

	switch {
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		return domain.ActionResult{
			Status:   domain.StatusFailed,
			Detail:   fmt.Sprintf("timed out after %s", o.timeout),
			Duration: res.Duration,
		}
	case err != nil:
		return domain.ActionResult{Status: domain.StatusFailed, Detail: err.Error(), Duration: res.Duration}
	case res.ExitCode != 0:
		return domain.ActionResult{
			Status:   domain.StatusFailed,
			Detail:   fmt.Sprintf("exit status %d: %s", res.ExitCode, tail(res.Stderr, 500)),
			Duration: res.Duration,
		}
	}

	for k, v := range res.Bindings {
		stepEnv[k] = v
	}
	return domain.ActionResult{Status: domain.StatusPassed, Duration: res.Duration}
}

// checkURL probes url/api actions via the pluggable URL capability; a
// status below 400 passes. The source arrives placeholder-resolved.
func (o *Orchestrator) checkURL(ctx context.Context, kind, source string) domain.ActionResult {
	if o.urls == nil {
		return domain.ActionResult{
			Status: domain.StatusSkippedMissingPrereq,
			Detail: "no URL checker configured",
		}
	}

	method := "HEAD"
	target := strings.TrimSpace(source)
	if kind == domain.ActionAPI {
		if fields := strings.Fields(target); len(fields) >= 2 {
			method, target = fields[0], fields[1]
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	status, err := o.urls.Check(execCtx, method, target)
	dur := time.Since(start)
	if err != nil {
		return domain.ActionResult{Status: domain.StatusFailed, Detail: err.Error(), Duration: dur}
	}
	if status >= 400 {
		return domain.ActionResult{
			Status:   domain.StatusFailed,
			Detail:   fmt.Sprintf("%s %s returned status %d", method, target, status),
			Duration: dur,
		}
	}
	return domain.ActionResult{Status: domain.StatusPassed, Duration: dur}
}

func (o *Orchestrator) languageAvailable(lang string) bool {
	if ok, probed := o.available[lang]; probed {
		return ok
	}
	ok := o.executor.Available(lang)
	o.available[lang] = ok
	if !ok {
		o.logger.Warn("execution environment missing", "language", lang)
	}
	return ok
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
