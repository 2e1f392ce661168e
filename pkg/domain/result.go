package domain

import "time"

// Action and aggregate statuses.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	// StatusSkippedNotExecutable marks actions the classifier ruled out.
	StatusSkippedNotExecutable = "skipped-not-executable"
	// StatusSkippedMissingPrereq marks actions whose execution environment
	// (interpreter, toolchain) is not available on the host.
	StatusSkippedMissingPrereq = "skipped-missing-prerequisite"
)

// CleanupPolicy decides what a cleanup failure does to the rest of the run.
type CleanupPolicy int

const (
	// CleanupWarnOnly records cleanup failures as warnings and continues.
	CleanupWarnOnly CleanupPolicy = iota
	// CleanupStrict halts the run before the next instance.
	CleanupStrict
)

// CleanupObligation is a teardown registered by an executor during a run,
// e.g. "drop database X". Obligations run in reverse registration order.
type CleanupObligation struct {
	Description string
	Run         func() error
}

// ActionResult is the outcome of one Action.
type ActionResult struct {
	Kind     string        `json:"kind"`
	Language string        `json:"language"`
	Status   string        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
	Line     int           `json:"line,omitempty"`
}

// StepResult aggregates the results of one resolved Step.
type StepResult struct {
	Title   string         `json:"title,omitempty"`
	Status  string         `json:"status"`
	Actions []ActionResult `json:"actions"`
}

// InstanceResult is the outcome of one ProcedureInstance.
type InstanceResult struct {
	Procedure string            `json:"procedure"`
	File      string            `json:"file"`
	Keys      map[string]string `json:"keys,omitempty"`
	Status    string            `json:"status"`
	Steps     []StepResult      `json:"steps"`
	// CleanupWarnings records cleanup obligations that failed.
	CleanupWarnings []string `json:"cleanup_warnings,omitempty"`
}

// BuildFailure reports a procedure that could not be built at all
// (transclusion failure, inconsistent variant dimension).
type BuildFailure struct {
	File      string `json:"file"`
	Procedure string `json:"procedure,omitempty"`
	Line      int    `json:"line,omitempty"`
	Reason    string `json:"reason"`
}

// RunResult is the full result tree of one run, consumed by external
// reporters.
type RunResult struct {
	ID        string           `json:"id"`
	Started   time.Time        `json:"started"`
	Duration  time.Duration    `json:"duration"`
	Status    string           `json:"status"`
	Instances []InstanceResult `json:"instances"`
	Failures  []BuildFailure   `json:"failures,omitempty"`
	// Halted is set when a strict cleanup policy stopped the run early.
	Halted bool `json:"halted,omitempty"`
}

// Aggregate returns the status of a parent given its children's statuses:
// failed iff at least one child failed. Skips never escalate, so a node with
// only skipped children is vacuously passed.
func Aggregate(statuses []string) string {
	for _, s := range statuses {
		if s == StatusFailed {
			return StatusFailed
		}
	}
	return StatusPassed
}
