// Package process implements the Executor port by spawning local
// interpreter processes. It follows a registry pattern: only languages with
// a registered interpreter can run, and availability is probed through the
// host's PATH.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dverity/docdrill/pkg/ports"
)

// Interpreter describes how one language's source is handed to a process:
// the source is written to a temp file with Ext and appended to Args.
type Interpreter struct {
	Command string
	Args    []string
	Ext     string
}

var defaultInterpreters = map[string]Interpreter{
	"shell":      {Command: "bash", Ext: ".sh"},
	"javascript": {Command: "node", Ext: ".js"},
	"python":     {Command: "python3", Ext: ".py"},
	"go":         {Command: "go", Args: []string{"run"}, Ext: ".go"},
	"mongosh":    {Command: "mongosh", Args: []string{"--quiet", "--file"}, Ext: ".js"},
}

var exportRe = regexp.MustCompile(`(?m)^\s*export +([A-Za-z_]\w*)=("([^"]*)"|'([^']*)'|(\S*))`)

// Runner executes source units through registered interpreters.
type Runner struct {
	interpreters map[string]Interpreter
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithInterpreter registers or overrides the interpreter for a language.
func WithInterpreter(language string, it Interpreter) RunnerOption {
	return func(r *Runner) { r.interpreters[language] = it }
}

// NewRunner creates a runner with the default interpreter registry.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{interpreters: make(map[string]Interpreter, len(defaultInterpreters))}
	for lang, it := range defaultInterpreters {
		r.interpreters[lang] = it
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.Executor = (*Runner)(nil)

// Available reports whether the language's interpreter is on PATH.
func (r *Runner) Available(language string) bool {
	it, ok := r.interpreters[language]
	if !ok {
		return false
	}
	_, err := exec.LookPath(it.Command)
	return err == nil
}

// Execute writes the source to a temp file and runs it through the
// language's interpreter. Context cancellation terminates the process.
func (r *Runner) Execute(ctx context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	it, ok := r.interpreters[req.Language]
	if !ok {
		return ports.ExecResult{}, fmt.Errorf("no interpreter registered for %q", req.Language)
	}

	dir, err := os.MkdirTemp("", "docdrill-*")
	if err != nil {
		return ports.ExecResult{}, err
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "unit"+it.Ext)
	if err := os.WriteFile(file, []byte(req.Source), 0o600); err != nil {
		return ports.ExecResult{}, err
	}

	cmd := exec.CommandContext(ctx, it.Command, append(append([]string{}, it.Args...), file)...)
	cmd.Dir = req.WorkDir
	cmd.Env = mergedEnv(req.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	result := ports.ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, runErr
	}

	if req.Language == "shell" && result.ExitCode == 0 {
		result.Bindings = exportedVars(req.Source)
	}
	return result, nil
}

func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// exportedVars extracts "export KEY=VALUE" bindings from a passing shell
// unit, so later units of the same Step see them. Values computed at
// runtime (command substitution) are carried literally.
func exportedVars(source string) map[string]string {
	matches := exportRe.FindAllStringSubmatch(source, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make(map[string]string, len(matches))
	for _, m := range matches {
		value := m[3] + m[4] + m[5]
		out[m[1]] = strings.TrimSpace(value)
	}
	return out
}
