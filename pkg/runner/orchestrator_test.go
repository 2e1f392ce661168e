package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dverity/docdrill/pkg/config"
	"github.com/dverity/docdrill/pkg/domain"
	"github.com/dverity/docdrill/pkg/placeholders"
	"github.com/dverity/docdrill/pkg/ports"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Available(language string) bool {
	return m.Called(language).Bool(0)
}

func (m *mockExecutor) Execute(ctx context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.ExecResult), args.Error(1)
}

type stubURLChecker struct {
	status int
	err    error

	method string
	url    string
}

func (s *stubURLChecker) Check(_ context.Context, method, url string) (int, error) {
	s.method, s.url = method, url
	return s.status, s.err
}

func emptyResolver() *placeholders.Resolver {
	return placeholders.New(config.Empty())
}

func instance(title string, steps ...domain.ResolvedStep) *domain.ProcedureInstance {
	return &domain.ProcedureInstance{
		Procedure: &domain.Procedure{Title: title, File: "doc.txt"},
		Steps:     steps,
	}
}

func step(actions ...*domain.Action) domain.ResolvedStep {
	var items []domain.StepItem
	for _, a := range actions {
		items = append(items, domain.StepItem{Action: a})
	}
	return domain.ResolvedStep{Items: items}
}

func shellAction(body string) *domain.Action {
	return &domain.Action{Kind: domain.ActionShell, Language: "shell", Body: body, Executable: true}
}

func sourceIs(src string) any {
	return mock.MatchedBy(func(req ports.ExecRequest) bool { return req.Source == src })
}

func TestRun_PassingInstance(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true)
	exec.On("Execute", mock.Anything, sourceIs("echo hi")).Return(ports.ExecResult{ExitCode: 0}, nil)

	o := New(exec, emptyResolver())
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Install", step(shellAction("echo hi"))),
	})

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, domain.StatusPassed, run.Status)
	require.Len(t, run.Instances, 1)
	assert.Equal(t, domain.StatusPassed, run.Instances[0].Status)
	require.Len(t, run.Instances[0].Steps, 1)
	assert.Equal(t, domain.StatusPassed, run.Instances[0].Steps[0].Actions[0].Status)
}

func TestRun_FailedInstanceDoesNotStopTheRun(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true)
	exec.On("Execute", mock.Anything, sourceIs("false")).
		Return(ports.ExecResult{ExitCode: 1, Stderr: "boom"}, nil)
	exec.On("Execute", mock.Anything, sourceIs("true")).
		Return(ports.ExecResult{ExitCode: 0}, nil)

	o := New(exec, emptyResolver())
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Broken", step(shellAction("false"))),
		instance("Fine", step(shellAction("true"))),
	})

	assert.Equal(t, domain.StatusFailed, run.Status)
	require.Len(t, run.Instances, 2)
	assert.Equal(t, domain.StatusFailed, run.Instances[0].Status)
	assert.Contains(t, run.Instances[0].Steps[0].Actions[0].Detail, "boom")
	assert.Equal(t, domain.StatusPassed, run.Instances[1].Status)
	assert.False(t, run.Halted)
}

func TestRun_LaterSameLanguageUnitFailsWithoutExecution(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true)
	exec.On("Execute", mock.Anything, mock.Anything).
		Return(ports.ExecResult{ExitCode: 1, Stderr: "first failed"}, nil).Once()

	o := New(exec, emptyResolver())
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Chained", step(shellAction("step-one"), shellAction("step-two"))),
	})

	actions := run.Instances[0].Steps[0].Actions
	require.Len(t, actions, 2)
	assert.Equal(t, domain.StatusFailed, actions[0].Status)
	assert.Equal(t, domain.StatusFailed, actions[1].Status)
	assert.Contains(t, actions[1].Detail, "dependency not satisfied")
	exec.AssertNumberOfCalls(t, "Execute", 1)
}

func TestRun_NotExecutableIsSkippedAndVacuouslyPassed(t *testing.T) {
	exec := &mockExecutor{}

	prose := &domain.Action{Kind: domain.ActionCode, Language: "text", Body: "just prose", Executable: false}
	o := New(exec, emptyResolver())
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Docs only", step(prose)),
	})

	assert.Equal(t, domain.StatusPassed, run.Status)
	assert.Equal(t, domain.StatusSkippedNotExecutable, run.Instances[0].Steps[0].Actions[0].Status)
	exec.AssertNumberOfCalls(t, "Execute", 0)
}

func TestRun_MissingEnvironmentSkips(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "python").Return(false)

	py := &domain.Action{Kind: domain.ActionCode, Language: "python", Body: "print('x')", Executable: true}
	o := New(exec, emptyResolver())
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Python", step(py)),
	})

	result := run.Instances[0].Steps[0].Actions[0]
	assert.Equal(t, domain.StatusSkippedMissingPrereq, result.Status)
	assert.Contains(t, result.Detail, "no python environment")
	exec.AssertNumberOfCalls(t, "Execute", 0)
}

func TestRun_AvailabilityProbedOncePerLanguage(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true).Once()
	exec.On("Execute", mock.Anything, mock.Anything).Return(ports.ExecResult{}, nil)

	o := New(exec, emptyResolver())
	o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("A", step(shellAction("one")), step(shellAction("two"))),
		instance("B", step(shellAction("three"))),
	})

	exec.AssertNumberOfCalls(t, "Available", 1)
}

func TestRun_BindingsAccumulateWithinAStepOnly(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true)

	var envs []map[string]string
	record := func(args mock.Arguments) {
		req := args.Get(1).(ports.ExecRequest)
		env := make(map[string]string, len(req.Env))
		for k, v := range req.Env {
			env[k] = v
		}
		envs = append(envs, env)
	}
	exec.On("Execute", mock.Anything, sourceIs("export TOKEN=abc")).Run(record).
		Return(ports.ExecResult{Bindings: map[string]string{"TOKEN": "abc"}}, nil)
	exec.On("Execute", mock.Anything, sourceIs("use-token")).Run(record).
		Return(ports.ExecResult{}, nil)
	exec.On("Execute", mock.Anything, sourceIs("next-step")).Run(record).
		Return(ports.ExecResult{}, nil)

	o := New(exec, emptyResolver(), WithBaseEnv(map[string]string{"BASE": "1"}))
	o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Env",
			step(shellAction("export TOKEN=abc"), shellAction("use-token")),
			step(shellAction("next-step")),
		),
	})

	require.Len(t, envs, 3)
	assert.Equal(t, map[string]string{"BASE": "1"}, envs[0])
	assert.Equal(t, map[string]string{"BASE": "1", "TOKEN": "abc"}, envs[1], "bindings visible to later units of the step")
	assert.Equal(t, map[string]string{"BASE": "1"}, envs[2], "bindings do not cross step boundaries")
}

func TestRun_UnresolvedPlaceholderFailsTheAction(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true)

	o := New(exec, emptyResolver())
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Connect", step(shellAction("mongosh <connection-string>"))),
	})

	result := run.Instances[0].Steps[0].Actions[0]
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.Detail, "unresolved placeholders")
	assert.Contains(t, result.Detail, "connection-string")
	exec.AssertNumberOfCalls(t, "Execute", 0)
}

func TestRun_CleanupUnwindsInReverseOrder(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true)

	var order []string
	cleanup := func(name string) ports.ExecResult {
		return ports.ExecResult{Cleanups: []domain.CleanupObligation{{
			Description: name,
			Run:         func() error { order = append(order, name); return nil },
		}}}
	}
	exec.On("Execute", mock.Anything, sourceIs("make-a")).Return(cleanup("drop a"), nil)
	exec.On("Execute", mock.Anything, sourceIs("make-b")).Return(cleanup("drop b"), nil)

	o := New(exec, emptyResolver())
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Setup", step(shellAction("make-a")), step(shellAction("make-b"))),
	})

	assert.Equal(t, domain.StatusPassed, run.Status)
	assert.Equal(t, []string{"drop b", "drop a"}, order)
}

func TestRun_CleanupFailureWarnsByDefault(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true)
	exec.On("Execute", mock.Anything, mock.Anything).Return(ports.ExecResult{
		Cleanups: []domain.CleanupObligation{{
			Description: "drop database",
			Run:         func() error { return errors.New("connection refused") },
		}},
	}, nil)

	o := New(exec, emptyResolver())
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("First", step(shellAction("one"))),
		instance("Second", step(shellAction("two"))),
	})

	require.Len(t, run.Instances, 2, "warn-only policy never halts the run")
	assert.False(t, run.Halted)
	assert.Equal(t, domain.StatusPassed, run.Instances[0].Status, "cleanup failure does not fail the instance")
	require.Len(t, run.Instances[0].CleanupWarnings, 1)
	assert.Contains(t, run.Instances[0].CleanupWarnings[0], "drop database")
	assert.Contains(t, run.Instances[0].CleanupWarnings[0], "connection refused")
}

func TestRun_StrictCleanupPolicyHalts(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true)
	exec.On("Execute", mock.Anything, mock.Anything).Return(ports.ExecResult{
		Cleanups: []domain.CleanupObligation{{
			Description: "drop database",
			Run:         func() error { return errors.New("connection refused") },
		}},
	}, nil)

	o := New(exec, emptyResolver(), WithCleanupPolicy(domain.CleanupStrict))
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("First", step(shellAction("one"))),
		instance("Second", step(shellAction("two"))),
	})

	assert.True(t, run.Halted)
	require.Len(t, run.Instances, 1, "remaining instances are not attempted")
}

func TestRun_TimeoutFailsTheAction(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Available", "shell").Return(true)
	exec.On("Execute", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(ports.ExecResult{}, context.DeadlineExceeded)

	o := New(exec, emptyResolver(), WithTimeout(10*time.Millisecond))
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Slow", step(shellAction("sleep forever"))),
	})

	result := run.Instances[0].Steps[0].Actions[0]
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.Detail, "timed out after")
}

func TestRun_URLProbes(t *testing.T) {
	urls := &stubURLChecker{status: 200}
	o := New(&mockExecutor{}, emptyResolver(), WithURLChecker(urls))

	urlAction := &domain.Action{Kind: domain.ActionURL, Language: "text", Body: "https://example.com/healthz", Executable: true}
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Probe", step(urlAction)),
	})

	assert.Equal(t, domain.StatusPassed, run.Status)
	assert.Equal(t, "HEAD", urls.method)
	assert.Equal(t, "https://example.com/healthz", urls.url)
}

func TestRun_APIRequestUsesDeclaredMethod(t *testing.T) {
	urls := &stubURLChecker{status: 201}
	o := New(&mockExecutor{}, emptyResolver(), WithURLChecker(urls))

	apiAction := &domain.Action{Kind: domain.ActionAPI, Language: "text", Body: "POST https://example.com/api/v1/users", Executable: true}
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Create", step(apiAction)),
	})

	assert.Equal(t, domain.StatusPassed, run.Status)
	assert.Equal(t, "POST", urls.method)
	assert.Equal(t, "https://example.com/api/v1/users", urls.url)
}

func TestRun_URLPlaceholdersResolvedBeforeProbe(t *testing.T) {
	sources := config.Empty()
	sources.Env["PROJECT_ID"] = "abc123"
	urls := &stubURLChecker{status: 200}
	o := New(&mockExecutor{}, placeholders.New(sources), WithURLChecker(urls))

	urlAction := &domain.Action{Kind: domain.ActionURL, Language: "text", Body: "https://cloud.example.com/v2/<project-id>", Executable: true}
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Probe", step(urlAction)),
	})

	assert.Equal(t, domain.StatusPassed, run.Status)
	assert.Equal(t, "https://cloud.example.com/v2/abc123", urls.url)
}

func TestRun_URLWithUnresolvedPlaceholderFails(t *testing.T) {
	urls := &stubURLChecker{status: 200}
	o := New(&mockExecutor{}, emptyResolver(), WithURLChecker(urls))

	urlAction := &domain.Action{Kind: domain.ActionURL, Language: "text", Body: "https://cloud.example.com/v2/<project-id>", Executable: true}
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Probe", step(urlAction)),
	})

	result := run.Instances[0].Steps[0].Actions[0]
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.Detail, "unresolved placeholders")
	assert.Contains(t, result.Detail, "project-id")
	assert.Empty(t, urls.url, "the literal token never reaches the checker")
}

func TestRun_URLErrorStatusFails(t *testing.T) {
	urls := &stubURLChecker{status: 404}
	o := New(&mockExecutor{}, emptyResolver(), WithURLChecker(urls))

	urlAction := &domain.Action{Kind: domain.ActionURL, Language: "text", Body: "https://example.com/gone", Executable: true}
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Probe", step(urlAction)),
	})

	result := run.Instances[0].Steps[0].Actions[0]
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.Detail, "404")
}

func TestRun_URLWithoutCheckerSkips(t *testing.T) {
	o := New(&mockExecutor{}, emptyResolver())

	urlAction := &domain.Action{Kind: domain.ActionURL, Language: "text", Body: "https://example.com", Executable: true}
	run := o.Run(context.Background(), []*domain.ProcedureInstance{
		instance("Probe", step(urlAction)),
	})

	assert.Equal(t, domain.StatusSkippedMissingPrereq, run.Instances[0].Steps[0].Actions[0].Status)
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, domain.StatusPassed, domain.Aggregate(nil))
	assert.Equal(t, domain.StatusPassed, domain.Aggregate([]string{
		domain.StatusPassed, domain.StatusSkippedNotExecutable, domain.StatusSkippedMissingPrereq,
	}))
	assert.Equal(t, domain.StatusFailed, domain.Aggregate([]string{
		domain.StatusPassed, domain.StatusFailed,
	}))
}
