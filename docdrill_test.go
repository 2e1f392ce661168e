package docdrill_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverity/docdrill"
	"github.com/dverity/docdrill/pkg/config"
	"github.com/dverity/docdrill/pkg/domain"
	"github.com/dverity/docdrill/pkg/ports"
)

type fakeExecutor struct {
	mu      sync.Mutex
	sources []string
}

func (f *fakeExecutor) Available(string) bool { return true }

func (f *fakeExecutor) Execute(_ context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, req.Source)
	return ports.ExecResult{}, nil
}

const tutorial = `Tutorial
========

Install
-------

.. procedure::

   .. step:: Install the driver

      .. tabs::

         .. tab:: Node.js
            :tabid: nodejs

            .. code-block:: shell

               npm install mongodb

         .. tab:: Python
            :tabid: python

            .. code-block:: shell

               pip install pymongo

   .. step:: Verify the connection

      .. include:: /includes/verify.rst
`

const verifyInclude = `.. code-block:: shell

   mongosh <connection-string> --eval "db.runCommand({ping: 1})"
`

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "includes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tutorial.txt"), []byte(tutorial), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "includes", "verify.rst"), []byte(verifyInclude), 0o644))
	return root
}

func testConfig() *config.Sources {
	s := config.Empty()
	s.Env["CONNECTION_STRING"] = "mongodb://localhost:27017"
	return s
}

func TestNew_MissingSourceRoot(t *testing.T) {
	_, err := docdrill.New("")
	assert.Error(t, err)

	_, err = docdrill.New(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestEngine_Validate(t *testing.T) {
	root := writeProject(t)
	eng, err := docdrill.New(root)
	require.NoError(t, err)

	reports, err := eng.Validate([]string{filepath.Join(root, "tutorial.txt")})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].ParseErrors)
	assert.Empty(t, reports[0].Failures)
	require.Len(t, reports[0].Procedures, 1)
	assert.Equal(t, "Install", reports[0].Procedures[0].Title)
	assert.Len(t, reports[0].Procedures[0].Steps, 2)
}

func TestEngine_Plan(t *testing.T) {
	root := writeProject(t)
	eng, err := docdrill.New(root)
	require.NoError(t, err)

	instances, failures, err := eng.Plan([]string{filepath.Join(root, "tutorial.txt")})
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, instances, 2, "one instance per tab")
	assert.Equal(t, "nodejs", instances[0].Keys["tabs:nodejs+python"])
	assert.Equal(t, "python", instances[1].Keys["tabs:nodejs+python"])
}

func TestEngine_Run(t *testing.T) {
	root := writeProject(t)
	exec := &fakeExecutor{}
	eng, err := docdrill.New(root,
		docdrill.WithExecutor(exec),
		docdrill.WithSources(testConfig()),
	)
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), []string{filepath.Join(root, "tutorial.txt")})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPassed, result.Status)
	assert.NotEmpty(t, result.ID)
	require.Len(t, result.Instances, 2)
	for _, inst := range result.Instances {
		assert.Equal(t, domain.StatusPassed, inst.Status)
		assert.Len(t, inst.Steps, 2)
	}

	assert.Contains(t, exec.sources, "npm install mongodb")
	assert.Contains(t, exec.sources, "pip install pymongo")
	assert.Contains(t, exec.sources,
		`mongosh mongodb://localhost:27017/admin --eval "db.runCommand({ping: 1})"`,
		"placeholders are resolved before execution")
}

func TestEngine_RunReportsUnbuildableProcedures(t *testing.T) {
	root := t.TempDir()
	doc := `.. procedure::

   .. step:: Broken

      .. include:: /includes/missing.rst
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.txt"), []byte(doc), 0o644))

	eng, err := docdrill.New(root, docdrill.WithExecutor(&fakeExecutor{}))
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), []string{filepath.Join(root, "broken.txt")})
	require.NoError(t, err)
	assert.Empty(t, result.Instances)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Reason, "missing.rst")
}

func TestEngine_DiscoverFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.txt", "b.rst", "notes.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x\n"), 0o644))
	}

	eng, err := docdrill.New(root)
	require.NoError(t, err)

	files, err := eng.DiscoverFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(root, "a.txt"), files[0])
	assert.Equal(t, filepath.Join(root, "b.rst"), files[1])
}
