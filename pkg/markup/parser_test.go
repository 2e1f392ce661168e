package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverity/docdrill/pkg/domain"
)

func TestParse_DirectiveWithOptionsAndBody(t *testing.T) {
	src := `.. code-block:: shell
   :copyable: true

   npm install mongodb
`
	root, errs := Parse("doc.txt", src)
	require.Empty(t, errs)
	require.Len(t, root.Children, 1)

	node := root.Children[0]
	assert.Equal(t, domain.NodeDirective, node.Kind)
	assert.Equal(t, "code-block", node.Name)
	assert.Equal(t, "shell", node.Args)
	val, ok := node.Option("copyable")
	require.True(t, ok)
	assert.Equal(t, "true", val)
	assert.Equal(t, "npm install mongodb", node.Body)
	assert.Empty(t, node.Children, "code-block bodies are literal")
}

func TestParse_NestedDirectives(t *testing.T) {
	src := `.. procedure::

   .. step:: Install the driver

      Run the installer.

      .. code-block:: shell

         npm install mongodb
`
	root, errs := Parse("doc.txt", src)
	require.Empty(t, errs)
	require.Len(t, root.Children, 1)

	proc := root.Children[0]
	assert.Equal(t, "procedure", proc.Name)
	require.Len(t, proc.Children, 1)

	step := proc.Children[0]
	assert.Equal(t, "step", step.Name)
	assert.Equal(t, "Install the driver", step.Args)
	require.Len(t, step.Children, 2)
	assert.Equal(t, domain.NodeText, step.Children[0].Kind)
	assert.Equal(t, "Run the installer.", step.Children[0].Body)
	assert.Equal(t, "code-block", step.Children[1].Name)
	assert.Equal(t, "npm install mongodb", step.Children[1].Body)
}

func TestParse_HeadingRanksByFirstOccurrence(t *testing.T) {
	// Any consistent adornment character denotes a rank; rank order follows
	// first occurrence in the file, not a fixed character table.
	src := `Tutorial
~~~~~~~~

Part One
++++++++

Part Two
++++++++
`
	root, errs := Parse("doc.txt", src)
	require.Empty(t, errs)
	require.Len(t, root.Children, 3)

	assert.Equal(t, 1, root.Children[0].Rank)
	assert.Equal(t, "Tutorial", root.Children[0].Name)
	assert.Equal(t, 2, root.Children[1].Rank)
	assert.Equal(t, 2, root.Children[2].Rank)
}

func TestParse_OverlinedHeading(t *testing.T) {
	src := `==========
Big Title
==========

Body text.
`
	root, errs := Parse("doc.txt", src)
	require.Empty(t, errs)
	require.Len(t, root.Children, 2)
	assert.Equal(t, domain.NodeHeading, root.Children[0].Kind)
	assert.Equal(t, "Big Title", root.Children[0].Name)
}

func TestParse_OrderedLists(t *testing.T) {
	src := `1. First step

   a. sub item one
   b. sub item two

2. Second step
`
	root, errs := Parse("doc.txt", src)
	require.Empty(t, errs)
	require.Len(t, root.Children, 2)

	first := root.Children[0]
	assert.Equal(t, domain.NodeListItem, first.Kind)
	assert.Equal(t, "1", first.Marker)

	var letters []string
	for _, c := range first.Children {
		if c.Kind == domain.NodeListItem {
			letters = append(letters, c.Marker)
		}
	}
	assert.Equal(t, []string{"a", "b"}, letters, "lettered sub-items nest under the numbered item")

	assert.Equal(t, "1", root.Children[1].Marker)
}

func TestParse_MalformedDirectiveContinuesWithSiblings(t *testing.T) {
	src := `.. code-block:: shell
   :broken option

   echo one

.. code-block:: shell

   echo two
`
	root, errs := Parse("doc.txt", src)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Msg, "malformed option")
	assert.Equal(t, 2, errs[0].Line)

	// The sibling after the malformed node still parses.
	require.Len(t, root.Children, 1)
	assert.Equal(t, "echo two", root.Children[0].Body)
}

func TestParse_InconsistentIndentationIsScopedError(t *testing.T) {
	src := `.. note::

      deeply indented
   shallower line

Plain paragraph survives.
`
	root, errs := Parse("doc.txt", src)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Msg, "inconsistent body indentation")

	require.Len(t, root.Children, 1)
	assert.Equal(t, domain.NodeText, root.Children[0].Kind)
}

func TestParse_TabsDirective(t *testing.T) {
	src := `.. tabs::

   .. tab:: Node.js
      :tabid: nodejs

      .. code-block:: javascript

         console.log("hi")

   .. tab:: Python
      :tabid: python

      .. code-block:: python

         print("hi")
`
	root, errs := Parse("doc.txt", src)
	require.Empty(t, errs)
	require.Len(t, root.Children, 1)

	tabs := root.Children[0]
	require.Len(t, tabs.Children, 2)
	id, _ := tabs.Children[0].Option("tabid")
	assert.Equal(t, "nodejs", id)
	id, _ = tabs.Children[1].Option("tabid")
	assert.Equal(t, "python", id)
}
