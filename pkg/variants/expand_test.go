package variants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverity/docdrill/pkg/domain"
)

func text(s string) domain.StepItem { return domain.StepItem{Text: s} }

func slot(dim string, alts ...domain.VariantAlternative) domain.StepItem {
	return domain.StepItem{Slot: &domain.VariantSlot{Dimension: dim, Alternatives: alts}}
}

func alt(key string, items ...domain.StepItem) domain.VariantAlternative {
	return domain.VariantAlternative{Key: key, Items: items}
}

func texts(s domain.ResolvedStep) []string {
	var out []string
	for _, it := range s.Items {
		out = append(out, it.Text)
	}
	return out
}

func TestExpand_NoSlotsYieldsSingleInstance(t *testing.T) {
	p := &domain.Procedure{Steps: []domain.Step{
		{Items: []domain.StepItem{text("do the thing")}},
	}}

	instances := Expand(p)
	require.Len(t, instances, 1)
	assert.Empty(t, instances[0].Keys)
	assert.Equal(t, []string{"do the thing"}, texts(instances[0].Steps[0]))
}

func TestExpand_OneTabDimensionNeverMixesKeys(t *testing.T) {
	p := &domain.Procedure{Steps: []domain.Step{
		{Items: []domain.StepItem{slot("tabs:tab1+tab2",
			alt("tab1", text("install A")),
			alt("tab2", text("install B")),
		)}},
		{Items: []domain.StepItem{slot("tabs:tab1+tab2",
			alt("tab1", text("verify A")),
			alt("tab2", text("verify B")),
		)}},
	}}

	instances := Expand(p)
	require.Len(t, instances, 2, "two tab sets on one dimension never multiply")

	assert.Equal(t, "tab1", instances[0].Keys["tabs:tab1+tab2"])
	assert.Equal(t, []string{"install A"}, texts(instances[0].Steps[0]))
	assert.Equal(t, []string{"verify A"}, texts(instances[0].Steps[1]))

	assert.Equal(t, "tab2", instances[1].Keys["tabs:tab1+tab2"])
	assert.Equal(t, []string{"install B"}, texts(instances[1].Steps[0]))
	assert.Equal(t, []string{"verify B"}, texts(instances[1].Steps[1]))
}

func TestExpand_TabSetsMergeOnSharedKeys(t *testing.T) {
	// The second tab set omits tab2; it is the same axis, and the missing key
	// simply contributes no content.
	p := &domain.Procedure{Steps: []domain.Step{
		{Items: []domain.StepItem{slot("tabs:tab1+tab2",
			alt("tab1", text("one")),
			alt("tab2", text("two")),
		)}},
		{Items: []domain.StepItem{slot("tabs:tab1",
			alt("tab1", text("only for one")),
		)}},
	}}

	instances := Expand(p)
	require.Len(t, instances, 2)

	assert.Equal(t, "tab1", instances[0].Keys["tabs:tab1+tab2"])
	assert.Equal(t, []string{"only for one"}, texts(instances[0].Steps[1]))

	assert.Equal(t, "tab2", instances[1].Keys["tabs:tab1+tab2"])
	assert.Empty(t, instances[1].Steps[1].Items, "missing key yields an empty, trivially satisfied step")
}

func TestExpand_ThreeSelectionsYieldThreeInstances(t *testing.T) {
	p := &domain.Procedure{Steps: []domain.Step{
		{Items: []domain.StepItem{
			text("shared intro"),
			slot("composable:interface", alt("driver", text("driver way"))),
			slot("composable:interface", alt("compass", text("compass way"))),
			slot("composable:interface", alt("shell", text("shell way"))),
		}},
	}}

	instances := Expand(p)
	require.Len(t, instances, 3)

	assert.Equal(t, []string{"shared intro", "driver way"}, texts(instances[0].Steps[0]))
	assert.Equal(t, []string{"shared intro", "compass way"}, texts(instances[1].Steps[0]))
	assert.Equal(t, []string{"shared intro", "shell way"}, texts(instances[2].Steps[0]))
}

func TestExpand_IndependentDimensionsMultiply(t *testing.T) {
	p := &domain.Procedure{Steps: []domain.Step{
		{Items: []domain.StepItem{slot("tabs:a1+a2+a3",
			alt("a1", text("a1")), alt("a2", text("a2")), alt("a3", text("a3")),
		)}},
		{Items: []domain.StepItem{slot("composable:deployment",
			alt("local", text("local")), alt("cloud", text("cloud")),
		)}},
	}}

	instances := Expand(p)
	require.Len(t, instances, 6)

	// Rightmost dimension advances fastest.
	var pairs [][2]string
	for _, inst := range instances {
		pairs = append(pairs, [2]string{inst.Keys["tabs:a1+a2+a3"], inst.Keys["composable:deployment"]})
	}
	assert.Equal(t, [][2]string{
		{"a1", "local"}, {"a1", "cloud"},
		{"a2", "local"}, {"a2", "cloud"},
		{"a3", "local"}, {"a3", "cloud"},
	}, pairs)
}

func TestExpand_RepeatedKeyConcatenatesInDocumentOrder(t *testing.T) {
	p := &domain.Procedure{Steps: []domain.Step{
		{Items: []domain.StepItem{
			slot("composable:interface", alt("driver", text("part one"))),
			text("shared middle"),
			slot("composable:interface", alt("driver", text("part two"))),
		}},
	}}

	instances := Expand(p)
	require.Len(t, instances, 1)
	assert.Equal(t, []string{"part one", "shared middle", "part two"}, texts(instances[0].Steps[0]))
}

func TestExpand_CanonicalTabDimensionCoversUnion(t *testing.T) {
	p := &domain.Procedure{Steps: []domain.Step{
		{Items: []domain.StepItem{slot("tabs:nodejs",
			alt("nodejs", text("n")),
		)}},
		{Items: []domain.StepItem{slot("tabs:nodejs+python",
			alt("nodejs", text("n2")), alt("python", text("p")),
		)}},
	}}

	instances := Expand(p)
	require.Len(t, instances, 2)
	for _, inst := range instances {
		_, ok := inst.Keys["tabs:nodejs+python"]
		assert.True(t, ok, "canonical dimension name covers the key union")
	}
}
