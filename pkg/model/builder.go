// Package model walks a resolved parse tree and recovers the logical
// Procedure → Step → Action structure, attaching variant slots where the
// document offers alternative content.
package model

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dverity/docdrill/pkg/classify"
	"github.com/dverity/docdrill/pkg/domain"
)

// Result is the outcome of building one file: the procedures that could be
// built, plus a failure record for each one that could not.
type Result struct {
	Procedures []*domain.Procedure
	Failures   []domain.BuildFailure
}

// Build extracts procedures from a resolved tree. A procedure boundary is an
// explicit "procedure" directive or a maximal run of ordered-list items at
// the same nesting level. A procedure containing an unresolved transclusion
// or an inconsistent variant dimension is reported as a failure; other
// procedures in the file are unaffected.
func Build(root *domain.DirectiveNode) Result {
	b := &builder{}
	b.walk(root.Children)
	return Result{Procedures: b.procedures, Failures: b.failures}
}

type builder struct {
	procedures []*domain.Procedure
	failures   []domain.BuildFailure

	// title is the nearest preceding heading; conventionally the rank-2
	// heading above a procedure.
	title string

	// composable is the ordered ":options:" tuple of the active
	// composable-tutorial directive, empty when none is active.
	composable string
}

func (b *builder) walk(nodes []*domain.DirectiveNode) {
	i := 0
	for i < len(nodes) {
		n := nodes[i]
		switch {
		case n.Kind == domain.NodeHeading:
			if n.Rank >= 2 || b.title == "" {
				b.title = n.Name
			}
			i++
		case n.IsDirective("composable-tutorial"):
			opts, _ := n.Option("options")
			b.composable = normalizeTuple(opts)
			b.walk(n.Children)
			b.composable = ""
			i++
		case n.IsDirective("procedure"):
			b.buildProcedure(n)
			i++
		case n.Kind == domain.NodeListItem:
			// Maximal run of sibling list items forms one procedure.
			j := i
			for j < len(nodes) && nodes[j].Kind == domain.NodeListItem {
				j++
			}
			b.buildListProcedure(nodes[i:j])
			i = j
		case n.Kind == domain.NodeDirective && len(n.Children) > 0:
			b.walk(n.Children)
			i++
		default:
			i++
		}
	}
}

func (b *builder) buildProcedure(node *domain.DirectiveNode) {
	p := &domain.Procedure{Title: b.title, File: node.File, Line: node.Line}
	sb := &stepBuilder{composable: b.composable}

	for _, child := range node.Children {
		switch {
		case child.IsDirective("step"):
			step := domain.Step{Title: child.Args, Line: child.Line}
			step.Items = sb.items(child.Children)
			p.Steps = append(p.Steps, step)
		case child.Kind == domain.NodeListItem:
			step := domain.Step{Line: child.Line}
			step.Items = sb.items(child.Children)
			p.Steps = append(p.Steps, step)
		case child.Kind == domain.NodeUnresolved:
			sb.fail(child.Line, child.Body)
		}
	}

	b.finish(p, sb)
}

func (b *builder) buildListProcedure(items []*domain.DirectiveNode) {
	p := &domain.Procedure{Title: b.title, File: items[0].File, Line: items[0].Line}
	sb := &stepBuilder{composable: b.composable}

	for _, item := range items {
		step := domain.Step{Line: item.Line}
		step.Items = sb.items(item.Children)
		p.Steps = append(p.Steps, step)
	}

	b.finish(p, sb)
}

func (b *builder) finish(p *domain.Procedure, sb *stepBuilder) {
	if sb.err != "" {
		b.failures = append(b.failures, domain.BuildFailure{
			File:      p.File,
			Procedure: p.Title,
			Line:      sb.errLine,
			Reason:    sb.err,
		})
		return
	}
	b.procedures = append(b.procedures, p)
}

// stepBuilder converts the nodes inside one Step into ordered StepItems. It
// records the first build-breaking problem it sees; the owning procedure is
// then reported unbuildable.
type stepBuilder struct {
	composable string
	err        string
	errLine    int
}

func (sb *stepBuilder) fail(line int, reason string) {
	if sb.err == "" {
		sb.err = reason
		sb.errLine = line
	}
}

// items flattens a node list into step items. Lettered sub-items contribute
// their content to the enclosing Step; a tabs or selected-content directive
// becomes a VariantSlot rather than additional Steps, so the number of Steps
// is independent of how many alternatives any Step offers.
func (sb *stepBuilder) items(nodes []*domain.DirectiveNode) []domain.StepItem {
	var out []domain.StepItem
	for _, n := range nodes {
		switch {
		case n.Kind == domain.NodeText:
			if n.Body != "" {
				out = append(out, domain.StepItem{Text: n.Body})
			}
		case n.Kind == domain.NodeUnresolved:
			sb.fail(n.Line, n.Body)
		case n.Kind == domain.NodeListItem:
			out = append(out, sb.items(n.Children)...)
		case n.IsDirective("composable-tutorial"):
			// The directive may wrap content inside a Step rather than the
			// whole document; it scopes the dimension either way.
			opts, _ := n.Option("options")
			prev := sb.composable
			sb.composable = normalizeTuple(opts)
			out = append(out, sb.items(n.Children)...)
			sb.composable = prev
		case n.IsDirective("tabs"):
			if slot := sb.tabsSlot(n); slot != nil {
				out = append(out, domain.StepItem{Slot: slot})
			}
		case n.IsDirective("selected-content"):
			if slot := sb.selectedSlot(n); slot != nil {
				out = append(out, domain.StepItem{Slot: slot})
			}
		case n.IsDirective("code") || n.IsDirective("code-block"):
			out = append(out, sb.codeItem(n))
		case n.IsDirective("literalinclude"):
			out = append(out, sb.literalItem(n))
		case n.IsDirective("io-code-block"):
			out = append(out, sb.ioItems(n)...)
		case n.Kind == domain.NodeDirective:
			// Admonitions and other container directives contribute their
			// inner content to the step.
			out = append(out, sb.items(n.Children)...)
		}
	}
	return out
}

// tabsSlot converts a tabs directive into a variant slot. The dimension
// identity is the set of tabids present: tab titles may differ across
// occurrences, the tabid is the meaningful unit.
func (sb *stepBuilder) tabsSlot(n *domain.DirectiveNode) *domain.VariantSlot {
	slot := &domain.VariantSlot{}
	var keys []string
	for _, tab := range n.Children {
		if !tab.IsDirective("tab") {
			continue
		}
		key, ok := tab.Option("tabid")
		if !ok {
			key = slugify(tab.Args)
		}
		keys = append(keys, key)
		slot.Alternatives = append(slot.Alternatives, domain.VariantAlternative{
			Key:   key,
			Items: sb.items(tab.Children),
		})
	}
	if len(slot.Alternatives) == 0 {
		return nil
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	slot.Dimension = "tabs:" + strings.Join(sorted, "+")
	return slot
}

// selectedSlot converts a selected-content directive into a single-
// alternative slot on the active composable-tutorial dimension.
func (sb *stepBuilder) selectedSlot(n *domain.DirectiveNode) *domain.VariantSlot {
	if sb.composable == "" {
		sb.fail(n.Line, "selected-content outside a composable-tutorial")
		return nil
	}
	selections, _ := n.Option("selections")
	key := normalizeTuple(selections)
	if tupleArity(key) != tupleArity(sb.composable) {
		sb.fail(n.Line, fmt.Sprintf("selections %q do not match options %q", selections, sb.composable))
		return nil
	}
	return &domain.VariantSlot{
		Dimension: "composable:" + sb.composable,
		Alternatives: []domain.VariantAlternative{
			{Key: key, Items: sb.items(n.Children)},
		},
	}
}

func (sb *stepBuilder) codeItem(n *domain.DirectiveNode) domain.StepItem {
	res := classify.Classify(n.Args, n.Body, "")
	return domain.StepItem{Action: actionFrom(n, res)}
}

func (sb *stepBuilder) literalItem(n *domain.DirectiveNode) domain.StepItem {
	declared, _ := n.Option("language")
	res := classify.Classify(declared, n.Body, filepath.Ext(n.Args))
	return domain.StepItem{Action: actionFrom(n, res)}
}

// ioItems handles io-code-block: only the input sub-block is ever
// classified as executable; the output sub-block is kept as plain content
// and is never executed or compared.
func (sb *stepBuilder) ioItems(n *domain.DirectiveNode) []domain.StepItem {
	var out []domain.StepItem
	for _, child := range n.Children {
		switch {
		case child.IsDirective("input"):
			res := classify.Classify(child.Args, child.Body, "")
			out = append(out, domain.StepItem{Action: actionFrom(child, res)})
		case child.IsDirective("output"):
			if child.Body != "" {
				out = append(out, domain.StepItem{Text: child.Body})
			}
		}
	}
	return out
}

func actionFrom(n *domain.DirectiveNode, res classify.Result) *domain.Action {
	return &domain.Action{
		Kind:       res.Kind,
		Language:   res.Language,
		Body:       res.Body,
		File:       n.File,
		Line:       n.Line,
		Executable: res.Executable,
	}
}

func normalizeTuple(s string) string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

func tupleArity(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(s, ","))
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "-")
}
