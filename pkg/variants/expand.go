// Package variants turns a Procedure with variant slots into the minimal
// correct set of concrete, variant-free ProcedureInstances.
//
// Branching is represented explicitly as enumerated dimensions and a
// Cartesian product, never as nested conditional control flow, so the
// instance count and the pairing rules are independently testable.
package variants

import (
	"sort"
	"strings"

	"github.com/dverity/docdrill/pkg/domain"
)

// Expand produces one ProcedureInstance per element of the Cartesian product
// of the procedure's variant dimensions.
//
//   - A procedure with zero dimensions yields exactly one instance.
//   - One dimension of N keys yields exactly N instances; every slot of that
//     dimension resolves to the same key within one instance, so two tab sets
//     offering tab1/tab2 in different Steps never produce a mixed pairing.
//   - Independent dimensions multiply; this is accepted combinatorial
//     growth, because each dimension is independently meaningful.
//
// A slot missing a key of its dimension contributes no content when that key
// is selected; a Step left with zero actions is trivially satisfied, never
// failed.
func Expand(p *domain.Procedure) []*domain.ProcedureInstance {
	dims := collectDimensions(p)
	if len(dims) == 0 {
		return []*domain.ProcedureInstance{materialize(p, nil, nil)}
	}

	var instances []*domain.ProcedureInstance
	choice := make([]int, len(dims))
	for {
		keys := make(map[string]string, len(dims))
		for i, d := range dims {
			keys[d.name] = d.keys[choice[i]]
		}
		instances = append(instances, materialize(p, dims, keys))

		// Advance the rightmost dimension first, so instances come out in
		// document order of dimensions, then key order within each.
		i := len(dims) - 1
		for i >= 0 {
			choice[i]++
			if choice[i] < len(dims[i].keys) {
				break
			}
			choice[i] = 0
			i--
		}
		if i < 0 {
			return instances
		}
	}
}

// dimension is one variant axis: its canonical name and the ordered union of
// alternative keys observed across all slots belonging to it.
type dimension struct {
	name string
	keys []string

	// members maps the raw slot dimensions merged into this one, so
	// materialization can match a slot to its canonical dimension.
	members map[string]bool
}

func (d *dimension) addKey(key string) {
	for _, k := range d.keys {
		if k == key {
			return
		}
	}
	d.keys = append(d.keys, key)
}

// collectDimensions groups the procedure's slots by dimension identity, in
// first-appearance document order. Two slots belong to the same dimension
// iff they carry the same composable option tuple, or — for tab sets — their
// tabid sets overlap: a tab set need not repeat every key of its dimension.
func collectDimensions(p *domain.Procedure) []*dimension {
	var dims []*dimension

	forEachSlot(p, func(slot *domain.VariantSlot) {
		d := findDimension(dims, slot)
		if d == nil {
			d = &dimension{name: slot.Dimension, members: map[string]bool{slot.Dimension: true}}
			dims = append(dims, d)
		} else {
			d.members[slot.Dimension] = true
		}
		for _, alt := range slot.Alternatives {
			d.addKey(alt.Key)
		}
	})

	// Tab dimensions that grew by union get a canonical name covering every
	// key, so reports stay stable regardless of which slot appeared first.
	for _, d := range dims {
		if strings.HasPrefix(d.name, "tabs:") {
			sorted := append([]string(nil), d.keys...)
			sort.Strings(sorted)
			d.name = "tabs:" + strings.Join(sorted, "+")
		}
	}
	return dims
}

func findDimension(dims []*dimension, slot *domain.VariantSlot) *dimension {
	for _, d := range dims {
		if d.members[slot.Dimension] {
			return d
		}
		// Tab sets with any shared tabid are one axis, not two.
		if strings.HasPrefix(d.name, "tabs:") && strings.HasPrefix(slot.Dimension, "tabs:") {
			for _, alt := range slot.Alternatives {
				for _, k := range d.keys {
					if alt.Key == k {
						return d
					}
				}
			}
		}
	}
	return nil
}

func forEachSlot(p *domain.Procedure, fn func(*domain.VariantSlot)) {
	for si := range p.Steps {
		for ii := range p.Steps[si].Items {
			if slot := p.Steps[si].Items[ii].Slot; slot != nil {
				fn(slot)
			}
		}
	}
}

// materialize renders one instance for a chosen key tuple: every slot keeps
// only the alternative matching its dimension's key, and all non-slot
// content is kept verbatim in original document order. Selected blocks for
// the same key observed multiple times inside one Step concatenate in
// document order with intervening shared content preserved.
func materialize(p *domain.Procedure, dims []*dimension, keys map[string]string) *domain.ProcedureInstance {
	inst := &domain.ProcedureInstance{Procedure: p, Keys: keys}
	for _, step := range p.Steps {
		resolved := domain.ResolvedStep{Title: step.Title, Line: step.Line}
		for _, item := range step.Items {
			if item.Slot == nil {
				resolved.Items = append(resolved.Items, item)
				continue
			}
			key := keys[dimensionOf(dims, item.Slot)]
			if alt, ok := item.Slot.Alternative(key); ok {
				resolved.Items = append(resolved.Items, alt.Items...)
			}
		}
		inst.Steps = append(inst.Steps, resolved)
	}
	return inst
}

func dimensionOf(dims []*dimension, slot *domain.VariantSlot) string {
	for _, d := range dims {
		if d.members[slot.Dimension] {
			return d.name
		}
	}
	return slot.Dimension
}
