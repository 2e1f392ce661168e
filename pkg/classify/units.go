package classify

import (
	"fmt"

	"github.com/dverity/docdrill/pkg/domain"
)

// Unit is one executable unit of a Step: either a single self-contained
// action, or a run of adjacent minimal snippets concatenated in document
// order.
type Unit struct {
	Actions  []*domain.Action
	Kind     string
	Language string
	Source   string
}

// Units groups a resolved Step's actions into executable units. Successive
// code snippets of the same language within one Step are treated as lines of
// one larger example and concatenated into a single unit; shell, CLI, URL
// and API actions each stand alone. Non-executable actions form single-action
// units so they can be reported individually.
func Units(actions []*domain.Action) []Unit {
	var units []Unit
	for _, a := range actions {
		if canJoin(units, a) {
			last := &units[len(units)-1]
			last.Actions = append(last.Actions, a)
			last.Source = last.Source + "\n" + a.Body
			continue
		}
		units = append(units, Unit{
			Actions:  []*domain.Action{a},
			Kind:     a.Kind,
			Language: a.Language,
			Source:   a.Body,
		})
	}
	return units
}

func canJoin(units []Unit, a *domain.Action) bool {
	if len(units) == 0 {
		return false
	}
	if a.Kind != domain.ActionCode || !a.Executable {
		return false
	}
	last := units[len(units)-1]
	return last.Kind == domain.ActionCode &&
		last.Language == a.Language &&
		last.Actions[len(last.Actions)-1].Executable
}

// Describe returns a short label for a unit, used in result details.
func (u Unit) Describe() string {
	if len(u.Actions) == 1 {
		return u.Kind + "/" + u.Language
	}
	return fmt.Sprintf("%s/%s (%d snippets)", u.Kind, u.Language, len(u.Actions))
}
