package domain

// Action kinds. The classifier assigns exactly one per testable leaf.
const (
	ActionCode  = "code"
	ActionShell = "shell"
	ActionCLI   = "cli"
	ActionAPI   = "api"
	ActionURL   = "url"
	ActionUI    = "ui"
)

// Action is one testable unit within a Step.
type Action struct {
	Kind string

	// Language is the canonical, lower-cased source language ("shell",
	// "javascript", "python", "text", ...).
	Language string

	Body string

	File string
	Line int

	// Executable is the classifier's verdict. Non-executable actions are
	// reported as skipped and never affect procedure status.
	Executable bool
}

// VariantAlternative is the content specific to one alternative key of a
// variant dimension (one tab, or one composable-tutorial selection).
type VariantAlternative struct {
	// Key is the stable alternative key: the tabid, or the ":selections:"
	// tuple normalized to a canonical string.
	Key string

	Items []StepItem
}

// VariantSlot is a point of documented alternative content inside a Step.
type VariantSlot struct {
	// Dimension identifies the axis this slot belongs to. Two slots in
	// different Steps with the same Dimension are the same axis and are
	// always resolved to the same key within one instance.
	Dimension string

	Alternatives []VariantAlternative
}

// Alternative returns the alternative for the given key, if present.
func (s *VariantSlot) Alternative(key string) (VariantAlternative, bool) {
	for _, a := range s.Alternatives {
		if a.Key == key {
			return a, true
		}
	}
	return VariantAlternative{}, false
}

// StepItem is one ordered element of a Step: plain content, an action, or a
// variant slot. Exactly one field is set.
type StepItem struct {
	Text   string
	Action *Action
	Slot   *VariantSlot
}

// Step is one logical instruction of a Procedure. A Step never represents
// more than one instruction, regardless of how many variant slots it holds.
type Step struct {
	Title string
	Line  int
	Items []StepItem
}

// Procedure is an ordered set of Steps extracted from one source file.
type Procedure struct {
	// Title is the nearest preceding rank-2 heading, when there is one.
	Title string
	File  string
	Line  int
	Steps []Step
}

// ResolvedStep is a Step with every variant slot replaced by the content of
// the chosen alternative. Items never contain slots.
type ResolvedStep struct {
	Title string
	Line  int
	Items []StepItem
}

// Actions returns the step's actions in document order.
func (s ResolvedStep) Actions() []*Action {
	var out []*Action
	for _, it := range s.Items {
		if it.Action != nil {
			out = append(out, it.Action)
		}
	}
	return out
}

// ProcedureInstance is one fully resolved, variant-free version of a
// Procedure, selected by exactly one key per dimension.
type ProcedureInstance struct {
	Procedure *Procedure

	// Keys maps each dimension to the alternative key chosen for it.
	// Empty for a procedure with no variant slots.
	Keys map[string]string

	Steps []ResolvedStep
}

// PlaceholderBinding records how one placeholder identity was resolved.
type PlaceholderBinding struct {
	// Name is the canonical placeholder identity (kebab-case).
	Name  string
	Value string
	// Source names where the value came from: "env", "constants" or "roles".
	Source string
}
