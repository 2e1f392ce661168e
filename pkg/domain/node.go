package domain

// Node kinds produced by the directive parser.
const (
	// NodeHeading is a section title with an adornment-derived rank.
	NodeHeading = "heading"
	// NodeDirective is an explicit ".. name::" block.
	NodeDirective = "directive"
	// NodeListItem is one item of a numbered or lettered ordered list.
	NodeListItem = "list-item"
	// NodeText is a plain paragraph.
	NodeText = "text"
	// NodeUnresolved marks a transclusion reference that could not be
	// resolved. The model builder reports the enclosing procedure as
	// unbuildable when it encounters one.
	NodeUnresolved = "unresolved"
)

// Option is one ":key: value" pair of a directive option block.
// Options preserve document order, so they are a slice rather than a map.
type Option struct {
	Key   string
	Value string
}

// DirectiveNode is one typed block of the parse tree.
// Nodes are immutable after construction.
type DirectiveNode struct {
	Kind string

	// Name is the directive name ("procedure", "tabs", ...) for directives,
	// and the title text for headings.
	Name string

	// Args is the text following "::" on the directive header line.
	Args string

	Options []Option

	// Body is the dedented raw body text. For directives with structured
	// content, Children holds the parsed form of the same text.
	Body string

	Children []*DirectiveNode

	// Rank is the heading rank (1-based, by first occurrence of the
	// adornment character in the file). Zero for non-headings.
	Rank int

	// Marker is the normalized list marker for list items: "1", "a" or "#".
	Marker string

	File string
	Line int
	// EndLine is the last source line covered by this node's body.
	EndLine int
}

// Option returns the value of the named option and whether it was present.
func (n *DirectiveNode) Option(key string) (string, bool) {
	for _, o := range n.Options {
		if o.Key == key {
			return o.Value, true
		}
	}
	return "", false
}

// IsDirective reports whether the node is a directive with the given name.
func (n *DirectiveNode) IsDirective(name string) bool {
	return n.Kind == NodeDirective && n.Name == name
}
