package transclude

import (
	"github.com/dverity/docdrill/pkg/domain"
)

// ParseFunc re-parses resolved include text as if it were inline content at
// the reference site. It matches the signature of markup.Parse.
type ParseFunc func(file, src string) (*domain.DirectiveNode, []*domain.ParseError)

// maxIncludeDepth bounds include-of-include chains; a reference loop turns
// into an unresolved node instead of unbounded recursion.
const maxIncludeDepth = 32

// Expand returns a copy of the tree with every include resolved and
// re-parsed in place, and every literalinclude replaced by its literal text,
// plus the parse errors encountered while re-parsing included content.
// A failing reference becomes a NodeUnresolved marker carrying the error, so
// the model builder can report the enclosing procedure as unbuildable while
// the rest of the file remains usable.
func Expand(root *domain.DirectiveNode, r *Resolver, parse ParseFunc) (*domain.DirectiveNode, []*domain.ParseError) {
	e := &expander{resolver: r, parse: parse}
	out := e.expandNode(root, 0)
	return out, e.errs
}

type expander struct {
	resolver *Resolver
	parse    ParseFunc
	errs     []*domain.ParseError
}

func (e *expander) expandNode(n *domain.DirectiveNode, depth int) *domain.DirectiveNode {
	out := *n
	out.Children = e.expandChildren(n.Children, depth)
	return &out
}

func (e *expander) expandChildren(children []*domain.DirectiveNode, depth int) []*domain.DirectiveNode {
	var out []*domain.DirectiveNode
	for _, child := range children {
		switch {
		case child.IsDirective("include"):
			out = append(out, e.expandInclude(child, depth)...)
		case child.IsDirective("literalinclude"):
			out = append(out, e.expandLiteral(child))
		default:
			out = append(out, e.expandNode(child, depth))
		}
	}
	return out
}

func (e *expander) expandInclude(node *domain.DirectiveNode, depth int) []*domain.DirectiveNode {
	if depth >= maxIncludeDepth {
		return []*domain.DirectiveNode{unresolved(node, "include depth limit exceeded")}
	}
	text, err := e.resolver.Resolve(node)
	if err != nil {
		return []*domain.DirectiveNode{unresolved(node, err.Error())}
	}

	// Extract refs resolve to inline content; plain includes resolve to
	// another file's content, so nested relative references are resolved
	// against the included file.
	file := node.File
	if !isExtractRef(node.Args) {
		file = e.resolver.refPath(node.File, node.Args)
	}
	sub, parseErrs := e.parse(file, text)
	e.errs = append(e.errs, parseErrs...)
	return e.expandChildren(sub.Children, depth+1)
}

func (e *expander) expandLiteral(node *domain.DirectiveNode) *domain.DirectiveNode {
	text, err := e.resolver.Resolve(node)
	if err != nil {
		return unresolved(node, err.Error())
	}
	out := *node
	out.Body = text
	out.Children = nil
	return &out
}

func unresolved(node *domain.DirectiveNode, reason string) *domain.DirectiveNode {
	return &domain.DirectiveNode{
		Kind: domain.NodeUnresolved,
		Name: node.Name,
		Args: node.Args,
		Body: reason,
		File: node.File,
		Line: node.Line,
	}
}
