// Package markup parses the lightweight directive dialect used by the
// documentation sources: ".. name::" block directives with ":key: value"
// option blocks and indentation-scoped bodies, numbered and lettered ordered
// lists, and headings ranked by their adornment character.
//
// Parsing is resilient: a malformed directive yields a ParseError scoped to
// that node and parsing continues with its siblings, so one bad block never
// aborts a whole file.
package markup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dverity/docdrill/pkg/domain"
)

var (
	directiveRe = regexp.MustCompile(`^\.\. +([A-Za-z][\w-]*)::\s?(.*)$`)
	optionRe    = regexp.MustCompile(`^:([\w-]+):\s*(.*)$`)
	listItemRe  = regexp.MustCompile(`^(\d+|[A-Za-z]|#)([.)]) +(.*)$`)
)

// adornmentChars are the punctuation characters accepted as heading
// underlines. Any of them can denote any rank; rank is assigned by first
// occurrence in the file.
const adornmentChars = `=-~^"'` + "`" + `+*#.:_`

// Directives whose body is literal text, never parsed for nested blocks.
var literalBody = map[string]bool{
	"code":           true,
	"code-block":     true,
	"literalinclude": true,
	"include":        true,
	"input":          true,
	"output":         true,
}

// Parse turns raw markup text into a block tree plus the list of node-scoped
// parse errors encountered along the way. The returned root node is a
// synthetic container whose Children are the file's top-level blocks.
func Parse(file, src string) (*domain.DirectiveNode, []*domain.ParseError) {
	p := &parser{
		file:  file,
		lines: strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n"),
		ranks: make(map[byte]int),
	}
	children := p.parseRegion(p.lines, 1)
	root := &domain.DirectiveNode{
		Kind:     domain.NodeText,
		File:     file,
		Line:     1,
		EndLine:  len(p.lines),
		Children: children,
	}
	return root, p.errs
}

type parser struct {
	file  string
	lines []string
	errs  []*domain.ParseError
	ranks map[byte]int
}

func (p *parser) errorf(line int, format string, args ...any) {
	p.errs = append(p.errs, &domain.ParseError{
		File: p.file,
		Line: line,
		Msg:  fmt.Sprintf(format, args...),
	})
}

// parseRegion parses a dedented run of lines into sibling blocks.
// offset is the 1-based source line number of lines[0].
func (p *parser) parseRegion(lines []string, offset int) []*domain.DirectiveNode {
	var nodes []*domain.DirectiveNode
	i := 0
	for i < len(lines) {
		if isBlank(lines[i]) {
			i++
			continue
		}

		if node, next, ok := p.parseHeading(lines, i, offset); ok {
			nodes = append(nodes, node)
			i = next
			continue
		}
		if node, next, ok := p.parseDirective(lines, i, offset); ok {
			if node != nil {
				nodes = append(nodes, node)
			}
			i = next
			continue
		}
		if node, next, ok := p.parseListItem(lines, i, offset); ok {
			nodes = append(nodes, node)
			i = next
			continue
		}

		node, next := p.parseParagraph(lines, i, offset)
		nodes = append(nodes, node)
		i = next
	}
	return nodes
}

// parseHeading recognizes underlined (and optionally overlined) titles.
// Rank equality is determined by first occurrence of the adornment character
// in the file, not by a fixed character table.
func (p *parser) parseHeading(lines []string, i, offset int) (*domain.DirectiveNode, int, bool) {
	// Overline form: adornment, title, matching adornment.
	if ch, ok := adornmentOf(lines[i]); ok && i+2 < len(lines) {
		title := strings.TrimSpace(lines[i+1])
		if title != "" && !isBlank(lines[i+2]) {
			if ch2, ok2 := adornmentOf(lines[i+2]); ok2 && ch2 == ch && len(lines[i+2]) >= len(title) {
				return p.headingNode(title, ch, offset+i+1, offset+i+2), i + 3, true
			}
		}
	}

	// Underline form: title, adornment at least as long as the title.
	if i+1 >= len(lines) {
		return nil, 0, false
	}
	title := strings.TrimSpace(lines[i])
	if title == "" || indentOf(lines[i]) > 0 {
		return nil, 0, false
	}
	if directiveRe.MatchString(title) || listItemRe.MatchString(title) {
		return nil, 0, false
	}
	ch, ok := adornmentOf(lines[i+1])
	if !ok || len(strings.TrimRight(lines[i+1], " ")) < len(title) {
		return nil, 0, false
	}
	return p.headingNode(title, ch, offset+i, offset+i+1), i + 2, true
}

func (p *parser) headingNode(title string, adorn byte, line, endLine int) *domain.DirectiveNode {
	if _, seen := p.ranks[adorn]; !seen {
		p.ranks[adorn] = len(p.ranks) + 1
	}
	return &domain.DirectiveNode{
		Kind:    domain.NodeHeading,
		Name:    title,
		Rank:    p.ranks[adorn],
		File:    p.file,
		Line:    line,
		EndLine: endLine,
	}
}

// parseDirective recognizes ".. name:: args" blocks with an optional option
// block and an indentation-scoped body. On a malformed body it records a
// ParseError and skips to the next sibling, returning (nil, next, true).
func (p *parser) parseDirective(lines []string, i, offset int) (*domain.DirectiveNode, int, bool) {
	m := directiveRe.FindStringSubmatch(strings.TrimLeft(lines[i], " "))
	if m == nil {
		return nil, 0, false
	}
	headerIndent := indentOf(lines[i])
	name := m[1]
	args := strings.TrimSpace(m[2])

	// The body is every following line blank or indented deeper than the
	// header.
	end := i + 1
	for end < len(lines) {
		if isBlank(lines[end]) {
			end++
			continue
		}
		if indentOf(lines[end]) <= headerIndent {
			break
		}
		end++
	}
	// Trim trailing blanks out of the body window.
	for end > i+1 && isBlank(lines[end-1]) {
		end--
	}

	body := lines[i+1 : end]
	bodyIndent := -1
	for idx, l := range body {
		if isBlank(l) {
			continue
		}
		ind := indentOf(l)
		if bodyIndent == -1 {
			bodyIndent = ind
			continue
		}
		if ind < bodyIndent {
			p.errorf(offset+i+1+idx, "directive %q: inconsistent body indentation", name)
			return nil, end, true
		}
	}

	var dedented []string
	for _, l := range body {
		if isBlank(l) {
			dedented = append(dedented, "")
		} else {
			dedented = append(dedented, l[bodyIndent:])
		}
	}

	options, rest, restOffset, err := p.parseOptions(dedented, offset+i+1)
	if err != nil {
		p.errorf(err.Line, "directive %q: %s", name, err.Msg)
		return nil, end, true
	}

	node := &domain.DirectiveNode{
		Kind:    domain.NodeDirective,
		Name:    name,
		Args:    args,
		Options: options,
		Body:    strings.Join(rest, "\n"),
		File:    p.file,
		Line:    offset + i,
		EndLine: offset + end - 1,
	}
	if !literalBody[name] && len(rest) > 0 {
		node.Children = p.parseRegion(rest, restOffset)
	}
	return node, end, true
}

// parseOptions consumes the ":key: value" block at the top of a dedented
// directive body and returns the remaining content lines.
func (p *parser) parseOptions(body []string, offset int) ([]domain.Option, []string, int, *domain.ParseError) {
	var options []domain.Option
	i := 0
	for i < len(body) {
		l := body[i]
		if isBlank(l) {
			break
		}
		if !strings.HasPrefix(l, ":") {
			break
		}
		m := optionRe.FindStringSubmatch(l)
		if m == nil {
			return nil, nil, 0, &domain.ParseError{
				File: p.file,
				Line: offset + i,
				Msg:  fmt.Sprintf("malformed option line %q", strings.TrimSpace(l)),
			}
		}
		options = append(options, domain.Option{Key: m[1], Value: strings.TrimSpace(m[2])})
		i++
	}
	// Skip the blank separator between options and content.
	for i < len(body) && isBlank(body[i]) {
		i++
	}
	return options, body[i:], offset + i, nil
}

// parseListItem recognizes one ordered-list item, including its indented
// continuation (which may hold nested sub-lists and directives).
func (p *parser) parseListItem(lines []string, i, offset int) (*domain.DirectiveNode, int, bool) {
	if indentOf(lines[i]) > 0 {
		return nil, 0, false
	}
	m := listItemRe.FindStringSubmatch(lines[i])
	if m == nil {
		return nil, 0, false
	}
	marker := normalizeMarker(m[1])
	first := m[3]
	contentIndent := len(m[1]) + len(m[2]) + 1

	end := i + 1
	for end < len(lines) {
		if isBlank(lines[end]) {
			end++
			continue
		}
		if indentOf(lines[end]) < contentIndent {
			break
		}
		end++
	}
	for end > i+1 && isBlank(lines[end-1]) {
		end--
	}

	content := []string{first}
	for _, l := range lines[i+1 : end] {
		if isBlank(l) {
			content = append(content, "")
		} else {
			content = append(content, l[contentIndent:])
		}
	}

	node := &domain.DirectiveNode{
		Kind:     domain.NodeListItem,
		Marker:   marker,
		Body:     strings.Join(content, "\n"),
		File:     p.file,
		Line:     offset + i,
		EndLine:  offset + end - 1,
		Children: p.parseRegion(content, offset+i),
	}
	return node, end, true
}

func (p *parser) parseParagraph(lines []string, i, offset int) (*domain.DirectiveNode, int) {
	start := i
	var text []string
	for i < len(lines) && !isBlank(lines[i]) {
		l := strings.TrimLeft(lines[i], " ")
		if directiveRe.MatchString(l) || (indentOf(lines[i]) == 0 && listItemRe.MatchString(lines[i])) {
			break
		}
		if i+1 < len(lines) {
			if _, ok := adornmentOf(lines[i+1]); ok && i > start {
				break // next line starts a heading
			}
		}
		text = append(text, strings.TrimRight(lines[i], " "))
		i++
	}
	if len(text) == 0 {
		// Defensive: consume one line so the loop always advances.
		text = append(text, strings.TrimSpace(lines[i]))
		i++
	}
	return &domain.DirectiveNode{
		Kind:    domain.NodeText,
		Body:    strings.TrimSpace(strings.Join(text, "\n")),
		File:    p.file,
		Line:    offset + start,
		EndLine: offset + i - 1,
	}, i
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func indentOf(s string) int {
	return len(s) - len(strings.TrimLeft(s, " "))
}

// adornmentOf reports whether the line is a heading adornment: three or more
// repetitions of one punctuation character.
func adornmentOf(line string) (byte, bool) {
	t := strings.TrimRight(line, " ")
	if len(t) < 3 || indentOf(line) > 0 {
		return 0, false
	}
	ch := t[0]
	if !strings.ContainsRune(adornmentChars, rune(ch)) {
		return 0, false
	}
	for j := 1; j < len(t); j++ {
		if t[j] != ch {
			return 0, false
		}
	}
	return ch, true
}

func normalizeMarker(m string) string {
	switch {
	case m == "#":
		return "#"
	case m[0] >= '0' && m[0] <= '9':
		return "1"
	default:
		return strings.ToLower(m)
	}
}
