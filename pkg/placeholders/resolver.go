// Package placeholders substitutes documentation placeholders — angle-bracket
// tokens (<name>), double-brace tokens ({{name}}) and source-constant tokens
// ({+name+}) — with values from the layered configuration sources.
//
// Spellings are canonicalized before lookup: kebab-case, camelCase,
// snake_case and space-separated variants collapse to one identity, and an
// alias table folds known synonyms (the many spellings of "connection
// string") onto one canonical binding name.
package placeholders

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dverity/docdrill/pkg/config"
	"github.com/dverity/docdrill/pkg/domain"
)

var (
	angleRe  = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9 _.+-]{0,60}?)>`)
	braceRe  = regexp.MustCompile(`\{\{([A-Za-z][\w .-]*)\}\}`)
	plusRe   = regexp.MustCompile(`\{\+([A-Za-z][\w .-]*)\+\}`)
	camelRe  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	sepRe    = regexp.MustCompile(`[ _.]+`)
	dashesRe = regexp.MustCompile(`-{2,}`)
	schemeRe = regexp.MustCompile(`^[a-z][a-z0-9+]*://`)
)

// aliases folds synonym identities onto one canonical binding name.
var aliases = map[string]string{
	"mongodb-connection-string":      "connection-string",
	"atlas-connection-string":        "connection-string",
	"your-connection-string":         "connection-string",
	"deployment-connection-string":   "connection-string",
	"cluster-connection-string":      "connection-string",
	"srv-connection-string":          "connection-string",
	"connection-uri":                 "connection-string",
	"mongodb-uri":                    "connection-string",
	"uri":                            "connection-string",
	"db-username":                    "username",
	"database-username":              "username",
	"user-name":                      "username",
	"db-user":                        "username",
	"db-password":                    "password",
	"database-password":              "password",
	"your-cluster-name":              "cluster-name",
	"deployment-name":                "cluster-name",
	"group-id":                       "project-id",
	"your-project-id":                "project-id",
	"api-key":                        "api-key",
	"atlas-api-key":                  "api-key",
	"your-database-name":             "database-name",
	"db-name":                        "database-name",
	"your-collection-name":           "collection-name",
	"coll-name":                      "collection-name",
}

// Resolution is the outcome of resolving one piece of text.
type Resolution struct {
	Text string
	// Bindings lists each placeholder identity that was substituted, with
	// the source it came from.
	Bindings []domain.PlaceholderBinding
	// Unresolved lists canonical identities that no source could satisfy.
	Unresolved []string
}

// Failed reports whether any placeholder was left unresolved.
func (r Resolution) Failed() bool { return len(r.Unresolved) > 0 }

// Err returns a PlaceholderError when resolution failed, nil otherwise.
func (r Resolution) Err() error {
	if !r.Failed() {
		return nil
	}
	return &domain.PlaceholderError{Unresolved: r.Unresolved}
}

// Resolver resolves placeholders against one immutable Sources value.
type Resolver struct {
	bindings map[string]domain.PlaceholderBinding
}

// New indexes the configuration sources by canonical identity. Environment
// bindings take precedence over constants, which take precedence over roles.
func New(sources *config.Sources) *Resolver {
	r := &Resolver{bindings: map[string]domain.PlaceholderBinding{}}
	for name, role := range sources.Roles {
		url := role.URL
		if role.EnsureTrailingSlash && !strings.HasSuffix(url, "/") {
			url += "/"
		}
		r.index(name, url, "roles")
	}
	for k, v := range sources.Constants {
		r.index(k, v, "constants")
	}
	for k, v := range sources.Env {
		r.index(k, v, "env")
	}
	return r
}

func (r *Resolver) index(name, value, source string) {
	canonical := Canonicalize(name)
	r.bindings[canonical] = domain.PlaceholderBinding{Name: canonical, Value: value, Source: source}
}

// Lookup returns the binding for one placeholder spelling.
func (r *Resolver) Lookup(name string) (domain.PlaceholderBinding, bool) {
	b, ok := r.bindings[Canonicalize(name)]
	return b, ok
}

// Resolve substitutes every recognized placeholder in the text. Unresolved
// identities are reported, never passed through silently into executed code:
// the caller fails the containing action. Resolving already-substituted text
// is a no-op, since substituted values contain no placeholder tokens.
func (r *Resolver) Resolve(text string) Resolution {
	res := Resolution{}
	state := &substitution{
		resolver: r,
		res:      &res,
		seen:     map[string]bool{},
		missing:  map[string]bool{},
	}

	out := state.apply(text, angleRe)
	out = state.apply(out, braceRe)
	out = state.apply(out, plusRe)

	res.Text = out
	for name := range state.missing {
		res.Unresolved = append(res.Unresolved, name)
	}
	sort.Strings(res.Unresolved)
	return res
}

type substitution struct {
	resolver *Resolver
	res      *Resolution
	seen     map[string]bool
	missing  map[string]bool
}

// apply substitutes one token syntax. It walks match indices rather than
// using ReplaceAllStringFunc because value adjustment needs to see the text
// following the token.
func (s *substitution) apply(text string, re *regexp.Regexp) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		name := text[m[2]:m[3]]
		b.WriteString(text[last:start])

		canonical := Canonicalize(name)
		bind, ok := s.resolver.bindings[canonical]
		if !ok {
			s.missing[canonical] = true
			b.WriteString(text[start:end])
		} else {
			if !s.seen[canonical] {
				s.seen[canonical] = true
				s.res.Bindings = append(s.res.Bindings, bind)
			}
			pathFollows := end < len(text) && text[end] == '/'
			b.WriteString(adjustValue(canonical, bind.Value, pathFollows))
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// adjustValue applies the connection-string special case: documents expect
// the URI to carry an admin-database path segment, so when the bound value
// has no path component one is appended, exactly once: a URI that already
// has a path is left alone. When the surrounding text supplies its own path
// right after the token, the value is left alone too.
func adjustValue(canonical, value string, pathFollows bool) string {
	if canonical != "connection-string" || pathFollows {
		return value
	}
	if !schemeRe.MatchString(value) {
		return value
	}
	rest := schemeRe.ReplaceAllString(value, "")
	if strings.Contains(rest, "/") {
		return value
	}
	return value + "/admin"
}

// Canonicalize collapses a placeholder spelling to its canonical identity:
// delimiters stripped by the caller, camelCase split, lower-cased, spaces,
// underscores and dots folded to dashes, then mapped through the alias
// table.
func Canonicalize(name string) string {
	s := camelRe.ReplaceAllString(strings.TrimSpace(name), "$1-$2")
	s = strings.ToLower(s)
	s = sepRe.ReplaceAllString(s, "-")
	s = dashesRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-+")
	if canonical, ok := aliases[s]; ok {
		return canonical
	}
	return s
}
