package transclude

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/dverity/docdrill/pkg/domain"
)

// Entry is one template of an extract family file.
type Entry struct {
	Ref     string `mapstructure:"ref"`
	Inherit *struct {
		Ref  string `mapstructure:"ref"`
		File string `mapstructure:"file"`
	} `mapstructure:"inherit"`
	Content     string            `mapstructure:"content"`
	Replacement map[string]string `mapstructure:"replacement"`
}

var tokenRe = regexp.MustCompile(`\{\{([\w.-]+)\}\}`)

// extractCache memoizes parsed family files and fully resolved entries, so a
// ref shared by many documents is resolved once per run.
type extractCache struct {
	files    map[string][]Entry
	resolved map[string]string
}

func newExtractCache() *extractCache {
	return &extractCache{
		files:    make(map[string][]Entry),
		resolved: make(map[string]string),
	}
}

// resolveExtract renders the extract entry identified by the reference path:
// the entry whose ref matches the path's final segment, inside the family
// file aggregating the extracts directory named in the path.
func (r *Resolver) resolveExtract(fromFile, ref string) (string, error) {
	refName := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
	dir := r.refPath(fromFile, filepath.Dir(ref))

	family, err := r.familyFile(dir, refName)
	if err != nil {
		return "", err
	}

	key := family + "#" + refName
	if text, ok := r.extracts.resolved[key]; ok {
		return text, nil
	}

	template, repl, err := r.resolveEntry(family, refName, map[string]bool{})
	if err != nil {
		return "", err
	}
	text := substituteTokens(template, repl)
	r.extracts.resolved[key] = text
	return text, nil
}

// familyFile locates the YAML file aggregating the extracts of a directory:
// "<dir>.yaml" next to the directory, falling back to scanning sibling
// "extracts*" YAML files for the ref.
func (r *Resolver) familyFile(dir, refName string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		candidate := dir + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	parent := filepath.Dir(dir)
	matches, _ := filepath.Glob(filepath.Join(parent, "extracts*.yaml"))
	more, _ := filepath.Glob(filepath.Join(parent, "extracts*.yml"))
	matches = append(matches, more...)
	for _, candidate := range matches {
		entries, err := r.loadFamily(candidate)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.Ref == refName {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("no extract family file for %q under %s", refName, parent)
}

func (r *Resolver) loadFamily(path string) ([]Entry, error) {
	if entries, ok := r.extracts.files[path]; ok {
		return entries, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, m := range raw {
		var e Entry
		if err := mapstructure.Decode(m, &e); err != nil {
			return nil, fmt.Errorf("decoding entry in %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	r.extracts.files[path] = entries
	return entries, nil
}

// resolveEntry walks the inherit chain and returns the content template
// together with the merged replacement map. Keys of closer (less inherited)
// entries win over inherited defaults; inherited keys absent from the closer
// entry pass through unchanged. The visited set bounds the recursion: a
// cycle is a fatal resolution error, never an infinite loop.
func (r *Resolver) resolveEntry(family, ref string, visited map[string]bool) (string, map[string]string, error) {
	key := family + "#" + ref
	if visited[key] {
		return "", nil, fmt.Errorf("%w at %s", domain.ErrInheritCycle, key)
	}
	visited[key] = true

	entries, err := r.loadFamily(family)
	if err != nil {
		return "", nil, err
	}
	var entry *Entry
	for i := range entries {
		if entries[i].Ref == ref {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return "", nil, fmt.Errorf("%w: %q in %s", domain.ErrRefNotFound, ref, family)
	}

	template := entry.Content
	merged := map[string]string{}

	if entry.Inherit != nil {
		parentFamily := r.inheritPath(family, entry.Inherit.File)
		parentTemplate, parentRepl, err := r.resolveEntry(parentFamily, entry.Inherit.Ref, visited)
		if err != nil {
			return "", nil, err
		}
		if template == "" {
			template = parentTemplate
		}
		for k, v := range parentRepl {
			merged[k] = v
		}
	}
	for k, v := range entry.Replacement {
		merged[k] = v
	}
	return template, merged, nil
}

// inheritPath resolves the family file named by an inherit reference. The
// file may be spelled as a YAML path or as the virtual extracts directory.
func (r *Resolver) inheritPath(currentFamily, file string) string {
	if file == "" {
		return currentFamily
	}
	var path string
	if strings.HasPrefix(file, "/") {
		path = filepath.Join(r.sourceRoot, file)
	} else {
		path = filepath.Join(filepath.Dir(currentFamily), file)
	}
	if filepath.Ext(path) == "" {
		path += ".yaml"
	}
	return path
}

func substituteTokens(template string, repl map[string]string) string {
	return tokenRe.ReplaceAllStringFunc(template, func(tok string) string {
		name := tokenRe.FindStringSubmatch(tok)[1]
		if v, ok := repl[name]; ok {
			return v
		}
		return tok
	})
}
