// Package classify decides whether a leaf code/shell/URL block is a testable
// action and of which kind. Classification is a pure function over the
// declared language label, the block content and the referenced file
// extension; the alias, extension and sniffing tables are data-driven so
// they can be tested independently of execution.
//
// The heuristics deliberately err toward skipping: a false negative leaves
// an action reported as skipped-not-executable, a false positive would run
// something that was never meant to run.
package classify

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dverity/docdrill/pkg/domain"
)

// Result is the classifier's verdict for one block.
type Result struct {
	Kind       string
	Language   string
	Executable bool

	// Body is the canonical executable body: shell prompts stripped, output
	// lines of console transcripts dropped.
	Body string
}

// languageAliases normalizes declared spellings to canonical languages.
var languageAliases = map[string]string{
	"sh":         "shell",
	"bash":       "shell",
	"shell":      "shell",
	"zsh":        "shell",
	"console":    "shell",
	"terminal":   "shell",
	"js":         "javascript",
	"javascript": "javascript",
	"node":       "javascript",
	"nodejs":     "javascript",
	"py":         "python",
	"python":     "python",
	"python3":    "python",
	"go":         "go",
	"golang":     "go",
	"mongosh":    "mongosh",
	"json":       "json",
	"yaml":       "yaml",
	"xml":        "xml",
	"text":       "text",
	"none":       "text",
	"":           "text",
	"ui":         "ui",
}

// extLanguages derives a language when no label is declared and the block
// references a file.
var extLanguages = map[string]string{
	".sh":   "shell",
	".bash": "shell",
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".py":   "python",
	".go":   "go",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".txt":  "text",
}

// executableLanguages are the languages the orchestrator knows how to hand
// to an executor.
var executableLanguages = map[string]bool{
	"shell":      true,
	"javascript": true,
	"python":     true,
	"go":         true,
	"mongosh":    true,
}

// shellCommands are first tokens that identify a shell invocation inside a
// block labeled text/none.
var shellCommands = map[string]bool{
	"npm": true, "npx": true, "node": true, "python": true, "python3": true,
	"pip": true, "pip3": true, "brew": true, "apt": true, "apt-get": true,
	"curl": true, "wget": true, "git": true, "docker": true, "make": true,
	"cd": true, "mkdir": true, "export": true, "echo": true, "cat": true,
	"go": true, "mongosh": true, "mongoimport": true, "mongorestore": true,
	"atlas": true, "aws": true, "gcloud": true, "kubectl": true,
}

// cliTools mark shell invocations that are driven through a product CLI
// rather than a general-purpose shell.
var cliTools = map[string]bool{
	"atlas": true, "aws": true, "gcloud": true, "kubectl": true,
}

var (
	urlLineRe   = regexp.MustCompile(`^https?://\S+$`)
	apiLineRe   = regexp.MustCompile(`^(GET|POST|PUT|PATCH|DELETE|HEAD) +https?://\S+`)
	objectIDRe  = regexp.MustCompile(`ObjectId\(`)
	statementRe = regexp.MustCompile(`(=|;|\b(const|let|var|function|def|return|import|require|print|console)\b)`)
)

// Canonical returns the canonical language for a declared label, falling
// back to the referenced file's extension. Unrecognized spellings are "text".
func Canonical(declared, ext string) string {
	label := strings.ToLower(strings.TrimSpace(declared))
	if lang, ok := languageAliases[label]; ok && lang != "text" {
		return lang
	}
	if label == "" || label == "text" || label == "none" {
		if lang, ok := extLanguages[strings.ToLower(ext)]; ok {
			return lang
		}
	}
	if _, ok := languageAliases[label]; ok {
		return languageAliases[label]
	}
	return "text"
}

// Classify decides kind, canonical language and executability for one block.
func Classify(declared, content, ext string) Result {
	lang := Canonical(declared, ext)
	body := strings.TrimRight(content, "\n")
	trimmed := strings.TrimSpace(body)

	// Single-line URL and API-request blocks are probed, not interpreted.
	if urlLineRe.MatchString(trimmed) {
		return Result{Kind: domain.ActionURL, Language: "text", Executable: true, Body: trimmed}
	}
	if apiLineRe.MatchString(trimmed) && !strings.Contains(trimmed, "\n") {
		return Result{Kind: domain.ActionAPI, Language: "text", Executable: true, Body: trimmed}
	}

	if lang == "ui" {
		return Result{Kind: domain.ActionUI, Language: "ui", Executable: false, Body: body}
	}

	// Recover shell blocks mislabeled as text/none.
	if lang == "text" && looksLikeShell(trimmed) {
		lang = "shell"
	}

	// Suppress code-labeled blocks that are structurally output dumps.
	if executableLanguages[lang] && lang != "shell" && looksLikeDataDump(trimmed) {
		return Result{Kind: domain.ActionCode, Language: lang, Executable: false, Body: body}
	}

	if lang == "shell" {
		cleaned := stripPrompts(body)
		kind := domain.ActionShell
		if first := firstToken(cleaned); cliTools[first] {
			kind = domain.ActionCLI
		}
		return Result{Kind: kind, Language: "shell", Executable: true, Body: cleaned}
	}

	if executableLanguages[lang] {
		return Result{Kind: domain.ActionCode, Language: lang, Executable: true, Body: body}
	}
	return Result{Kind: domain.ActionCode, Language: lang, Executable: false, Body: body}
}

// looksLikeShell sniffs shell-prompt patterns and recognizable commands in
// an unlabeled block.
func looksLikeShell(content string) bool {
	if content == "" {
		return false
	}
	if strings.HasPrefix(content, "#!") {
		return true
	}
	lines := nonBlankLines(content)
	prompted := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "$ ") {
			prompted++
		}
	}
	if prompted > 0 {
		return true
	}
	return shellCommands[firstToken(content)]
}

// looksLikeDataDump reports blocks that are structurally output: JSON/BSON
// literal dumps with no statements.
func looksLikeDataDump(content string) bool {
	if content == "" {
		return true
	}
	if !strings.HasPrefix(content, "{") && !strings.HasPrefix(content, "[") {
		return false
	}
	if json.Valid([]byte(content)) {
		return true
	}
	// BSON-ish shell output: document literals with ObjectId() and no
	// assignments or calls that would make it a program.
	if objectIDRe.MatchString(content) && !statementRe.MatchString(content) {
		return true
	}
	return false
}

// stripPrompts removes "$ " prompts and drops interleaved output lines of a
// console transcript. A block without prompts is returned unchanged.
func stripPrompts(content string) string {
	lines := strings.Split(content, "\n")
	prompted := false
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "$ ") {
			prompted = true
			break
		}
	}
	if !prompted {
		return content
	}
	var out []string
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "$ ") {
			out = append(out, strings.TrimPrefix(t, "$ "))
		}
	}
	return strings.Join(out, "\n")
}

func firstToken(content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func nonBlankLines(content string) []string {
	var out []string
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
