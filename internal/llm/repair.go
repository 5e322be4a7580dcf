package llm

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// trailingCommaRe matches a comma followed by optional whitespace and a
// closing brace/bracket — the most common LLM JSON mistake.
var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// lineCommentRe strips a "// ..." line comment, which LLMs occasionally
// emit inside otherwise-valid JSON despite being asked not to.
var lineCommentRe = regexp.MustCompile(`//[^\n]*`)

// Repair runs the deterministic repair pass the design notes require
// before any LLM output is unmarshaled: strip code fences, extract the
// outermost JSON value, drop trailing commas and line comments. It is
// deterministic and never calls the model again — malformed input after
// repair is the caller's signal to fall back to stage-specific defaults.
func Repair(s string) string {
	extracted := extractJSON(s)
	stripped := lineCommentRe.ReplaceAllString(extracted, "")
	stripped = trailingCommaRe.ReplaceAllString(stripped, "$1")
	return strings.TrimSpace(stripped)
}

// extractJSON pulls the outermost JSON object/array out of LLM prose:
// a ```json fenced block, a plain ``` fenced block, or the first
// brace-matched {...}/[...] span found in the raw text.
func extractJSON(s string) string {
	if idx := strings.Index(s, "```json"); idx != -1 {
		rest := s[idx+len("```json"):]
		rest = strings.TrimLeft(rest, "\r\n")
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimRight(rest[:end], "\r\n")
		}
	}

	if idx := strings.Index(s, "```"); idx != -1 {
		rest := s[idx+len("```"):]
		rest = strings.TrimLeft(rest, "\r\n")
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimRight(rest[:end], "\r\n")
		}
	}

	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		depth := 0
		for j := i; j < len(s); j++ {
			switch s[j] {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 0 {
					return s[i : j+1]
				}
			}
		}
	}

	return s
}

// Valid reports whether s parses as well-formed JSON after repair.
func Valid(s string) bool {
	return gjson.Valid(Repair(s))
}
