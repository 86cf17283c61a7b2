package retrieval

import (
	"strings"
	"unicode"
)

// FormatForPrompt renders a scored-memory list as Markdown for prompt
// injection: empty string if the list is empty, otherwise a heading
// followed by a bullet list of "[TypeCapitalized] <summary or content>"
// (spec §4.5).
func FormatForPrompt(memories []ScoredMemory) string {
	if len(memories) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Relevant Memories\n\n")
	for _, sm := range memories {
		text := sm.Memory.Summary
		if text == "" {
			text = sm.Memory.Content
		}
		b.WriteString("- [")
		b.WriteString(capitalize(string(sm.Memory.Type)))
		b.WriteString("] ")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
