package agent

import (
	"regexp"
	"strings"
)

var codeBlockPattern = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_+-]*)\n(.*?)```")

// ExtractCodeBlock returns the contents of the last fenced code block in
// text. Models emit scratch blocks before the final answer, so the last
// block wins. Returns an empty string when no block is present.
func ExtractCodeBlock(text string) string {
	matches := codeBlockPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimRight(matches[len(matches)-1][1], "\n")
}

// ExtractTag returns the contents of the last <tag>...</tag> pair in text,
// trimmed of surrounding whitespace. Returns an empty string when the tag
// is absent or unclosed.
func ExtractTag(text, tag string) string {
	opening := "<" + tag + ">"
	closing := "</" + tag + ">"

	start := strings.LastIndex(text, opening)
	if start < 0 {
		return ""
	}
	rest := text[start+len(opening):]
	end := strings.Index(rest, closing)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
