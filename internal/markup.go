package internal

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	// block-level tags that end a line in the rendered text
	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|pre|h[1-6]|tr|blockquote)>`)
	listItemTags  = regexp.MustCompile(`(?i)<li(\s[^>]*)?>`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// MarkupToText converts pre-rendered HTML into plain terminal text
func MarkupToText(markup string) string {
	text := lineBreakTags.ReplaceAllString(markup, "\n")
	text = listItemTags.ReplaceAllString(text, "• ")
	text = stripPolicy.Sanitize(text)
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// RenderContent returns the terminal text of a message
func RenderContent(msg Message) string {
	if msg.IsMarkup {
		return MarkupToText(msg.Content)
	}
	return msg.Content
}
