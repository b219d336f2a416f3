// Package content turns stored entry bodies into HTML for display. Older
// entries were saved as plain text with newlines; newer ones hold the
// rich-text editor's HTML. The two are told apart heuristically.
package content

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"quiettime/models"
)

var tagPattern = regexp.MustCompile(`(?i)</?[a-z][\s\S]*>`)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// Empty documents the editor produces when the author typed nothing.
var emptyEditorDocs = map[string]bool{
	"":              true,
	"<p><br></p>":   true,
	"<p><br></p>\n": true,
	"<p></p>":       true,
}

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

// PlainToHTML escapes &, < and > and turns each newline into <br/>.
func PlainToHTML(text string) string {
	return strings.ReplaceAll(htmlEscaper.Replace(text), "\n", "<br/>")
}

// LooksLikeHTML reports whether text contains something shaped like an
// open or close tag. Plain text with a literal "<a ... >" is misread as
// HTML; malformed markup with no such shape is misread as plain text.
func LooksLikeHTML(text string) bool {
	if text == "" {
		return false
	}
	return tagPattern.MatchString(text)
}

// RenderableHTML returns raw unchanged when it already looks like HTML,
// otherwise its escaped plain-text rendering.
func RenderableHTML(raw string) string {
	if LooksLikeHTML(raw) {
		return raw
	}
	return PlainToHTML(raw)
}

func RenderableContent(e *models.Entry) string {
	if e == nil {
		return ""
	}
	return RenderableHTML(e.Content)
}

// IsEditorEmpty reports whether submitted editor HTML carries no text.
func IsEditorEmpty(html string) bool {
	return emptyEditorDocs[strings.TrimSpace(html)]
}

// RenderMarkdown renders site copy written in markdown. On failure the
// input is returned as is so the page still renders.
func RenderMarkdown(source string) string {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return source
	}
	return buf.String()
}
