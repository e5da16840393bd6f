package parser

import (
	"strings"

	"github.com/moonrailgun/reqcraft/pkg/token"
)

// docMap associates the byte offset of a significant token with the doc
// comment text that immediately precedes it (no blank line in between).
type docMap map[int]string

func buildDocs(raw []token.Token) docMap {
	docs := docMap{}
	var pending []string
	newlineRun := 0

	flushNoAttach := func() {
		pending = nil
	}

	for _, t := range raw {
		switch t.Kind {
		case token.Newline:
			newlineRun++
			if newlineRun >= 2 {
				flushNoAttach()
			}
		case token.LineComment:
			pending = append(pending, stripLineComment(t.Text))
			newlineRun = 0
		case token.BlockComment:
			pending = append(pending, stripBlockComment(t.Text)...)
			newlineRun = 0
		default:
			if len(pending) > 0 {
				docs[t.Span.ByteStart] = strings.TrimSpace(strings.Join(pending, "\n"))
			}
			pending = nil
			newlineRun = 0
		}
	}
	return docs
}

func stripLineComment(text string) string {
	s := strings.TrimPrefix(text, "//")
	return strings.TrimSpace(s)
}

// stripBlockComment strips the /* */ delimiters and, per line, a leading
// '*' (and the whitespace around it) — the conventional "leading * strip"
// doc-comment style.
func stripBlockComment(text string) []string {
	s := strings.TrimPrefix(text, "/*")
	s = strings.TrimSuffix(s, "*/")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "*")
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
