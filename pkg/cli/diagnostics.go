package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moonrailgun/reqcraft/pkg/importer"
	"github.com/moonrailgun/reqcraft/pkg/parser"
	"github.com/moonrailgun/reqcraft/pkg/resolver"
	"github.com/moonrailgun/reqcraft/pkg/token"
)

// spanOf extracts the source span from any of the three build-time
// diagnostic kinds the CLI can receive, or ok=false when err carries no
// span (import I/O failures, cycles — those render as a plain message).
func spanOf(err error) (token.Span, bool) {
	switch e := err.(type) {
	case *parser.Error:
		return e.Span, true
	case *resolver.Error:
		return e.Span, true
	case *importer.LoadError:
		return spanOf(e.Err)
	}
	return token.Span{}, false
}

// renderDiagnostic formats err the way §7 asks: file, line, column, and
// a two-line snippet with a caret under the offending token when a span
// is available; otherwise just the rendered error.
func renderDiagnostic(err error) string {
	span, ok := spanOf(err)
	if !ok || span.File == "" {
		return err.Error()
	}

	rel := span.File
	if wd, wderr := os.Getwd(); wderr == nil {
		if r, rerr := filepath.Rel(wd, span.File); rerr == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}

	line, ok := readLine(span.File, span.Line)
	if !ok {
		return err.Error()
	}

	col := span.Column
	if col < 1 {
		col = 1
	}
	caret := strings.Repeat(" ", col-1) + "^"

	return fmt.Sprintf("%s:%d:%d: %s\n%s\n%s", rel, span.Line, span.Column, diagnosticMessage(err), line, caret)
}

// diagnosticMessage strips the "file:line:col: " prefix each diagnostic
// type's own Error() already renders, since renderDiagnostic rebuilds
// that prefix using the working-directory-relative path.
func diagnosticMessage(err error) string {
	full := err.Error()
	if idx := strings.Index(full, ": "); idx != -1 {
		prefix := full[:idx]
		if strings.Count(prefix, ":") >= 2 {
			return full[idx+2:]
		}
	}
	return full
}

func readLine(path string, n int) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	i := 0
	for scanner.Scan() {
		i++
		if i == n {
			return scanner.Text(), true
		}
	}
	return "", false
}
