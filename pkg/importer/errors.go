package importer

import (
	"fmt"
	"strings"
)

// CycleError reports an import cycle detected while walking an `import`
// chain. Chain lists the normalized locations from the root file down to
// the location that closed the cycle.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle detected: %s", strings.Join(e.Chain, " -> "))
}

// LoadError wraps a failure resolving or parsing one import entry,
// naming the importing file and the unresolved path/URL so a build
// failure points at the exact declaration that caused it.
type LoadError struct {
	ImportingFile string
	Target        string
	Err           error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: import %q: %v", e.ImportingFile, e.Target, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
