// Package importer implements the import graph resolution pass (C3): it
// walks `import` statements depth-first from a root .rqc file and
// produces a single merged raw AST, inlining each import's top-level
// items at the point of the `import` statement (or as children of the
// enclosing category, when the import appears inside one).
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/moonrailgun/reqcraft/pkg/ast"
	"github.com/moonrailgun/reqcraft/pkg/openapi"
	"github.com/moonrailgun/reqcraft/pkg/parser"
)

const (
	fetchTimeout = 30 * time.Second
	maxRedirects = 5
)

// Importer resolves an import graph rooted at a single .rqc file.
type Importer struct {
	client *http.Client

	mu         sync.Mutex
	localFiles []string
}

// Option configures an Importer.
type Option func(*Importer)

// WithHTTPClient overrides the client used for http(s):// imports,
// primarily for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(im *Importer) { im.client = c }
}

// New builds an Importer with the spec's default fetch policy: a
// 30-second timeout and a 5-redirect cap.
func New(opts ...Option) *Importer {
	im := &Importer{client: defaultClient()}
	for _, o := range opts {
		o(im)
	}
	return im
}

func defaultClient() *http.Client {
	return &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// loadState is threaded through the whole recursive walk: visited
// records every normalized location whose items have already been
// inlined somewhere in the tree, so a diamond-shaped import graph
// processes each file exactly once.
type loadState struct {
	visited map[string]bool
}

// Load resolves rootPath's import graph into a single merged
// ast.SourceFile. The returned parser diagnostics are accumulated from
// every .rqc file in the graph (not fatal); a non-nil error means the
// graph itself could not be resolved (missing file, fetch failure, or an
// import cycle).
func (im *Importer) Load(ctx context.Context, rootPath string) (*ast.SourceFile, []*parser.Error, error) {
	loc, err := normalizeLocal(rootPath, ".")
	if err != nil {
		return nil, nil, err
	}
	st := &loadState{visited: map[string]bool{loc: true}}
	sf, errs, err := im.loadLocation(ctx, loc, []string{loc}, st)

	var local []string
	for l := range st.visited {
		if !isURL(l) {
			local = append(local, l)
		}
	}
	sort.Strings(local)
	im.mu.Lock()
	im.localFiles = local
	im.mu.Unlock()

	return sf, errs, err
}

// LocalFiles returns the normalized paths of every local file touched by
// the most recent Load call, in sorted order. Remote (http/https) imports
// are excluded — pkg/watcher never watches those, per the spec's C8
// rule that only local sources are tracked for reload.
func (im *Importer) LocalFiles() []string {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.localFiles
}

// loadLocation fetches and parses the file/document at loc, then
// resolves its own imports relative to its directory.
func (im *Importer) loadLocation(ctx context.Context, loc string, chain []string, st *loadState) (*ast.SourceFile, []*parser.Error, error) {
	data, err := im.fetch(ctx, loc)
	if err != nil {
		return nil, nil, err
	}

	kind := dispatchKind(loc, data)

	var items []ast.Item
	var errs []*parser.Error

	switch kind {
	case kindRqc:
		sf, perrs := parser.Parse(loc, data)
		errs = perrs
		if sf != nil {
			items = sf.Items
		}
	case kindOpenAPI:
		cat, err := openapi.Translate(loc, data)
		if err != nil {
			return nil, nil, fmt.Errorf("translating OpenAPI document %q: %w", loc, err)
		}
		items = []ast.Item{{Span: cat.Span, Category: cat}}
	default:
		return nil, nil, fmt.Errorf("%s: unrecognized import content (not .rqc or OpenAPI JSON/YAML)", loc)
	}

	baseDir := filepath.Dir(loc)
	if isURL(loc) {
		baseDir = loc // URL-relative imports resolve against the document URL itself
	}

	merged, childErrs, err := im.resolveItems(ctx, items, baseDir, chain, st)
	if err != nil {
		return nil, nil, err
	}
	errs = append(errs, childErrs...)

	return &ast.SourceFile{Path: loc, Items: merged}, errs, nil
}

// resolveItems walks items, recursing into category children and
// inlining `import` items in place.
func (im *Importer) resolveItems(ctx context.Context, items []ast.Item, baseDir string, chain []string, st *loadState) ([]ast.Item, []*parser.Error, error) {
	var out []ast.Item
	var errs []*parser.Error

	for _, item := range items {
		switch {
		case item.Category != nil:
			children, childErrs, err := im.resolveItems(ctx, item.Category.Children, baseDir, chain, st)
			if err != nil {
				return nil, nil, err
			}
			errs = append(errs, childErrs...)
			cat := *item.Category
			cat.Children = children
			out = append(out, ast.Item{Span: item.Span, Category: &cat})

		case item.Import != nil:
			importingFile := chain[len(chain)-1]

			loc, err := resolveLocation(item.Import.Path, baseDir)
			if err != nil {
				return nil, nil, &LoadError{ImportingFile: importingFile, Target: item.Import.Path, Err: err}
			}
			if contains(chain, loc) {
				return nil, nil, &CycleError{Chain: append(append([]string{}, chain...), loc)}
			}
			if st.visited[loc] {
				continue // already inlined elsewhere in the graph; no-op
			}
			st.visited[loc] = true

			childSF, childErrs, err := im.loadLocation(ctx, loc, append(chain, loc), st)
			if err != nil {
				return nil, nil, &LoadError{ImportingFile: importingFile, Target: item.Import.Path, Err: err}
			}
			errs = append(errs, childErrs...)
			out = append(out, childSF.Items...)

		default:
			out = append(out, item)
		}
	}

	return out, errs, nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

type contentKind int

const (
	kindUnknown contentKind = iota
	kindRqc
	kindOpenAPI
)

func dispatchKind(loc string, data []byte) contentKind {
	p := loc
	if isURL(loc) {
		if u, err := url.Parse(loc); err == nil {
			p = u.Path
		}
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".rqc":
		return kindRqc
	case ".json", ".yaml", ".yml":
		return kindOpenAPI
	}
	// No recognized suffix (typically a remote document served without
	// a path extension): sniff the body per spec §4.3.
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return kindOpenAPI // JSON
	}
	if len(trimmed) > 0 {
		return kindOpenAPI // YAML fallback
	}
	return kindUnknown
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// resolveLocation turns an import's literal path/URL into a normalized
// location string. A relative target is resolved against baseDir: a local
// directory, or the importing document's URL when that document is remote.
func resolveLocation(target, baseDir string) (string, error) {
	if isURL(target) {
		return normalizeURL(target)
	}
	if isURL(baseDir) {
		base, err := url.Parse(baseDir)
		if err != nil {
			return "", fmt.Errorf("invalid URL %q: %w", baseDir, err)
		}
		return normalizeURL(base.ResolveReference(&url.URL{Path: target}).String())
	}
	return normalizeLocal(target, baseDir)
}

func normalizeLocal(target, baseDir string) (string, error) {
	p := target
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

func normalizeURL(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", target, err)
	}
	u.Fragment = ""
	return u.String(), nil
}

func (im *Importer) fetch(ctx context.Context, loc string) ([]byte, error) {
	if isURL(loc) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
		if err != nil {
			return nil, err
		}
		resp, err := im.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching %s: unexpected status %s", loc, resp.Status)
		}
		return io.ReadAll(resp.Body)
	}

	data, err := os.ReadFile(loc)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: no such file", loc)
		}
		return nil, err
	}
	return data, nil
}
