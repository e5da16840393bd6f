package serve

import (
	"strings"

	"github.com/moonrailgun/reqcraft/pkg/model"
)

// matchResult is the outcome of scoring one candidate endpoint against a
// request path.
type matchResult struct {
	endpoint *model.Endpoint
	score    int
}

// selectMockEndpoint finds the best Http endpoint matching method and
// path among m's endpoints, allowing trailing segments to bind to
// `{name}` placeholders. Mirrors the teacher's score-then-sort idiom:
// every candidate is scored, the highest score wins, literal segments
// outscore placeholder segments so a more specific route is preferred.
func selectMockEndpoint(m *model.ApiModel, method, path string) *model.Endpoint {
	var best *matchResult

	for i := range m.Endpoints {
		ep := &m.Endpoints[i]
		if ep.Kind != model.KindHTTP || string(ep.Method) != method {
			continue
		}
		score, ok := scorePath(ep.Path, path)
		if !ok {
			continue
		}
		if best == nil || score > best.score {
			best = &matchResult{endpoint: ep, score: score}
		}
	}

	if best == nil {
		return nil
	}
	return best.endpoint
}

// scorePath reports whether pattern matches path segment-by-segment
// (placeholders bind to exactly one segment) and, if so, a score that
// rewards literal segment matches over placeholder binds.
func scorePath(pattern, path string) (int, bool) {
	pSegs := splitPath(pattern)
	rSegs := splitPath(path)
	if len(pSegs) != len(rSegs) {
		return 0, false
	}

	score := 0
	for i, seg := range pSegs {
		if isPlaceholder(seg) {
			score++ // placeholder bind: cheapest possible match
			continue
		}
		if seg != rSegs[i] {
			return 0, false
		}
		score += 10 // literal match: strongly preferred over a placeholder
	}
	return score, true
}

func isPlaceholder(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
