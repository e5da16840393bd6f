package serve

import (
	"net/http"
	"strings"

	"github.com/moonrailgun/reqcraft/pkg/httputil"
	"github.com/moonrailgun/reqcraft/pkg/mockgen"
)

// handleMock serves a synthesized response body for the Http endpoint
// whose method and path match the request, binding `{name}` path
// placeholders positionally. No response schema (or no matching
// endpoint) yields a 404 with a structured error body.
func (s *Server) handleMock(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/mock")
	if path == "" {
		path = "/"
	}

	m := s.Model()
	ep := selectMockEndpoint(m, r.Method, path)
	if ep == nil || ep.Response == nil {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error": "no matching mock endpoint",
			"path":  path,
		})
		return
	}

	body := mockgen.Synthesize(ep.Response, mockgen.ModeResponse)
	httputil.WriteJSON(w, http.StatusOK, body)
}
