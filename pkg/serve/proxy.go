package serve

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/moonrailgun/reqcraft/pkg/httputil"
	"github.com/moonrailgun/reqcraft/pkg/util"
)

// maxProxyBodyBytes caps the size of a request or response body the proxy
// plane will buffer in either direction.
const maxProxyBodyBytes = 25 * 1024 * 1024

// hopByHopHeaders must not be forwarded across the proxy boundary in
// either direction; grounded verbatim on the teacher's
// removeHopByHopHeaders list.
var hopByHopHeaders = []string{
	"Host",
	"Connection",
	"Content-Length",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// newProxyClient builds the upstream HTTP client used by the proxy plane.
// Connect and total timeouts are split the way net/http exposes them:
// the Dialer's Timeout bounds the connect, Transport.ResponseHeaderTimeout
// bounds the wait for response headers once the request is written, and
// Client.Timeout bounds the whole round trip.
func newProxyClient() *http.Client {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// handleProxy forwards a request to the absolute URL encoded in the
// request path's tail (/proxy/<url-encoded-absolute-url>), stripping
// hop-by-hop headers and injecting X-Forwarded-* the way the teacher's
// pkg/proxy/handler.go does for its MITM plane.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/proxy/")
	target, err := url.PathUnescape(tail)
	if err != nil || target == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid proxy target"})
		return
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	targetURL, err := url.Parse(target)
	if err != nil || !targetURL.IsAbs() {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "proxy target must be an absolute URL"})
		return
	}

	var body io.Reader
	if r.Body != nil {
		limited, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBodyBytes+1))
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "error reading request body"})
			return
		}
		if len(limited) > maxProxyBodyBytes {
			httputil.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "body too large"})
			return
		}
		body = strings.NewReader(string(limited))
	}

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL.String(), body)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	copyHeaders(outReq.Header, r.Header)
	stripHopByHop(outReq.Header)
	outReq.Header.Set("X-Forwarded-For", r.RemoteAddr)
	outReq.Header.Set("X-Forwarded-Host", r.Host)

	resp, err := s.proxyClient.Do(outReq)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBodyBytes+1))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "error reading response body"})
		return
	}
	if len(respBody) > maxProxyBodyBytes {
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "body too large"})
		return
	}

	copyHeaders(w.Header(), resp.Header)
	stripHopByHop(w.Header())
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)

	s.log.Debug("proxied request",
		"method", r.Method,
		"target", targetURL.String(),
		"status", resp.StatusCode,
		"body", util.TruncateBody(string(respBody), 0),
	)
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

func stripHopByHop(h http.Header) {
	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}
