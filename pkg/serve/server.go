// Package serve implements the serving engine (C7): a single process-wide
// HTTP server exposing a JSON control plane, a mock plane, an HTTP proxy
// plane, a Socket.IO relay, and a reload notification channel, all reading
// a single atomically-swapped API Model.
package serve

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/moonrailgun/reqcraft/pkg/logging"
	"github.com/moonrailgun/reqcraft/pkg/model"
)

// Server is the serving engine. It holds the current ApiModel behind a
// sync.RWMutex (which is not reader-preferring: a waiting writer blocks
// new readers): request handlers take RLock, and a reload
// takes the write lock only to swap the pointer, never to mutate the
// model in place — in-flight requests always see a consistent snapshot.
type Server struct {
	log *slog.Logger

	mu    sync.RWMutex
	model *model.ApiModel

	notify *notifier

	proxyClient *http.Client

	version string
}

// ServerOption is a functional option for configuring a Server, matching
// the teacher engine's ServerOption idiom.
type ServerOption func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithVersion sets the version string reported by GET /api/info.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// NewServer creates a Server with an empty initial model; call Swap once
// the first build completes.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		log:         logging.Nop(),
		model:       &model.ApiModel{},
		notify:      newNotifier(),
		proxyClient: newProxyClient(),
		version:     "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the currently published model.
func (s *Server) Model() *model.ApiModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Swap atomically publishes a newly built model and broadcasts a reload
// notification to every connected /ws client.
func (s *Server) Swap(m *model.ApiModel) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
	s.log.Info("model reloaded", "endpoints", len(m.Endpoints))
	s.notify.broadcastReload()
}

// ReportBuildError keeps serving the previous model and broadcasts a
// build error to every connected /ws client, per the spec's "failed
// rebuilds do not emit reload" rule.
func (s *Server) ReportBuildError(err error) {
	s.log.Warn("model rebuild failed", "error", err)
	s.notify.broadcastError(err.Error())
}

// Handler builds the full routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/endpoints", s.handleEndpoints)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/variables", s.handleVariables)
	mux.HandleFunc("GET /api/headers", s.handleHeaders)

	mux.HandleFunc("/mock/", s.handleMock)
	mux.HandleFunc("/proxy/", s.handleProxy)
	mux.HandleFunc("/sio-relay", s.handleSocketioRelay)
	mux.HandleFunc("/ws", s.handleNotifyWs)

	return mux
}
