package serve

import (
	"net/http"

	"github.com/moonrailgun/reqcraft/pkg/httputil"
)

type infoResponse struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ReqcraftVersion string   `json:"reqcraftVersion"`
	BaseUrls        []string `json:"baseUrls"`
	EndpointCount   int      `json:"endpointCount"`
	MockMode        bool     `json:"mockMode"`
	CorsMode        bool     `json:"corsMode"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	m := s.Model()
	httputil.WriteJSON(w, http.StatusOK, infoResponse{
		Name:            "reqcraft",
		Version:         s.version,
		ReqcraftVersion: s.version,
		BaseUrls:        m.BaseUrls,
		EndpointCount:   len(m.Endpoints),
		MockMode:        m.Mock,
		CorsMode:        m.Cors,
	})
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.Model().Endpoints)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.Model().Categories)
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.Model().Variables)
}

func (s *Server) handleHeaders(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.Model().Headers)
}
