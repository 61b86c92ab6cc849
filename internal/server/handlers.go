package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rybkr/gitlane/internal/layout"
	"github.com/rybkr/gitlane/internal/render"
)

// handleRepository serves repository metadata via REST API.
func (s *Server) handleRepository(w http.ResponseWriter, r *http.Request) {
	info := s.cachedInfo()
	if info == nil {
		info = s.repositoryInfo()
	}
	writeJSON(w, info)
}

// handleGraph serves the current layout. ?refresh=true re-reads history,
// bypassing the commit cache.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	res, err := s.graphForRequest(r)
	if err != nil {
		s.logger.Error("building graph failed", "err", err)
		http.Error(w, "failed to build graph", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	res, err := s.graphForRequest(r)
	if err != nil {
		s.logger.Error("building graph failed", "err", err)
		http.Error(w, "failed to build graph", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := render.SVG(&buf, *res, render.SVGOptions{}); err != nil {
		http.Error(w, "failed to render graph", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) graphForRequest(r *http.Request) (*layout.Result, error) {
	force := wantsRefresh(r)
	if !force {
		if res := s.cachedGraph(); res != nil {
			return res, nil
		}
	}
	res, _, err := s.refresh(r.Context(), force)
	return res, err
}

func wantsRefresh(r *http.Request) bool {
	raw := r.URL.Query().Get("refresh")
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
