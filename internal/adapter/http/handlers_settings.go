package adapthttp

import (
	"net/http"

	"cura/internal/domain"
)

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	var body struct {
		Theme domain.Theme `json:"theme"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := s.app.SetTheme(r.Context(), body.Theme)
	writeResult(w, v, err)
}

func (s *Server) handleShowArchived(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	var body struct {
		Show bool `json:"show"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.ShowArchived(r.Context(), body.Show))
}
