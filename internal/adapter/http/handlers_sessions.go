package adapthttp

import (
	"net/http"
)

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	v, err := s.app.NewSession(r.Context())
	writeResult(w, v, err)
}

func (s *Server) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := s.app.SelectSession(r.Context(), body.ID)
	writeResult(w, v, err)
}

func (s *Server) handleDeleteSessions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := s.app.DeleteSessions(r.Context(), body.IDs)
	writeResult(w, v, err)
}

func (s *Server) handleDeleteAllChats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	v, err := s.app.DeleteAllChats(r.Context())
	writeResult(w, v, err)
}

func (s *Server) handleArchiveSessions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		IDs      []string `json:"ids"`
		Archived bool     `json:"archived"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := s.app.ArchiveSessions(r.Context(), body.IDs, body.Archived)
	writeResult(w, v, err)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := s.app.SendMessage(r.Context(), body.Text)
	writeResult(w, v, err)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	v, err := s.app.Confirm(r.Context())
	writeResult(w, v, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, http.StatusOK, s.app.Cancel(r.Context()))
}
