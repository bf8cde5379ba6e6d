package app

import (
	"slices"

	"cura/internal/domain"
)

// Selector tracks the logged-in user and the session currently shown to
// them. Neither value is a source of truth: both are re-derived from the
// session collection after every mutation.
type Selector struct {
	userID   string
	activeID string
}

// Login switches to userID and forces re-derivation of the active session.
func (s *Selector) Login(userID string) {
	s.userID = userID
	s.activeID = ""
}

// Restore reinstates a persisted selection without re-deriving it.
func (s *Selector) Restore(userID, activeID string) {
	s.userID = userID
	s.activeID = activeID
}

// Logout clears both the user and the active session.
func (s *Selector) Logout() {
	s.userID = ""
	s.activeID = ""
}

// Select makes id the active session unconditionally. Archived sessions may
// be selected for viewing.
func (s *Selector) Select(id string) {
	s.activeID = id
}

// Invalidate clears the active session if it is among ids.
func (s *Selector) Invalidate(ids []string) bool {
	if s.activeID != "" && slices.Contains(ids, s.activeID) {
		s.activeID = ""
		return true
	}
	return false
}

// Resolve re-derives the active session against the user's sessions and
// returns it.
func (s *Selector) Resolve(userSessions []domain.ChatSession) string {
	s.activeID = ResolveActive(userSessions, s.activeID)
	return s.activeID
}

// UserID returns the logged-in user, or "".
func (s *Selector) UserID() string { return s.userID }

// ActiveID returns the active session id, or "".
func (s *Selector) ActiveID() string { return s.activeID }

// ResolveActive keeps activeID while it names one of userSessions; otherwise
// it picks the most recent non-archived session, or "" if there is none.
// userSessions must be ordered most recent first.
func ResolveActive(userSessions []domain.ChatSession, activeID string) string {
	if activeID != "" && slices.ContainsFunc(userSessions, func(s domain.ChatSession) bool { return s.ID == activeID }) {
		return activeID
	}
	for _, s := range userSessions {
		if !s.IsArchived {
			return s.ID
		}
	}
	return ""
}
