package app

import (
	"cura/internal/domain"
)

// Confirmation describes a destructive action waiting for the user to
// confirm it.
type Confirmation struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// View is everything a UI needs to render after an action.
type View struct {
	User         string               `json:"user,omitempty"`
	Sessions     []domain.ChatSession `json:"sessions"`
	HasSessions  bool                 `json:"hasSessions"`
	ActiveID     string               `json:"activeId,omitempty"`
	Active       *domain.ChatSession  `json:"active,omitempty"`
	IsNewChat    bool                 `json:"isNewChat"`
	IsLoading    bool                 `json:"isLoading"`
	ShowArchived bool                 `json:"showArchived"`
	Suggestions  []string             `json:"suggestions,omitempty"`
	Theme        domain.Theme         `json:"theme"`
	Pending      *Confirmation        `json:"pending,omitempty"`
}

// DeriveView computes the view of sessions for userID with activeID resolved
// against that user's sessions. The history list holds the archived or the
// active sessions depending on showArchived.
func DeriveView(sessions []domain.ChatSession, activeID, userID string, showArchived bool) View {
	mine := SessionsForUser(sessions, userID)
	v := View{
		User:         userID,
		Sessions:     FilterByArchived(mine, showArchived),
		HasSessions:  len(mine) > 0,
		ActiveID:     ResolveActive(mine, activeID),
		ShowArchived: showArchived,
		Theme:        domain.ThemeLight,
	}
	for i := range mine {
		if mine[i].ID == v.ActiveID {
			active := mine[i].Clone()
			v.Active = &active
			v.IsNewChat = active.IsNew()
			break
		}
	}
	if v.IsNewChat {
		v.Suggestions = domain.PromptSuggestions
	}
	return v
}
