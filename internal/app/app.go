package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cura/internal/domain"
	"cura/internal/store"
)

var (
	// ErrNotLoggedIn indicates an action that needs a logged-in user.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrBusy indicates that a message is already being answered.
	ErrBusy = errors.New("a reply is still pending")
	// ErrNoActiveSession indicates that no session is selected.
	ErrNoActiveSession = errors.New("no active session")
	// ErrNoPendingAction indicates that there is nothing to confirm.
	ErrNoPendingAction = errors.New("no action awaiting confirmation")
	// ErrInvalidTheme indicates an unknown theme name.
	ErrInvalidTheme = errors.New("theme must be \"light\" or \"dark\"")
)

type pendingAction struct {
	Confirmation
	run func(ctx context.Context)
}

// App owns the application state of one device and exposes the actions the
// UI performs. Every action returns the re-derived view.
type App struct {
	mu       sync.Mutex
	store    *store.Store
	accounts *AccountDirectory
	sessions *SessionRepository
	chat     *ConversationController
	log      *slog.Logger

	sel          Selector
	theme        domain.Theme
	showArchived bool
	replying     map[string]bool // users with a reply in flight
	pending      *pendingAction

	savedUser   string
	savedActive string
}

// New restores the persisted selection and settings from st and returns an
// App driving the given components.
func New(ctx context.Context, st *store.Store, accounts *AccountDirectory, sessions *SessionRepository, chat *ConversationController, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		store:    st,
		accounts: accounts,
		sessions: sessions,
		chat:     chat,
		log:      logger,
		theme:    store.Get(ctx, st, domain.KeyTheme, domain.ThemeLight),
		replying: make(map[string]bool),
	}
	if a.theme != domain.ThemeLight && a.theme != domain.ThemeDark {
		a.theme = domain.ThemeLight
	}

	a.savedUser = store.Get(ctx, st, domain.KeyCurrentUser, "")
	a.savedActive = store.Get(ctx, st, domain.KeyActiveSession, "")
	if a.savedUser != "" && accounts.Exists(a.savedUser) {
		a.sel.Restore(a.savedUser, a.savedActive)
	}
	a.mu.Lock()
	a.refreshLocked(ctx)
	a.mu.Unlock()
	return a
}

// View returns the current view without changing anything.
func (a *App) View(ctx context.Context) View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshLocked(ctx)
}

// Register creates an account and logs it in.
func (a *App) Register(ctx context.Context, username, password string) (View, error) {
	u, err := a.accounts.Register(ctx, username, password)
	if err != nil {
		return a.View(ctx), err
	}
	return a.login(ctx, u.Username), nil
}

// Login logs in an existing account.
func (a *App) Login(ctx context.Context, username, password string) (View, error) {
	u, err := a.accounts.Login(ctx, username, password)
	if err != nil {
		return a.View(ctx), err
	}
	return a.login(ctx, u.Username), nil
}

// LoginWithUser logs in a user already authenticated elsewhere, creating
// the account on first use.
func (a *App) LoginWithUser(ctx context.Context, username string) (View, error) {
	u, err := a.accounts.Provision(ctx, username)
	if err != nil {
		return a.View(ctx), err
	}
	return a.login(ctx, u.Username), nil
}

func (a *App) login(ctx context.Context, username string) View {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sel.UserID() != username {
		a.chat.Reset()
	}
	a.sel.Login(username)
	a.showArchived = false
	a.pending = nil
	a.log.Info("app: logged in", "username", username)
	return a.refreshLocked(ctx)
}

// Logout ends the login session. Cached assistant conversations are dropped.
func (a *App) Logout(ctx context.Context) View {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logoutLocked()
	return a.refreshLocked(ctx)
}

func (a *App) logoutLocked() {
	a.sel.Logout()
	a.chat.Reset()
	a.showArchived = false
	a.pending = nil
}

// NewSession starts a new chat for the logged-in user and makes it active.
func (a *App) NewSession(ctx context.Context) (View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	user := a.sel.UserID()
	if user == "" {
		return a.refreshLocked(ctx), ErrNotLoggedIn
	}
	s := a.sessions.Create(ctx, user)
	a.sel.Select(s.ID)
	a.showArchived = false
	return a.refreshLocked(ctx), nil
}

// SelectSession makes id the active session, archived or not.
func (a *App) SelectSession(ctx context.Context, id string) (View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sel.UserID() == "" {
		return a.refreshLocked(ctx), ErrNotLoggedIn
	}
	a.sel.Select(id)
	return a.refreshLocked(ctx), nil
}

// SendMessage sends text in the active session and waits for the reply.
// Each user has one reply in flight at a time; further sends get ErrBusy.
func (a *App) SendMessage(ctx context.Context, text string) (View, error) {
	a.mu.Lock()
	a.refreshLocked(ctx)
	switch {
	case strings.TrimSpace(text) == "":
		defer a.mu.Unlock()
		return a.refreshLocked(ctx), ErrEmptyMessage
	case a.replying[a.sel.UserID()]:
		defer a.mu.Unlock()
		return a.refreshLocked(ctx), ErrBusy
	case a.sel.ActiveID() == "":
		defer a.mu.Unlock()
		return a.refreshLocked(ctx), ErrNoActiveSession
	}
	sessionID, user := a.sel.ActiveID(), a.sel.UserID()
	a.replying[user] = true
	a.mu.Unlock()

	_, err := a.chat.Send(ctx, sessionID, text)

	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.replying, user)
	return a.refreshLocked(ctx), err
}

// DeleteSessions asks for confirmation to delete the given sessions.
func (a *App) DeleteSessions(ctx context.Context, ids []string) (View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sel.UserID() == "" {
		return a.refreshLocked(ctx), ErrNotLoggedIn
	}
	ids = a.ownedLocked(ids)
	if len(ids) == 0 {
		return a.refreshLocked(ctx), nil
	}
	a.pending = &pendingAction{
		Confirmation: Confirmation{
			Title:   fmt.Sprintf("Delete %d Chat(s)?", len(ids)),
			Message: "This action cannot be undone. Are you sure you want to proceed?",
		},
		run: func(ctx context.Context) {
			a.sessions.DeleteByIDs(ctx, ids)
			a.chat.Evict(ids...)
			a.sel.Invalidate(ids)
		},
	}
	return a.refreshLocked(ctx), nil
}

// ArchiveSessions archives or reopens the given sessions. Archiving the
// active session deselects it; reopening switches back to the active list.
func (a *App) ArchiveSessions(ctx context.Context, ids []string, archive bool) (View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sel.UserID() == "" {
		return a.refreshLocked(ctx), ErrNotLoggedIn
	}
	ids = a.ownedLocked(ids)
	a.sessions.ArchiveByIDs(ctx, ids, archive)
	if archive {
		a.sel.Invalidate(ids)
	} else {
		a.showArchived = false
	}
	return a.refreshLocked(ctx), nil
}

// DeleteAllChats asks for confirmation to delete every session of the user.
func (a *App) DeleteAllChats(ctx context.Context) (View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	user := a.sel.UserID()
	if user == "" {
		return a.refreshLocked(ctx), ErrNotLoggedIn
	}
	a.pending = &pendingAction{
		Confirmation: Confirmation{
			Title:   "Delete All Chats?",
			Message: "This will permanently delete all your active and archived chats. This action cannot be undone.",
		},
		run: func(ctx context.Context) {
			ids := a.sessions.DeleteByUser(ctx, user)
			a.chat.Evict(ids...)
			a.sel.Select("")
		},
	}
	return a.refreshLocked(ctx), nil
}

// DeleteAccount asks for confirmation to delete the user, their sessions,
// and then log out.
func (a *App) DeleteAccount(ctx context.Context) (View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	user := a.sel.UserID()
	if user == "" {
		return a.refreshLocked(ctx), ErrNotLoggedIn
	}
	a.pending = &pendingAction{
		Confirmation: Confirmation{
			Title:   "Delete Account?",
			Message: "This will permanently delete your account and all your chat data. This action cannot be undone.",
		},
		run: func(ctx context.Context) {
			a.sessions.DeleteByUser(ctx, user)
			a.accounts.Delete(ctx, user)
			a.logoutLocked()
			a.log.Info("app: account deleted", "username", user)
		},
	}
	return a.refreshLocked(ctx), nil
}

// Confirm runs the action awaiting confirmation.
func (a *App) Confirm(ctx context.Context) (View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.pending
	if p == nil {
		return a.refreshLocked(ctx), ErrNoPendingAction
	}
	a.pending = nil
	p.run(ctx)
	return a.refreshLocked(ctx), nil
}

// Cancel drops the action awaiting confirmation.
func (a *App) Cancel(ctx context.Context) View {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
	return a.refreshLocked(ctx)
}

// SetTheme persists the UI theme.
func (a *App) SetTheme(ctx context.Context, theme domain.Theme) (View, error) {
	if theme != domain.ThemeLight && theme != domain.ThemeDark {
		return a.View(ctx), ErrInvalidTheme
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.theme = theme
	store.Set(ctx, a.store, domain.KeyTheme, theme)
	return a.refreshLocked(ctx), nil
}

// ToggleTheme switches between the light and dark themes.
func (a *App) ToggleTheme(ctx context.Context) View {
	a.mu.Lock()
	next := domain.ThemeDark
	if a.theme == domain.ThemeDark {
		next = domain.ThemeLight
	}
	a.mu.Unlock()
	v, _ := a.SetTheme(ctx, next)
	return v
}

// ShowArchived switches the history list between archived and active chats.
func (a *App) ShowArchived(ctx context.Context, show bool) View {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.showArchived = show
	return a.refreshLocked(ctx)
}

// ownedLocked keeps the ids that belong to the logged-in user.
func (a *App) ownedLocked(ids []string) []string {
	user := a.sel.UserID()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s := a.sessions.Get(id); s != nil && s.UserID == user {
			out = append(out, id)
		}
	}
	return out
}

// refreshLocked re-derives the selection, persists changed pointers and
// returns the view. Callers hold a.mu.
func (a *App) refreshLocked(ctx context.Context) View {
	v := DeriveView(a.sessions.All(), a.sel.ActiveID(), a.sel.UserID(), a.showArchived)
	a.sel.Select(v.ActiveID)

	if user := a.sel.UserID(); user != a.savedUser {
		store.Set(ctx, a.store, domain.KeyCurrentUser, user)
		a.savedUser = user
	}
	if active := a.sel.ActiveID(); active != a.savedActive {
		store.Set(ctx, a.store, domain.KeyActiveSession, active)
		a.savedActive = active
	}

	v.Theme = a.theme
	v.IsLoading = a.replying[a.sel.UserID()]
	if v.IsLoading {
		v.Suggestions = nil
	}
	if a.pending != nil {
		c := a.pending.Confirmation
		v.Pending = &c
	}
	return v
}
