package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cura/internal/adapter/memory"
	"cura/internal/app"
	"cura/internal/domain"
)

// mustView fails the test on an action error and returns the view.
func mustView(t *testing.T) func(app.View, error) app.View {
	return func(v app.View, err error) app.View {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return v
	}
}

func TestApp_FirstConversation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), replying(func(ctx context.Context, text string) (string, error) {
		return "Rest and hydrate.", nil
	}))

	v := mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	if v.User != "alice" || v.HasSessions || v.ActiveID != "" {
		t.Fatalf("unexpected view after register: %+v", v)
	}

	v = mustView(t)(e.app.NewSession(ctx))
	if v.ActiveID == "" || !v.IsNewChat || len(v.Suggestions) == 0 {
		t.Fatalf("expected a new active chat with suggestions: %+v", v)
	}

	v = mustView(t)(e.app.SendMessage(ctx, "What helps a headache?"))
	if v.Active == nil {
		t.Fatal("expected an active session")
	}
	if v.Active.Title != "What helps a headache?" {
		t.Errorf("unexpected title %q", v.Active.Title)
	}
	msgs := v.Active.Messages
	if len(msgs) != 3 || msgs[2].Text != "Rest and hydrate." {
		t.Errorf("unexpected transcript: %+v", msgs)
	}
	if v.IsNewChat || v.IsLoading || len(v.Suggestions) != 0 {
		t.Errorf("unexpected flags: %+v", v)
	}
}

func TestApp_SendRejects(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})

	if _, err := e.app.SendMessage(ctx, "hi"); !errors.Is(err, app.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
	if _, err := e.app.NewSession(ctx); !errors.Is(err, app.ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}

	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	mustView(t)(e.app.NewSession(ctx))
	v, err := e.app.SendMessage(ctx, "   ")
	if !errors.Is(err, app.ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if len(v.Active.Messages) != 1 {
		t.Errorf("empty send must not change the transcript")
	}
}

func TestApp_SendWhileLoading(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	e := newEnv(t, memory.New(), replying(func(ctx context.Context, text string) (string, error) {
		close(started)
		<-release
		return "done", nil
	}))
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	mustView(t)(e.app.NewSession(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := e.app.SendMessage(ctx, "first")
		done <- err
	}()
	<-started

	v := e.app.View(ctx)
	if !v.IsLoading {
		t.Error("expected loading while the reply is pending")
	}
	if n := len(v.Active.Messages); n != 2 {
		t.Errorf("expected the user message to be visible, got %d messages", n)
	}
	if _, err := e.app.SendMessage(ctx, "second"); !errors.Is(err, app.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	v = e.app.View(ctx)
	if v.IsLoading || len(v.Active.Messages) != 3 {
		t.Errorf("unexpected view after reply: %+v", v)
	}
}

func TestApp_SwitchSessionMidFlight(t *testing.T) {
	tests := []struct {
		name   string
		action func(ctx context.Context, a *app.App, other string) (app.View, error)
	}{
		{"select older chat", func(ctx context.Context, a *app.App, other string) (app.View, error) {
			return a.SelectSession(ctx, other)
		}},
		{"start new chat", func(ctx context.Context, a *app.App, other string) (app.View, error) {
			return a.NewSession(ctx)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			started := make(chan struct{})
			release := make(chan struct{})
			e := newEnv(t, memory.New(), replying(func(ctx context.Context, text string) (string, error) {
				close(started)
				<-release
				return "done", nil
			}))
			mustView(t)(e.app.Register(ctx, "alice", "pw1"))
			other := mustView(t)(e.app.NewSession(ctx)).ActiveID
			origin := mustView(t)(e.app.NewSession(ctx)).ActiveID

			done := make(chan error, 1)
			go func() {
				_, err := e.app.SendMessage(ctx, "first")
				done <- err
			}()
			<-started

			switched := mustView(t)(tt.action(ctx, e.app, other)).ActiveID
			if switched == origin {
				t.Fatal("expected another chat to become active")
			}

			close(release)
			if err := <-done; err != nil {
				t.Fatal(err)
			}
			v := e.app.View(ctx)
			if v.ActiveID != switched {
				t.Errorf("reply must not change the selection: got %s, want %s", v.ActiveID, switched)
			}
			if n := len(e.sessions.Get(origin).Messages); n != 3 {
				t.Errorf("expected the reply on the originating chat, got %d messages", n)
			}
			if n := len(v.Active.Messages); n != 1 {
				t.Errorf("expected the active chat untouched, got %d messages", n)
			}
		})
	}
}

func TestApp_DeleteWhileConversationStarts(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	e := newEnv(t, memory.New(), &mockAssistant{newFn: func(ctx context.Context, history []domain.Turn) (domain.Conversation, error) {
		close(started)
		<-release
		return &mockConversation{}, nil
	}})
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	id := mustView(t)(e.app.NewSession(ctx)).ActiveID

	done := make(chan error, 1)
	go func() {
		_, err := e.app.SendMessage(ctx, "hi")
		done <- err
	}()
	<-started

	mustView(t)(e.app.DeleteSessions(ctx, []string{id}))
	mustView(t)(e.app.Confirm(ctx))
	close(release)

	if err := <-done; !errors.Is(err, app.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if e.sessions.Get(id) != nil {
		t.Error("deleted session must stay deleted")
	}
	if n := e.chat.Cached(); n != 0 {
		t.Errorf("expected no cached conversations, got %d", n)
	}
	if e.app.View(ctx).IsLoading {
		t.Error("loading must clear after the failed send")
	}
}

func TestApp_PendingReplyDoesNotBlockOtherUser(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	first := true
	e := newEnv(t, memory.New(), replying(func(ctx context.Context, text string) (string, error) {
		if first {
			first = false
			close(started)
			<-release
		}
		return "ok", nil
	}))
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	alice := mustView(t)(e.app.NewSession(ctx)).ActiveID

	done := make(chan error, 1)
	go func() {
		_, err := e.app.SendMessage(ctx, "slow")
		done <- err
	}()
	<-started

	e.app.Logout(ctx)
	mustView(t)(e.app.Register(ctx, "bob", "pw2"))
	mustView(t)(e.app.NewSession(ctx))
	v, err := e.app.SendMessage(ctx, "hello")
	if err != nil {
		t.Fatalf("bob must not wait on alice's reply: %v", err)
	}
	if v.IsLoading || len(v.Active.Messages) != 3 {
		t.Errorf("unexpected view for bob: %+v", v)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if n := len(e.sessions.Get(alice).Messages); n != 3 {
		t.Errorf("expected alice's reply to land, got %d messages", n)
	}
}

func TestApp_DeleteActiveSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	older := mustView(t)(e.app.NewSession(ctx)).ActiveID
	newer := mustView(t)(e.app.NewSession(ctx)).ActiveID

	v := mustView(t)(e.app.DeleteSessions(ctx, []string{newer}))
	if v.Pending == nil || v.Pending.Title != "Delete 1 Chat(s)?" {
		t.Fatalf("expected a confirmation, got %+v", v.Pending)
	}
	if e.sessions.Get(newer) == nil {
		t.Fatal("nothing may be deleted before confirmation")
	}

	v = mustView(t)(e.app.Confirm(ctx))
	if v.Pending != nil {
		t.Error("confirmation should be cleared")
	}
	if v.ActiveID != older {
		t.Errorf("expected %s to become active, got %s", older, v.ActiveID)
	}
	if len(v.Sessions) != 1 {
		t.Errorf("expected 1 session, got %d", len(v.Sessions))
	}

	// Deleting again is a no-op.
	mustView(t)(e.app.DeleteSessions(ctx, []string{newer}))
	if _, err := e.app.Confirm(ctx); !errors.Is(err, app.ErrNoPendingAction) {
		t.Errorf("expected ErrNoPendingAction, got %v", err)
	}
}

func TestApp_CancelKeepsSessions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	id := mustView(t)(e.app.NewSession(ctx)).ActiveID

	mustView(t)(e.app.DeleteAllChats(ctx))
	v := e.app.Cancel(ctx)
	if v.Pending != nil || v.ActiveID != id {
		t.Errorf("cancel should leave everything in place: %+v", v)
	}
}

func TestApp_ArchiveActive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	first := mustView(t)(e.app.NewSession(ctx)).ActiveID
	second := mustView(t)(e.app.NewSession(ctx)).ActiveID

	v := mustView(t)(e.app.ArchiveSessions(ctx, []string{second}, true))
	if v.ActiveID != first {
		t.Errorf("expected %s to become active, got %s", first, v.ActiveID)
	}
	if len(v.Sessions) != 1 || v.Sessions[0].ID != first {
		t.Errorf("archived session should leave the active list: %+v", v.Sessions)
	}

	v = e.app.ShowArchived(ctx, true)
	if len(v.Sessions) != 1 || v.Sessions[0].ID != second {
		t.Errorf("expected the archived list to hold %s: %+v", second, v.Sessions)
	}

	// Archived sessions may still be viewed.
	v = mustView(t)(e.app.SelectSession(ctx, second))
	if v.ActiveID != second {
		t.Errorf("expected %s to be viewable, got %s", second, v.ActiveID)
	}

	v = mustView(t)(e.app.ArchiveSessions(ctx, []string{second}, false))
	if v.ShowArchived {
		t.Error("reopening a chat should switch back to the active list")
	}
	if len(v.Sessions) != 2 {
		t.Errorf("expected 2 active sessions, got %d", len(v.Sessions))
	}
}

func TestApp_ArchiveLastSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	id := mustView(t)(e.app.NewSession(ctx)).ActiveID

	v := mustView(t)(e.app.ArchiveSessions(ctx, []string{id}, true))
	if v.ActiveID != "" || v.Active != nil {
		t.Errorf("expected no active session, got %q", v.ActiveID)
	}
	if !v.HasSessions {
		t.Error("archived sessions still count as history")
	}
}

func TestApp_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	aliceID := mustView(t)(e.app.NewSession(ctx)).ActiveID
	e.app.Logout(ctx)

	v := mustView(t)(e.app.Register(ctx, "bob", "pw2"))
	if v.HasSessions || v.ActiveID != "" {
		t.Fatalf("bob must not see alice's chats: %+v", v)
	}
	v = mustView(t)(e.app.SelectSession(ctx, aliceID))
	if v.ActiveID != "" {
		t.Errorf("bob selected alice's session %q", v.ActiveID)
	}
	mustView(t)(e.app.DeleteSessions(ctx, []string{aliceID}))
	if v := e.app.View(ctx); v.Pending != nil {
		t.Error("foreign sessions must not be offered for deletion")
	}
	if e.sessions.Get(aliceID) == nil {
		t.Error("alice's session was removed")
	}
}

func TestApp_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})
	mustView(t)(e.app.Register(ctx, "bob", "pw2"))
	bobID := mustView(t)(e.app.NewSession(ctx)).ActiveID
	e.app.Logout(ctx)

	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	mustView(t)(e.app.NewSession(ctx))
	mustView(t)(e.app.NewSession(ctx))

	v := mustView(t)(e.app.DeleteAccount(ctx))
	if v.Pending == nil || v.Pending.Title != "Delete Account?" {
		t.Fatalf("expected a confirmation, got %+v", v.Pending)
	}
	v = mustView(t)(e.app.Confirm(ctx))
	if v.User != "" {
		t.Errorf("expected to be logged out, got %q", v.User)
	}
	if e.accounts.Exists("alice") {
		t.Error("account should be gone")
	}
	all := e.sessions.All()
	if len(all) != 1 || all[0].ID != bobID {
		t.Errorf("only bob's session should remain: %+v", all)
	}
	if _, err := e.app.Login(ctx, "alice", "pw1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestApp_DeleteAllChats(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	id := mustView(t)(e.app.NewSession(ctx)).ActiveID
	mustView(t)(e.app.NewSession(ctx))
	mustView(t)(e.app.ArchiveSessions(ctx, []string{id}, true))

	v := mustView(t)(e.app.DeleteAllChats(ctx))
	if v.Pending == nil || !strings.Contains(v.Pending.Message, "active and archived") {
		t.Fatalf("unexpected confirmation %+v", v.Pending)
	}
	v = mustView(t)(e.app.Confirm(ctx))
	if v.HasSessions || v.ActiveID != "" || v.User != "alice" {
		t.Errorf("expected an empty history for alice: %+v", v)
	}
}

func TestApp_Restart(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	e := newEnv(t, db, &mockAssistant{})
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	first := mustView(t)(e.app.NewSession(ctx)).ActiveID
	mustView(t)(e.app.NewSession(ctx))
	mustView(t)(e.app.SelectSession(ctx, first))
	mustView(t)(e.app.SendMessage(ctx, "remember me"))
	mustView(t)(e.app.SetTheme(ctx, domain.ThemeDark))

	v := newEnv(t, db, &mockAssistant{}).app.View(ctx)
	if v.User != "alice" || v.ActiveID != first {
		t.Fatalf("expected alice on %s after restart, got %q on %q", first, v.User, v.ActiveID)
	}
	if v.Theme != domain.ThemeDark {
		t.Errorf("expected dark theme, got %q", v.Theme)
	}
	if len(v.Active.Messages) != 3 || v.Active.Title != "remember me" {
		t.Errorf("transcript not restored: %+v", v.Active)
	}
}

func TestApp_Theme(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})

	if v := e.app.View(ctx); v.Theme != domain.ThemeLight {
		t.Errorf("expected light by default, got %q", v.Theme)
	}
	if v := e.app.ToggleTheme(ctx); v.Theme != domain.ThemeDark {
		t.Errorf("expected dark, got %q", v.Theme)
	}
	if _, err := e.app.SetTheme(ctx, "sepia"); !errors.Is(err, app.ErrInvalidTheme) {
		t.Errorf("expected ErrInvalidTheme, got %v", err)
	}
}

func TestApp_LogoutDropsConversations(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memory.New(), &mockAssistant{})
	mustView(t)(e.app.Register(ctx, "alice", "pw1"))
	mustView(t)(e.app.NewSession(ctx))
	mustView(t)(e.app.SendMessage(ctx, "hi"))
	if e.chat.Cached() != 1 {
		t.Fatalf("expected a cached conversation, got %d", e.chat.Cached())
	}

	v := e.app.Logout(ctx)
	if v.User != "" || v.ActiveID != "" {
		t.Errorf("unexpected view after logout: %+v", v)
	}
	if e.chat.Cached() != 0 {
		t.Error("logout should drop cached conversations")
	}

	v = mustView(t)(e.app.Login(ctx, "alice", "pw1"))
	if v.ActiveID == "" {
		t.Error("login should select the most recent chat")
	}
}
