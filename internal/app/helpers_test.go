package app_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"cura/internal/adapter/memory"
	"cura/internal/app"
	"cura/internal/domain"
	"cura/internal/store"
)

type mockConversation struct {
	sendFn func(ctx context.Context, text string) (string, error)
	sent   []string
}

func (m *mockConversation) Send(ctx context.Context, text string) (string, error) {
	m.sent = append(m.sent, text)
	if m.sendFn != nil {
		return m.sendFn(ctx, text)
	}
	return "ok", nil
}

type mockAssistant struct {
	newFn     func(ctx context.Context, history []domain.Turn) (domain.Conversation, error)
	histories [][]domain.Turn
}

func (m *mockAssistant) NewConversation(ctx context.Context, history []domain.Turn) (domain.Conversation, error) {
	m.histories = append(m.histories, history)
	if m.newFn != nil {
		return m.newFn(ctx, history)
	}
	return &mockConversation{}, nil
}

// replying returns an assistant whose conversations answer with fn.
func replying(fn func(ctx context.Context, text string) (string, error)) *mockAssistant {
	return &mockAssistant{newFn: func(ctx context.Context, history []domain.Turn) (domain.Conversation, error) {
		return &mockConversation{sendFn: fn}, nil
	}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	db       *memory.DB
	store    *store.Store
	accounts *app.AccountDirectory
	sessions *app.SessionRepository
	chat     *app.ConversationController
	app      *app.App
}

// newEnv wires every component on top of db, which simulates the device
// storage surviving a restart when reused.
func newEnv(t *testing.T, db *memory.DB, assistant domain.Assistant) *env {
	t.Helper()
	ctx := context.Background()
	log := quietLogger()

	e := &env{db: db, store: store.New(db, log)}
	e.accounts = app.NewAccountDirectory(ctx, e.store, log)
	e.sessions = app.NewSessionRepository(ctx, e.store, log)
	e.chat = app.NewConversationController(e.sessions, assistant, time.Second, log)
	e.app = app.New(ctx, e.store, e.accounts, e.sessions, e.chat, log)
	return e
}
