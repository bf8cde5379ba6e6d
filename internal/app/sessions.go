package app

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"cura/internal/domain"
	"cura/internal/store"

	"github.com/google/uuid"
)

// SessionRepository owns the chat sessions of every user. Every mutation
// replaces the whole collection and flushes it to the store.
type SessionRepository struct {
	mu       sync.Mutex
	store    *store.Store
	log      *slog.Logger
	sessions []domain.ChatSession

	now   func() time.Time
	newID func() string
}

// NewSessionRepository loads the persisted session collection from st.
func NewSessionRepository(ctx context.Context, st *store.Store, logger *slog.Logger) *SessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &SessionRepository{
		store: st,
		log:   logger,
		now:   time.Now,
		newID: uuid.NewString,
	}
	r.sessions = r.sanitize(store.Get(ctx, st, domain.KeySessions, []domain.ChatSession{}))
	return r
}

// sanitize drops records that cannot belong to anyone and reseeds
// transcripts that lost their greeting.
func (r *SessionRepository) sanitize(in []domain.ChatSession) []domain.ChatSession {
	out := make([]domain.ChatSession, 0, len(in))
	for _, s := range in {
		if s.ID == "" || s.UserID == "" {
			r.log.Warn("sessions: dropping malformed record", "id", s.ID)
			continue
		}
		if len(s.Messages) == 0 || s.Messages[0].Sender != domain.SenderBot {
			s.Messages = append([]domain.Message{seedMessage(r.newID())}, s.Messages...)
		}
		out = append(out, s)
	}
	return out
}

func seedMessage(id string) domain.Message {
	return domain.Message{ID: id, Text: domain.SeedGreeting, Sender: domain.SenderBot}
}

// Create starts a new session for userID seeded with the greeting.
func (r *SessionRepository) Create(ctx context.Context, userID string) domain.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := r.now()
	// Keep creation instants strictly increasing so history order is total.
	for _, s := range r.sessions {
		if !createdAt.After(s.CreatedAt) {
			createdAt = s.CreatedAt.Add(time.Nanosecond)
		}
	}

	s := domain.ChatSession{
		ID:        r.newID(),
		UserID:    userID,
		Title:     domain.DefaultTitle,
		Messages:  []domain.Message{seedMessage(r.newID())},
		CreatedAt: createdAt,
	}

	next := make([]domain.ChatSession, 0, len(r.sessions)+1)
	next = append(next, s)
	next = append(next, r.sessions...)
	r.replace(ctx, next)
	return s.Clone()
}

// Get returns a copy of the session with the given id, or nil.
func (r *SessionRepository) Get(id string) *domain.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.ID == id {
			c := s.Clone()
			return &c
		}
	}
	return nil
}

// All returns a copy of the whole collection in storage order.
func (r *SessionRepository) All() []domain.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ChatSession, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Clone()
	}
	return out
}

// ListByUser returns the sessions owned by userID, most recent first.
func (r *SessionRepository) ListByUser(userID string) []domain.ChatSession {
	return SessionsForUser(r.All(), userID)
}

// UpdateByID applies patch to a copy of the matching session and stores the
// result. It reports whether the session existed; a missing id is a no-op.
func (r *SessionRepository) UpdateByID(ctx context.Context, id string, patch func(*domain.ChatSession)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.sessions, func(s domain.ChatSession) bool { return s.ID == id })
	if idx < 0 {
		return false
	}

	next := slices.Clone(r.sessions)
	updated := next[idx].Clone()
	patch(&updated)
	next[idx] = updated
	r.replace(ctx, next)
	return true
}

// AppendMessages adds msgs to the end of the session transcript.
func (r *SessionRepository) AppendMessages(ctx context.Context, id string, msgs ...domain.Message) bool {
	return r.UpdateByID(ctx, id, func(s *domain.ChatSession) {
		s.Messages = append(s.Messages, msgs...)
	})
}

// DeleteByIDs removes every session whose id is in ids and returns how many
// were removed.
func (r *SessionRepository) DeleteByIDs(ctx context.Context, ids []string) int {
	return r.deleteWhere(ctx, func(s domain.ChatSession) bool { return slices.Contains(ids, s.ID) })
}

// DeleteByUser removes every session owned by userID and returns their ids.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) []string {
	var ids []string
	for _, s := range r.ListByUser(userID) {
		ids = append(ids, s.ID)
	}
	r.deleteWhere(ctx, func(s domain.ChatSession) bool { return s.UserID == userID })
	return ids
}

func (r *SessionRepository) deleteWhere(ctx context.Context, match func(domain.ChatSession) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]domain.ChatSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		if !match(s) {
			next = append(next, s)
		}
	}
	removed := len(r.sessions) - len(next)
	if removed > 0 {
		r.replace(ctx, next)
	}
	return removed
}

// ArchiveByIDs sets the archived flag of every session whose id is in ids.
func (r *SessionRepository) ArchiveByIDs(ctx context.Context, ids []string, archived bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := slices.Clone(r.sessions)
	changed := false
	for i := range next {
		if slices.Contains(ids, next[i].ID) && next[i].IsArchived != archived {
			next[i].IsArchived = archived
			changed = true
		}
	}
	if changed {
		r.replace(ctx, next)
	}
}

// replace swaps in a new collection and flushes it. Callers hold r.mu.
func (r *SessionRepository) replace(ctx context.Context, next []domain.ChatSession) {
	r.sessions = next
	store.Set(ctx, r.store, domain.KeySessions, next)
}

// SessionsForUser filters sessions by owner and orders them by creation time,
// most recent first.
func SessionsForUser(sessions []domain.ChatSession, userID string) []domain.ChatSession {
	out := make([]domain.ChatSession, 0)
	if userID == "" {
		return out
	}
	for _, s := range sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// FilterByArchived returns the sessions whose archived flag equals archived.
func FilterByArchived(sessions []domain.ChatSession, archived bool) []domain.ChatSession {
	out := make([]domain.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if s.IsArchived == archived {
			out = append(out, s)
		}
	}
	return out
}
