package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cura/internal/domain"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var (
	// ErrEmptyMessage indicates a message with no text after trimming.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSessionNotFound indicates that the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// DefaultReplyTimeout bounds a single assistant call.
const DefaultReplyTimeout = 60 * time.Second

// ConversationController appends user turns and assistant replies to
// session transcripts. It keeps one provider conversation per session,
// built lazily from the transcript.
//
// Callers serialize Send per session; the controller does not queue.
type ConversationController struct {
	sessions  *SessionRepository
	assistant domain.Assistant
	handles   *cache.Cache
	log       *slog.Logger
	timeout   time.Duration
}

// NewConversationController creates a controller writing to sessions and
// replying through assistant.
func NewConversationController(sessions *SessionRepository, assistant domain.Assistant, timeout time.Duration, logger *slog.Logger) *ConversationController {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	return &ConversationController{
		sessions:  sessions,
		assistant: assistant,
		handles:   cache.New(cache.NoExpiration, 0),
		log:       logger,
		timeout:   timeout,
	}
}

// Send appends rawText as a USER message to the session and then exactly one
// BOT message: the assistant's reply, or domain.FallbackReply if the
// assistant fails. The first user message also titles the session.
//
// The reply is applied to sessionID even if the caller has moved on, and the
// assistant call is not cancelled with ctx.
func (c *ConversationController) Send(ctx context.Context, sessionID, rawText string) (domain.Message, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	sess := c.sessions.Get(sessionID)
	if sess == nil {
		return domain.Message{}, ErrSessionNotFound
	}

	// The handle must be built before the new turn lands in the transcript.
	conv, convErr := c.conversation(ctx, sess)

	userMsg := domain.Message{ID: uuid.NewString(), Text: text, Sender: domain.SenderUser}
	if !c.sessions.UpdateByID(ctx, sessionID, func(s *domain.ChatSession) {
		if !s.HasUserMessage() {
			s.Title = domain.DeriveTitle(text)
		}
		s.Messages = append(s.Messages, userMsg)
	}) {
		// Deleted while the handle was being built.
		c.Evict(sessionID)
		return domain.Message{}, ErrSessionNotFound
	}

	reply, err := c.reply(ctx, conv, convErr, text)
	if err != nil {
		c.log.Error("conversation: assistant failed", "session_id", sessionID, "error", err)
		reply = domain.FallbackReply
	}

	botMsg := domain.Message{ID: uuid.NewString(), Text: reply, Sender: domain.SenderBot}
	if !c.sessions.AppendMessages(ctx, sessionID, botMsg) {
		c.log.Info("conversation: session deleted before reply", "session_id", sessionID)
		c.Evict(sessionID)
	}
	return botMsg, nil
}

func (c *ConversationController) reply(ctx context.Context, conv domain.Conversation, convErr error, text string) (string, error) {
	if convErr != nil {
		return "", convErr
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	return conv.Send(callCtx, text)
}

func (c *ConversationController) conversation(ctx context.Context, sess *domain.ChatSession) (domain.Conversation, error) {
	if h, ok := c.handles.Get(sess.ID); ok {
		return h.(domain.Conversation), nil
	}
	if c.assistant == nil {
		return nil, domain.ErrProviderUnavailable
	}
	conv, err := c.assistant.NewConversation(ctx, domain.HistoryFromMessages(sess.Messages))
	if err != nil {
		return nil, err
	}
	c.handles.Set(sess.ID, conv, cache.NoExpiration)
	return conv, nil
}

// Evict drops the cached conversations of the given sessions.
func (c *ConversationController) Evict(ids ...string) {
	for _, id := range ids {
		c.handles.Delete(id)
	}
}

// Reset drops every cached conversation. Handles live for one login.
func (c *ConversationController) Reset() {
	c.handles.Flush()
}

// Cached reports how many conversations are cached.
func (c *ConversationController) Cached() int {
	return c.handles.ItemCount()
}
