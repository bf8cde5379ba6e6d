package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderBot  Sender = "BOT"
)

// Theme is the persisted UI theme setting.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultTitle is the title of a session that has no user message yet.
const DefaultTitle = "New Chat"

// TitleLimit is the number of characters kept when deriving a title.
const TitleLimit = 50

const (
	greeting   = "Hello! I'm CURA, your AI Healthcare Assistant. How can I help you today?"
	disclaimer = "Please remember, I'm an AI assistant, and while I can offer general information and insights, " +
		"it's always best to consult with a doctor or other healthcare professional for personalized medical advice, " +
		"diagnosis, or treatment, especially if you're not feeling well. They can provide the most accurate guidance " +
		"based on your specific situation."
)

// SeedGreeting is the synthetic first message of every session.
const SeedGreeting = greeting + "\n\n" + disclaimer

// FallbackReply is appended in place of an assistant reply when the provider fails.
const FallbackReply = "Sorry, I'm having trouble connecting. Please try again later."

// PromptSuggestions are offered while a session holds only its seed greeting.
var PromptSuggestions = []string{
	"What are the signs of dehydration?",
	"Explain intermittent fasting",
	"Benefits of meditation for stress?",
	"First aid for a minor burn",
	"How to handle seasonal allergies?",
	"What makes a breakfast healthy?",
}

// Message is a single immutable transcript entry.
type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// ChatSession is one conversation owned by a user. Messages is never empty:
// the first entry is always the BOT seed greeting.
type ChatSession struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
	IsArchived bool      `json:"isArchived"`
}

// HasUserMessage reports whether the user has sent anything in the session.
func (s *ChatSession) HasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Sender == SenderUser {
			return true
		}
	}
	return false
}

// IsNew reports whether the session holds only its seed greeting.
func (s *ChatSession) IsNew() bool {
	return len(s.Messages) <= 1
}

// Clone returns a copy that shares no message storage with s.
func (s ChatSession) Clone() ChatSession {
	s.Messages = append([]Message(nil), s.Messages...)
	return s
}

// DeriveTitle returns the first TitleLimit characters of the trimmed text,
// followed by "..." when the text was longer.
func DeriveTitle(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= TitleLimit {
		return text
	}
	return string([]rune(text)[:TitleLimit]) + "..."
}
