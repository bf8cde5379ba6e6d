package domain

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by a Backend when a key holds no record.
var ErrKeyNotFound = errors.New("key not found")

// Store keys. Each key holds one whole JSON document.
const (
	KeyTheme         = "cura-theme"
	KeyUsers         = "cura-users"
	KeyCurrentUser   = "cura-current-user"
	KeySessions      = "cura-chat-sessions-all"
	KeyActiveSession = "cura-active-session"
)

// Backend is the port for raw key-value persistence.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}
