// Package domain contains the core business entities and interfaces.
package domain

import "errors"

var (
	// ErrMissingCredentials indicates an empty username or password.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDuplicateUsername indicates that the username is already registered.
	ErrDuplicateUsername = errors.New("username already exists, please choose another")
)

// User is a registered account. Usernames are unique and compared exactly.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}
