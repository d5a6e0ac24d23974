package core

import (
	"errors"
	"strings"
	"time"
)

// User is an account holder. ID is a uuid assigned at signup and is the
// opaque owner identity carried by mutation intents.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedOn    time.Time
}

var (
	ErrEmptyEmail    = errors.New("email is required")
	ErrEmptyName     = errors.New("name is required")
	ErrEmptyPassword = errors.New("password is required")
)

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
