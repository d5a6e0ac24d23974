package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pratik-sharma-25/expenseTracker/internal/core"
	"github.com/pratik-sharma-25/expenseTracker/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// Authenticator handles signup and login against the user store.
type Authenticator struct {
	store  storage.Store
	tokens *TokenManager
}

func NewAuthenticator(store storage.Store, tokens *TokenManager) *Authenticator {
	return &Authenticator{
		store:  store,
		tokens: tokens,
	}
}

// Signup registers a new account with a bcrypt-hashed password and returns
// the created user.
func (a *Authenticator) Signup(ctx context.Context, email, name, password string) (core.User, error) {
	if len(password) < 8 {
		return core.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedOn:    time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}

	if err := a.store.CreateUser(ctx, user); err != nil {
		return core.User{}, err
	}

	return user, nil
}

// Login verifies the credentials and returns a signed token for the user.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	return token, nil
}
