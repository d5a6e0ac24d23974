package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pratik-sharma-25/expenseTracker/internal/storage"
)

func newAuthenticator() *Authenticator {
	return NewAuthenticator(storage.NewMemoryStore(), NewTokenManager("test-secret", time.Hour))
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator()

	user, err := a.Signup(ctx, "a@example.com", "Alice", "s3cret-pass")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("Signup() should assign a user id")
	}
	if user.PasswordHash == "s3cret-pass" {
		t.Fatal("password stored in plain text")
	}

	token, err := a.Login(ctx, "a@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("Login() returned an empty token")
	}

	if _, err := a.Login(ctx, "a@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := a.Login(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignup_Rejections(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator()

	if _, err := a.Signup(ctx, "a@example.com", "Alice", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password = %v, want ErrWeakPassword", err)
	}

	if _, err := a.Signup(ctx, "a@example.com", "Alice", "s3cret-pass"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Signup(ctx, "a@example.com", "Bob", "another-pass"); !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Errorf("duplicate email = %v, want ErrDuplicateEmail", err)
	}
}

func TestTokenManager_Verify(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	userID, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %s, want user-1", userID)
	}

	if _, err := m.Verify(token + "tampered"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token = %v, want ErrInvalidToken", err)
	}

	other := NewTokenManager("other-secret", time.Hour)
	otherToken, _ := other.Issue("user-1")
	if _, err := m.Verify(otherToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign-signed token = %v, want ErrInvalidToken", err)
	}

	expired := NewTokenManager("test-secret", -time.Minute)
	expiredToken, _ := expired.Issue("user-1")
	if _, err := m.Verify(expiredToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token = %v, want ErrInvalidToken", err)
	}
}
