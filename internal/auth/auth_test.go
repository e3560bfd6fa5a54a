package auth

import (
	"context"
	"errors"
	"testing"
)

// Every rejection path below returns before Redis is touched, so a nil
// client is enough. Session expiry itself is the key's TTL and is not
// re-tested here.

func TestLogin_WrongUsername(t *testing.T) {
	a, err := NewAdmin("admin", "secret", nil)
	if err != nil {
		t.Fatalf("setup err=%v", err)
	}
	if _, err := a.Login(context.Background(), "root", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperaba ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	a, err := NewAdmin("admin", "secret", nil)
	if err != nil {
		t.Fatalf("setup err=%v", err)
	}
	if _, err := a.Login(context.Background(), "admin", "Secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperaba ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Login(context.Background(), "admin", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("password vacía debió fallar, got %v", err)
	}
}

func TestLogin_DisabledWithoutConfiguredPassword(t *testing.T) {
	a, err := NewAdmin("admin", "", nil)
	if err != nil {
		t.Fatalf("setup err=%v", err)
	}
	// not even the empty password matches: login is off entirely
	if _, err := a.Login(context.Background(), "admin", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperaba ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Login(context.Background(), "admin", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperaba ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyAndLogout_EmptyToken(t *testing.T) {
	a, err := NewAdmin("admin", "secret", nil)
	if err != nil {
		t.Fatalf("setup err=%v", err)
	}
	if err := a.Verify(context.Background(), ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("esperaba ErrNoSession, got %v", err)
	}
	if err := a.Logout(context.Background(), ""); err != nil {
		t.Fatalf("logout sin token err=%v", err)
	}
}
