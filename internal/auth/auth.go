// Package auth is the admin entry gate: a configured credential verified
// server-side, issuing opaque session tokens that expire after 24 hours.
// This replaces the client-local "logged in" flag the storefront's first
// iteration used, which was never a security boundary.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const SessionTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoSession          = errors.New("not authenticated")
)

// Admin verifies the single configured admin credential and manages
// sessions in Redis. An empty configured password disables login outright.
type Admin struct {
	username     string
	passwordHash []byte
	rdb          *redis.Client
}

func NewAdmin(username, password string, rdb *redis.Client) (*Admin, error) {
	a := &Admin{username: username, rdb: rdb}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		a.passwordHash = hash
	}
	return a, nil
}

func sessionKey(token string) string { return "admin:session:" + token }

// Login checks the credentials and, when they match, returns a fresh
// session token valid for SessionTTL.
func (a *Admin) Login(ctx context.Context, username, password string) (string, error) {
	if a.passwordHash == nil || username != a.username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	token := uuid.NewString()
	if err := a.rdb.Set(ctx, sessionKey(token), time.Now().UTC().Format(time.RFC3339), SessionTTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Verify reports whether the token belongs to a live session. Expiry is
// enforced by the key's TTL.
func (a *Admin) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoSession
	}
	n, err := a.rdb.Exists(ctx, sessionKey(token)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSession
	}
	return nil
}

func (a *Admin) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.rdb.Del(ctx, sessionKey(token)).Err()
}
