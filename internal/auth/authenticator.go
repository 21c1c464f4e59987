package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/salesdesk/internal/domain/user"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrInvalidCredentials is shared by unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (user.User, error)
}

type PasswordVerifier interface {
	Verify(plain, hash string) bool
}

// LoginObserver is told the outcome of each login attempt: ok, invalid, rejected or error.
type LoginObserver interface {
	ObserveLogin(result string)
}

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      user.Public `json:"user"`
}

type Authenticator struct {
	users     UserFinder
	passwords PasswordVerifier
	tokens    *Manager
	observer  LoginObserver
}

func NewAuthenticator(users UserFinder, passwords PasswordVerifier, tokens *Manager) *Authenticator {
	return &Authenticator{users: users, passwords: passwords, tokens: tokens}
}

func (a *Authenticator) WithObserver(o LoginObserver) *Authenticator {
	a.observer = o
	return a
}

func (a *Authenticator) Login(ctx context.Context, username, password string) (Session, error) {
	if username == "" || password == "" {
		a.observe("rejected")
		return Session{}, ErrMissingCredentials
	}

	u, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			a.observe("invalid")
			return Session{}, ErrInvalidCredentials
		}
		a.observe("error")
		return Session{}, fmt.Errorf("find user: %w", err)
	}

	if !a.passwords.Verify(password, u.PasswordHash) {
		a.observe("invalid")
		return Session{}, ErrInvalidCredentials
	}

	token, expiresAt, err := a.tokens.GenerateAccessToken(u)
	if err != nil {
		a.observe("error")
		return Session{}, fmt.Errorf("sign token: %w", err)
	}

	a.observe("ok")
	return Session{Token: token, ExpiresAt: expiresAt, User: u.Public()}, nil
}

func (a *Authenticator) observe(result string) {
	if a.observer != nil {
		a.observer.ObserveLogin(result)
	}
}
