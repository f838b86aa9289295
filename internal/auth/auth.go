// Package auth issues and revokes access tokens.
package auth

import (
	"context"
	"errors"
	"time"

	"openbook/internal/user"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expires_in"`
	User      SessionUser `json:"user"`
	Redirect  string      `json:"redirect"`
}

type SessionUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	RoleID        int    `json:"role_id"`
	InstitutionID int64  `json:"institution_id"`
}

// UserStore is the slice of user.Service that auth depends on.
type UserStore interface {
	Register(ctx context.Context, in user.RegisterInput) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Profile(ctx context.Context, id string) (user.Profile, error)
	EmailAvailable(ctx context.Context, email string, roleID int) (bool, error)
	TouchLastLogin(ctx context.Context, id string) error
	TouchLastLogout(ctx context.Context, id string) error
}

// Blacklist stores the JTIs of tokens revoked by logout.
type Blacklist interface {
	Add(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type EventPublisher interface {
	Publish(subject, eventName, userID string, props map[string]any)
}
