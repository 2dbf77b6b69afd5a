package authstate

import (
	"context"
	"errors"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too weak")
	ErrSessionExpired     = errors.New("session expired")
)

type EventKind string

const (
	EventSignedIn        EventKind = "signed_in"
	EventSignedOut       EventKind = "signed_out"
	EventSessionRestored EventKind = "session_restored"
	EventTokenRefreshed  EventKind = "token_refreshed"
)

// Event is a single authentication-state transition. Identity.UserID is
// empty when the transition leaves the client unauthenticated.
type Event struct {
	Kind     EventKind
	Identity models.Identity
	Session  models.Session
}

// Backend is the hosted auth service the session store delegates to.
// It is the only seam through which credentials travel.
type Backend interface {
	SignUp(ctx context.Context, email, password, fullName string) error
	SignIn(ctx context.Context, email, password string) (models.Session, models.Identity, error)
	SignOut(ctx context.Context, token string) error
	CurrentSession(ctx context.Context, token string) (models.Session, models.Identity, error)
}

// RoleReader looks up the role assignment for a user id. A zero-value
// assignment with a nil error means no row exists.
type RoleReader interface {
	RoleAssignment(ctx context.Context, userID string) (models.RoleAssignment, error)
}

// RoleStore adds the administrative upsert to RoleReader. The client
// performs no authorization check before writing; that belongs to the
// backend's policy layer.
type RoleStore interface {
	RoleReader
	UpsertRole(ctx context.Context, userID string, role models.Role) error
}
