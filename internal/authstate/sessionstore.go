package authstate

import (
	"context"
	"errors"
	"log"
	"sync"
)

// SessionStore bridges to the Backend and republishes every
// authentication transition as a typed Event. It is the sole producer
// on the event channel.
type SessionStore struct {
	backend Backend

	mu    sync.Mutex
	token string

	events chan Event
}

func NewSessionStore(backend Backend) *SessionStore {
	return &SessionStore{
		backend: backend,
		events:  make(chan Event, 8),
	}
}

func (s *SessionStore) Events() <-chan Event {
	return s.events
}

// Token returns the current credential token, empty when signed out.
// Callers persist it between runs.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *SessionStore) setToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *SessionStore) SignUp(ctx context.Context, email, password, fullName string) error {
	return s.backend.SignUp(ctx, email, password, fullName)
}

func (s *SessionStore) SignIn(ctx context.Context, email, password string) error {
	session, identity, err := s.backend.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	s.setToken(session.Token)
	s.events <- Event{Kind: EventSignedIn, Identity: identity, Session: session}
	return nil
}

// SignOut clears local credential state unconditionally. A failed
// remote invalidation is logged and swallowed so the caller always
// observes a signed-out client.
func (s *SessionStore) SignOut(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.token = ""
	s.mu.Unlock()

	if token != "" {
		if err := s.backend.SignOut(ctx, token); err != nil {
			log.Printf("authstate: remote sign-out failed: %v", err)
		}
	}
	s.events <- Event{Kind: EventSignedOut}
}

// Restore performs the one-shot fetch of a persisted session. It always
// emits exactly one event: EventSessionRestored with the identity when
// the session is live, or with an empty identity otherwise, so the
// consumer can leave its loading state either way.
func (s *SessionStore) Restore(ctx context.Context, token string) {
	if token == "" {
		s.events <- Event{Kind: EventSessionRestored}
		return
	}
	session, identity, err := s.backend.CurrentSession(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrSessionExpired) {
			log.Printf("authstate: session restore failed: %v", err)
		}
		s.setToken("")
		s.events <- Event{Kind: EventSessionRestored}
		return
	}
	s.setToken(session.Token)
	s.events <- Event{Kind: EventSessionRestored, Identity: identity, Session: session}
}

// Refresh re-reads the current session. A session revoked elsewhere
// (another device, admin action) surfaces here as a SignedOut event.
func (s *SessionStore) Refresh(ctx context.Context) {
	token := s.Token()
	if token == "" {
		return
	}
	session, identity, err := s.backend.CurrentSession(ctx, token)
	if err != nil {
		s.setToken("")
		s.events <- Event{Kind: EventSignedOut}
		return
	}
	s.events <- Event{Kind: EventTokenRefreshed, Identity: identity, Session: session}
}

// Close releases the event channel. The SessionStore must not be used
// afterwards.
func (s *SessionStore) Close() {
	close(s.events)
}
