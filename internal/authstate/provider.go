package authstate

import (
	"context"
	"sync"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

// Snapshot is the externally visible auth state. It is recomputed as a
// whole on every transition, never patched in place by consumers.
//
// Loading is true until the first authentication event lands.
// RoleResolved reports whether Role is authoritative for the current
// identity; role-gated consumers must treat an unresolved role as
// "unknown", not as "no access".
type Snapshot struct {
	Identity     *models.Identity
	Session      *models.Session
	Role         models.Role
	RoleResolved bool
	Loading      bool
}

func (s Snapshot) Authenticated() bool {
	return s.Identity != nil && s.Identity.UserID != ""
}

// Provider folds authentication events into the shared Snapshot. It is
// the single authority for "who is logged in and what can they do";
// construct exactly one per process at the composition root.
//
// Role resolution never runs inside the event fold: the fold posts a
// request to a second stage, which queries the backend and reports back
// through the roleResults channel. Querying from within the event
// handler can deadlock the underlying client, so the handler must
// return before any follow-up query starts. Each request carries the
// user id it was issued for; a result whose id no longer matches the
// current identity is stale and dropped.
type Provider struct {
	store    *SessionStore
	resolver *Resolver
	roles    RoleStore

	ctx    context.Context
	cancel context.CancelFunc

	roleResults chan roleResult
	done        chan struct{}

	mu      sync.RWMutex
	snap    Snapshot
	changed chan struct{}
}

type roleResult struct {
	userID string
	role   models.Role
}

func NewProvider(store *SessionStore, roles RoleStore) *Provider {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		store:       store,
		resolver:    NewResolver(roles),
		roles:       roles,
		ctx:         ctx,
		cancel:      cancel,
		roleResults: make(chan roleResult, 4),
		done:        make(chan struct{}),
		snap:        Snapshot{Loading: true},
		changed:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Provider) run() {
	defer close(p.done)
	for {
		select {
		case event, ok := <-p.store.Events():
			if !ok {
				return
			}
			p.fold(event)
		case result := <-p.roleResults:
			p.applyRole(result)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Provider) fold(event Event) {
	if event.Identity.UserID == "" {
		p.update(func(s *Snapshot) {
			*s = Snapshot{Loading: false}
		})
		return
	}

	identity := event.Identity
	session := event.Session
	p.update(func(s *Snapshot) {
		s.Identity = &identity
		s.Session = &session
		s.Role = ""
		s.RoleResolved = false
		s.Loading = false
	})

	// Second stage: the query runs after this handler has returned.
	go func(userID string) {
		role := p.resolver.Resolve(p.ctx, userID)
		select {
		case p.roleResults <- roleResult{userID: userID, role: role}:
		case <-p.ctx.Done():
		}
	}(identity.UserID)
}

func (p *Provider) applyRole(result roleResult) {
	p.update(func(s *Snapshot) {
		if s.Identity == nil || s.Identity.UserID != result.userID {
			// Stale result for a superseded identity.
			return
		}
		s.Role = result.role
		s.RoleResolved = true
	})
}

func (p *Provider) update(mutate func(*Snapshot)) {
	p.mu.Lock()
	mutate(&p.snap)
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

// Snapshot returns a copy of the current auth state.
func (p *Provider) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// WaitUntilLoaded blocks until the snapshot leaves its initial loading
// state or ctx expires.
func (p *Provider) WaitUntilLoaded(ctx context.Context) (Snapshot, error) {
	return p.waitFor(ctx, func(s Snapshot) bool {
		return !s.Loading
	})
}

// WaitUntilRoleResolved blocks until the snapshot is loaded and, when
// authenticated, the role has been authoritatively resolved.
func (p *Provider) WaitUntilRoleResolved(ctx context.Context) (Snapshot, error) {
	return p.waitFor(ctx, func(s Snapshot) bool {
		if s.Loading {
			return false
		}
		return !s.Authenticated() || s.RoleResolved
	})
}

func (p *Provider) waitFor(ctx context.Context, ready func(Snapshot) bool) (Snapshot, error) {
	for {
		p.mu.RLock()
		snap := p.snap
		changed := p.changed
		p.mu.RUnlock()
		if ready(snap) {
			return snap, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-p.done:
			return snap, context.Canceled
		}
	}
}

func (p *Provider) SignUp(ctx context.Context, email, password, fullName string) error {
	return p.store.SignUp(ctx, email, password, fullName)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) error {
	return p.store.SignIn(ctx, email, password)
}

func (p *Provider) SignOut(ctx context.Context) {
	p.store.SignOut(ctx)
}

func (p *Provider) Restore(ctx context.Context, token string) {
	p.store.Restore(ctx, token)
}

// UpdateRole upserts a role assignment. Whether the caller may do so is
// the backend's decision, not this client's.
func (p *Provider) UpdateRole(ctx context.Context, userID string, role models.Role) error {
	return p.roles.UpsertRole(ctx, userID, role)
}

// Token exposes the current credential token for persistence.
func (p *Provider) Token() string {
	return p.store.Token()
}

// Close tears the fold loop down. In-flight role queries are abandoned.
func (p *Provider) Close() {
	p.cancel()
	<-p.done
}
