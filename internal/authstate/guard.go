package authstate

import "github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"

// Decision is the outcome of evaluating a guard against a snapshot.
// SignIn and Denied are deliberately distinct: "not logged in" and
// "logged in with the wrong role" get different signals.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionSignIn
	DecisionDenied
	DecisionAllow
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionSignIn:
		return "sign_in"
	case DecisionDenied:
		return "denied"
	case DecisionAllow:
		return "allow"
	}
	return "unknown"
}

// Guard protects an application surface behind authentication and an
// optional role allow-list. An empty allow-list admits any
// authenticated identity.
type Guard struct {
	Allowed []models.Role
}

func RequireRoles(roles ...models.Role) Guard {
	return Guard{Allowed: roles}
}

// Evaluate never returns Denied before the role is authoritatively
// resolved; a role-gated guard reports Pending through the window
// between identity arrival and role resolution, so a legitimate admin
// is not bounced while their role loads.
func (g Guard) Evaluate(snap Snapshot) Decision {
	if snap.Loading {
		return DecisionPending
	}
	if !snap.Authenticated() {
		return DecisionSignIn
	}
	if len(g.Allowed) == 0 {
		return DecisionAllow
	}
	if !snap.RoleResolved {
		return DecisionPending
	}
	for _, role := range g.Allowed {
		if role == snap.Role {
			return DecisionAllow
		}
	}
	return DecisionDenied
}
