package authstate

import (
	"context"
	"log"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

// Resolver turns a user id into an effective role. Lookup failures are
// absorbed: the resolver logs and falls back to customer so a flaky
// role table can never wedge the auth context.
type Resolver struct {
	roles RoleReader
}

func NewResolver(roles RoleReader) *Resolver {
	return &Resolver{roles: roles}
}

func (r *Resolver) Resolve(ctx context.Context, userID string) models.Role {
	assignment, err := r.roles.RoleAssignment(ctx, userID)
	if err != nil {
		log.Printf("authstate: role lookup failed for user %s: %v", userID, err)
		return models.RoleCustomer
	}
	return models.EffectiveRole(assignment)
}
