package authstate

import (
	"context"
	"errors"
	"testing"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

func TestResolverExplicitAssignment(t *testing.T) {
	roles := newFakeRoles()
	roles.rows["user-1"] = models.RoleAdmin

	got := NewResolver(roles).Resolve(context.Background(), "user-1")
	if got != models.RoleAdmin {
		t.Fatalf("expected admin, got %q", got)
	}
}

func TestResolverDefaultsToCustomer(t *testing.T) {
	roles := newFakeRoles()

	got := NewResolver(roles).Resolve(context.Background(), "user-1")
	if got != models.RoleCustomer {
		t.Fatalf("expected customer default, got %q", got)
	}
	if roles.upserts != 0 {
		t.Fatalf("resolution must be read-only, got %d upserts", roles.upserts)
	}
}

func TestResolverAbsorbsLookupErrors(t *testing.T) {
	roles := newFakeRoles()
	roles.readErr = errors.New("connection refused")

	got := NewResolver(roles).Resolve(context.Background(), "user-1")
	if got != models.RoleCustomer {
		t.Fatalf("expected customer on lookup failure, got %q", got)
	}
}
