package authstate

import (
	"testing"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

func snapshotFor(identity string, role models.Role, resolved, loading bool) Snapshot {
	snap := Snapshot{Role: role, RoleResolved: resolved, Loading: loading}
	if identity != "" {
		snap.Identity = &models.Identity{UserID: identity}
		snap.Session = &models.Session{UserID: identity}
	}
	return snap
}

func TestGuardEvaluate(t *testing.T) {
	admin := RequireRoles(models.RoleAdmin)
	anyAuth := Guard{}

	cases := []struct {
		name  string
		guard Guard
		snap  Snapshot
		want  Decision
	}{
		{"loading", admin, snapshotFor("", "", false, true), DecisionPending},
		{"loading with identity", admin, snapshotFor("u1", "", false, true), DecisionPending},
		{"unauthenticated", admin, snapshotFor("", "", false, false), DecisionSignIn},
		{"pending role", admin, snapshotFor("u1", "", false, false), DecisionPending},
		{"wrong role", admin, snapshotFor("u1", models.RoleCustomer, true, false), DecisionDenied},
		{"allowed role", admin, snapshotFor("u1", models.RoleAdmin, true, false), DecisionAllow},
		{"no allow-list, unresolved role", anyAuth, snapshotFor("u1", "", false, false), DecisionAllow},
		{"no allow-list, unauthenticated", anyAuth, snapshotFor("", "", false, false), DecisionSignIn},
	}

	for _, tt := range cases {
		if got := tt.guard.Evaluate(tt.snap); got != tt.want {
			t.Fatalf("%s: Evaluate()=%v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestGuardNeverDeniesBeforeRoleResolves(t *testing.T) {
	guard := RequireRoles(models.RoleAdmin, models.RoleSeller)

	// The window between identity arrival and role resolution must read
	// as pending, not as a denial.
	snap := snapshotFor("u1", "", false, false)
	if got := guard.Evaluate(snap); got != DecisionPending {
		t.Fatalf("expected pending during unresolved-role window, got %v", got)
	}

	snap = snapshotFor("u1", models.RoleAdmin, true, false)
	if got := guard.Evaluate(snap); got != DecisionAllow {
		t.Fatalf("expected allow once resolved, got %v", got)
	}
}
