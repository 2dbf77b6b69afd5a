// Package cli implements the marketplace command line client. It talks
// to the marketplace service over HTTP and keeps a signed-in session
// across invocations in a local token file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/authstate"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/authstate/httpbackend"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

var (
	serverURL   string
	sessionPath string
)

var rootCmd = &cobra.Command{
	Use:   "marketplace-cli",
	Short: "Client for the Banjarbaru UMKM marketplace",
	Long: `marketplace-cli browses the Banjarbaru UMKM marketplace and, once
signed in, manages your storefront. Sellers maintain their store and
products; admins verify stores and assign roles.`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command with ctx wired through to every
// backend call.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	server := os.Getenv("MARKETPLACE_URL")
	if server == "" {
		server = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", server, "marketplace service base URL")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session-file", "", "session token file (default ~/.marketplace/session)")
}

// app is the composition root for a single CLI invocation: one backend
// client, one session store, one auth provider.
type app struct {
	client   *httpbackend.Client
	sessions *authstate.SessionStore
	provider *authstate.Provider
}

// newApp builds the auth stack and restores any persisted session. It
// returns once the restore has settled, so callers can inspect the
// snapshot immediately.
func newApp(ctx context.Context) (*app, error) {
	client := httpbackend.New(serverURL)
	sessions := authstate.NewSessionStore(client)
	client.SetTokenSource(sessions.Token)
	provider := authstate.NewProvider(sessions, client)

	token, err := loadToken()
	if err != nil {
		provider.Close()
		return nil, err
	}
	provider.Restore(ctx, token)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	if _, err := provider.WaitUntilLoaded(waitCtx); err != nil {
		provider.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return &app{client: client, sessions: sessions, provider: provider}, nil
}

func (a *app) Close() {
	a.provider.Close()
}

var (
	errSignInRequired = errors.New("not signed in; run `marketplace-cli login` first")
	errAccessDenied   = errors.New("access denied: your account does not have the required role")
)

// requireRole waits for the role to settle, then gates on the guard.
func (a *app) requireRole(ctx context.Context, roles ...models.Role) (authstate.Snapshot, error) {
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	snap, err := a.provider.WaitUntilRoleResolved(waitCtx)
	if err != nil {
		return authstate.Snapshot{}, fmt.Errorf("resolve role: %w", err)
	}

	switch authstate.RequireRoles(roles...).Evaluate(snap) {
	case authstate.DecisionAllow:
		return snap, nil
	case authstate.DecisionSignIn:
		return authstate.Snapshot{}, errSignInRequired
	case authstate.DecisionDenied:
		return authstate.Snapshot{}, errAccessDenied
	default:
		return authstate.Snapshot{}, errors.New("auth state still settling, try again")
	}
}
