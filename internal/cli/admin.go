package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Marketplace administration",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List registered users and their roles",
	RunE:  runAdminUsers,
}

var adminStoresCmd = &cobra.Command{
	Use:   "stores",
	Short: "List all stores, including unverified ones",
	RunE:  runAdminStores,
}

var adminVerifyCmd = &cobra.Command{
	Use:   "verify <store-id>",
	Short: "Verify a store so it appears in the public catalogue",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminVerify,
}

var adminRejectCmd = &cobra.Command{
	Use:   "reject <store-id>",
	Short: "Revoke a store's verification",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminReject,
}

var adminSetRoleCmd = &cobra.Command{
	Use:   "set-role <user-id> <role>",
	Short: "Assign a role (admin, seller, customer) to a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdminSetRole,
}

func init() {
	adminCmd.AddCommand(adminUsersCmd, adminStoresCmd, adminVerifyCmd, adminRejectCmd, adminSetRoleCmd)
	rootCmd.AddCommand(adminCmd)
}

func runAdminUsers(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleAdmin); err != nil {
		return err
	}
	users, err := a.client.AdminListUsers(cmd.Context())
	if err != nil {
		return err
	}
	for _, user := range users {
		role := string(user.Role)
		if !user.Explicit {
			role += " (default)"
		}
		fmt.Printf("%s  %-30s %s\n", user.Identity.UserID, user.Identity.Email, role)
	}
	return nil
}

func runAdminStores(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleAdmin); err != nil {
		return err
	}
	stores, err := a.client.AdminListStores(cmd.Context())
	if err != nil {
		return err
	}
	for _, sf := range stores {
		status := "pending"
		if sf.Verified {
			status = "verified"
		}
		fmt.Printf("%s  %-10s %s", sf.StoreID, status, sf.Name)
		if sf.OwnerEmail != "" {
			fmt.Printf("  <%s>", sf.OwnerEmail)
		}
		fmt.Println()
	}
	return nil
}

func runAdminVerify(cmd *cobra.Command, args []string) error {
	return setStoreVerified(cmd, args[0], true)
}

func runAdminReject(cmd *cobra.Command, args []string) error {
	return setStoreVerified(cmd, args[0], false)
}

func setStoreVerified(cmd *cobra.Command, storeID string, verified bool) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleAdmin); err != nil {
		return err
	}
	sf, err := a.client.AdminVerifyStore(cmd.Context(), storeID, verified)
	if err != nil {
		return err
	}
	if sf.Verified {
		fmt.Printf("store %s is now verified\n", sf.Name)
	} else {
		fmt.Printf("store %s is no longer verified\n", sf.Name)
	}
	return nil
}

func runAdminSetRole(cmd *cobra.Command, args []string) error {
	userID, role := args[0], models.Role(args[1])
	if !models.ValidRole(role) {
		return fmt.Errorf("unknown role %q: want admin, seller or customer", role)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleAdmin); err != nil {
		return err
	}
	if err := a.provider.UpdateRole(cmd.Context(), userID, role); err != nil {
		return err
	}
	fmt.Printf("user %s is now %s\n", userID, role)
	return nil
}
