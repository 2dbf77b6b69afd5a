package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	signupEmail    string
	signupPassword string
	signupName     string
	loginEmail     string
	loginPassword  string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new account",
	RunE:  runSignup,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the session",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and drop the persisted session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity and role",
	RunE:  runWhoami,
}

func init() {
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "account email")
	signupCmd.Flags().StringVar(&signupPassword, "password", "", "account password (prompted when omitted)")
	signupCmd.Flags().StringVar(&signupName, "name", "", "full name")
	_ = signupCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)
}

func runSignup(cmd *cobra.Command, args []string) error {
	password, err := passwordOrPrompt(signupPassword)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.provider.SignUp(cmd.Context(), signupEmail, password, signupName); err != nil {
		return err
	}
	fmt.Printf("account created for %s; run `marketplace-cli login` to sign in\n", signupEmail)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	password, err := passwordOrPrompt(loginPassword)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.provider.SignIn(cmd.Context(), loginEmail, password); err != nil {
		return err
	}
	snap, err := a.provider.WaitUntilRoleResolved(cmd.Context())
	if err != nil {
		return err
	}
	if err := saveToken(a.provider.Token()); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	fmt.Printf("signed in as %s (%s)\n", snap.Identity.Email, snap.Role)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	a.provider.SignOut(cmd.Context())
	if err := clearToken(); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.provider.WaitUntilRoleResolved(cmd.Context())
	if err != nil {
		return err
	}
	if !snap.Authenticated() {
		fmt.Println("not signed in")
		return nil
	}
	fmt.Printf("user:  %s\n", snap.Identity.Email)
	if snap.Identity.FullName != "" {
		fmt.Printf("name:  %s\n", snap.Identity.FullName)
	}
	fmt.Printf("role:  %s\n", snap.Role)
	if snap.Session != nil {
		fmt.Printf("until: %s\n", snap.Session.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func passwordOrPrompt(password string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	password = strings.TrimSpace(line)
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return password, nil
}
