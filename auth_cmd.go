package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cloudvault/cloudvault-go/internal/api"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and save credentials",
		Args:  cobra.ExactArgs(1),
		RunE:  runLogin,
	}

	cmd.Flags().String("password", "", "password (prompted if omitted)")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <email> <username>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(2),
		RunE:  runRegister,
	}

	cmd.Flags().String("password", "", "password (prompted if omitted)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove saved credentials",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated user",
		RunE:  runWhoami,
	}
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the account profile",
		RunE:  runProfile,
	}

	cmd.Flags().String("username", "", "new display name")
	cmd.Flags().String("email", "", "new email address")

	return cmd
}

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the account password",
		RunE:  runPasswd,
	}
}

// readPassword prompts for a password on stderr and reads it without echo
// when stdin is a terminal. Piped input is read as a single line, which
// keeps scripted logins working.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)

		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}

		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// passwordFromFlagOrPrompt returns the --password flag value if set,
// otherwise prompts.
func passwordFromFlagOrPrompt(cmd *cobra.Command, prompt string) (string, error) {
	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return "", err
	}

	if password != "" {
		return password, nil
	}

	return readPassword(prompt)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email := args[0]
	ctx := cmd.Context()
	logger := buildLogger()

	password, err := passwordFromFlagOrPrompt(cmd, "Password: ")
	if err != nil {
		return err
	}

	client := newAPIClient(logger)

	resp, err := client.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("login failed: %s", api.ErrorMessage(err))
	}

	logger.Info("login successful", "email", resp.Email)
	statusf("Logged in as %s (%s)\n", resp.UserName, resp.Email)

	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	email, username := args[0], args[1]
	ctx := cmd.Context()
	logger := buildLogger()

	password, err := passwordFromFlagOrPrompt(cmd, "Password: ")
	if err != nil {
		return err
	}

	client := newAPIClient(logger)

	resp, err := client.Register(ctx, api.RegisterRequest{
		Email:    email,
		Password: password,
		UserName: username,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %s", api.ErrorMessage(err))
	}

	logger.Info("registration successful", "email", email)

	if resp.Message != "" {
		statusf("%s\n", resp.Message)
	} else {
		statusf("Account created. Run 'cloudvault login %s' to sign in.\n", email)
	}

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	client := newAPIClient(logger)

	if err := client.Logout(); err != nil {
		return err
	}

	logger.Info("logout successful")
	statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ID           int64  `json:"id"`
	UserName     string `json:"user_name"`
	Email        string `json:"email"`
	StorageUsed  int64  `json:"storage_used"`
	StorageLimit int64  `json:"storage_limit"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	user, err := client.Profile(ctx)
	if err != nil {
		// The profile is cached at login, so whoami still works offline.
		if cached := client.CachedUser(); cached != nil {
			logger.Debug("profile fetch failed, using cached copy", "error", err)
			user = cached
		} else {
			return fmt.Errorf("fetching profile: %w", err)
		}
	}

	if flagJSON {
		return printJSON(whoamiOutput{
			ID:           user.ID,
			UserName:     user.UserName,
			Email:        user.Email,
			StorageUsed:  user.StorageUsed,
			StorageLimit: user.StorageLimit,
		})
	}

	fmt.Printf("User:    %s (%s)\n", user.UserName, user.Email)
	fmt.Printf("Storage: %s / %s\n", formatSize(user.StorageUsed), formatSize(user.StorageLimit))

	return nil
}

func runProfile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	var req api.ProfileUpdateRequest

	if cmd.Flags().Changed("username") {
		v, flagErr := cmd.Flags().GetString("username")
		if flagErr != nil {
			return flagErr
		}

		req.UserName = &v
	}

	if cmd.Flags().Changed("email") {
		v, flagErr := cmd.Flags().GetString("email")
		if flagErr != nil {
			return flagErr
		}

		req.Email = &v
	}

	if req.UserName == nil && req.Email == nil {
		return fmt.Errorf("nothing to update: pass --username or --email")
	}

	user, err := client.UpdateProfile(ctx, req)
	if err != nil {
		return fmt.Errorf("updating profile: %s", api.ErrorMessage(err))
	}

	if flagJSON {
		return printJSON(whoamiOutput{
			ID:           user.ID,
			UserName:     user.UserName,
			Email:        user.Email,
			StorageUsed:  user.StorageUsed,
			StorageLimit: user.StorageLimit,
		})
	}

	statusf("Profile updated: %s (%s)\n", user.UserName, user.Email)

	return nil
}

func runPasswd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	current, err := readPassword("Current password: ")
	if err != nil {
		return err
	}

	next, err := readPassword("New password: ")
	if err != nil {
		return err
	}

	confirm, err := readPassword("Confirm new password: ")
	if err != nil {
		return err
	}

	if next != confirm {
		return fmt.Errorf("passwords do not match")
	}

	resp, err := client.ChangePassword(ctx, api.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return fmt.Errorf("changing password: %s", api.ErrorMessage(err))
	}

	if resp.Message != "" {
		statusf("%s\n", resp.Message)
	} else {
		statusf("Password changed.\n")
	}

	return nil
}
