package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudvault/cloudvault-go/internal/api"
	"github.com/cloudvault/cloudvault-go/internal/config"
	"github.com/cloudvault/cloudvault-go/internal/credstore"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagServer     string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Resolved

// userAgent identifies this client on every request.
var userAgent = "cloudvault/" + version

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cloudvault",
		Short:   "CloudVault CLI client",
		Long:    "A command-line client for the CloudVault file storage service.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		// PersistentPreRunE loads configuration before every command. Every
		// command needs at least the server URL, so there is no skip list.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagServer, "server", "", "server base URL (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newPasswdCmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newTreeCmd())
	cmd.AddCommand(newContentsCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newBulkMoveCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newRecentCmd())
	cmd.AddCommand(newStorageCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newPlansCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newSubscriptionCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and stores the result in resolvedCfg for use by subcommands.
func loadConfig() error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		ServerURL:  flagServer,
	}

	env := config.ReadEnvOverrides()

	resolved, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	// CLI flags override config (highest priority).
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newAPIClient wires the credential store into an API client using the
// resolved configuration. When authentication becomes unrecoverable the
// client clears the saved credentials; we also tell the user.
func newAPIClient(logger *slog.Logger) *api.Client {
	store := credstore.New(resolvedCfg.CredentialsPath)

	httpClient := &http.Client{Timeout: resolvedCfg.Timeout}

	ua := resolvedCfg.UserAgent
	if ua == "" {
		ua = userAgent
	}

	client := api.NewClient(resolvedCfg.BaseURL, httpClient, store, logger)
	client.SetUserAgent(ua)
	client.SetChunkSize(resolvedCfg.ChunkSize)

	logger.Debug("api client ready", "base_url", client.BaseURL())

	client.OnUnauthorized(func() {
		statusf("Session expired. Run 'cloudvault login' to sign in again.\n")
	})

	return client
}

// requireLogin returns a ready client, or an error if no credentials are
// saved. Commands that talk to the API call this first.
func requireLogin(logger *slog.Logger) (*api.Client, error) {
	client := newAPIClient(logger)
	if !client.LoggedIn() {
		return nil, fmt.Errorf("not logged in — run 'cloudvault login' first")
	}

	return client, nil
}

// exitOnError prints a user-friendly error message to stderr and exits.
// API errors are normalized to their display message.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", api.ErrorMessage(err))
	os.Exit(1)
}
