// reviewctl is the command line client of the debate platform API.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"debate-platform-backend/internal/client/api"
	"debate-platform-backend/internal/client/feed"
	"debate-platform-backend/internal/client/localstore"
	"debate-platform-backend/internal/client/verification"
	"debate-platform-backend/internal/common/config"
	"debate-platform-backend/internal/common/logger"
)

var (
	verbose   bool
	baseURL   string
	statePath string
	timeout   time.Duration

	// заполняется в PersistentPreRunE
	session *app
)

type app struct {
	cfg    *config.ClientConfig
	client *api.Client
	store  *localstore.Store
	cache  *feed.QueryCache
	flow   *verification.Workflow
	out    io.Writer
}

func (a *app) close() {
	a.client.Close()
	if err := a.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close local state")
	}
}

// print writes v as indented JSON.
func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var rootCmd = &cobra.Command{
	Use:           "reviewctl",
	Short:         "Debate platform API client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.InitWithWriter(os.Stderr, "reviewctl", verbose)

		cfg, err := config.LoadClient()
		if err != nil {
			return err
		}
		if baseURL != "" {
			cfg.APIBaseURL = baseURL
		}
		if statePath != "" {
			cfg.StatePath = statePath
		}
		if timeout > 0 {
			cfg.RequestTimeout = timeout
		}

		store, err := localstore.Open(cfg.StatePath, cfg.ProfileTTL)
		if err != nil {
			return err
		}
		client := api.NewFromConfig(cfg, store)

		session = &app{
			cfg:    cfg,
			client: client,
			store:  store,
			cache:  feed.NewQueryCache(client),
			flow:   verification.NewWorkflow(client, store),
			out:    cmd.OutOrStdout(),
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if session != nil {
			session.close()
			session = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&baseURL, "api", "", "API base URL (or set API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "Local state database (or set REVIEWCTL_DB)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (or set API_TIMEOUT)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(topicsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		if session != nil {
			session.close()
		}
		cancel()
		os.Exit(1)
	}
}

func describe(err error) string {
	var apiErr *api.Error
	switch {
	case stderrors.Is(err, api.ErrUnauthorized):
		return "session expired, run `reviewctl login`"
	case stderrors.As(err, &apiErr) && apiErr.RequestID != "":
		return fmt.Sprintf("%s (request %s)", apiErr.Error(), apiErr.RequestID)
	default:
		return err.Error()
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
