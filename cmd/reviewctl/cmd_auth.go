package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"debate-platform-backend/internal/client/api"
)

var initData string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with Telegram Mini App init data",
	Long: `Exchanges raw Telegram init data for an access/refresh token pair.

The pair is kept in the local state database and refreshed on demand.
Init data comes from --init-data or TELEGRAM_INIT_DATA.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.TrimSpace(initData)
		if raw == "" {
			raw = strings.TrimSpace(os.Getenv("TELEGRAM_INIT_DATA"))
		}
		if raw == "" {
			return fmt.Errorf("init data is required")
		}

		var user map[string]any
		if _, err := session.client.LoginTelegram(commandContext(cmd), raw, &user); err != nil {
			return err
		}
		return session.print(user)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the refresh token and forget the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return session.client.Logout(commandContext(cmd))
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the current user with verification status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var me map[string]any
		if err := session.client.Get(commandContext(cmd), "/users/me", nil, &me); err != nil {
			return err
		}
		return session.print(me)
	},
}

var photoCmd = &cobra.Command{
	Use:   "photo <file>",
	Short: "Upload a profile photo (JPEG, PNG or WebP, up to 2 MB)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		var me map[string]any
		err = session.client.PostMultipart(commandContext(cmd), "/users/me/photo", nil, []api.File{
			{Field: "photo", Name: filepath.Base(args[0]), Content: f},
		}, &me)
		if err != nil {
			return err
		}
		return session.print(me)
	},
}

func init() {
	loginCmd.Flags().StringVar(&initData, "init-data", "", "Raw Telegram init data")
	meCmd.AddCommand(photoCmd)
}
