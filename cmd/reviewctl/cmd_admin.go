package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"debate-platform-backend/internal/client/api"
	"debate-platform-backend/internal/features/verification/models"
)

var (
	requestStatus string
	requestPage   int
	requestLimit  int
	rejectReason  string
	userStatus    string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Review queue and user moderation (admins only)",
}

var adminRequestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List verification requests, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := session.flow.Requests(commandContext(cmd), requestStatus, requestPage, requestLimit)
		if err != nil {
			return err
		}
		for _, r := range page.Items {
			fmt.Fprintf(session.out, "%-28s %-9s %s  %s\n",
				r.ID, r.Status, r.SubmittedAt.Local().Format("2006-01-02 15:04"), r.ProfileURL)
		}
		fmt.Fprintf(session.out, "page %d/%d, %d total\n", page.CurrentPage, page.TotalPages, page.Total)
		return nil
	},
}

var adminApproveCmd = &cobra.Command{
	Use:   "approve <request-id>",
	Short: "Approve a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := session.flow.Approve(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return session.print(req)
	},
}

var adminRejectCmd = &cobra.Command{
	Use:   "reject <request-id>",
	Short: "Reject a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := session.flow.Reject(commandContext(cmd), args[0], rejectReason)
		if err != nil {
			return err
		}
		return session.print(req)
	},
}

var adminWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow verification events live",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := session.client.Stream(commandContext(cmd), "/admin/verification-requests/stream", func(e api.Event) error {
			if e.Name != "verification" {
				return nil
			}
			var event models.Event
			if err := json.Unmarshal(e.Data, &event); err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			fmt.Fprintf(session.out, "%s %-9s %s\n", event.At.Local().Format("15:04:05"), event.Type, event.RequestID)
			return nil
		})
		if commandContext(cmd).Err() != nil {
			return nil
		}
		return err
	},
}

var adminUsersCmd = &cobra.Command{
	Use:   "users [search]",
	Short: "List users",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		search := ""
		if len(args) == 1 {
			search = args[0]
		}
		return printList(cmd, "/admin/users", "admin-users", search, nil)
	},
}

var adminSetStatusCmd = &cobra.Command{
	Use:   "set-status <user-id>",
	Short: "Ban or unban a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var user map[string]any
		err := session.client.Put(commandContext(cmd), "/admin/users/"+url.PathEscape(args[0])+"/status", map[string]string{"status": userStatus}, &user)
		if err != nil {
			return err
		}
		return session.print(user)
	},
}

func init() {
	adminRequestsCmd.Flags().StringVar(&requestStatus, "status", "pending", "pending or rejected; empty for all")
	adminRequestsCmd.Flags().IntVar(&requestPage, "page", 1, "Page number")
	adminRequestsCmd.Flags().IntVar(&requestLimit, "limit", 10, "Page size")
	adminRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Shown to the user")
	adminSetStatusCmd.Flags().StringVar(&userStatus, "status", "banned", "active or banned")

	adminCmd.AddCommand(adminRequestsCmd)
	adminCmd.AddCommand(adminApproveCmd)
	adminCmd.AddCommand(adminRejectCmd)
	adminCmd.AddCommand(adminWatchCmd)
	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminSetStatusCmd)
}
