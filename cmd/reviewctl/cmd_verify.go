package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"debate-platform-backend/internal/features/verification/models"
)

var refreshStatus bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify ownership of a social profile",
	Long: `Verification runs in two steps:
  start  - get a short code to place on the profile
  submit - send the profile URL for admin review

Supported platforms: ` + platformList(),
}

var verifyStartCmd = &cobra.Command{
	Use:   "start <platform>",
	Short: "Issue a verification code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		challenge, err := session.flow.Start(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(session.out, "Code: %s (valid until %s)\n\n%s\n",
			challenge.Code, challenge.ExpiresAt.Local().Format("15:04"), challenge.Instructions)
		return nil
	},
}

var verifySubmitCmd = &cobra.Command{
	Use:   "submit <platform> <profile-url>",
	Short: "Submit the profile URL for review",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		if _, ok, err := session.flow.PendingCode(ctx, args[0]); err == nil && !ok {
			fmt.Fprintln(session.out, "No local code for this platform; the server will check its own.")
		}

		req, err := session.flow.Submit(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return session.print(req)
	},
}

var verifyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-platform verification status",
	RunE: func(cmd *cobra.Command, args []string) error {
		if refreshStatus {
			if err := session.store.InvalidateProfile(commandContext(cmd)); err != nil {
				return err
			}
		}
		overview, err := session.flow.Status(commandContext(cmd))
		if err != nil {
			return err
		}
		for _, p := range models.Platforms() {
			state := overview.VerificationStatus[p]
			line := fmt.Sprintf("%-10s %s", p, state.Status)
			if link := overview.SocialLinks[p]; link != "" {
				line += "  " + link
			}
			fmt.Fprintln(session.out, line)
		}
		return nil
	},
}

func platformList() string {
	names := make([]string, 0, len(models.Platforms()))
	for _, p := range models.Platforms() {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func init() {
	verifyCmd.AddCommand(verifyStartCmd)
	verifyCmd.AddCommand(verifySubmitCmd)
	verifyCmd.AddCommand(verifyStatusCmd)

	verifyStatusCmd.Flags().BoolVar(&refreshStatus, "refresh", false, "Ignore the local mirror and ask the server")
}
