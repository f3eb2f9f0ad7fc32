package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/aibridge/internal/app"
	"github.com/doeshing/aibridge/internal/domain"
)

func newSendCommand(container *app.Container) *cobra.Command {
	var (
		user      string
		messageID string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			reply, err := container.ChatService.HandleMessage(cmd.Context(), user, messageID, text)
			if err != nil {
				return err
			}
			if reply.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "duplicate message, skipped")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "local", "User ID for session scoping")
	cmd.Flags().StringVar(&messageID, "message-id", "", "Transport message ID for deduplication")
	return cmd
}

func newDoctorCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose environment setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := container.DoctorService.Run(cmd.Context())
			renderDoctorReport(cmd.OutOrStdout(), report)
			return err
		},
	}
}

func renderDoctorReport(w io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(w, "[%s] %s: %s\n", check.Status, check.Name, check.Details)
	}
	if report.Healthy() {
		fmt.Fprintln(w, "All checks passed.")
	} else {
		fmt.Fprintln(w, "Some checks failed, see above.")
	}
}

func newSessionsCommand(container *app.Container) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage chat sessions",
	}

	var user string
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show the user's current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := container.Sessions.GetSessionInfo(user)
			if !info.Exists {
				fmt.Fprintln(cmd.OutOrStdout(), "no active session")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s: %d messages, created %s, last active %s\n",
				info.SessionID,
				info.MessageCount,
				time.Unix(info.CreatedAt, 0).Format(time.RFC3339),
				time.Unix(info.LastActive, 0).Format(time.RFC3339))
			return nil
		},
	}
	infoCmd.Flags().StringVarP(&user, "user", "u", "local", "User ID")

	var resetUser string
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Archive the user's session and start fresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			session := container.Sessions.ResetSession(resetUser)
			fmt.Fprintf(cmd.OutOrStdout(), "new session %s\n", session.SessionID)
			return nil
		},
	}
	resetCmd.Flags().StringVarP(&resetUser, "user", "u", "local", "User ID")

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Archive and remove all expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed := container.Sessions.CleanupExpiredSessions()
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired session(s)\n", removed)
			return nil
		},
	}

	sessionsCmd.AddCommand(infoCmd, resetCmd, cleanupCmd)
	return sessionsCmd
}

func newHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the exchange audit log",
	}

	var limit int
	var search string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent exchanges",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := container.HistoryStore.Records(limit, search)
			if err != nil {
				return err
			}
			for _, rec := range records {
				status := "ok"
				if !rec.Success {
					status = "failed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s | %s | %s | %s | %dms\n",
					rec.Timestamp.Format(time.RFC3339),
					rec.UserID,
					rec.Provider,
					status,
					rec.DurationMS)
			}
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Max entries to show")
	listCmd.Flags().StringVar(&search, "search", "", "Filter by user or provider")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all exchange entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.HistoryStore.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}

	historyCmd.AddCommand(listCmd, clearCmd)
	return historyCmd
}
