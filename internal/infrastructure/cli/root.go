// Package cli wires the cobra command tree over the application container.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/aibridge/internal/app"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:   "aibridge",
		Short: "aibridge - route chat messages to AI backends",
		Long: "aibridge routes chat messages to AI backends across two layers:\n" +
			"provider APIs for conversation and local CLI coding agents for\n" +
			"project work. Prefixes like @claude or @gemini-cli force a backend;\n" +
			"unprefixed messages are routed by intent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newChatCommand(container))
	root.AddCommand(newSendCommand(container))
	root.AddCommand(newDoctorCommand(container))
	root.AddCommand(newSessionsCommand(container))
	root.AddCommand(newHistoryCommand(container))
	return root, nil
}

func newChatCommand(container *app.Container) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "aibridge chat. Type /help for commands, exit to quit.")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}
				reply, err := container.ChatService.HandleMessage(cmd.Context(), user, "", line)
				if err != nil {
					fmt.Fprintln(out, "error:", err)
					continue
				}
				fmt.Fprintln(out, reply.Text)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "local", "User ID for session scoping")
	return cmd
}
