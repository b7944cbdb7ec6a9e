package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AsfandAhmad/Study-ChatBot/internal/cli"
	"github.com/AsfandAhmad/Study-ChatBot/internal/logging"
)

func newChatCmd() *cobra.Command {
	var (
		server    string
		ownerID   string
		sessionID string
		watch     bool
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the tutor from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.NewWithOutput(os.Stderr, logLevel, "text")
			if err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = "cli_" + uuid.New().String()[:8]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client := cli.NewClient(server, ownerID, sessionID)
			repl := cli.NewREPL(client, cmd.OutOrStdout(), log)

			fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s as %s (session %s)\n", server, ownerID, sessionID)
			if watch {
				watchCtx, cancelWatch := context.WithCancel(ctx)
				defer cancelWatch()
				done, err := client.Watch(watchCtx, "", repl.OnChange)
				if err != nil {
					log.WithError(err).Warn("live updates unavailable")
				} else {
					go func() {
						if err := <-done; err != nil {
							log.WithError(err).Warn("live updates stopped")
						}
					}()
				}
			}

			if err := repl.Run(ctx, cmd.InOrStdin()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "tutor API address")
	cmd.Flags().StringVar(&ownerID, "owner", defaultOwner(), "student id")
	cmd.Flags().StringVar(&sessionID, "session", "", "client session id (random when empty)")
	cmd.Flags().BoolVar(&watch, "watch", true, "show messages written from other sessions")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "client log level")
	return cmd
}

func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "student"
}
