package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopit-io/shopit/internal/client"
)

func newLogoutCmd(root *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := root.sessionStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			cmd.Println("Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(root *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := root.sessionStore()
			if err != nil {
				return err
			}

			session, err := store.Load()
			if err != nil {
				if errors.Is(err, client.ErrNoSession) {
					cmd.Println("Not logged in.")
					return nil
				}
				return err
			}
			if session.Expired(time.Now()) {
				cmd.Println("Session expired; run 'shopit login'.")
				return nil
			}

			// Confirm against the server rather than trusting the local copy.
			user, err := client.New(root.apiURL).Me(cmd.Context(), session.Token)
			if err != nil {
				return fmt.Errorf("session check failed: %w", err)
			}

			cmd.Printf("%s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
}
