package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopit-io/shopit/internal/client"
)

type registerConfig struct {
	name      string
	email     string
	password  string
	avatarURL string
}

func newRegisterCmd(root *rootConfig) *cobra.Command {
	cfg := &registerConfig{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegister(cmd, root, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.name, "name", "", "display name")
	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password")
	cmd.Flags().StringVar(&cfg.avatarURL, "avatar", "", "avatar image URL (optional)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func runRegister(cmd *cobra.Command, root *rootConfig, cfg *registerConfig) error {
	flow, err := root.flow()
	if err != nil {
		return err
	}
	flow.OnState = func(s client.State) {
		if s == client.StateSubmitting {
			cmd.Println("Creating account...")
		}
	}

	session, err := flow.Register(cmd.Context(), cfg.name, cfg.email, cfg.password, cfg.avatarURL)
	if err != nil {
		if errors.Is(err, client.ErrAlreadyAuthenticated) {
			cmd.Println("Already logged in; run 'shopit logout' first.")
			return nil
		}
		return fmt.Errorf("registration failed: %w", err)
	}

	cmd.Printf("Account created for %s <%s>\n", session.User.Name, session.User.Email)
	return nil
}
