package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopit-io/shopit/internal/client"
)

type loginConfig struct {
	email    string
	password string
	redirect string
}

func newLoginCmd(root *rootConfig) *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, root, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password")
	cmd.Flags().StringVar(&cfg.redirect, "redirect", "", "requested post-login destination")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func runLogin(cmd *cobra.Command, root *rootConfig, cfg *loginConfig) error {
	flow, err := root.flow()
	if err != nil {
		return err
	}
	flow.Redirect = cfg.redirect
	flow.OnState = func(s client.State) {
		if s == client.StateSubmitting {
			cmd.Println("Logging in...")
		}
	}

	session, err := flow.Login(cmd.Context(), cfg.email, cfg.password)
	if err != nil {
		if errors.Is(err, client.ErrAlreadyAuthenticated) {
			cmd.Println("Already logged in; run 'shopit logout' first.")
			return nil
		}
		return fmt.Errorf("login failed: %w", err)
	}

	cmd.Printf("Logged in as %s <%s>\n", session.User.Name, session.User.Email)
	cmd.Printf("Continue at %s\n", flow.Destination())
	return nil
}
