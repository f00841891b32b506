package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopit-io/shopit/internal/client"
)

func newForgotPasswordCmd(root *rootConfig) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password-reset email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			message, err := client.New(root.apiURL).ForgotPassword(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			cmd.Println(message)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.MarkFlagRequired("email")

	return cmd
}

func newResetPasswordCmd(root *rootConfig) *cobra.Command {
	var (
		token           string
		password        string
		confirmPassword string
	)

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using an emailed reset token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := client.New(root.apiURL).ResetPassword(cmd.Context(), token, password, confirmPassword)
			if err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}

			store, err := root.sessionStore()
			if err != nil {
				return err
			}
			session := &client.Session{Token: resp.Token}
			if resp.User != nil {
				session.User = *resp.User
			}
			if err := store.Save(session); err != nil {
				return fmt.Errorf("password reset but session could not be saved: %w", err)
			}

			cmd.Println("Password updated; you are logged in.")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "reset token from the email")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().StringVar(&confirmPassword, "confirm-password", "", "new password, again")
	cmd.MarkFlagRequired("token")
	cmd.MarkFlagRequired("password")
	cmd.MarkFlagRequired("confirm-password")

	return cmd
}
