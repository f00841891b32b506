package main

import (
	"github.com/spf13/cobra"

	"github.com/shopit-io/shopit/internal/client"
)

// rootConfig holds the flags shared by every subcommand.
type rootConfig struct {
	apiURL      string
	sessionPath string
}

func newRootCmd() *cobra.Command {
	cfg := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "shopit",
		Short:         "ShopIT session client",
		Long:          `Command-line client for the ShopIT auth API. Sessions are persisted locally and reused until they expire or you log out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfg.apiURL, "api", "http://localhost:4001", "base URL of the ShopIT API")
	cmd.PersistentFlags().StringVar(&cfg.sessionPath, "session-file", "", "path of the session file (default ~/.shopit/session.json)")

	cmd.AddCommand(
		newLoginCmd(cfg),
		newRegisterCmd(cfg),
		newLogoutCmd(cfg),
		newWhoamiCmd(cfg),
		newForgotPasswordCmd(cfg),
		newResetPasswordCmd(cfg),
	)

	return cmd
}

func (cfg *rootConfig) sessionStore() (*client.SessionStore, error) {
	path := cfg.sessionPath
	if path == "" {
		var err error
		path, err = client.DefaultSessionPath()
		if err != nil {
			return nil, err
		}
	}
	return client.NewSessionStore(path), nil
}

func (cfg *rootConfig) flow() (*client.Flow, error) {
	store, err := cfg.sessionStore()
	if err != nil {
		return nil, err
	}
	return client.NewFlow(client.New(cfg.apiURL), store), nil
}
