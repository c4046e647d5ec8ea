package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/nextory-downloader/internal/nextory"
	"github.com/handiism/nextory-downloader/internal/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		Long: `Logs in with your Nextory credentials, switches to the active
sub-account, and saves the session token for later runs.

Credentials can also come from the settings file or the
NEXTORY_USERNAME and NEXTORY_PASSWORD environment variables.`,
		Example: `  nextory-dl login --username me@example.com --password secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := session.NewStore(a.settings.TokenPath)
			if _, err := a.login(cmd.Context(), store, username, password); err != nil {
				return err
			}
			a.printer.println(successStyle.Render("Logged in. Token saved to " + store.Path()))
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account username")
	cmd.Flags().StringVar(&password, "password", "", "Account password")

	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.NewStore(a.settings.TokenPath).Clear(); err != nil {
				return err
			}
			a.printer.println(infoStyle.Render("Logged out"))
			return nil
		},
	}
}

// openSession returns the saved session, or logs in when there is none or
// forceLogin is set.
func (a *app) openSession(ctx context.Context, forceLogin bool, username, password string) (*nextory.Session, error) {
	store := session.NewStore(a.settings.TokenPath)

	if forceLogin {
		if err := store.Clear(); err != nil {
			return nil, err
		}
	}

	s, err := store.Load()
	if err == nil {
		a.logger.Debug("using saved session", "path", store.Path())
		return s, nil
	}
	if !errors.Is(err, session.ErrNoSession) {
		return nil, err
	}
	return a.login(ctx, store, username, password)
}

func (a *app) login(ctx context.Context, store *session.Store, username, password string) (*nextory.Session, error) {
	if username == "" {
		username = a.settings.Username
	}
	if password == "" {
		password = a.settings.Password
	}
	if username == "" || password == "" {
		return nil, errors.New("username and password are required: pass --username/--password or set NEXTORY_USERNAME/NEXTORY_PASSWORD")
	}

	client, err := a.settings.NewAPIClient()
	if err != nil {
		return nil, err
	}

	s, err := nextory.NewAuthenticator(client, a.logger).Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if err := store.Save(s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}
