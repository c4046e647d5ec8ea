// Package cli is the nextory-dl command tree.
package cli

import (
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/handiism/nextory-downloader/internal/config"
)

// app is the state shared by every command.
type app struct {
	configPath string
	verbose    bool

	settings *config.Settings
	logger   *slog.Logger
	printer  *printer
}

// NewRootCmd builds the nextory-dl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "nextory-dl",
		Short: "Download your Nextory library",
		Long: `nextory-dl downloads e-books and audiobooks from a Nextory account.

It activates saved books, downloads the active library, and can sweep
new releases, categories and views. Audiobooks are tagged with title,
author and cover art.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.init(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to settings file (default "+config.DefaultPath()+")")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Show verbose output")

	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newSyncCmd(a))
	cmd.AddCommand(newHistoryCmd(a))

	return cmd
}

func (a *app) init(out, errOut io.Writer) error {
	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}

	settings, err := config.Load(path)
	if err != nil {
		return err
	}
	a.settings = settings

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	a.printer = newPrinter(out, a.verbose)
	return nil
}
