package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handiism/nextory-downloader/internal/config"
	"github.com/handiism/nextory-downloader/internal/download"
	"github.com/handiism/nextory-downloader/internal/history"
)

type syncFlags struct {
	active        bool
	inactive      bool
	newReleases   bool
	categories    []string
	views         []string
	markCompleted bool
	forceFetch    bool
	username      string
	password      string
	concurrency   int
	output        string
	sort          string
}

func newSyncCmd(a *app) *cobra.Command {
	f := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Activate and download books",
		Long: `Downloads books from your library and the catalogue.

By default the saved (inactive) books are activated and downloaded,
then the active library. New releases, categories and views are
opt-in. Files already on disk are never downloaded again.`,
		Example: `  # Download saved and active books
  nextory-dl sync --output ~/Books

  # Also download a category, sorted by publication date
  nextory-dl sync -c "tttl_dynamic_2005$$ver_38" --sort published_date

  # Every category of a view, four books at a time
  nextory-dl sync --view series --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applySyncFlags(cmd, a.settings, f)
			if err := a.settings.Validate(); err != nil {
				return err
			}
			return a.sync(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&f.active, "active", true, "Download all active books")
	flags.BoolVar(&f.inactive, "inactive", true, "Activate and download all saved books")
	flags.BoolVar(&f.newReleases, "new", false, "Download new releases")
	flags.StringSliceVarP(&f.categories, "category", "c", nil, "Category to download (repeatable)")
	flags.StringSliceVar(&f.views, "view", nil, "View whose categories to download (repeatable)")
	flags.BoolVar(&f.markCompleted, "mark-completed", true, "Mark downloaded books as completed")
	flags.BoolVar(&f.forceFetch, "force-fetch", false, "Ignore the saved token and log in again")
	flags.StringVar(&f.username, "username", "", "Account username")
	flags.StringVar(&f.password, "password", "", "Account password")
	flags.IntVar(&f.concurrency, "concurrency", 1, "Books downloaded at the same time")
	flags.StringVarP(&f.output, "output", "o", "", "Output directory (overrides config)")
	flags.StringVar(&f.sort, "sort", "relevance", "Category sort: relevance, published_date, average_rating, title, authors, volume")

	return cmd
}

// applySyncFlags overrides settings with the flags set on the command line.
func applySyncFlags(cmd *cobra.Command, s *config.Settings, f *syncFlags) {
	changed := cmd.Flags().Changed
	if changed("active") {
		s.DownloadActive = f.active
	}
	if changed("inactive") {
		s.DownloadInactive = f.inactive
	}
	if changed("new") {
		s.DownloadNewReleases = f.newReleases
	}
	if changed("category") {
		s.Categories = f.categories
	}
	if changed("view") {
		s.Views = f.views
	}
	if changed("mark-completed") {
		s.MarkCompleted = f.markCompleted
	}
	if changed("concurrency") {
		s.MaxConcurrentDownloads = f.concurrency
	}
	if changed("output") {
		s.DownloadsPath = f.output
	}
	if changed("sort") {
		s.Sort = f.sort
	}
}

func (a *app) sync(ctx context.Context, f *syncFlags) error {
	a.printer.title("Nextory Downloader")

	session, err := a.openSession(ctx, f.forceFetch, f.username, f.password)
	if err != nil {
		return err
	}

	manager, err := download.NewManager(a.settings, a.printer.event)
	if err != nil {
		return err
	}

	var runID string
	if a.settings.HistoryPath != "" {
		store, err := history.Open(a.settings.HistoryPath)
		if err != nil {
			a.logger.Warn("history disabled", "error", err)
		} else {
			defer store.Close()
			run, err := store.StartRun(ctx, describeSweeps(a.settings))
			if err != nil {
				a.logger.Warn("history disabled", "error", err)
			} else {
				runID = run.ID
				manager.SetRecorder(store.Recorder(run.ID))
				defer func() {
					if err := store.FinishRun(context.WithoutCancel(ctx), run.ID); err != nil {
						a.logger.Warn("could not finish run", "run", run.ID, "error", err)
					}
				}()
			}
		}
	}

	a.printer.println(infoStyle.Render("Saving to " + a.settings.DownloadsPath))
	report, runErr := manager.Run(ctx, session)
	a.printer.report(report)
	if runID != "" {
		a.printer.println(verboseStyle.Render("Run " + runID))
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("sync cancelled: %w", ctx.Err())
		}
		return runErr
	}
	return nil
}

func describeSweeps(s *config.Settings) string {
	parts := []string{"sync"}
	if s.DownloadInactive {
		parts = append(parts, "inactive")
	}
	if s.DownloadActive {
		parts = append(parts, "active")
	}
	if s.DownloadNewReleases {
		parts = append(parts, "new")
	}
	for _, c := range s.Categories {
		parts = append(parts, "category="+c)
	}
	for _, v := range s.Views {
		parts = append(parts, "view="+v)
	}
	return strings.Join(parts, " ")
}
