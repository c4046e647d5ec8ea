package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/nextory-downloader/internal/history"
	"github.com/handiism/nextory-downloader/internal/model"
)

func newHistoryCmd(a *app) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the outcome of the last sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(a.settings.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.LastRun(cmd.Context())
			if errors.Is(err, history.ErrNoRuns) {
				a.printer.println("No syncs recorded yet")
				return nil
			}
			if err != nil {
				return err
			}

			a.printer.title(fmt.Sprintf("%s  %s", summary.Run.StartedAt.Local().Format("2006-01-02 15:04"), summary.Run.Command))
			for _, e := range summary.Entries {
				if failedOnly && e.Status != model.OutcomeFailed {
					continue
				}
				detail := e.Path
				if detail == "" || e.Status != model.OutcomeDownloaded {
					detail = e.Reason
				}
				a.printer.println(fmt.Sprintf("%s %8d  %s  %s",
					statusStyle(e.Status).Render(fmt.Sprintf("%-10s", e.Status)),
					e.BookID, e.Title, verboseStyle.Render(detail)))
			}
			a.printer.println(fmt.Sprintf("%d downloaded, %d skipped, %d failed",
				summary.Count(model.OutcomeDownloaded),
				summary.Count(model.OutcomeSkipped),
				summary.Count(model.OutcomeFailed)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only list failed books")

	return cmd
}
