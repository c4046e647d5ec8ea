// Package download turns library and catalogue listings into files on disk.
//
// # Manager
//
// For every book the Manager:
//
//  1. Skips upcoming titles found in the catalogue or the saved library
//  2. Activates the book, unless it is already in the active library
//  3. Saves the file, skipping files that already exist
//  4. Tags audiobooks with title, author and cover art
//  5. Marks the book completed (optional)
//
// A failure at any step becomes a Failed outcome for that book only; the
// rest of the batch still runs.
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	report, err := manager.Run(ctx, session)
//	fmt.Println(report.Count(model.OutcomeDownloaded), "downloaded")
//
// # Concurrency
//
// Books of one page are processed by at most settings.MaxConcurrentDownloads
// workers. The default of 1 processes them one after another.
package download
