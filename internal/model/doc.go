// Package model defines the core data structures shared by the catalogue
// client, the download pipeline and the front ends.
//
// # Books
//
// BookReference is what catalogue and library listings return. An
// ActivatedBook adds the ISBN and the DownloadFile granted by an activation:
//
//	activated, err := library.Activate(ctx, session, ref.ID, ref.SalesTicket, traceID)
//	format := activated.File.Format()
//	ext, err := format.Extension() // "mp3", "epub" or "pdf"
//
// # Formats
//
// FileFormat is a closed set. Streaming and unknown formats have no single
// file representation and Extension returns ErrUnsupportedFormat for them.
//
// # Outcomes
//
// Every processed book yields exactly one Outcome (downloaded, skipped or
// failed). A Report collects the outcomes of a batch in processing order.
package model
