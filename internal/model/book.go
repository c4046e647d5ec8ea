package model

import (
	"fmt"
	"strings"
	"time"
)

// LibraryStatusNotInLibrary is the library status of a catalogue book the
// user has never added.
const LibraryStatusNotInLibrary = "NOTINLIB"

// BookReference identifies a book returned by a catalogue or library query.
//
// A BookReference is enough to request an activation. It does not carry a
// download location; that only exists on an ActivatedBook.
//
// Example:
//
//	ref := model.BookReference{
//	    ID:      1234,
//	    Title:   "The Hobbit",
//	    Authors: []string{"J.R.R. Tolkien"},
//	}
//	fmt.Println(ref) // 1234 The Hobbit(0001) by J.R.R. Tolkien
type BookReference struct {
	// ID is the numeric book identifier used by every library endpoint.
	ID int64

	// Title is the display title.
	Title string

	// Authors is the ordered author list. The first entry is the primary author.
	Authors []string

	// PublicationDate is the publication date reported by the catalogue.
	PublicationDate time.Time

	// Upcoming is true for titles that are announced but not yet licensable.
	// Upcoming books must never be activated.
	Upcoming bool

	// LibraryStatus is the server-side library state, e.g. "NOTINLIB".
	LibraryStatus string

	// SalesTicket is the optional ticket sent with an activation request.
	// Books listed in the inactive library have none.
	SalesTicket string

	// CoverImageURL is the URL of the cover artwork.
	CoverImageURL string

	// AverageRating is the catalogue rating, zero when unknown.
	AverageRating float32
}

// PrimaryAuthor returns the first author, or an empty string.
func (b BookReference) PrimaryAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}

// String formats the reference as "<id> <title>(<year>) by <authors>".
func (b BookReference) String() string {
	return fmt.Sprintf("%d %s(%04d) by %s", b.ID, b.Title, b.PublicationDate.Year(), strings.Join(b.Authors, ", "))
}

// ActivatedBook is a book with a granted download license.
//
// ActivatedBook values are only produced by a successful activation call or
// by the active-library listing, where the license already exists.
type ActivatedBook struct {
	BookReference

	// ISBN of the edition behind File.
	ISBN string

	// File is the concrete downloadable file.
	File DownloadFile
}

// DownloadFile describes the file behind an activation.
type DownloadFile struct {
	// URL is the authenticated download URL.
	URL string

	// FormatID is the numeric format code, see Format.
	FormatID int

	// SizeBytes is the size the server declares. It is advisory only.
	SizeBytes int64

	// Duration is the play time for audio books, as reported by the server.
	Duration string
}

// Format maps the file's numeric code to a FileFormat.
func (f DownloadFile) Format() FileFormat {
	return FormatFromCode(f.FormatID)
}
