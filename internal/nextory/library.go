package nextory

import (
	"context"
	"iter"
	"net/url"
	"strconv"
	"time"

	"github.com/handiism/nextory-downloader/internal/http"
	"github.com/handiism/nextory-downloader/internal/model"
	"github.com/handiism/nextory-downloader/internal/nextory/dto"
)

const (
	activePath     = "/library/" + http.APIVersion + "/active"
	inactivePath   = "/library/" + http.APIVersion + "/inactive"
	activationPath = "/library/" + http.APIVersion + "/directctbookactivation"
	deletionPath   = "/library/" + http.APIVersion + "/directctbookdeletion"
	completedPath  = "/library/" + http.APIVersion + "/completed/add"

	// CompletedDateLayout is the completion timestamp format.
	CompletedDateLayout = "2006-01-02 15:04:05 -0700"
)

// Library lists, activates and completes books in the user's library.
type Library struct {
	client *http.Client
}

// NewLibrary creates a Library.
func NewLibrary(client *http.Client) *Library {
	return &Library{client: client}
}

// ListActive returns the active library.
func (l *Library) ListActive(ctx context.Context, s *Session) (*model.ActiveList, error) {
	var resp dto.Active
	if err := l.client.Do(ctx, http.Request{Path: activePath, Token: s.Token()}, &resp); err != nil {
		return nil, err
	}
	return resp.ToActiveList(), nil
}

// ListInactive returns one page of saved books.
func (l *Library) ListInactive(ctx context.Context, s *Session, page int) (*model.InactiveList, error) {
	q := url.Values{
		"type":       {"0"},
		"sort":       {"dateModified"},
		"rows":       {pageSize},
		"pagenumber": {strconv.Itoa(page)},
	}

	var resp dto.Inactive
	if err := l.client.Do(ctx, http.Request{Path: inactivePath, Query: q, Token: s.Token()}, &resp); err != nil {
		return nil, err
	}
	return resp.ToInactiveList(), nil
}

// InactivePages walks the inactive library, stopping after the first page
// shorter than model.PageSize.
func (l *Library) InactivePages(ctx context.Context, s *Session) iter.Seq2[*model.InactiveList, error] {
	return func(yield func(*model.InactiveList, error) bool) {
		for page := 0; ; page++ {
			p, err := l.ListInactive(ctx, s, page)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(p, nil) || p.IsLast() {
				return
			}
		}
	}
}

// Activate licenses a book and returns its file. salesTicket is empty for
// inactive library books; traceID is empty outside search pages.
func (l *Library) Activate(ctx context.Context, s *Session, bookID int64, salesTicket, traceID string) (*model.ActivatedBook, error) {
	q := url.Values{
		"bookid":       {strconv.FormatInt(bookID, 10)},
		"esalesticket": {salesTicket},
		"traceid":      {traceID},
	}

	var resp dto.Activation
	if err := l.client.Do(ctx, http.Request{Method: "POST", Path: activationPath, Query: q, Token: s.Token()}, &resp); err != nil {
		return nil, err
	}
	book := resp.Books.ToActivatedBook()
	return &book, nil
}

// Deactivate releases a book's license.
func (l *Library) Deactivate(ctx context.Context, s *Session, bookID int64) error {
	q := url.Values{
		"bookid":       {strconv.FormatInt(bookID, 10)},
		"esalesticket": {""},
	}
	return l.client.Do(ctx, http.Request{Method: "POST", Path: deletionPath, Query: q, Token: s.Token()}, nil)
}

// MarkCompleted adds a book to the completed shelf with the given timestamp.
func (l *Library) MarkCompleted(ctx context.Context, s *Session, bookID int64, at time.Time) error {
	q := url.Values{
		"bookid":        {strconv.FormatInt(bookID, 10)},
		"visibility":    {"PUBLIC"},
		"completeddate": {at.Format(CompletedDateLayout)},
	}
	return l.client.Do(ctx, http.Request{Method: "POST", Path: completedPath, Query: q, Token: s.Token()}, nil)
}
