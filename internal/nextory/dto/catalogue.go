package dto

import "github.com/handiism/nextory-downloader/internal/model"

// Groups is one page of catalogue groups.
type Groups struct {
	BookGroups     []Group `json:"bookgroups"`
	BookGroupCount int     `json:"bookgroupcount"`
}

// Group identifies a catalogue group.
type Group struct {
	ID string `json:"id"`
}

// Search is one page of a book group search.
type Search struct {
	Books     []SearchBook `json:"books"`
	BookCount int          `json:"bookcount"`
	PageToken *string      `json:"pagetoken"`
}

// SearchBook is a book as listed by a search.
type SearchBook struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	ImageURL     string      `json:"imageurl"`
	Authors      []string    `json:"authors"`
	PubDate      NextoryTime `json:"pubdate"`
	ESalesTicket string      `json:"esalesticket"`
	IsUpcoming   *int        `json:"isupcoming"`
	AvgRate      float32     `json:"avgrate"`
	LibStatus    string      `json:"libstatus"`
}

// ToGroupsPage converts Groups to a model.GroupsPage.
func (g *Groups) ToGroupsPage() *model.GroupsPage {
	ids := make([]string, 0, len(g.BookGroups))
	for _, group := range g.BookGroups {
		ids = append(ids, group.ID)
	}
	return &model.GroupsPage{GroupIDs: ids, Count: g.BookGroupCount}
}

// ToSearchPage converts Search to a model.SearchPage.
func (s *Search) ToSearchPage() *model.SearchPage {
	page := &model.SearchPage{
		Books: make([]model.BookReference, 0, len(s.Books)),
		Total: s.BookCount,
	}
	if s.PageToken != nil {
		page.NextPageToken = *s.PageToken
	}
	for _, b := range s.Books {
		page.Books = append(page.Books, b.ToBookReference())
	}
	return page
}

// ToBookReference converts SearchBook to a model.BookReference.
func (b *SearchBook) ToBookReference() model.BookReference {
	return model.BookReference{
		ID:              b.ID,
		Title:           b.Title,
		Authors:         b.Authors,
		PublicationDate: b.PubDate.Time,
		Upcoming:        b.IsUpcoming != nil && *b.IsUpcoming == 1,
		LibraryStatus:   b.LibStatus,
		SalesTicket:     b.ESalesTicket,
		CoverImageURL:   b.ImageURL,
		AverageRating:   b.AvgRate,
	}
}
