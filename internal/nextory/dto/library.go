package dto

import "github.com/handiism/nextory-downloader/internal/model"

// Active is the active library listing.
type Active struct {
	Books          []LibraryBook `json:"books"`
	BookCount      int           `json:"bookcount"`
	MaxActiveCount int           `json:"maxactivecount"`
}

// Inactive is one page of the inactive library.
type Inactive struct {
	Books []InactiveBook `json:"books"`
}

// InactiveBook is the sparse entry of the inactive listing.
type InactiveBook struct {
	ID         int64 `json:"id"`
	IsUpcoming int   `json:"isupcoming"`
}

// Activation is the response of an activation request.
type Activation struct {
	Books LibraryBook `json:"books"`
}

// LibraryBook is a licensed book with its file.
type LibraryBook struct {
	ID         int64       `json:"id"`
	ISBN       string      `json:"isbn"`
	IsUpcoming int         `json:"isupcoming"`
	Type       int         `json:"type"`
	Title      string      `json:"title"`
	ImageURL   string      `json:"imageurl"`
	Authors    []string    `json:"authors"`
	File       File        `json:"file"`
	PubDate    NextoryTime `json:"pubdate"`
}

// File is the downloadable file of a licensed book.
type File struct {
	URL         string `json:"url"`
	FormatID    int    `json:"formatid"`
	Duration    string `json:"duration"`
	SizeInBytes int64  `json:"sizeinbytes"`
}

// ToActiveList converts Active to a model.ActiveList.
func (a *Active) ToActiveList() *model.ActiveList {
	list := &model.ActiveList{
		Books:          make([]model.ActivatedBook, 0, len(a.Books)),
		Count:          a.BookCount,
		MaxActiveCount: a.MaxActiveCount,
	}
	for _, b := range a.Books {
		list.Books = append(list.Books, b.ToActivatedBook())
	}
	return list
}

// ToInactiveList converts Inactive to a model.InactiveList.
func (i *Inactive) ToInactiveList() *model.InactiveList {
	list := &model.InactiveList{Books: make([]model.BookReference, 0, len(i.Books))}
	for _, b := range i.Books {
		list.Books = append(list.Books, model.BookReference{ID: b.ID, Upcoming: b.IsUpcoming == 1})
	}
	return list
}

// ToActivatedBook converts LibraryBook to a model.ActivatedBook.
func (b *LibraryBook) ToActivatedBook() model.ActivatedBook {
	return model.ActivatedBook{
		BookReference: model.BookReference{
			ID:              b.ID,
			Title:           b.Title,
			Authors:         b.Authors,
			PublicationDate: b.PubDate.Time,
			Upcoming:        b.IsUpcoming == 1,
			CoverImageURL:   b.ImageURL,
		},
		ISBN: b.ISBN,
		File: model.DownloadFile{
			URL:       b.File.URL,
			FormatID:  b.File.FormatID,
			SizeBytes: b.File.SizeInBytes,
			Duration:  b.File.Duration,
		},
	}
}
