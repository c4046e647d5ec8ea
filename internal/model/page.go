package model

import "fmt"

// PageSize is the fixed page size of every paginated endpoint.
const PageSize = 12

// Sort is a search ordering accepted by the catalogue.
type Sort int

const (
	SortRelevance Sort = iota
	SortPublishedDate
	SortRating
	SortTitle
	SortAuthors
	SortVolume
	SortNest
)

// String returns the wire value of the sort order.
func (s Sort) String() string {
	switch s {
	case SortPublishedDate:
		return "published_date"
	case SortRating:
		return "average_rating"
	case SortTitle:
		return "title"
	case SortAuthors:
		return "authors"
	case SortVolume:
		return "volume"
	case SortNest:
		return "NEST"
	default:
		return "relevance"
	}
}

// ParseSort parses a wire value back into a Sort.
func ParseSort(s string) (Sort, error) {
	for _, candidate := range []Sort{SortRelevance, SortPublishedDate, SortRating, SortTitle, SortAuthors, SortVolume, SortNest} {
		if candidate.String() == s {
			return candidate, nil
		}
	}
	return SortRelevance, fmt.Errorf("unknown sort %q", s)
}

// GroupsPage is one page of catalogue groups.
type GroupsPage struct {
	GroupIDs []string
	Count    int
}

// SearchPage is one page of books from a book group search.
type SearchPage struct {
	Books []BookReference

	// Total is the server-declared result count. It may be stale and is never
	// used to terminate a traversal.
	Total int

	// NextPageToken must be echoed verbatim on the next request of a
	// token-paginated traversal. Empty when the server issued none.
	NextPageToken string
}

// ActiveList is the user's active library. Every entry already carries a
// download license.
type ActiveList struct {
	Books          []ActivatedBook
	Count          int
	MaxActiveCount int
}

// InactiveList is one page of the saved but not activated library.
type InactiveList struct {
	Books []BookReference
}

// IsLast reports whether this is the final inactive page.
func (l *InactiveList) IsLast() bool {
	return len(l.Books) < PageSize
}
