package nextory

import (
	"context"
	"iter"
	"net/url"
	"strconv"

	"github.com/handiism/nextory-downloader/internal/http"
	"github.com/handiism/nextory-downloader/internal/model"
	"github.com/handiism/nextory-downloader/internal/nextory/dto"
)

const (
	groupsPath            = "/catalogue/" + http.APIVersion + "/groups"
	booksForBookGroupPath = "/catalogue/" + http.APIVersion + "/booksforbookgroup"

	languages = "de,en"

	// NewReleasesGroup is the synthetic group behind the new releases listing.
	NewReleasesGroup = "tttl_dynamic_1544$$ver_179"
)

var pageSize = strconv.Itoa(model.PageSize)

// Catalogue reads groups and book listings.
type Catalogue struct {
	client *http.Client
}

// NewCatalogue creates a Catalogue.
func NewCatalogue(client *http.Client) *Catalogue {
	return &Catalogue{client: client}
}

// Groups returns one page of group IDs. view is omitted when empty.
func (c *Catalogue) Groups(ctx context.Context, s *Session, page int, view string) (*model.GroupsPage, error) {
	q := url.Values{
		"languages":  {languages},
		"formattype": {"0"},
		"pagesize":   {pageSize},
		"pagenumber": {strconv.Itoa(page)},
	}
	if view != "" {
		q.Set("view", view)
	}

	var resp dto.Groups
	if err := c.client.Do(ctx, http.Request{Path: groupsPath, Query: q, Token: s.Token()}, &resp); err != nil {
		return nil, err
	}
	return resp.ToGroupsPage(), nil
}

// SearchBookGroup returns one page of a group. The first page of a traversal
// passes an empty pageToken; later pages pass the previous page's
// NextPageToken verbatim. pageNumber is sent when non-negative.
func (c *Catalogue) SearchBookGroup(ctx context.Context, s *Session, groupID string, sort model.Sort, pageToken string, pageNumber int) (*model.SearchPage, error) {
	q := url.Values{
		"bookgroupid":            {groupID},
		"sort":                   {sort.String()},
		"type":                   {"0"},
		"languages":              {languages},
		"pagetoken":              {pageToken},
		"segment":                {"5"},
		"rows":                   {pageSize},
		"includenotallowedbooks": {"true"},
	}
	if pageNumber >= 0 {
		q.Set("pagenumber", strconv.Itoa(pageNumber))
	}
	return c.search(ctx, s, q)
}

// NewReleases returns one page of the new releases listing.
func (c *Catalogue) NewReleases(ctx context.Context, s *Session, page int) (*model.SearchPage, error) {
	q := url.Values{
		"bookgroupid":            {NewReleasesGroup},
		"sort":                   {model.SortNest.String()},
		"includenotallowedbooks": {"true"},
		"pagenumber":             {strconv.Itoa(page)},
		"type":                   {"0"},
		"languages":              {languages},
		"rows":                   {pageSize},
		"segment":                {"1"},
		"pagetoken":              {""},
	}
	return c.search(ctx, s, q)
}

func (c *Catalogue) search(ctx context.Context, s *Session, q url.Values) (*model.SearchPage, error) {
	var resp dto.Search
	if err := c.client.Do(ctx, http.Request{Path: booksForBookGroupPath, Query: q, Token: s.Token()}, &resp); err != nil {
		return nil, err
	}
	return resp.ToSearchPage(), nil
}

// GroupPages walks group pages from page 0 until an empty page.
func (c *Catalogue) GroupPages(ctx context.Context, s *Session, view string) iter.Seq2[*model.GroupsPage, error] {
	return func(yield func(*model.GroupsPage, error) bool) {
		for page := 0; ; page++ {
			p, err := c.Groups(ctx, s, page, view)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(p.GroupIDs) == 0 || !yield(p, nil) {
				return
			}
		}
	}
}

// BookGroupPages walks a group until an empty page. The last issued token is
// echoed verbatim; a page without one sends an empty token and the page
// number alone advances the traversal.
func (c *Catalogue) BookGroupPages(ctx context.Context, s *Session, groupID string, sort model.Sort) iter.Seq2[*model.SearchPage, error] {
	return func(yield func(*model.SearchPage, error) bool) {
		token := ""
		for page := 0; ; page++ {
			p, err := c.SearchBookGroup(ctx, s, groupID, sort, token, page)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(p.Books) == 0 || !yield(p, nil) {
				return
			}
			token = p.NextPageToken
		}
	}
}

// NewReleasePages walks new release pages from page 0 until an empty page.
func (c *Catalogue) NewReleasePages(ctx context.Context, s *Session) iter.Seq2[*model.SearchPage, error] {
	return func(yield func(*model.SearchPage, error) bool) {
		for page := 0; ; page++ {
			p, err := c.NewReleases(ctx, s, page)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(p.Books) == 0 || !yield(p, nil) {
				return
			}
		}
	}
}
