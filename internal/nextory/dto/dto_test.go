package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/nextory-downloader/internal/model"
)

func TestNextoryTime_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339", `"2021-03-04T05:06:07Z"`, time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC), false},
		{"offset", `"2021-03-04T07:06:07+02:00"`, time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC), false},
		{"date only", `"2021-03-04"`, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), false},
		{"epoch millis", `1614834367000`, time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC), false},
		{"null", `null`, time.Time{}, false},
		{"empty", `""`, time.Time{}, false},
		{"garbage", `"yesterday"`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nt NextoryTime
			err := json.Unmarshal([]byte(tt.input), &nt)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(nt.Time), "got %v", nt.Time)
		})
	}
}

func TestSearch_ToSearchPage(t *testing.T) {
	raw := `{
		"books": [
			{"id": 1, "title": "One", "imageurl": "http://img/1", "authors": ["A", "B"], "pubdate": "2020-01-01T00:00:00Z", "esalesticket": "T1", "isupcoming": 0, "avgrate": 4.5, "libstatus": "NOTINLIB"},
			{"id": 2, "title": "Two", "authors": ["C"], "pubdate": "2020-01-01T00:00:00Z", "esalesticket": "", "isupcoming": 1, "libstatus": "ACTIVE"},
			{"id": 3, "title": "Three", "authors": ["D"], "pubdate": null, "esalesticket": ""}
		],
		"bookcount": 99,
		"pagetoken": "next-123"
	}`

	var s Search
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	page := s.ToSearchPage()

	assert.Equal(t, 99, page.Total)
	assert.Equal(t, "next-123", page.NextPageToken)
	require.Len(t, page.Books, 3)

	assert.Equal(t, model.BookReference{
		ID:              1,
		Title:           "One",
		Authors:         []string{"A", "B"},
		PublicationDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		LibraryStatus:   "NOTINLIB",
		SalesTicket:     "T1",
		CoverImageURL:   "http://img/1",
		AverageRating:   4.5,
	}, page.Books[0])
	assert.True(t, page.Books[1].Upcoming)
	assert.False(t, page.Books[2].Upcoming)
}

func TestSearch_NoPageToken(t *testing.T) {
	var s Search
	require.NoError(t, json.Unmarshal([]byte(`{"books": [], "bookcount": 0}`), &s))
	assert.Equal(t, "", s.ToSearchPage().NextPageToken)
}

func TestActivation_ToActivatedBook(t *testing.T) {
	raw := `{"books": {"id": 5, "isbn": "978", "isupcoming": 0, "type": 1, "title": "T", "imageurl": "u", "authors": ["X"],
		"file": {"url": "http://f", "formatid": 22, "duration": "10:00", "sizeinbytes": 1234}, "pubdate": "2019-05-05"}}`

	var a Activation
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	book := a.Books.ToActivatedBook()

	assert.Equal(t, int64(5), book.ID)
	assert.Equal(t, "978", book.ISBN)
	assert.Equal(t, model.FormatMp3, book.File.Format())
	assert.Equal(t, int64(1234), book.File.SizeBytes)
	assert.Equal(t, "http://f", book.File.URL)
}

func TestInactive_ToInactiveList(t *testing.T) {
	var i Inactive
	require.NoError(t, json.Unmarshal([]byte(`{"books":[{"id":1,"isupcoming":0},{"id":2,"isupcoming":1}]}`), &i))
	list := i.ToInactiveList()

	require.Len(t, list.Books, 2)
	assert.False(t, list.Books[0].Upcoming)
	assert.True(t, list.Books[1].Upcoming)
	assert.True(t, list.IsLast())
}

func TestGroups_ToGroupsPage(t *testing.T) {
	g := Groups{BookGroups: []Group{{ID: "a"}, {ID: "b"}}, BookGroupCount: 2}
	page := g.ToGroupsPage()
	assert.Equal(t, []string{"a", "b"}, page.GroupIDs)
	assert.Equal(t, 2, page.Count)
}
