package nextory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/handiism/nextory-downloader/internal/http"
	"github.com/handiism/nextory-downloader/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *apihttp.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return apihttp.NewClient(apihttp.WithBaseURL(server.URL))
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func books(n, offset int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := range n {
		out = append(out, map[string]any{
			"id":           offset + i,
			"title":        fmt.Sprintf("Book %d", offset+i),
			"authors":      []string{"Author"},
			"esalesticket": "ticket",
			"libstatus":    "NOTINLIB",
		})
	}
	return out
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, "900150983CD24FB0D6963F7D28E17F72", Checksum("abc"))
	assert.Equal(t, Checksum("abc"), Checksum("a", "b", "c"))
	assert.Len(t, Checksum("user", "salt", "pass"), 32)
}

type loginServer struct {
	accountType int
	accounts    []map[string]string
	failPrimary bool
}

func (ls *loginServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/catalogue/7.5/salt":
			writeData(w, map[string]string{"salt": "SALT"})

		case r.URL.Path == "/user/7.5/login" && r.Method == http.MethodPost:
			if ls.failPrimary {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"code":1001,"msg":"wrong password"}}`))
				return
			}
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "user", r.FormValue("username"))
			assert.Equal(t, "pass", r.FormValue("password"))
			assert.Equal(t, Checksum("user", "SALT", "pass"), r.FormValue("checksum"))
			writeData(w, map[string]any{"token": "PRIMARY", "accounttype": ls.accountType})

		case r.URL.Path == "/user/7.5/accounts/list":
			assert.Equal(t, "PRIMARY", r.Header.Get("token"))
			writeData(w, map[string]any{"accounts": ls.accounts})

		case r.URL.Path == "/user/7.5/login" && r.Method == http.MethodGet:
			assert.Equal(t, "PRIMARY", r.Header.Get("token"))
			assert.Equal(t, "key-active", r.URL.Query().Get("loginkey"))
			assert.Equal(t, Checksum("key-active", "SALT"), r.URL.Query().Get("checksum"))
			writeData(w, map[string]any{"token": "SUB", "accounttype": 1})

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

var activeAccounts = []map[string]string{
	{"loginkey": "key-inactive", "status": "inactive"},
	{"loginkey": "key-active", "status": "active"},
	{"loginkey": "key-later", "status": "active"},
}

func TestLogin(t *testing.T) {
	ls := &loginServer{accountType: 1, accounts: activeAccounts}
	auth := NewAuthenticator(newTestClient(t, ls.handler(t)), nil)

	session, err := auth.Login(context.Background(), "user", "pass")
	require.NoError(t, err)
	assert.Equal(t, "SUB", session.Token())
	assert.Len(t, session.NextTraceID(), 21)
}

func TestLogin_NonMemberWarnsAndContinues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ls := &loginServer{accountType: 3, accounts: activeAccounts}
	auth := NewAuthenticator(newTestClient(t, ls.handler(t)), logger)

	session, err := auth.Login(context.Background(), "user", "pass")
	require.NoError(t, err)
	assert.Equal(t, "SUB", session.Token())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "accounttype=3")
}

func TestLogin_NoActiveSubaccount(t *testing.T) {
	ls := &loginServer{accountType: 1, accounts: []map[string]string{{"loginkey": "k", "status": "inactive"}}}
	auth := NewAuthenticator(newTestClient(t, ls.handler(t)), nil)

	_, err := auth.Login(context.Background(), "user", "pass")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoActiveSubaccount))

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthListingAccounts, authErr.Step)
}

func TestLogin_PrimaryRejected(t *testing.T) {
	ls := &loginServer{failPrimary: true}
	auth := NewAuthenticator(newTestClient(t, ls.handler(t)), nil)

	_, err := auth.Login(context.Background(), "user", "pass")

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthPrimaryLogin, authErr.Step)

	var apiErr *apihttp.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 1001, apiErr.Code)
	assert.Equal(t, "wrong password", apiErr.Message)
}

func TestFromToken(t *testing.T) {
	session := FromToken("stored-token")
	assert.Equal(t, "stored-token", session.Token())
	assert.NotEqual(t, session.NextTraceID(), session.NextTraceID())
}

func TestInactivePages_StopsOnShortPage(t *testing.T) {
	sizes := []int{12, 12, 5}
	var pages []string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/7.5/inactive", r.URL.Path)
		assert.Equal(t, "dateModified", r.URL.Query().Get("sort"))
		assert.Equal(t, "12", r.URL.Query().Get("rows"))
		pages = append(pages, r.URL.Query().Get("pagenumber"))

		n := sizes[len(pages)-1]
		entries := make([]map[string]int, n)
		for i := range entries {
			entries[i] = map[string]int{"id": i, "isupcoming": 0}
		}
		writeData(w, map[string]any{"books": entries})
	})

	lib := NewLibrary(client)
	total := 0
	for page, err := range lib.InactivePages(context.Background(), FromToken("t")) {
		require.NoError(t, err)
		total += len(page.Books)
	}

	assert.Equal(t, []string{"0", "1", "2"}, pages)
	assert.Equal(t, 29, total)
}

func TestBookGroupPages_TokenPassThrough(t *testing.T) {
	const issued = "opaque/+token==?&x"
	var tokens []string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/catalogue/7.5/booksforbookgroup", r.URL.Path)
		assert.Equal(t, "group-1", q.Get("bookgroupid"))
		assert.Equal(t, "title", q.Get("sort"))
		assert.Equal(t, "5", q.Get("segment"))
		assert.Equal(t, "true", q.Get("includenotallowedbooks"))
		assert.True(t, q.Has("pagetoken"))
		tokens = append(tokens, q.Get("pagetoken"))

		switch len(tokens) {
		case 1:
			writeData(w, map[string]any{"books": books(12, 0), "bookcount": 20, "pagetoken": issued})
		case 2:
			writeData(w, map[string]any{"books": books(8, 12), "bookcount": 20})
		default:
			writeData(w, map[string]any{"books": []any{}, "bookcount": 20})
		}
	})

	cat := NewCatalogue(client)
	var got []int64
	for page, err := range cat.BookGroupPages(context.Background(), FromToken("t"), "group-1", model.SortTitle) {
		require.NoError(t, err)
		for _, b := range page.Books {
			got = append(got, b.ID)
		}
	}

	assert.Equal(t, []string{"", issued, ""}, tokens)
	assert.Len(t, got, 20)
}

func TestBookGroupPages_ContinuesWithoutToken(t *testing.T) {
	var pageNumbers, tokens []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		pageNumbers = append(pageNumbers, q.Get("pagenumber"))
		tokens = append(tokens, q.Get("pagetoken"))

		if len(pageNumbers) <= 2 {
			writeData(w, map[string]any{"books": books(12, (len(pageNumbers)-1)*12)})
			return
		}
		writeData(w, map[string]any{"books": []any{}})
	})

	total := 0
	for page, err := range NewCatalogue(client).BookGroupPages(context.Background(), FromToken("t"), "g", model.SortRelevance) {
		require.NoError(t, err)
		total += len(page.Books)
	}

	assert.Equal(t, 24, total)
	assert.Equal(t, []string{"0", "1", "2"}, pageNumbers)
	assert.Equal(t, []string{"", "", ""}, tokens)
}

func TestBookGroupPages_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			writeData(w, map[string]any{"books": books(12, 0), "pagetoken": "next"})
			return
		}
		writeData(w, map[string]any{"books": []any{}, "pagetoken": "again"})
	})

	pages := 0
	for _, err := range NewCatalogue(client).BookGroupPages(context.Background(), FromToken("t"), "g", model.SortRelevance) {
		require.NoError(t, err)
		pages++
	}
	assert.Equal(t, 1, pages)
	assert.Equal(t, 2, calls)
}

func TestGroupPages(t *testing.T) {
	var views []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "de,en", q.Get("languages"))
		assert.Equal(t, "12", q.Get("pagesize"))
		views = append(views, q.Get("view"))

		if q.Get("pagenumber") == "0" {
			writeData(w, map[string]any{"bookgroups": []map[string]string{{"id": "a"}, {"id": "b"}}, "bookgroupcount": 2})
			return
		}
		writeData(w, map[string]any{"bookgroups": []any{}, "bookgroupcount": 2})
	})

	var ids []string
	for page, err := range NewCatalogue(client).GroupPages(context.Background(), FromToken("t"), "kids") {
		require.NoError(t, err)
		ids = append(ids, page.GroupIDs...)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, []string{"kids", "kids"}, views)
}

func TestNewReleasePages(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++

		q := r.URL.Query()
		assert.Equal(t, NewReleasesGroup, q.Get("bookgroupid"))
		assert.Equal(t, "NEST", q.Get("sort"))
		assert.Equal(t, "1", q.Get("segment"))
		assert.Equal(t, "", q.Get("pagetoken"))

		if q.Get("pagenumber") == "0" {
			writeData(w, map[string]any{"books": books(3, 0)})
			return
		}
		writeData(w, map[string]any{"books": []any{}})
	})

	pages := 0
	for _, err := range NewCatalogue(client).NewReleasePages(context.Background(), FromToken("t")) {
		require.NoError(t, err)
		pages++
	}
	assert.Equal(t, 1, pages)
	assert.Equal(t, 2, calls)
}

func TestPages_ErrorEndsTraversal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"msg":"boom"}}`))
	})

	var errs []error
	for page, err := range NewLibrary(client).InactivePages(context.Background(), FromToken("t")) {
		assert.Nil(t, page)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)

	var apiErr *apihttp.APIError
	assert.True(t, errors.As(errs[0], &apiErr))
}

func TestActivate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/library/7.5/directctbookactivation", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("token"))

		q := r.URL.Query()
		assert.Equal(t, "77", q.Get("bookid"))
		assert.Equal(t, "ticket", q.Get("esalesticket"))
		assert.Equal(t, "TRACE", q.Get("traceid"))

		writeData(w, map[string]any{"books": map[string]any{
			"id": 77, "isbn": "978-1", "title": "Dune", "authors": []string{"Frank Herbert"},
			"file": map[string]any{"url": "https://files/77", "formatid": 0x009, "sizeinbytes": 100},
		}})
	})

	book, err := NewLibrary(client).Activate(context.Background(), FromToken("tok"), 77, "ticket", "TRACE")
	require.NoError(t, err)
	assert.Equal(t, int64(77), book.ID)
	assert.Equal(t, "978-1", book.ISBN)
	assert.Equal(t, model.FormatEPub, book.File.Format())
}

func TestListActive(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/7.5/active", r.URL.Path)
		writeData(w, map[string]any{
			"books": []map[string]any{
				{"id": 1, "title": "A", "authors": []string{"X"}, "file": map[string]any{"url": "u1", "formatid": 0x016}},
			},
			"bookcount":      1,
			"maxactivecount": 10,
		})
	})

	list, err := NewLibrary(client).ListActive(context.Background(), FromToken("t"))
	require.NoError(t, err)
	require.Len(t, list.Books, 1)
	assert.Equal(t, 10, list.MaxActiveCount)
	assert.Equal(t, "u1", list.Books[0].File.URL)
}

func TestMarkCompletedAndDeactivate(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		q := r.URL.Query()
		switch r.URL.Path {
		case "/library/7.5/completed/add":
			assert.Equal(t, "5", q.Get("bookid"))
			assert.Equal(t, "PUBLIC", q.Get("visibility"))
			assert.Equal(t, "2023-04-05 06:07:08 +0200", q.Get("completeddate"))
		case "/library/7.5/directctbookdeletion":
			assert.Equal(t, "5", q.Get("bookid"))
			assert.True(t, q.Has("esalesticket"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		seen = append(seen, r.URL.Path)
		writeData(w, map[string]any{})
	})

	lib := NewLibrary(client)
	session := FromToken("t")
	at := time.Date(2023, 4, 5, 6, 7, 8, 0, time.FixedZone("", 2*60*60))

	require.NoError(t, lib.MarkCompleted(context.Background(), session, 5, at))
	require.NoError(t, lib.Deactivate(context.Background(), session, 5))
	assert.Len(t, seen, 2)
}
