package ioutils

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/handiism/nextory-downloader/internal/http"
	"github.com/handiism/nextory-downloader/internal/model"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal-file.mp3", "normal-file.mp3"},
		{"file:with:colons.mp3", "file_with_colons.mp3"},
		{"file<with>brackets.mp3", "file_with_brackets.mp3"},
		{"file/with\\slashes.mp3", "file_with_slashes.mp3"},
		{"file|with|pipes.mp3", "file_with_pipes.mp3"},
		{"file?with*wildcards.mp3", "file_with_wildcards.mp3"},
		{"file\"with\"quotes.mp3", "file_with_quotes.mp3"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"trailing spaces   ", "trailing spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.input))
		})
	}
}

func TestBookFolder(t *testing.T) {
	assert.Equal(t, "A", BookFolder([]string{"A"}))
	assert.Equal(t, "A & B", BookFolder([]string{"A", "B"}))
	assert.Equal(t, "A & B & C & D & E", BookFolder([]string{"A", "B", "C", "D", "E", "F", "G"}))
	assert.Equal(t, "", BookFolder(nil))
}

func TestBookFileName(t *testing.T) {
	assert.Equal(t, "Dune.epub", BookFileName("Dune", "epub"))

	long := strings.Repeat("é", 250)
	name := BookFileName(long, "mp3")
	assert.Equal(t, strings.Repeat("é", MaxTitleLength)+".mp3", name)
}

type fakeDownloader struct {
	calls  int
	status int
	body   string
	length int64
	err    error
}

func (f *fakeDownloader) Download(ctx context.Context, rawURL, token string) (*http.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode:    http.StatusOK,
		ContentLength: f.length,
		Body:          io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func TestMaterialize_Idempotent(t *testing.T) {
	root := t.TempDir()
	dl := &fakeDownloader{body: "book-bytes", length: -1}
	store := NewFileStore(root, dl)
	file := model.DownloadFile{URL: "https://files/1", FormatID: model.CodeEPub, SizeBytes: 10}

	var lastTotal int64
	store.OnProgress = func(path string, written, total int64) { lastTotal = total }

	path, existed, err := store.Materialize(context.Background(), "tok", "A / B", file, "Title.epub")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, filepath.Join(root, "A _ B", "Title.epub"), path)
	assert.Equal(t, int64(10), lastTotal)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "book-bytes", string(data))

	again, existed, err := store.Materialize(context.Background(), "tok", "A / B", file, "Title.epub")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, path, again)
	assert.Equal(t, 1, dl.calls)
}

func TestMaterialize_DownloadErrorLeavesNoFile(t *testing.T) {
	root := t.TempDir()
	dl := &fakeDownloader{err: &apihttp.DownloadError{Code: 403, Message: "forbidden"}}
	store := NewFileStore(root, dl)

	_, _, err := store.Materialize(context.Background(), "tok", "Author", model.DownloadFile{URL: "u"}, "Title.mp3")

	var dlErr *apihttp.DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, 403, dlErr.Code)
	assert.False(t, Exists(filepath.Join(root, "Author", "Title.mp3")))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

type brokenDownloader struct{}

func (brokenDownloader) Download(ctx context.Context, rawURL, token string) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(io.MultiReader(strings.NewReader("partial"), failingReader{})),
	}, nil
}

func TestMaterialize_RemovesPartialFile(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root, brokenDownloader{})

	_, _, err := store.Materialize(context.Background(), "tok", "Author", model.DownloadFile{URL: "u"}, "Title.mp3")
	require.Error(t, err)

	var transportErr *apihttp.TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.False(t, Exists(filepath.Join(root, "Author", "Title.mp3")))
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareCover(t *testing.T) {
	svc := NewImageService()
	src := testPNG(t, 200, 100)

	t.Run("unchanged", func(t *testing.T) {
		data, mime, err := svc.PrepareCover(context.Background(), src, "image/png", CoverOptions{})
		require.NoError(t, err)
		assert.Equal(t, "image/png", mime)
		assert.Equal(t, src, data)
	})

	t.Run("resize", func(t *testing.T) {
		data, mime, err := svc.PrepareCover(context.Background(), src, "image/png", CoverOptions{Resize: true, MaxSize: 50})
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mime)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 50, cfg.Width)
		assert.Equal(t, 25, cfg.Height)
	})

	t.Run("convert", func(t *testing.T) {
		data, mime, err := svc.PrepareCover(context.Background(), src, "image/png", CoverOptions{ConvertToJPEG: true})
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mime)
		_, format, err := image.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := svc.PrepareCover(context.Background(), []byte("not an image"), "", CoverOptions{ConvertToJPEG: true})
		assert.Error(t, err)
	})
}

func TestFitWithin(t *testing.T) {
	w, h := fitWithin(1500, 1000, 1000, 1000)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 666, h)

	w, h = fitWithin(800, 600, 1000, 1000)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}
