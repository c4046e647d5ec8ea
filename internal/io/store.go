package ioutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	apihttp "github.com/handiism/nextory-downloader/internal/http"
	"github.com/handiism/nextory-downloader/internal/model"
)

// Downloader opens an authenticated file download.
type Downloader interface {
	Download(ctx context.Context, rawURL, token string) (*http.Response, error)
}

// FileStore saves book files under a root directory as
// root/<folder>/<file name>.
//
// Saving is idempotent: a file already on disk is never fetched again.
type FileStore struct {
	root       string
	downloader Downloader

	// OnProgress, when set, is called as bytes are written. total is the
	// response's Content-Length, or the declared file size when the header
	// is missing. It is advisory only.
	OnProgress func(path string, written, total int64)
}

// NewFileStore creates a FileStore rooted at root.
func NewFileStore(root string, downloader Downloader) *FileStore {
	return &FileStore{root: root, downloader: downloader}
}

// Root returns the destination root.
func (s *FileStore) Root() string {
	return s.root
}

// Path returns the destination of a file without touching the disk.
func (s *FileStore) Path(folder, fileName string) string {
	return filepath.Join(s.root, SanitizeFileName(folder), SanitizeFileName(fileName))
}

// Materialize downloads file to root/folder/fileName and returns its path.
// existed is true when the destination was already present and nothing was
// requested.
//
// Returns *apihttp.DownloadError when the download is rejected. A partially
// written file is removed before returning an error.
func (s *FileStore) Materialize(ctx context.Context, token, folder string, file model.DownloadFile, fileName string) (path string, existed bool, err error) {
	path = s.Path(folder, fileName)
	if Exists(path) {
		return path, true, nil
	}

	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return "", false, fmt.Errorf("create folder: %w", err)
	}

	resp, err := s.downloader.Download(ctx, file.URL, token)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return path, true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("create file: %w", err)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = file.SizeBytes
	}

	pw := &apihttp.ProgressWriter{Writer: out, Total: total}
	if s.OnProgress != nil {
		pw.OnUpdate = func(written, total int64) {
			s.OnProgress(path, written, total)
		}
	}

	_, copyErr := io.Copy(pw, resp.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(path)
		if copyErr != nil {
			return "", false, &apihttp.TransportError{Op: "download", URL: file.URL, Err: copyErr}
		}
		return "", false, fmt.Errorf("write file: %w", closeErr)
	}

	return path, false, nil
}
