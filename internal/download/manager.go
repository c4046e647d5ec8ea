package download

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/nextory-downloader/internal/audio"
	"github.com/handiism/nextory-downloader/internal/config"
	ioutils "github.com/handiism/nextory-downloader/internal/io"
	"github.com/handiism/nextory-downloader/internal/model"
	"github.com/handiism/nextory-downloader/internal/nextory"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Catalogue is the part of nextory.Catalogue the manager walks.
type Catalogue interface {
	GroupPages(ctx context.Context, s *nextory.Session, view string) iter.Seq2[*model.GroupsPage, error]
	BookGroupPages(ctx context.Context, s *nextory.Session, groupID string, sort model.Sort) iter.Seq2[*model.SearchPage, error]
	NewReleasePages(ctx context.Context, s *nextory.Session) iter.Seq2[*model.SearchPage, error]
}

// Library is the part of nextory.Library the manager uses.
type Library interface {
	ListActive(ctx context.Context, s *nextory.Session) (*model.ActiveList, error)
	InactivePages(ctx context.Context, s *nextory.Session) iter.Seq2[*model.InactiveList, error]
	Activate(ctx context.Context, s *nextory.Session, bookID int64, salesTicket, traceID string) (*model.ActivatedBook, error)
	MarkCompleted(ctx context.Context, s *nextory.Session, bookID int64, at time.Time) error
}

// FileStore saves book files.
type FileStore interface {
	Materialize(ctx context.Context, token, folder string, file model.DownloadFile, fileName string) (string, bool, error)
}

// CoverFetcher downloads cover images.
type CoverFetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, string, error)
}

// Recorder persists outcomes, e.g. a history.RunRecorder.
type Recorder interface {
	Record(ctx context.Context, o model.Outcome) error
}

// Dependencies are the collaborators of a Manager. Nil Now and Logger fall
// back to time.Now and slog.Default.
type Dependencies struct {
	Catalogue Catalogue
	Library   Library
	Store     FileStore
	Covers    CoverFetcher
	Recorder  Recorder
	Now       func() time.Time
	Logger    *slog.Logger
}

// Item is one book queued for processing.
type Item struct {
	Ref    model.BookReference
	Source model.Source

	// Book is set for active library books, which are downloaded without a
	// new activation.
	Book *model.ActivatedBook

	// TraceID is shared by all books of one search page.
	TraceID string
}

// Manager activates, downloads and tags books.
type Manager struct {
	settings     *config.Settings
	catalogue    Catalogue
	library      Library
	store        FileStore
	covers       CoverFetcher
	recorder     Recorder
	tagger       *audio.Tagger
	imageService *ioutils.ImageService
	now          func() time.Time
	logger       *slog.Logger

	processed  int32
	downloaded int32
	failed     int32

	onProgress func(ProgressEvent)
}

// NewManager creates a Manager talking to the live API with settings'
// proxy, base URL and download folder.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) (*Manager, error) {
	client, err := settings.NewAPIClient()
	if err != nil {
		return nil, err
	}

	m := NewManagerWith(settings, Dependencies{
		Catalogue: nextory.NewCatalogue(client),
		Library:   nextory.NewLibrary(client),
		Covers:    client,
	}, onProgress)

	store := ioutils.NewFileStore(settings.DownloadsPath, client)
	store.OnProgress = func(path string, written, total int64) {
		if written == total {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Saved %s (%d bytes)", path, written), Level: LevelVerbose})
		}
	}
	m.store = store

	return m, nil
}

// NewManagerWith creates a Manager over explicit collaborators.
func NewManagerWith(settings *config.Settings, deps Dependencies, onProgress func(ProgressEvent)) *Manager {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		settings:     settings,
		catalogue:    deps.Catalogue,
		library:      deps.Library,
		store:        deps.Store,
		covers:       deps.Covers,
		recorder:     deps.Recorder,
		tagger:       audio.NewTagger(settings.ToTagConfig()),
		imageService: ioutils.NewImageService(),
		now:          deps.Now,
		logger:       deps.Logger,
		onProgress:   onProgress,
	}
}

// SetRecorder attaches a Recorder for subsequent outcomes.
func (m *Manager) SetRecorder(r Recorder) {
	m.recorder = r
}

// GetProgress returns how many books were processed, downloaded and failed.
func (m *Manager) GetProgress() (processed, downloaded, failed int32) {
	return atomic.LoadInt32(&m.processed), atomic.LoadInt32(&m.downloaded), atomic.LoadInt32(&m.failed)
}

// Run executes every sweep enabled in the settings: inactive library, active
// library, new releases, categories and views, in that order. Books activated
// by the inactive sweep show up again in the active sweep and are skipped as
// existing files. A failing sweep is reported and the next one still runs.
func (m *Manager) Run(ctx context.Context, s *nextory.Session) (*model.Report, error) {
	report := &model.Report{}
	var errs []error

	sweep := func(name string, fn func() (*model.Report, error)) {
		if ctx.Err() != nil {
			return
		}
		r, err := fn()
		report.Merge(r)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("%s sweep stopped: %v", name, err), Level: LevelError})
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if m.settings.DownloadInactive {
		sweep("inactive", func() (*model.Report, error) { return m.SyncInactive(ctx, s) })
	}
	if m.settings.DownloadActive {
		sweep("active", func() (*model.Report, error) { return m.SyncActive(ctx, s) })
	}
	if m.settings.DownloadNewReleases {
		sweep("new releases", func() (*model.Report, error) { return m.SyncNewReleases(ctx, s) })
	}
	for _, category := range m.settings.Categories {
		sweep("category "+category, func() (*model.Report, error) { return m.SyncBookGroup(ctx, s, category) })
	}
	for _, view := range m.settings.Views {
		sweep("view "+view, func() (*model.Report, error) { return m.SyncGroups(ctx, s, view) })
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

// SyncActive downloads every book in the active library.
func (m *Manager) SyncActive(ctx context.Context, s *nextory.Session) (*model.Report, error) {
	m.progress(ProgressEvent{Message: "Downloading active books", Level: LevelInfo})

	list, err := m.library.ListActive(ctx, s)
	if err != nil {
		return &model.Report{}, fmt.Errorf("list active: %w", err)
	}

	items := make([]Item, 0, len(list.Books))
	for i := range list.Books {
		book := list.Books[i]
		items = append(items, Item{Ref: book.BookReference, Source: model.SourceActive, Book: &book})
	}

	report := &model.Report{}
	report.Add(m.processBatch(ctx, s, items)...)
	return report, nil
}

// SyncInactive activates and downloads the saved books, page by page.
// Activation takes books off the list and shifts later entries towards page
// 0, so the list is walked again while a pass changed anything. Each book is
// processed at most once per run.
func (m *Manager) SyncInactive(ctx context.Context, s *nextory.Session) (*model.Report, error) {
	m.progress(ProgressEvent{Message: "Downloading inactive/saved books", Level: LevelInfo})

	report := &model.Report{}
	seen := make(map[int64]bool)
	for pass := 0; ; pass++ {
		if pass > 0 {
			m.progress(ProgressEvent{Message: "Re-reading inactive list", Level: LevelVerbose})
		}

		changed := false
		for page, err := range m.library.InactivePages(ctx, s) {
			if err != nil {
				return report, fmt.Errorf("list inactive: %w", err)
			}

			items := make([]Item, 0, len(page.Books))
			for _, ref := range page.Books {
				if seen[ref.ID] {
					continue
				}
				seen[ref.ID] = true
				items = append(items, Item{Ref: ref, Source: model.SourceInactive})
			}

			for _, o := range m.processBatch(ctx, s, items) {
				report.Add(o)
				if o.Status != model.OutcomeSkipped {
					changed = true
				}
			}

			if ctx.Err() != nil {
				return report, ctx.Err()
			}
		}

		if !changed {
			return report, nil
		}
	}
}

// SyncNewReleases downloads the new releases listing.
func (m *Manager) SyncNewReleases(ctx context.Context, s *nextory.Session) (*model.Report, error) {
	m.progress(ProgressEvent{Message: "Downloading new releases", Level: LevelInfo})
	return m.SyncSearch(ctx, s, m.catalogue.NewReleasePages(ctx, s))
}

// SyncBookGroup downloads every book of a group in the configured order.
func (m *Manager) SyncBookGroup(ctx context.Context, s *nextory.Session, groupID string) (*model.Report, error) {
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading category %s", groupID), Level: LevelInfo})
	return m.SyncSearch(ctx, s, m.catalogue.BookGroupPages(ctx, s, groupID, m.settings.SortOrder()))
}

// SyncGroups runs SyncBookGroup for every group of a view. A failing group is
// reported and the sweep moves on to the next one.
func (m *Manager) SyncGroups(ctx context.Context, s *nextory.Session, view string) (*model.Report, error) {
	report := &model.Report{}
	var errs []error

	page := 0
	for groups, err := range m.catalogue.GroupPages(ctx, s, view) {
		if err != nil {
			errs = append(errs, fmt.Errorf("list groups: %w", err))
			break
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Categories page %d", page), Level: LevelVerbose})
		page++

		for _, id := range groups.GroupIDs {
			r, err := m.SyncBookGroup(ctx, s, id)
			report.Merge(r)
			if err != nil {
				m.logger.Warn("group sweep failed", "group", id, "error", err)
				errs = append(errs, fmt.Errorf("group %s: %w", id, err))
			}
			if ctx.Err() != nil {
				return report, errors.Join(append(errs, ctx.Err())...)
			}
		}
	}
	return report, errors.Join(errs...)
}

// SyncSearch processes search pages. Every page gets its own trace ID.
func (m *Manager) SyncSearch(ctx context.Context, s *nextory.Session, pages iter.Seq2[*model.SearchPage, error]) (*model.Report, error) {
	report := &model.Report{}
	for page, err := range pages {
		if err != nil {
			return report, fmt.Errorf("search: %w", err)
		}

		traceID := s.NextTraceID()
		items := make([]Item, 0, len(page.Books))
		for _, ref := range page.Books {
			m.progress(ProgressEvent{Message: ref.String(), Level: LevelVerbose})
			items = append(items, Item{Ref: ref, Source: model.SourceSearch, TraceID: traceID})
		}
		report.Add(m.processBatch(ctx, s, items)...)

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}
	return report, nil
}

// processBatch runs ProcessOne over items with at most
// MaxConcurrentDownloads in flight. Outcomes keep the order of items.
func (m *Manager) processBatch(ctx context.Context, s *nextory.Session, items []Item) []model.Outcome {
	outcomes := make([]model.Outcome, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.settings.MaxConcurrentDownloads))

	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = m.ProcessOne(ctx, s, item)
			return nil // Continue with other books
		})
	}

	_ = g.Wait()
	return outcomes
}

// ProcessOne activates, downloads, tags and completes one book. It never
// returns an error: every failure becomes a Failed outcome.
func (m *Manager) ProcessOne(ctx context.Context, s *nextory.Session, item Item) model.Outcome {
	outcome := m.processOne(ctx, s, item)
	m.finish(ctx, outcome)
	return outcome
}

func (m *Manager) processOne(ctx context.Context, s *nextory.Session, item Item) model.Outcome {
	ref := item.Ref

	if item.Source != model.SourceActive && ref.Upcoming {
		return model.Skipped(ref, item.Source, model.ErrUpcoming.Error())
	}

	book := item.Book
	if book == nil {
		activated, err := m.library.Activate(ctx, s, ref.ID, ref.SalesTicket, item.TraceID)
		if err != nil {
			return model.Failed(ref, item.Source, fmt.Errorf("activate: %w", err))
		}
		book = activated
	}
	if book.Title != "" {
		ref = book.BookReference
	}

	format := book.File.Format()
	ext, err := format.Extension()
	if err != nil {
		return model.Failed(ref, item.Source, fmt.Errorf("format %#x: %w", book.File.FormatID, err))
	}

	path, existed, err := m.store.Materialize(ctx, s.Token(),
		ioutils.BookFolder(book.Authors), book.File, ioutils.BookFileName(book.Title, ext))
	if err != nil {
		return model.Failed(ref, item.Source, fmt.Errorf("download: %w", err))
	}

	if existed {
		m.progress(ProgressEvent{Message: fmt.Sprintf("%s exists. Skipping!", path), Level: LevelVerbose})
	} else if format.IsAudio() {
		m.tagBook(ctx, path, book)
	}

	if m.settings.MarkCompleted {
		if err := m.library.MarkCompleted(ctx, s, book.ID, m.now()); err != nil {
			failed := model.Failed(ref, item.Source, fmt.Errorf("mark completed: %w", err))
			failed.Path = path
			return failed
		}
	}

	return model.Downloaded(ref, item.Source, path, existed)
}

// tagBook writes title, author and cover. Failures are logged only; the
// file is already saved.
func (m *Manager) tagBook(ctx context.Context, path string, book *model.ActivatedBook) {
	if !m.settings.ModifyTags && !m.settings.SaveCoverArtInTags {
		return
	}

	tags := audio.BookTags{Title: book.Title, Artist: book.PrimaryAuthor()}

	if m.settings.SaveCoverArtInTags && book.CoverImageURL != "" && m.covers != nil {
		cover, mimeType, err := m.covers.Get(ctx, book.CoverImageURL)
		if err != nil {
			m.warn(book.ID, "Error downloading cover", err)
		} else {
			prepared, preparedType, err := m.imageService.PrepareCover(ctx, cover, mimeType, m.settings.ToCoverOptions())
			if err != nil {
				m.warn(book.ID, "Error preparing cover", err)
				prepared, preparedType = cover, mimeType
			}
			tags.Cover = prepared
			tags.CoverMimeType = preparedType
		}
	}

	if err := m.tagger.SaveTags(path, tags); err != nil {
		m.warn(book.ID, "Error tagging", err)
	}
}

func (m *Manager) finish(ctx context.Context, o model.Outcome) {
	atomic.AddInt32(&m.processed, 1)

	switch o.Status {
	case model.OutcomeDownloaded:
		atomic.AddInt32(&m.downloaded, 1)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", o.Path), Level: LevelSuccess})
	case model.OutcomeSkipped:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipped %d %s: %s", o.BookID, o.Title, o.Reason), Level: LevelVerbose})
	case model.OutcomeFailed:
		atomic.AddInt32(&m.failed, 1)
		m.logger.Warn("book failed", "book", o.BookID, "source", o.Source, "error", o.Err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("%d failed with %v", o.BookID, o.Err), Level: LevelError})
	}

	if m.recorder != nil {
		if err := m.recorder.Record(context.WithoutCancel(ctx), o); err != nil {
			m.logger.Warn("could not record outcome", "book", o.BookID, "error", err)
		}
	}
}

func (m *Manager) warn(bookID int64, msg string, err error) {
	m.logger.Warn(msg, "book", bookID, "error", err)
	m.progress(ProgressEvent{Message: fmt.Sprintf("%s %d: %v", msg, bookID, err), Level: LevelWarning})
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
