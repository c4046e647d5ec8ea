// Package tui provides a Bubble Tea terminal user interface for nextory-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/nextory-downloader/internal/config"
	"github.com/handiism/nextory-downloader/internal/download"
	"github.com/handiism/nextory-downloader/internal/history"
	"github.com/handiism/nextory-downloader/internal/model"
	"github.com/handiism/nextory-downloader/internal/nextory"
	"github.com/handiism/nextory-downloader/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateLogin State = iota
	StateOptions
	StateConnecting
	StateSyncing
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	username textinput.Model
	password textinput.Model
	spinner  spinner.Model
	progress progress.Model

	settings *config.Settings
	tokens   *session.Store
	session  *nextory.Session

	logs   []LogEntry
	report *model.Report
	runID  string
	err    error

	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	events  chan download.ProgressEvent

	processed  int32
	downloaded int32
	failed     int32

	verbose bool

	width  int
	height int
}

// NewModel creates a model for the given settings. When a session token is
// already saved the login form is skipped.
func NewModel(settings *config.Settings) Model {
	user := textinput.New()
	user.Placeholder = "email@example.com"
	user.CharLimit = 200
	user.Width = 40
	user.SetValue(settings.Username)

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.CharLimit = 200
	pass.Width = 40
	pass.SetValue(settings.Password)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		state:    StateLogin,
		username: user,
		password: pass,
		spinner:  sp,
		progress: prog,
		settings: settings,
		tokens:   session.NewStore(settings.TokenPath),
		ctx:      ctx,
		cancel:   cancel,
	}

	if s, err := m.tokens.Load(); err == nil {
		m.session = s
		m.state = StateOptions
	} else {
		m.username.Focus()
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

type (
	// ProgressMsg carries one event from the download manager.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// LoginDoneMsg is sent when the login handshake finishes.
	LoginDoneMsg struct {
		Session *nextory.Session
		Err     error
	}

	// SyncDoneMsg is sent when all sweeps complete.
	SyncDoneMsg struct {
		Report *model.Report
		RunID  string
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, m.waitForEvent())
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case LoginDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			break
		}
		m.session = msg.Session
		m.state = StateOptions

	case SyncDoneMsg:
		m.report = msg.Report
		m.runID = msg.RunID
		if m.manager != nil {
			m.processed, m.downloaded, m.failed = m.manager.GetProgress()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil && msg.Report == nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.err = msg.Err
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateSyncing {
			m.processed, m.downloaded, m.failed = m.manager.GetProgress()
			cmds = append(cmds, m.progress.SetPercent(m.successRatio()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateLogin {
		var cmd tea.Cmd
		m.username, cmd = m.username.Update(msg)
		cmds = append(cmds, cmd)
		m.password, cmd = m.password.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.cancel()
		return m, tea.Quit, true

	case "esc":
		switch m.state {
		case StateLogin, StateOptions:
			return m, tea.Quit, true
		case StateConnecting, StateSyncing:
			m.cancel()
			return m, nil, true
		}

	case "tab", "shift+tab", "up", "down":
		if m.state == StateLogin {
			if m.username.Focused() {
				m.username.Blur()
				return m, m.password.Focus(), true
			}
			m.password.Blur()
			return m, m.username.Focus(), true
		}

	case "enter":
		switch m.state {
		case StateLogin:
			if m.username.Value() == "" || m.password.Value() == "" {
				return m, nil, true
			}
			m.state = StateConnecting
			return m, tea.Batch(m.login(), m.spinner.Tick), true
		case StateOptions:
			if !m.settings.DownloadActive && !m.settings.DownloadInactive && !m.settings.DownloadNewReleases &&
				len(m.settings.Categories) == 0 && len(m.settings.Views) == 0 {
				return m, nil, true
			}
			return m.startSync()
		}
	}

	if m.state == StateOptions {
		switch msg.String() {
		case "a":
			m.settings.DownloadActive = !m.settings.DownloadActive
		case "i":
			m.settings.DownloadInactive = !m.settings.DownloadInactive
		case "n":
			m.settings.DownloadNewReleases = !m.settings.DownloadNewReleases
		case "m":
			m.settings.MarkCompleted = !m.settings.MarkCompleted
		case "v":
			m.verbose = !m.verbose
		case "l":
			if err := m.tokens.Clear(); err != nil {
				m.state = StateError
				m.err = err
				return m, nil, true
			}
			m.session = nil
			m.state = StateLogin
			return m, m.username.Focus(), true
		case "q":
			return m, tea.Quit, true
		default:
			return m, nil, false
		}
		return m, nil, true
	}

	if m.state == StateComplete || m.state == StateError {
		switch msg.String() {
		case "q":
			return m, tea.Quit, true
		case "r":
			m.reset()
			if m.session == nil {
				return m, m.username.Focus(), true
			}
			return m, nil, true
		}
	}

	return m, nil, false
}

func (m *Model) reset() {
	m.logs = nil
	m.report = nil
	m.runID = ""
	m.err = nil
	m.processed, m.downloaded, m.failed = 0, 0, 0
	m.manager = nil
	m.events = nil
	m.ctx, m.cancel = context.WithCancel(context.Background())
	if m.session == nil {
		m.state = StateLogin
	} else {
		m.state = StateOptions
	}
}

func (m Model) startSync() (Model, tea.Cmd, bool) {
	m.events = make(chan download.ProgressEvent, 64)
	events := m.events
	ctx := m.ctx

	manager, err := download.NewManager(m.settings, func(event download.ProgressEvent) {
		select {
		case events <- event:
		case <-ctx.Done():
		default:
			// Drop the event rather than stall a worker when the UI lags.
		}
	})
	if err != nil {
		m.state = StateError
		m.err = err
		return m, nil, true
	}
	m.manager = manager
	m.state = StateSyncing
	return m, tea.Batch(m.sync(), m.waitForEvent(), m.tickProgress(), m.spinner.Tick), true
}

func (m Model) successRatio() float64 {
	if m.processed == 0 {
		return 0
	}
	return float64(m.downloaded) / float64(m.processed)
}

func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("📚 Nextory Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download your e-books and audiobooks"))
	b.WriteString("\n\n")

	switch m.state {
	case StateLogin:
		b.WriteString(m.viewLogin())
	case StateOptions:
		b.WriteString(m.viewOptions())
	case StateConnecting:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(subtitleStyle.Render("Logging in..."))
		b.WriteString("\n")
	case StateSyncing:
		b.WriteString(m.viewSyncing())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func (m Model) viewLogin() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Log in to Nextory:"))
	b.WriteString("\n\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n")

	return b.String()
}

func check(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewOptions() string {
	var b strings.Builder

	b.WriteString(infoStyle.Render("Sync:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Inactive (saved) books (i)\n", check(m.settings.DownloadInactive))
	fmt.Fprintf(&b, "  %s Active books (a)\n", check(m.settings.DownloadActive))
	fmt.Fprintf(&b, "  %s New releases (n)\n", check(m.settings.DownloadNewReleases))
	fmt.Fprintf(&b, "  %s Mark downloaded books completed (m)\n", check(m.settings.MarkCompleted))
	fmt.Fprintf(&b, "  %s Verbose output (v)\n", check(m.verbose))
	if len(m.settings.Categories) > 0 {
		fmt.Fprintf(&b, "  Categories: %s\n", strings.Join(m.settings.Categories, ", "))
	}
	if len(m.settings.Views) > 0 {
		fmt.Fprintf(&b, "  Views: %s\n", strings.Join(m.settings.Views, ", "))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download path: " + m.settings.DownloadsPath))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewSyncing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Syncing library..."))
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(m.successRatio()))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Processed: %d | Downloaded: %d | Failed: %d",
		m.processed, m.downloaded, m.failed,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	downloaded, skipped, failed := int(m.downloaded), 0, int(m.failed)
	if m.report != nil {
		downloaded = m.report.Count(model.OutcomeDownloaded)
		skipped = m.report.Count(model.OutcomeSkipped)
		failed = m.report.Count(model.OutcomeFailed)
	}

	summary := fmt.Sprintf("✨ Sync Complete!\n\nDownloaded: %d\nSkipped: %d\nFailed: %d", downloaded, skipped, failed)
	if m.runID != "" {
		summary += "\nRun: " + m.runID
	}
	b.WriteString(boxStyle.Render(summary))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(warningStyle.Render("! " + m.err.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		fmt.Fprintf(&b, "  %s", m.err.Error())
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateLogin:
		return "tab: switch field • enter: log in • esc: quit"
	case StateOptions:
		return "enter: sync • i/a/n/m/v: toggle • l: log out • q: quit"
	case StateConnecting, StateSyncing:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: again • q: quit"
	}
	return ""
}

func (m Model) login() tea.Cmd {
	ctx := m.ctx
	settings := m.settings
	tokens := m.tokens
	username, password := m.username.Value(), m.password.Value()

	return func() tea.Msg {
		client, err := settings.NewAPIClient()
		if err != nil {
			return LoginDoneMsg{Err: err}
		}
		s, err := nextory.NewAuthenticator(client, quietLogger()).Login(ctx, username, password)
		if err != nil {
			return LoginDoneMsg{Err: err}
		}
		if err := tokens.Save(s); err != nil {
			return LoginDoneMsg{Err: fmt.Errorf("save session: %w", err)}
		}
		return LoginDoneMsg{Session: s}
	}
}

// sync runs every enabled sweep in the background and records the run.
func (m Model) sync() tea.Cmd {
	ctx := m.ctx
	manager := m.manager
	settings := m.settings
	s := m.session
	events := m.events

	return func() tea.Msg {
		defer close(events)

		runID, finish := startHistory(ctx, settings.HistoryPath, manager, func(err error) {
			notify(events, download.ProgressEvent{Message: "History disabled: " + err.Error(), Level: download.LevelWarning})
		})
		defer finish()

		report, err := manager.Run(ctx, s)
		return SyncDoneMsg{Report: report, RunID: runID, Err: err}
	}
}

// startHistory opens the ledger and attaches a run recorder to manager. A
// ledger that cannot be opened is reported through warn and the sync goes on
// unrecorded.
func startHistory(ctx context.Context, path string, manager *download.Manager, warn func(error)) (string, func()) {
	if path == "" {
		return "", func() {}
	}

	store, err := history.Open(path)
	if err != nil {
		warn(err)
		return "", func() {}
	}

	run, err := store.StartRun(ctx, "tui")
	if err != nil {
		warn(err)
		_ = store.Close()
		return "", func() {}
	}

	manager.SetRecorder(store.Recorder(run.ID))
	return run.ID, func() {
		if err := store.FinishRun(context.WithoutCancel(ctx), run.ID); err != nil {
			warn(err)
		}
		_ = store.Close()
	}
}

func notify(events chan<- download.ProgressEvent, event download.ProgressEvent) {
	select {
	case events <- event:
	default:
	}
}

// quietLogger drops log records; the TUI reports through progress events.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Run starts the TUI application.
func Run() error {
	settings, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}
	slog.SetDefault(quietLogger())

	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
