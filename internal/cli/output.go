package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/nextory-downloader/internal/download"
	"github.com/handiism/nextory-downloader/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B35"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	verboseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))
)

// printer serializes output from concurrent download workers.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

func newPrinter(out io.Writer, verbose bool) *printer {
	return &printer{out: out, verbose: verbose}
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func (p *printer) title(s string) {
	p.println(titleStyle.Render(s))
}

// event renders a progress event. Verbose events are hidden unless enabled.
func (p *printer) event(e download.ProgressEvent) {
	if e.Level == download.LevelVerbose && !p.verbose {
		return
	}

	var line string
	switch e.Level {
	case download.LevelError:
		line = errorStyle.Render("✗ " + e.Message)
	case download.LevelWarning:
		line = warningStyle.Render("! " + e.Message)
	case download.LevelSuccess:
		line = successStyle.Render("✓ " + e.Message)
	case download.LevelInfo:
		line = infoStyle.Render("› " + e.Message)
	default:
		line = verboseStyle.Render("  " + e.Message)
	}
	p.println(line)
}

func (p *printer) report(r *model.Report) {
	p.println("")
	p.println(fmt.Sprintf("%s  %s  %s",
		successStyle.Render(fmt.Sprintf("%d downloaded", r.Count(model.OutcomeDownloaded))),
		verboseStyle.Render(fmt.Sprintf("%d skipped", r.Count(model.OutcomeSkipped))),
		errorStyle.Render(fmt.Sprintf("%d failed", r.Count(model.OutcomeFailed))),
	))
	for _, o := range r.Failures() {
		p.println(errorStyle.Render(fmt.Sprintf("  %d %s: %v", o.BookID, o.Title, o.Err)))
	}
}

func statusStyle(status model.OutcomeStatus) lipgloss.Style {
	switch status {
	case model.OutcomeDownloaded:
		return successStyle
	case model.OutcomeFailed:
		return errorStyle
	default:
		return verboseStyle
	}
}
