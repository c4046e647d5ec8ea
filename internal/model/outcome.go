package model

import (
	"errors"
	"fmt"
)

// ErrUpcoming is the skip reason for books that cannot be activated yet.
var ErrUpcoming = errors.New("upcoming title cannot be activated")

// Source tells the pipeline where a book reference came from.
type Source int

const (
	// SourceSearch is a catalogue search, group or new release page.
	SourceSearch Source = iota

	// SourceInactive is the saved, not yet activated, library.
	SourceInactive

	// SourceActive is the active library. These books are already licensed.
	SourceActive
)

func (s Source) String() string {
	switch s {
	case SourceInactive:
		return "inactive"
	case SourceActive:
		return "active"
	default:
		return "search"
	}
}

// OutcomeStatus is the result class of processing one book.
type OutcomeStatus string

const (
	OutcomeDownloaded OutcomeStatus = "downloaded"
	OutcomeSkipped    OutcomeStatus = "skipped"
	OutcomeFailed     OutcomeStatus = "failed"
)

// Outcome is the recorded result of processing one book.
type Outcome struct {
	BookID int64
	Title  string
	Source Source
	Status OutcomeStatus

	// Path is set for downloaded books, and for failures that happened after
	// the file was saved.
	Path string

	// Existing is true when Path was already on disk and nothing was fetched.
	Existing bool

	// Reason explains a skip.
	Reason string

	// Err is the cause of a failure.
	Err error
}

// Downloaded builds a successful outcome.
func Downloaded(ref BookReference, source Source, path string, existing bool) Outcome {
	return Outcome{BookID: ref.ID, Title: ref.Title, Source: source, Status: OutcomeDownloaded, Path: path, Existing: existing}
}

// Skipped builds a skip outcome.
func Skipped(ref BookReference, source Source, reason string) Outcome {
	return Outcome{BookID: ref.ID, Title: ref.Title, Source: source, Status: OutcomeSkipped, Reason: reason}
}

// Failed builds a failure outcome.
func Failed(ref BookReference, source Source, err error) Outcome {
	return Outcome{BookID: ref.ID, Title: ref.Title, Source: source, Status: OutcomeFailed, Err: err}
}

func (o Outcome) String() string {
	switch o.Status {
	case OutcomeDownloaded:
		return fmt.Sprintf("%d %s: downloaded to %s", o.BookID, o.Title, o.Path)
	case OutcomeSkipped:
		return fmt.Sprintf("%d %s: skipped (%s)", o.BookID, o.Title, o.Reason)
	default:
		return fmt.Sprintf("%d %s: failed: %v", o.BookID, o.Title, o.Err)
	}
}

// Report aggregates the outcomes of a batch.
type Report struct {
	Outcomes []Outcome
}

// Add appends outcomes in order.
func (r *Report) Add(outcomes ...Outcome) {
	r.Outcomes = append(r.Outcomes, outcomes...)
}

// Merge appends another report's outcomes.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
}

// Count returns how many outcomes have the given status.
func (r *Report) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes.
func (r *Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed {
			failed = append(failed, o)
		}
	}
	return failed
}
