package ioutils

import (
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxAuthorsInFolder caps how many authors name a book's folder.
	MaxAuthorsInFolder = 5

	// MaxTitleLength caps the title part of a file name, in characters.
	MaxTitleLength = 200
)

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots  = regexp.MustCompile(`\.+$`)
	repeatedSpace = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("Dune: Messiah/2")  // Returns "Dune_ Messiah_2"
//	SanitizeFileName("Volume...")        // Returns "Volume"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

// BookFolder names a book's folder after its first five authors joined by
// " & ".
func BookFolder(authors []string) string {
	if len(authors) > MaxAuthorsInFolder {
		authors = authors[:MaxAuthorsInFolder]
	}
	return strings.Join(authors, " & ")
}

// BookFileName returns the title, cut to MaxTitleLength characters, with the
// extension appended.
func BookFileName(title, ext string) string {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		title = string([]rune(title)[:MaxTitleLength])
	}
	return title + "." + ext
}

// EnsureDir creates a directory and all parent directories if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
