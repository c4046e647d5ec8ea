// Package nextory implements the Nextory mobile API: the login handshake,
// catalogue traversal and the library operations that license books for
// download.
//
// Every catalogue and library call takes an authenticated *Session. A Session
// is immutable; logging in again produces a new one.
//
// Paginated listings are exposed twice: as single page calls (Groups,
// SearchBookGroup, NewReleases, ListInactive) and as iter.Seq2 walkers
// (GroupPages, BookGroupPages, NewReleasePages, InactivePages) that stop on
// the endpoint's end-of-listing condition or on the first error.
package nextory
