package nextory

import "github.com/handiism/nextory-downloader/internal/traceid"

// Session is an authenticated API session.
type Session struct {
	token string
	ids   *traceid.Generator
}

// NewSession wraps a token. ids may be nil, in which case a default
// generator is used.
func NewSession(token string, ids *traceid.Generator) *Session {
	if ids == nil {
		ids = traceid.New()
	}
	return &Session{token: token, ids: ids}
}

// FromToken trusts a previously obtained token verbatim. No request is made;
// an expired token surfaces on the first authenticated call.
func FromToken(token string) *Session {
	return NewSession(token, nil)
}

// Token returns the session token.
func (s *Session) Token() string {
	return s.token
}

// NextTraceID returns a fresh trace ID for activations from a search page.
func (s *Session) NextTraceID() string {
	return s.ids.Next()
}
