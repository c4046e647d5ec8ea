// Package traceid generates the opaque alphanumeric identifiers sent with
// activation requests that originate from a search result page.
//
// Identifiers are correlation tokens, not secrets, so math/rand is used.
package traceid

import "math/rand/v2"

// Alphanumeric is the default 62 symbol alphabet.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Length is the trace ID length the mobile app uses.
const Length = 21

// Generator draws identifiers uniformly, with replacement, from an alphabet.
//
// One Generator is created per session and reused. It is safe for concurrent
// use as long as the intn function is.
type Generator struct {
	symbols string
	intn    func(n int) int
}

// New creates a Generator over the alphanumeric alphabet.
func New() *Generator {
	return &Generator{symbols: Alphanumeric, intn: rand.IntN}
}

// NewWithSource creates a Generator with a custom alphabet and random source.
// An empty alphabet falls back to Alphanumeric and a nil intn to rand.IntN.
func NewWithSource(symbols string, intn func(n int) int) *Generator {
	if symbols == "" {
		symbols = Alphanumeric
	}
	if intn == nil {
		intn = rand.IntN
	}
	return &Generator{symbols: symbols, intn: intn}
}

// NextID returns a string of exactly length symbols. Non-positive lengths
// yield an empty string.
func (g *Generator) NextID(length int) string {
	if length <= 0 {
		return ""
	}

	buf := make([]byte, length)
	for i := range buf {
		buf[i] = g.symbols[g.intn(len(g.symbols))]
	}
	return string(buf)
}

// Next returns a trace ID of the default Length.
func (g *Generator) Next() string {
	return g.NextID(Length)
}
