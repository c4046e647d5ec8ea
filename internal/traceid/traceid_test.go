package traceid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextID_LengthAndAlphabet(t *testing.T) {
	g := New()

	for _, n := range []int{1, 5, Length, 64, 500} {
		id := g.NextID(n)
		require.Len(t, id, n)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(Alphanumeric, r), "unexpected symbol %q", r)
		}
	}
}

func TestNextID_NonPositive(t *testing.T) {
	g := New()
	assert.Equal(t, "", g.NextID(0))
	assert.Equal(t, "", g.NextID(-3))
}

func TestNext_DefaultLength(t *testing.T) {
	assert.Len(t, New().Next(), Length)
}

func TestNewWithSource_Deterministic(t *testing.T) {
	calls := 0
	g := NewWithSource("ab", func(n int) int {
		calls++
		return calls % n
	})

	assert.Equal(t, "baba", g.NextID(4))
}

func TestAlphabetSize(t *testing.T) {
	assert.Len(t, Alphanumeric, 62)
}
