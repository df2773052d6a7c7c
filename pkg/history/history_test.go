package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecallReverseOrder(t *testing.T) {
	h := New(0)
	var sent []string
	for i := 0; i < DefaultCapacity; i++ {
		line := fmt.Sprintf("M105 ; %d", i)
		sent = append(sent, line)
		h.Append(line)
	}

	for i := len(sent) - 1; i >= 0; i-- {
		got, ok := h.RecallPrevious()
		require.True(t, ok)
		assert.Equal(t, sent[i], got)
	}

	// Floored at the oldest entry.
	got, ok := h.RecallPrevious()
	assert.True(t, ok)
	assert.Equal(t, sent[0], got)
	assert.Equal(t, 0, h.Cursor())
}

func TestEviction(t *testing.T) {
	h := New(0)
	for i := 0; i <= DefaultCapacity; i++ {
		h.Append(fmt.Sprintf("G1 X%d", i))
	}
	assert.Equal(t, DefaultCapacity, h.Len())

	seen := map[string]bool{}
	for i := 0; i < DefaultCapacity+5; i++ {
		line, _ := h.RecallPrevious()
		seen[line] = true
	}
	assert.False(t, seen["G1 X0"], "first line must be unrecoverable")
	assert.True(t, seen["G1 X1"])
	assert.True(t, seen[fmt.Sprintf("G1 X%d", DefaultCapacity)])
}

func TestRecallNextBlankSentinel(t *testing.T) {
	h := New(10)
	h.Append("G28")
	h.Append("M105")

	line, ok := h.RecallPrevious()
	assert.True(t, ok)
	assert.Equal(t, "M105", line)
	line, _ = h.RecallPrevious()
	assert.Equal(t, "G28", line)

	line, ok = h.RecallNext()
	assert.True(t, ok)
	assert.Equal(t, "M105", line)

	line, ok = h.RecallNext()
	assert.True(t, ok)
	assert.Equal(t, "", line)
	assert.Equal(t, 2, h.Cursor())

	// Capped at the end.
	line, ok = h.RecallNext()
	assert.True(t, ok)
	assert.Equal(t, "", line)
	assert.Equal(t, 2, h.Cursor())
}

func TestRecallOnEmpty(t *testing.T) {
	h := New(10)

	line, ok := h.RecallPrevious()
	assert.False(t, ok)
	assert.Equal(t, "", line)
	assert.Equal(t, 0, h.Cursor())

	line, ok = h.RecallNext()
	assert.True(t, ok)
	assert.Equal(t, "", line)
	assert.Equal(t, 0, h.Cursor())
}

func TestAppendResetsCursor(t *testing.T) {
	h := New(10)
	h.Append("a")
	h.Append("b")
	h.RecallPrevious()
	h.RecallPrevious()
	assert.Equal(t, 0, h.Cursor())

	h.Append("c")
	assert.Equal(t, 3, h.Cursor())
	assert.Equal(t, []string{"a", "b", "c"}, h.Lines())
}

func TestRecallNeverMutates(t *testing.T) {
	h := New(3)
	for _, l := range []string{"a", "b", "c", "d"} {
		h.Append(l)
	}
	before := h.Lines()
	for i := 0; i < 10; i++ {
		h.RecallPrevious()
		h.RecallNext()
	}
	assert.Equal(t, before, h.Lines())
	assert.Equal(t, []string{"b", "c", "d"}, before)
}
