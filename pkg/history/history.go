// Package history keeps the operator's manually typed command lines for
// up/down recall.
package history

import "sync"

// DefaultCapacity is the number of lines kept before the oldest is dropped.
const DefaultCapacity = 100

// History is a bounded FIFO of command lines with a recall cursor. The
// cursor ranges over [0, Len()]; Len() means no line is selected.
type History struct {
	mu       sync.Mutex
	lines    []string
	cursor   int
	capacity int
}

// New creates a history holding at most capacity lines. A non-positive
// capacity selects DefaultCapacity.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		lines:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Append stores line, evicting the oldest entry when full, and moves the
// cursor past the end.
func (h *History) Append(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lines = append(h.lines, line)
	if len(h.lines) > h.capacity {
		copy(h.lines, h.lines[1:])
		h.lines = h.lines[:h.capacity]
	}
	h.cursor = len(h.lines)
}

// RecallPrevious steps the cursor back (not below 0) and returns the line
// there. ok is false when there is nothing to show.
func (h *History) RecallPrevious() (line string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cursor--
	if h.cursor < 0 {
		h.cursor = 0
	}
	if h.cursor < len(h.lines) {
		return h.lines[h.cursor], true
	}
	return "", false
}

// RecallNext steps the cursor forward (not past the end). At the end it
// returns the empty line, so the input field goes blank.
func (h *History) RecallNext() (line string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cursor++
	if h.cursor > len(h.lines) {
		h.cursor = len(h.lines)
	}
	if h.cursor < len(h.lines) {
		return h.lines[h.cursor], true
	}
	return "", true
}

// Len returns the number of stored lines.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lines)
}

// Cursor returns the recall position.
func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Lines returns a copy of the stored lines, oldest first.
func (h *History) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}
