// Package history implements linear undo/redo over page patches.
package history

import (
	"github.com/inamate/whiteboard/internal/document"
)

// DefaultLimit bounds the number of retained commands.
const DefaultLimit = 500

// History is a pointer-indexed command stack. Commands after the pointer are
// the redo set; pushing while commands are undone discards them.
type History struct {
	stack   []Command
	pointer int
	limit   int
}

// New creates an empty history. A limit <= 0 uses DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{pointer: -1, limit: limit}
}

// Push records c. A mergeable top entry from the same interaction is
// replaced rather than stacked.
func (h *History) Push(c Command) {
	h.stack = h.stack[:h.pointer+1]

	if top, ok := h.Top(); ok && c.canMerge(top) {
		h.stack[h.pointer] = c.mergeInto(top)
		return
	}

	h.stack = append(h.stack, c)
	h.pointer++

	if over := len(h.stack) - h.limit; over > 0 {
		h.stack = append([]Command(nil), h.stack[over:]...)
		h.pointer -= over
	}
}

// Undo applies the before snapshot of the command at the pointer.
// It returns false when there is nothing to undo.
func (h *History) Undo(page *document.Page, state *document.PageState) (Command, bool) {
	if h.pointer < 0 {
		return Command{}, false
	}
	c := h.stack[h.pointer]
	c.Before.ApplyTo(page, state)
	h.pointer--
	return c, true
}

// Redo re-applies the after snapshot of the next undone command.
func (h *History) Redo(page *document.Page, state *document.PageState) (Command, bool) {
	if h.pointer >= len(h.stack)-1 {
		return Command{}, false
	}
	h.pointer++
	c := h.stack[h.pointer]
	c.After.ApplyTo(page, state)
	return c, true
}

// Discard drops the top command without applying anything. Used to remove a
// live preview after the page has been restored.
func (h *History) Discard() (Command, bool) {
	if h.pointer < 0 || h.pointer != len(h.stack)-1 {
		return Command{}, false
	}
	c := h.stack[h.pointer]
	h.stack = h.stack[:h.pointer]
	h.pointer--
	return c, true
}

// Seal turns the live command of a finished interaction into a permanent
// one. A live command that nets out to no change is dropped instead. It
// returns the sealed command, or false when nothing was recorded.
func (h *History) Seal(sessionID string) (Command, bool) {
	top, ok := h.Top()
	if !ok || !top.Mergeable || top.SessionID != sessionID || h.pointer != len(h.stack)-1 {
		return Command{}, false
	}
	if top.IsNoop() {
		h.Discard()
		return Command{}, false
	}
	top.Mergeable = false
	h.stack[h.pointer] = top
	return top, true
}

// Top returns the command at the pointer.
func (h *History) Top() (Command, bool) {
	if h.pointer < 0 {
		return Command{}, false
	}
	return h.stack[h.pointer], true
}

func (h *History) CanUndo() bool { return h.pointer >= 0 }
func (h *History) CanRedo() bool { return h.pointer < len(h.stack)-1 }
func (h *History) Len() int      { return len(h.stack) }
func (h *History) Pointer() int  { return h.pointer }
func (h *History) Limit() int    { return h.limit }

// Commands returns a copy of the stack, oldest first.
func (h *History) Commands() []Command {
	return append([]Command(nil), h.stack...)
}

// Reset clears the stack.
func (h *History) Reset() {
	h.stack = nil
	h.pointer = -1
}
