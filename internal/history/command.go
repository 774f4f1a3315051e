package history

import "github.com/inamate/whiteboard/internal/typeid"

// Command is an invertible record of one mutation: applying Before undoes it,
// applying After replays it.
type Command struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Before Patch  `json:"before"`
	After  Patch  `json:"after"`
	// Mergeable commands are live previews of an interaction; the next
	// mergeable command with the same SessionID replaces them.
	Mergeable bool   `json:"mergeable,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// NewCommand creates a permanent command.
func NewCommand(name string, before, after Patch) Command {
	return Command{ID: typeid.NewCommandID(), Name: name, Before: before, After: after}
}

// mergeInto folds c on top of prev: the oldest before value and the newest
// after value win for every entity either of them touched.
func (c Command) mergeInto(prev Command) Command {
	merged := c
	merged.Before = overlay(c.Before, prev.Before)
	merged.After = overlay(prev.After, c.After)
	return merged
}

// canMerge reports whether c replaces prev on the stack.
func (c Command) canMerge(prev Command) bool {
	return c.SessionID != "" && prev.Mergeable && prev.SessionID == c.SessionID && prev.Name == c.Name
}

// IsNoop reports whether replaying the command would change nothing.
func (c Command) IsNoop() bool {
	for id, s := range c.After.Shapes {
		if !s.Equal(c.Before.Shapes[id]) {
			return false
		}
	}
	for id, b := range c.After.Bindings {
		if !b.Equal(c.Before.Bindings[id]) {
			return false
		}
	}
	if c.After.PageState != nil && !c.After.PageState.Equal(c.Before.PageState) {
		return false
	}
	return true
}
