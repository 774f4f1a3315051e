// Package editor is the document state engine. An Editor owns one document,
// its undo history and the current interaction session, and is the only
// place where pages are mutated.
//
// An Editor is not safe for concurrent use; callers serialise access.
package editor

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/inamate/whiteboard/internal/binding"
	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/history"
	"github.com/inamate/whiteboard/internal/input"
	"github.com/inamate/whiteboard/internal/session"
	"github.com/inamate/whiteboard/internal/typeid"
)

// Command names recorded in history.
const (
	CmdCreate  = "create"
	CmdUpdate  = "update"
	CmdDelete  = "delete"
	CmdGroup   = "group"
	CmdUngroup = "ungroup"
)

type Options struct {
	// HistoryLimit bounds the undo stack. Zero uses history.DefaultLimit.
	HistoryLimit int
	// DeleteEmptyGroups removes a group once its last child is deleted.
	DeleteEmptyGroups bool
	// Darwin selects Apple modifier handling for pointer input.
	Darwin bool
	Logger *slog.Logger
	// NewShapeID and NewBindingID generate ids for new entities. They
	// default to typeid generators.
	NewShapeID   func() string
	NewBindingID func() string
}

// Editor owns the document and processes commands against it.
type Editor struct {
	doc      *document.Document
	history  *history.History
	sessions *session.Machine
	input    input.State
	tool     toolState
	opts     Options
	log      *slog.Logger
}

// New creates an editor holding an empty document.
func New(opts Options) *Editor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewShapeID == nil {
		opts.NewShapeID = typeid.NewShapeID
	}
	if opts.NewBindingID == nil {
		opts.NewBindingID = typeid.NewBindingID
	}
	e := &Editor{
		history:  history.New(opts.HistoryLimit),
		sessions: session.NewMachine(),
		input:    input.NewState(opts.Darwin),
		opts:     opts,
		log:      opts.Logger,
	}
	e.NewProject(typeid.NewBoardID())
	return e
}

// --- Lifecycle ---

// NewProject replaces the document with an empty one.
func (e *Editor) NewProject(docID string) {
	e.doc = document.NewEmptyDocument(docID, "Untitled", document.DefaultPageID)
	e.Reset()
}

// LoadDocument replaces the document with a copy of doc. The document must
// be internally consistent. History and any session are discarded.
func (e *Editor) LoadDocument(doc *document.Document) error {
	if doc == nil {
		return fmt.Errorf("load document: %w", document.ErrNotFound)
	}
	next := doc.Clone()
	if _, ok := next.Pages[next.CurrentPageID]; !ok {
		return fmt.Errorf("load document: current page %q: %w", next.CurrentPageID, document.ErrNotFound)
	}
	if next.PageStates == nil {
		next.PageStates = map[string]*document.PageState{}
	}
	for id, page := range next.Pages {
		if page.Shapes == nil {
			page.Shapes = map[string]*document.Shape{}
		}
		if page.Bindings == nil {
			page.Bindings = map[string]*document.Binding{}
		}
		if err := binding.Validate(page, shapeIDs(page), bindingIDs(page)); err != nil {
			return fmt.Errorf("load document: page %q: %w", id, err)
		}
		if next.PageStates[id] == nil {
			next.PageStates[id] = document.NewPageState(id)
		}
	}

	e.doc = next
	e.Reset()
	e.log.Debug("document loaded", "doc", next.ID, "pages", len(next.Pages))
	return nil
}

// Reset clears history, sessions and pointer state while keeping the
// document.
func (e *Editor) Reset() {
	e.history = history.New(e.opts.HistoryLimit)
	e.sessions.Reset()
	e.input = input.Reset(e.input)
	e.tool = toolState{}
}

// --- Queries ---

// Document returns a deep copy of the document.
func (e *Editor) Document() *document.Document {
	return e.doc.Clone()
}

// Page returns a copy of the current page.
func (e *Editor) Page() *document.Page {
	page, _ := e.current()
	return page.Clone()
}

// PageState returns a copy of the current page state.
func (e *Editor) PageState() *document.PageState {
	_, state := e.current()
	return state.Clone()
}

// Shape returns a copy of the shape with the given id.
func (e *Editor) Shape(id string) (*document.Shape, bool) {
	page, _ := e.current()
	s, ok := page.Shape(id)
	return s.Clone(), ok
}

// Bindings returns copies of the bindings on the current page, by id.
func (e *Editor) Bindings() []*document.Binding {
	page, _ := e.current()
	out := make([]*document.Binding, 0, len(page.Bindings))
	for _, id := range bindingIDs(page) {
		out = append(out, page.Bindings[id].Clone())
	}
	return out
}

func (e *Editor) SelectedIDs() []string {
	_, state := e.current()
	return slices.Clone(state.SelectedIDs)
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// History returns the recorded commands, oldest first.
func (e *Editor) History() []history.Command { return e.history.Commands() }

// SessionState reports whether a session is running.
func (e *Editor) SessionState() session.State { return e.sessions.State() }

// LastSessionOutcome is how the most recent session ended.
func (e *Editor) LastSessionOutcome() session.State { return e.sessions.Last() }

// Version increases with every change to the document.
func (e *Editor) Version() int { return e.doc.Version }

// --- History ---

// Undo reverts the last command. A running session is cancelled first.
func (e *Editor) Undo() error {
	if err := e.CancelSession(); err != nil {
		return err
	}
	page, state := e.current()
	if c, ok := e.history.Undo(page, state); ok {
		e.doc.Version++
		e.log.Debug("undo", "command", c.Name, "id", c.ID)
	}
	return nil
}

// Redo replays the next undone command. A running session is cancelled
// first.
func (e *Editor) Redo() error {
	if err := e.CancelSession(); err != nil {
		return err
	}
	page, state := e.current()
	if c, ok := e.history.Redo(page, state); ok {
		e.doc.Version++
		e.log.Debug("redo", "command", c.Name, "id", c.ID)
	}
	return nil
}

// --- Internals ---

func (e *Editor) current() (*document.Page, *document.PageState) {
	return e.doc.CurrentPage()
}

// record runs fn inside a transaction and checks binding integrity over
// everything it touched. On failure every change is rolled back.
func (e *Editor) record(fn func(tx *history.Tx) error) (*history.Tx, error) {
	page, state := e.current()
	tx := history.Begin(page, state)
	if err := fn(tx); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := binding.Validate(page, tx.TouchedShapes(), tx.TouchedBindings()); err != nil {
		tx.Rollback()
		return nil, err
	}
	return tx, nil
}

// dispatch records fn as one permanent command. A mutation that changes
// nothing records nothing.
func (e *Editor) dispatch(name string, fn func(tx *history.Tx) error) error {
	if _, _, active := e.sessions.Active(); active {
		return fmt.Errorf("%s: %w", name, errSessionActive)
	}
	tx, err := e.record(fn)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	before, after := tx.Diff()
	if after.Empty() {
		return nil
	}
	c := history.NewCommand(name, before, after)
	e.history.Push(c)
	e.doc.Version++
	e.log.Debug("command", "name", name, "id", c.ID, "entities", after.Size())
	return nil
}

func shapeIDs(page *document.Page) []string {
	ids := make([]string, 0, len(page.Shapes))
	for id := range page.Shapes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func bindingIDs(page *document.Page) []string {
	ids := make([]string, 0, len(page.Bindings))
	for id := range page.Bindings {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
