//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/inamate/whiteboard/internal/editor"
	"github.com/inamate/whiteboard/internal/engine"
)

var eng *engine.Engine

func main() {
	darwin := js.Global().Get("navigator").Get("platform").String()
	eng = engine.NewEngine(editor.Options{
		DeleteEmptyGroups: true,
		Darwin:            len(darwin) >= 3 && darwin[:3] == "Mac",
	})

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("loadDocument", js.FuncOf(withString(eng.LoadDocument)))
	api.Set("loadSampleDocument", js.FuncOf(withString(eng.LoadSampleDocument)))
	api.Set("newProject", js.FuncOf(newProject))
	api.Set("select", js.FuncOf(withString(eng.Select)))
	api.Set("selectAll", js.FuncOf(withNone(eng.SelectAll)))
	api.Set("deselectAll", js.FuncOf(withNone(eng.DeselectAll)))
	api.Set("createShapes", js.FuncOf(withString(eng.CreateShapes)))
	api.Set("updateShapes", js.FuncOf(withString(eng.UpdateShapes)))
	api.Set("delete", js.FuncOf(withString(eng.Delete)))
	api.Set("group", js.FuncOf(withString(eng.Group)))
	api.Set("ungroup", js.FuncOf(withString(eng.Ungroup)))
	api.Set("undo", js.FuncOf(withNone(eng.Undo)))
	api.Set("redo", js.FuncOf(withNone(eng.Redo)))
	api.Set("startSession", js.FuncOf(startSession))
	api.Set("updateSession", js.FuncOf(updateSession))
	api.Set("completeSession", js.FuncOf(withNone(eng.CompleteSession)))
	api.Set("cancelSession", js.FuncOf(withNone(eng.CancelSession)))
	api.Set("pointerDown", js.FuncOf(withPointer(eng.PointerDown)))
	api.Set("pointerMove", js.FuncOf(withPointer(eng.PointerMove)))
	api.Set("pointerUp", js.FuncOf(withPointer(eng.PointerUp)))

	// --- Queries (frontend ← engine) ---
	api.Set("render", js.FuncOf(query(eng.Render)))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getSelectionBounds", js.FuncOf(query(eng.GetSelectionBounds)))
	api.Set("getDocument", js.FuncOf(query(eng.GetDocument)))
	api.Set("getPage", js.FuncOf(query(eng.GetPage)))
	api.Set("getPageState", js.FuncOf(query(eng.GetPageState)))
	api.Set("getSelection", js.FuncOf(query(eng.GetSelection)))
	api.Set("getBindings", js.FuncOf(query(eng.GetBindings)))
	api.Set("getEditorState", js.FuncOf(query(eng.GetEditorState)))

	js.Global().Set("whiteboardEngine", api)
	js.Global().Set("whiteboardWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func result(err error) any {
	if err != nil {
		return js.ValueOf(map[string]any{"error": err.Error()})
	}
	return js.ValueOf(map[string]any{"ok": true})
}

func missing(what string) any {
	return js.ValueOf(map[string]any{"error": "missing " + what})
}

func arg(args []js.Value, i int) string {
	if i >= len(args) || args[i].IsUndefined() || args[i].IsNull() {
		return ""
	}
	return args[i].String()
}

func withNone(fn func() error) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		return result(fn())
	}
}

// withString passes an optional JSON string argument.
func withString(fn func(string) error) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		return result(fn(arg(args, 0)))
	}
}

func withPointer(fn func(eventJSON, target string) error) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return missing("pointer event JSON")
		}
		return result(fn(args[0].String(), arg(args, 1)))
	}
}

func query(fn func() string) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		return js.ValueOf(fn())
	}
}

func newProject(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("document id")
	}
	eng.NewProject(args[0].String())
	return result(nil)
}

// startSession(kind, x, y, edge?, handleId?, shapeId?)
func startSession(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return missing("session kind and point")
	}
	return result(eng.StartSession(args[0].String(), args[1].Float(), args[2].Float(),
		arg(args, 3), arg(args, 4), arg(args, 5)))
}

// updateSession(x, y, modifiersJSON?)
func updateSession(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("point")
	}
	return result(eng.UpdateSession(args[0].Float(), args[1].Float(), arg(args, 2)))
}

func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}
