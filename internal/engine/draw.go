package engine

import (
	"slices"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/selection"
)

// HitMargin is how far outside a shape a pointer still hits it.
const HitMargin = 4.0

// DrawCommand is one drawing operation for the frontend to execute on a
// Canvas2D context, in painter's order.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "path" or "selection"
	ShapeID     string        `json:"shapeId,omitempty"`     // for hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // in the shape's local space
	Fill        string        `json:"fill,omitempty"`        // fill color
	Stroke      string        `json:"stroke,omitempty"`      // stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // stroke width
	Selected    bool          `json:"selected,omitempty"`
}

// PathCommand is a single path segment in Canvas2D form:
// ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []any

// CompileDrawCommands generates the draw commands for page, followed by the
// selection outline.
func CompileDrawCommands(page *document.Page, state *document.PageState) []DrawCommand {
	commands := []DrawCommand{}
	for _, id := range selection.All(page) {
		compileShape(page, state, page.Shapes[id], &commands)
	}

	if shapes := selection.Shapes(page, state.SelectedIDs); len(shapes) > 0 {
		b := document.CommonBounds(shapes)
		identity := geom.Identity()
		commands = append(commands, DrawCommand{
			Op:          "selection",
			Transform:   identity[:],
			Path:        rectPath(b.Width, b.Height, b.X, b.Y),
			Stroke:      "#2f80ed",
			StrokeWidth: 1,
		})
	}
	return commands
}

func compileShape(page *document.Page, state *document.PageState, s *document.Shape, commands *[]DrawCommand) {
	if s.IsGroup() {
		for _, id := range selection.SortByChildIndex(page, s.Children) {
			if child, ok := page.Shape(id); ok {
				compileShape(page, state, child, commands)
			}
		}
		return
	}

	cmd := DrawCommand{
		Op:          "path",
		ShapeID:     s.ID,
		Stroke:      "#000000",
		StrokeWidth: 2,
		Selected:    slices.Contains(state.SelectedIDs, s.ID),
	}
	switch s.Type {
	case document.ShapeRectangle:
		m := geom.ShapeTransform(s.Point, s.Size, s.Rotation)
		cmd.Transform = m[:]
		cmd.Path = rectPath(s.Size.X, s.Size.Y, 0, 0)
	case document.ShapeEllipse:
		m := geom.ShapeTransform(s.Point, s.Size, s.Rotation)
		cmd.Transform = m[:]
		cmd.Path = ellipsePath(s.Size.X/2, s.Size.Y/2)
	case document.ShapeArrow:
		start, ok1 := s.Handles["start"]
		end, ok2 := s.Handles["end"]
		if !ok1 || !ok2 {
			return
		}
		m := geom.Translate(s.Point.X, s.Point.Y)
		cmd.Transform = m[:]
		cmd.Path = []PathCommand{
			{"M", start.Point.X, start.Point.Y},
			{"L", end.Point.X, end.Point.Y},
		}
	default:
		return
	}
	*commands = append(*commands, cmd)
}

func rectPath(w, h, x, y float64) []PathCommand {
	return []PathCommand{
		{"M", x, y},
		{"L", x + w, y},
		{"L", x + w, y + h},
		{"L", x, y + h},
		{"Z"},
	}
}

// ellipsePath approximates an ellipse centred at (rx, ry) with four
// bezier curves.
func ellipsePath(rx, ry float64) []PathCommand {
	// k = 4 * (sqrt(2) - 1) / 3
	const k = 0.5522847498
	kx, ky := rx*k, ry*k
	cx, cy := rx, ry

	return []PathCommand{
		{"M", cx + rx, cy},
		{"C", cx + rx, cy + ky, cx + kx, cy + ry, cx, cy + ry},
		{"C", cx - kx, cy + ry, cx - rx, cy + ky, cx - rx, cy},
		{"C", cx - rx, cy - ky, cx - kx, cy - ry, cx, cy - ry},
		{"C", cx + kx, cy - ry, cx + rx, cy - ky, cx + rx, cy},
		{"Z"},
	}
}

// HitTest returns the frontmost leaf shape containing p, or "".
func HitTest(page *document.Page, p geom.Vec) string {
	return hitTestShapes(page, selection.All(page), p)
}

func hitTestShapes(page *document.Page, ids []string, p geom.Vec) string {
	// Front to back.
	for i := len(ids) - 1; i >= 0; i-- {
		s, ok := page.Shape(ids[i])
		if !ok {
			continue
		}
		if s.IsGroup() {
			if hit := hitTestShapes(page, selection.SortByChildIndex(page, s.Children), p); hit != "" {
				return hit
			}
			continue
		}
		if document.Contains(s, p, HitMargin) {
			return s.ID
		}
	}
	return ""
}
