// Package export renders board pages to images.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/geom"
	"github.com/inamate/whiteboard/internal/selection"
)

var ErrEmpty = errors.New("nothing to export")

type Options struct {
	// Scale is pixels per page unit.
	Scale float64
	// Padding is the margin around the shapes, in page units.
	Padding float64
	// Labels draws shape names.
	Labels bool
}

func DefaultOptions() Options {
	return Options{Scale: 1, Padding: 16, Labels: true}
}

var (
	fontOnce sync.Once
	fontErr  error
	ttf      *truetype.Font
)

func labelFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		ttf, fontErr = truetype.Parse(gomono.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("parse font: %w", fontErr)
	}
	return truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}), nil
}

// Render draws every shape of page, back to front, on a white canvas
// fitted to the shapes' bounds.
func Render(page *document.Page, opts Options) (image.Image, error) {
	dc, err := render(page, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders page and encodes it as PNG to w.
func WritePNG(w io.Writer, page *document.Page, opts Options) error {
	dc, err := render(page, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func render(page *document.Page, opts Options) (*gg.Context, error) {
	roots := selection.All(page)
	if len(roots) == 0 {
		return nil, ErrEmpty
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}

	bounds := document.CommonBounds(selection.Shapes(page, roots)).Expand(opts.Padding)
	width := int(math.Ceil(bounds.Width * opts.Scale))
	height := int(math.Ceil(bounds.Height * opts.Scale))
	if width <= 0 || height <= 0 {
		return nil, ErrEmpty
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.Scale(opts.Scale, opts.Scale)
	dc.Translate(-bounds.X, -bounds.Y)

	if opts.Labels {
		face, err := labelFace(12)
		if err != nil {
			return nil, err
		}
		dc.SetFontFace(face)
	}

	r := renderer{dc: dc, page: page, opts: opts}
	for _, id := range roots {
		r.draw(page.Shapes[id])
	}
	return dc, nil
}

type renderer struct {
	dc   *gg.Context
	page *document.Page
	opts Options
}

func (r renderer) draw(s *document.Shape) {
	dc := r.dc
	dc.SetLineWidth(2)
	dc.SetColor(color.Black)

	switch s.Type {
	case document.ShapeGroup:
		for _, id := range selection.SortByChildIndex(r.page, s.Children) {
			if child, ok := r.page.Shape(id); ok {
				r.draw(child)
			}
		}
		return

	case document.ShapeArrow:
		r.drawArrow(s)
		return
	}

	center := s.Point.Add(s.Size.Mul(0.5))
	dc.Push()
	dc.RotateAbout(s.Rotation, center.X, center.Y)
	switch s.Type {
	case document.ShapeRectangle:
		dc.DrawRectangle(s.Point.X, s.Point.Y, s.Size.X, s.Size.Y)
	case document.ShapeEllipse:
		dc.DrawEllipse(center.X, center.Y, s.Size.X/2, s.Size.Y/2)
	}
	dc.Stroke()
	if r.opts.Labels && s.Name != "" {
		dc.DrawStringAnchored(s.Name, center.X, center.Y, 0.5, 0.5)
	}
	dc.Pop()
}

func (r renderer) drawArrow(s *document.Shape) {
	start, ok1 := s.HandlePoint("start")
	end, ok2 := s.HandlePoint("end")
	if !ok1 || !ok2 {
		return
	}
	dc := r.dc
	dc.DrawLine(start.X, start.Y, end.X, end.Y)
	dc.Stroke()
	drawArrowHead(dc, start, end)
}

func drawArrowHead(dc *gg.Context, from, to geom.Vec) {
	d := to.Sub(from)
	length := d.Len()
	if length < 0.1 {
		return
	}
	d = d.Mul(1 / length)

	const size, spread = 10.0, 0.5
	base1 := geom.V(to.X-size*d.X+size*d.Y*spread, to.Y-size*d.Y-size*d.X*spread)
	base2 := geom.V(to.X-size*d.X-size*d.Y*spread, to.Y-size*d.Y+size*d.X*spread)

	dc.MoveTo(to.X, to.Y)
	dc.LineTo(base1.X, base1.Y)
	dc.LineTo(base2.X, base2.Y)
	dc.ClosePath()
	dc.Fill()
}
