// seehuhn.de/go/meshrender - rendering and picking for unstructured meshes
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package paint

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/pdf/graphics"

	"seehuhn.de/go/meshrender/raster"
)

// DefaultBorderCutoff is the ratio of the average cell diameter on screen
// to the screen width above which cell borders are drawn.
const DefaultBorderCutoff = 0.02

// Painter fills cell polygons.  A Painter keeps scratch buffers between
// calls and is not safe for concurrent use.
type Painter struct {
	// Highlight is used instead of the value colour for clicked cells.
	Highlight color.NRGBA

	// Borders enables the cell outlines.  They are only drawn when the
	// cells are large enough on screen, see ShowBorders.
	Borders      bool
	BorderColor  color.NRGBA
	BorderWidth  float64
	BorderJoin   graphics.LineJoinStyle
	BorderCutoff float64

	r    *raster.Rasterizer
	path path.Data
	mask *image.Alpha
}

// NewPainter returns a Painter with black borders (disabled) and a red
// highlight colour.
func NewPainter() *Painter {
	return &Painter{
		Highlight:    color.NRGBA{R: 0xff, A: 0xff},
		BorderColor:  color.NRGBA{A: 0xff},
		BorderWidth:  1,
		BorderJoin:   graphics.LineJoinMiter,
		BorderCutoff: DefaultBorderCutoff,
		r:            raster.NewRasterizer(rect.Rect{}),
	}
}

// ShowBorders reports whether borders are drawn for the geometry c.
func (p *Painter) ShowBorders(c *Cells) bool {
	if !p.Borders || c.Clip.Dx() <= 0 {
		return false
	}
	return c.AvgCellDiam*c.Factor/float64(c.Clip.Dx()) > p.BorderCutoff
}

func (p *Painter) reset(clip image.Rectangle) {
	p.r.Reset(rect.Rect{
		LLx: float64(clip.Min.X),
		LLy: float64(clip.Min.Y),
		URx: float64(clip.Max.X),
		URy: float64(clip.Max.Y),
	})
	p.r.Width = p.BorderWidth
	p.r.Join = p.BorderJoin
}

// Paint draws the cells of c into dst, in the order of their ids.  Cells
// with colour index -1 are skipped.  The second halves of split cells are
// drawn after all other cells, with the colour of their base cell.  If
// clicked is non-nil, cells for which it returns true are drawn in the
// highlight colour.
func (p *Painter) Paint(dst draw.Image, c *Cells, colors []color.NRGBA, clicked func(id int) bool) {
	clip := c.Clip.Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	p.reset(clip)
	borders := p.ShowBorders(c)

	fill := func(id int, xs, ys []int) {
		idx := c.Index[id]
		if idx < 0 || idx >= len(colors) {
			return
		}
		col := colors[idx]
		if clicked != nil && clicked(id) {
			col = p.Highlight
		}
		poly := raster.AppendPolygon(&p.path, xs, ys)
		p.r.FillNonZero(poly, p.emitter(dst, col))
		if borders {
			p.r.Stroke(poly, p.emitter(dst, p.BorderColor))
		}
	}

	for id := range c.X {
		fill(id, c.X[id], c.Y[id])
	}
	for _, half := range c.Split {
		fill(half.ID, half.X, c.Y[half.ID])
	}
}

// emitter returns a callback which composes one scanline of coverage in
// colour col over dst.
func (p *Painter) emitter(dst draw.Image, col color.NRGBA) raster.EmitFunc {
	src := image.NewUniform(col)
	return func(y, xMin int, coverage []float32) {
		n := len(coverage)
		if p.mask == nil || p.mask.Rect.Dx() < n {
			p.mask = image.NewAlpha(image.Rect(0, 0, max(n, 256), 1))
		}
		for i, a := range coverage {
			p.mask.Pix[i] = uint8(min(a, 1)*255 + 0.5)
		}
		r := image.Rect(xMin, y, xMin+n, y+1)
		draw.DrawMask(dst, r, src, image.Point{}, p.mask, image.Point{}, draw.Over)
	}
}

// PaintIDs renders the cell-ID image for c.  A pixel belongs to a cell if
// the cell covers at least half of it; later cells win.  Borders and
// highlights are not drawn, and cells are included whatever their value.
func (p *Painter) PaintIDs(c *Cells) *IDImage {
	img := NewIDImage(c.Clip)
	if c.Clip.Empty() {
		return img
	}
	p.reset(c.Clip)

	fill := func(id int, xs, ys []int) {
		poly := raster.AppendPolygon(&p.path, xs, ys)
		p.r.FillNonZero(poly, func(y, xMin int, coverage []float32) {
			for i, a := range coverage {
				if a >= 0.5 {
					img.set(xMin+i, y, id)
				}
			}
		})
	}
	for id := range c.X {
		fill(id, c.X[id], c.Y[id])
	}
	for _, half := range c.Split {
		fill(half.ID, half.X, c.Y[half.ID])
	}
	return img
}
