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

// Package raster converts polygons to per-pixel coverage values.
//
// Mesh cells are polygons with straight edges, so only MoveTo, LineTo and
// Close commands are interpreted; curve commands contribute a straight
// edge to their end point.
package raster

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// EmitFunc receives the coverage of one scanline, starting at pixel xMin.
// The slice is only valid during the call.
type EmitFunc func(y, xMin int, coverage []float32)

// edge is a non-horizontal line segment in device coordinates, stored
// top to bottom.
type edge struct {
	xTop       float64 // x at yTop
	yTop, yBot float64
	dxdy       float64
	dir        float32 // +1 if the original segment pointed down, -1 if up
}

func (e *edge) xAt(y float64) float64 {
	return e.xTop + e.dxdy*(y-e.yTop)
}

// Rasterizer computes the fraction of each pixel covered by a polygon.
// Buffers are kept between calls, so one Rasterizer should be reused for
// all cells of a frame.
//
// A Rasterizer is not safe for concurrent use.
type Rasterizer struct {
	// CTM maps polygon coordinates to device pixels.
	CTM matrix.Matrix

	// Clip limits the output; coordinates must be integers.
	Clip rect.Rect

	// Width is the border width used by Stroke, in user-space units.
	Width float64

	// Join selects how Stroke connects adjacent polygon edges.
	Join graphics.LineJoinStyle

	// MiterLimit turns miter joins into bevels above this ratio.
	MiterLimit float64

	// smallPathThreshold is the largest bounding box area, in pixels,
	// rasterised with full 2D buffers. Larger polygons use an active
	// edge list.
	smallPathThreshold int

	cover       []float32
	area        []float32
	edges       []edge
	active      []int
	rowHasEdges []bool

	bbox    rect.Rect
	bboxSet bool

	outline path.Data // stroke outline, rebuilt by every Stroke call
	ring    []vec.Vec2
}

// NewRasterizer returns a Rasterizer clipped to clip, with an identity
// CTM and one unit wide mitered borders.
func NewRasterizer(clip rect.Rect) *Rasterizer {
	return &Rasterizer{
		CTM:                matrix.Identity,
		Clip:               clip,
		Width:              1,
		Join:               graphics.LineJoinMiter,
		MiterLimit:         defaultMiterLimit,
		smallPathThreshold: smallPathThreshold,
	}
}

// Reset changes the clip rectangle and restores the identity CTM.
func (r *Rasterizer) Reset(clip rect.Rect) {
	r.Clip = clip
	r.CTM = matrix.Identity
}

// FillNonZero fills p using the nonzero winding rule.
func (r *Rasterizer) FillNonZero(p *path.Data, emit EmitFunc) {
	r.fill(p, fillNonZero, emit)
}

// FillEvenOdd fills p using the even-odd rule.  Cell polygons are simple,
// so both rules give the same coverage for them; the even-odd rule is
// needed for paths with holes.
func (r *Rasterizer) FillEvenOdd(p *path.Data, emit EmitFunc) {
	r.fill(p, fillEvenOdd, emit)
}

type fillRule int

const (
	fillNonZero fillRule = iota
	fillEvenOdd
)

func (r *Rasterizer) fill(p *path.Data, rule fillRule, emit EmitFunc) {
	xMin, xMax, yMin, yMax, ok := r.collectEdges(p)
	if !ok {
		return
	}
	if (xMax-xMin)*(yMax-yMin) < r.smallPathThreshold {
		r.fillSmall(xMin, xMax, yMin, yMax, rule, emit)
	} else {
		r.fillLarge(xMin, xMax, yMin, yMax, rule, emit)
	}
}

// collectEdges transforms p to device space and fills r.edges.  The
// returned box is the integer bounding box of all edges, clamped to the
// clip rectangle.
func (r *Rasterizer) collectEdges(p *path.Data) (xMin, xMax, yMin, yMax int, ok bool) {
	r.edges = r.edges[:0]
	r.bboxSet = false

	var cur, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			cur = p.Coords[k]
			start = cur
			k++
		case path.CmdLineTo:
			r.addEdge(cur, p.Coords[k])
			cur = p.Coords[k]
			k++
		case path.CmdQuadTo:
			r.addEdge(cur, p.Coords[k+1])
			cur = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			r.addEdge(cur, p.Coords[k+2])
			cur = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			if cur != start {
				r.addEdge(cur, start)
			}
			cur = start
		}
	}
	if len(r.edges) == 0 {
		return 0, 0, 0, 0, false
	}

	xMin = max(int(math.Floor(r.bbox.LLx)), int(r.Clip.LLx))
	xMax = min(int(math.Floor(r.bbox.URx))+1, int(r.Clip.URx))
	yMin = max(int(math.Floor(r.bbox.LLy)), int(r.Clip.LLy))
	yMax = min(int(math.Floor(r.bbox.URy))+1, int(r.Clip.URy))
	if xMin >= xMax || yMin >= yMax {
		return 0, 0, 0, 0, false
	}
	return xMin, xMax, yMin, yMax, true
}

func (r *Rasterizer) addEdge(a, b vec.Vec2) {
	m := r.CTM
	x0 := m[0]*a.X + m[2]*a.Y + m[4]
	y0 := m[1]*a.X + m[3]*a.Y + m[5]
	x1 := m[0]*b.X + m[2]*b.Y + m[4]
	y1 := m[1]*b.X + m[3]*b.Y + m[5]

	if math.Abs(y1-y0) < horizontalEdgeThreshold {
		return
	}
	e := edge{dir: 1}
	if y1 < y0 {
		x0, y0, x1, y1 = x1, y1, x0, y0
		e.dir = -1
	}
	e.xTop, e.yTop, e.yBot = x0, y0, y1
	e.dxdy = (x1 - x0) / (y1 - y0)
	r.edges = append(r.edges, e)

	lo, hi := min(x0, x1), max(x0, x1)
	if !r.bboxSet {
		r.bbox = rect.Rect{LLx: lo, LLy: y0, URx: hi, URy: y1}
		r.bboxSet = true
		return
	}
	r.bbox.LLx = min(r.bbox.LLx, lo)
	r.bbox.URx = max(r.bbox.URx, hi)
	r.bbox.LLy = min(r.bbox.LLy, y0)
	r.bbox.URy = max(r.bbox.URy, y1)
}

// accumulate adds the part of e inside scanline y to the cover and area
// buffers, which are indexed by x-bx0.
//
// For every pixel the buffers hold
//
//	cover: signed height of the edge pieces inside the pixel column
//	area:  cover weighted by the distance of the piece from the right border
//
// so that the coverage of pixel i is sum(cover[:i]) + area[i].  Pieces
// left of the buffer fold into pixel 0; pieces right of it are dropped.
func accumulate(e *edge, y int, cover, area []float32, bx0, bx1 int) {
	yTop := max(float64(y), e.yTop)
	yBot := min(float64(y+1), e.yBot)
	if yBot <= yTop {
		return
	}
	xa, xb := e.xAt(yTop), e.xAt(yBot)
	if xa > xb {
		xa, xb = xb, xa
	}

	colA := int(math.Floor(xa))
	colB := int(math.Floor(xb))
	if colA >= bx1 {
		return
	}
	if colB < bx0 {
		c := e.dir * float32(yBot-yTop)
		cover[0] += c
		area[0] += c
		return
	}

	for col := colA; col <= colB && col < bx1; col++ {
		var dy, xMid float64
		if colA == colB {
			dy = yBot - yTop
			xMid = (xa + xb) / 2
		} else {
			lo := max(xa, float64(col))
			hi := min(xb, float64(col+1))
			if hi <= lo {
				continue
			}
			dy = (hi - lo) / math.Abs(e.dxdy)
			xMid = (lo + hi) / 2
		}
		c := e.dir * float32(dy)
		if col < bx0 {
			cover[0] += c
			area[0] += c
			continue
		}
		i := col - bx0
		cover[i] += c
		area[i] += c * float32(1-(xMid-float64(col)))
	}
}

// integrate turns one row of cover/area sums into coverage values,
// overwriting cover.
func integrate(cover, area []float32, rule fillRule) {
	var acc float32
	for i := range cover {
		raw := acc + area[i]
		acc += cover[i]
		if raw < 0 {
			raw = -raw
		}
		if rule == fillNonZero {
			cover[i] = min(raw, 1)
		} else {
			m := raw - 2*float32(int(raw/2))
			d := 1 - m
			if d < 0 {
				d = -d
			}
			cover[i] = 1 - d
		}
	}
}

// trimZeros returns the part of row between the first and last non-zero
// entries, together with its offset.
func trimZeros(row []float32) ([]float32, int) {
	lo := 0
	for lo < len(row) && row[lo] == 0 {
		lo++
	}
	if lo == len(row) {
		return nil, 0
	}
	hi := len(row)
	for row[hi-1] == 0 {
		hi--
	}
	return row[lo:hi], lo
}

// fillSmall accumulates all edges into a width×height buffer pair and
// then integrates the rows that were touched.
func (r *Rasterizer) fillSmall(xMin, xMax, yMin, yMax int, rule fillRule, emit EmitFunc) {
	w, h := xMax-xMin, yMax-yMin
	n := w * h
	r.cover = slices.Grow(r.cover[:0], n)[:n]
	r.area = slices.Grow(r.area[:0], n)[:n]
	r.rowHasEdges = slices.Grow(r.rowHasEdges[:0], h)[:h]
	clear(r.cover)
	clear(r.area)
	clear(r.rowHasEdges)

	for i := range r.edges {
		e := &r.edges[i]
		y0 := max(int(math.Floor(e.yTop)), yMin)
		y1 := min(int(math.Floor(e.yBot))+1, yMax)
		for y := y0; y < y1; y++ {
			row := y - yMin
			off := row * w
			accumulate(e, y, r.cover[off:off+w], r.area[off:off+w], xMin, xMax)
			r.rowHasEdges[row] = true
		}
	}

	for row := range h {
		if !r.rowHasEdges[row] {
			continue
		}
		off := row * w
		cov := r.cover[off : off+w]
		integrate(cov, r.area[off:off+w], rule)
		if trimmed, dx := trimZeros(cov); trimmed != nil {
			emit(yMin+row, xMin+dx, trimmed)
		}
	}
}

// fillLarge walks the scanlines with an active edge list and single-row
// buffers.
func (r *Rasterizer) fillLarge(xMin, xMax, yMin, yMax int, rule fillRule, emit EmitFunc) {
	w := xMax - xMin
	r.cover = slices.Grow(r.cover[:0], w)[:w]
	r.area = slices.Grow(r.area[:0], w)[:w]

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(a.yTop, b.yTop)
	})

	r.active = r.active[:0]
	next := 0
	for y := yMin; y < yMax; y++ {
		yf := float64(y)
		for next < len(r.edges) && r.edges[next].yTop < yf+1 {
			r.active = append(r.active, next)
			next++
		}
		if len(r.active) == 0 {
			continue
		}

		clear(r.cover)
		clear(r.area)
		touched := false
		for i := 0; i < len(r.active); {
			e := &r.edges[r.active[i]]
			if e.yBot <= yf {
				last := len(r.active) - 1
				r.active[i] = r.active[last]
				r.active = r.active[:last]
				continue
			}
			accumulate(e, y, r.cover, r.area, xMin, xMax)
			touched = true
			i++
		}
		if !touched {
			continue
		}

		integrate(r.cover, r.area, rule)
		if trimmed, dx := trimZeros(r.cover); trimmed != nil {
			emit(y, xMin+dx, trimmed)
		}
	}
}

const (
	// defaultFlatness is the largest allowed deviation, in device pixels,
	// of the polygons used to approximate round joins.
	defaultFlatness = 0.25

	defaultMiterLimit = 10.0

	// horizontalEdgeThreshold is the smallest vertical extent of an edge
	// which still contributes coverage.
	horizontalEdgeThreshold = 1e-10

	// smallPathThreshold is the default switch-over area between the
	// two fill strategies.
	smallPathThreshold = 65536

	zeroLengthThreshold   = 1e-10
	collinearityThreshold = 1e-6
)
