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

package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// polygon builds a closed path through the given points.
func polygon(pts ...vec.Vec2) *path.Data {
	p := &path.Data{}
	for i, pt := range pts {
		if i == 0 {
			p.Cmds = append(p.Cmds, path.CmdMoveTo)
		} else {
			p.Cmds = append(p.Cmds, path.CmdLineTo)
		}
		p.Coords = append(p.Coords, pt)
	}
	p.Cmds = append(p.Cmds, path.CmdClose)
	return p
}

// render rasterises into a w×h float buffer.
func render(w, h int, draw func(r *Rasterizer, emit EmitFunc)) []float32 {
	buf := make([]float32, w*h)
	r := NewRasterizer(rect.Rect{URx: float64(w), URy: float64(h)})
	draw(r, func(y, xMin int, coverage []float32) {
		copy(buf[y*w+xMin:], coverage)
	})
	return buf
}

// TestTriangleCoverage checks exact coverage values for a thin triangle.
// The edge from (0,0) to (10,1) gives pixel x the coverage (2x+1)/20.
func TestTriangleCoverage(t *testing.T) {
	tri := polygon(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 10, Y: 0}, vec.Vec2{X: 10, Y: 1})
	cov := render(10, 1, func(r *Rasterizer, emit EmitFunc) {
		r.FillNonZero(tri, emit)
	})

	for x := range 10 {
		want := float32(2*x+1) / 20
		assert.InDelta(t, want, cov[x], 1e-6, "pixel %d", x)
	}
}

// TestApproaches makes sure that the 2D buffer path and the active edge
// list path agree.
func TestApproaches(t *testing.T) {
	hex := make([]vec.Vec2, 6)
	for i := range hex {
		phi := float64(i) * math.Pi / 3
		hex[i] = vec.Vec2{X: 16 + 11.3*math.Cos(phi), Y: 16 + 11.3*math.Sin(phi)}
	}
	p := polygon(hex...)

	var results [2][]float32
	for i, threshold := range []int{1 << 30, 0} {
		results[i] = render(32, 32, func(r *Rasterizer, emit EmitFunc) {
			r.smallPathThreshold = threshold
			r.FillNonZero(p, emit)
		})
	}
	require.Len(t, results[1], len(results[0]))
	for i := range results[0] {
		assert.InDelta(t, results[0][i], results[1][i], 1e-5, "pixel %d", i)
	}

	// the centre is covered, the corners are not
	assert.InDelta(t, 1, results[0][16*32+16], 1e-6)
	assert.Zero(t, results[0][0])
	assert.Zero(t, results[0][32*32-1])
}

func TestFillRules(t *testing.T) {
	// a square traversed twice in the same direction: winding number 2
	sq := polygon(vec.Vec2{X: 2, Y: 2}, vec.Vec2{X: 8, Y: 2}, vec.Vec2{X: 8, Y: 8}, vec.Vec2{X: 2, Y: 8})
	sq.Cmds = append(sq.Cmds, sq.Cmds...)
	sq.Coords = append(sq.Coords, sq.Coords...)

	nonZero := render(10, 10, func(r *Rasterizer, emit EmitFunc) { r.FillNonZero(sq, emit) })
	evenOdd := render(10, 10, func(r *Rasterizer, emit EmitFunc) { r.FillEvenOdd(sq, emit) })

	assert.InDelta(t, 1, nonZero[5*10+5], 1e-6)
	assert.InDelta(t, 0, evenOdd[5*10+5], 1e-6)
}

func TestCTMAndClip(t *testing.T) {
	unit := polygon(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 1, Y: 0}, vec.Vec2{X: 1, Y: 1}, vec.Vec2{X: 0, Y: 1})
	cov := render(8, 8, func(r *Rasterizer, emit EmitFunc) {
		r.CTM = matrix.Matrix{4, 0, 0, 4, 2, 2}
		r.FillNonZero(unit, emit)
	})
	var total float32
	for _, c := range cov {
		total += c
	}
	// the 4×4 square at (2,2) lies inside the 8×8 clip
	assert.InDelta(t, 16, total, 1e-4)
	assert.InDelta(t, 1, cov[3*8+3], 1e-6)
	assert.Zero(t, cov[0])

	// the same square, mostly outside the clip
	clipped := render(4, 4, func(r *Rasterizer, emit EmitFunc) {
		r.CTM = matrix.Matrix{4, 0, 0, 4, 2, 2}
		r.FillNonZero(unit, emit)
	})
	total = 0
	for _, c := range clipped {
		total += c
	}
	assert.InDelta(t, 4, total, 1e-4)
}

func TestStrokeSquare(t *testing.T) {
	sq := polygon(vec.Vec2{X: 4, Y: 4}, vec.Vec2{X: 16, Y: 4}, vec.Vec2{X: 16, Y: 16}, vec.Vec2{X: 4, Y: 16})
	for _, join := range []graphics.LineJoinStyle{graphics.LineJoinMiter, graphics.LineJoinBevel, graphics.LineJoinRound} {
		cov := render(20, 20, func(r *Rasterizer, emit EmitFunc) {
			r.Width = 2
			r.Join = join
			r.Stroke(sq, emit)
		})
		// on the border
		assert.InDelta(t, 1, cov[4*20+10], 1e-6, "join %d", join)
		assert.InDelta(t, 1, cov[10*20+15], 1e-6, "join %d", join)
		// interior and exterior
		assert.Zero(t, cov[10*20+10], "join %d", join)
		assert.Zero(t, cov[0], "join %d", join)
	}

	// a mitered corner fills the outer pixel, a beveled one only half of it
	miter := render(20, 20, func(r *Rasterizer, emit EmitFunc) {
		r.Width = 2
		r.Join = graphics.LineJoinMiter
		r.Stroke(sq, emit)
	})
	bevel := render(20, 20, func(r *Rasterizer, emit EmitFunc) {
		r.Width = 2
		r.Join = graphics.LineJoinBevel
		r.Stroke(sq, emit)
	})
	assert.InDelta(t, 1, miter[3*20+3], 1e-6)
	assert.InDelta(t, 0.5, bevel[3*20+3], 1e-6)
}

func TestStrokeDegenerate(t *testing.T) {
	pt := polygon(vec.Vec2{X: 3, Y: 3}, vec.Vec2{X: 3, Y: 3})
	called := false
	r := NewRasterizer(rect.Rect{URx: 10, URy: 10})
	r.Stroke(pt, func(y, xMin int, coverage []float32) { called = true })
	assert.False(t, called)

	r.Width = 0
	sq := polygon(vec.Vec2{X: 1, Y: 1}, vec.Vec2{X: 5, Y: 1}, vec.Vec2{X: 5, Y: 5})
	r.Stroke(sq, func(y, xMin int, coverage []float32) { called = true })
	assert.False(t, called)
}

func TestAppendPolygon(t *testing.T) {
	p := &path.Data{}
	AppendPolygon(p, []int{0, 4, 4}, []int{0, 0, 3})
	assert.Equal(t, []path.Command{path.CmdMoveTo, path.CmdLineTo, path.CmdLineTo, path.CmdClose}, p.Cmds)
	assert.Equal(t, vec.Vec2{X: 4, Y: 3}, p.Coords[2])

	// reuse shrinks the path
	AppendPolygon(p, []int{1}, []int{2})
	assert.Len(t, p.Cmds, 2)
	assert.Len(t, p.Coords, 1)
}
