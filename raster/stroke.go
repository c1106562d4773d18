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

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// Stroke paints the outline of every subpath of p as a closed polygon,
// using Width, Join and MiterLimit.
//
// The outline is assembled from one quadrilateral per edge plus one join
// piece per vertex.  All pieces are wound counter-clockwise and filled
// together with the nonzero rule, so overlaps are painted once.
func (r *Rasterizer) Stroke(p *path.Data, emit EmitFunc) {
	r.outline.Cmds = r.outline.Cmds[:0]
	r.outline.Coords = r.outline.Coords[:0]

	d := r.Width / 2
	if d <= 0 {
		return
	}

	k := 0
	r.ring = r.ring[:0]
	flush := func() {
		r.strokeRing(d)
		r.ring = r.ring[:0]
	}
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			flush()
			r.ring = append(r.ring, p.Coords[k])
			k++
		case path.CmdLineTo:
			r.ring = append(r.ring, p.Coords[k])
			k++
		case path.CmdQuadTo:
			r.ring = append(r.ring, p.Coords[k+1])
			k += 2
		case path.CmdCubeTo:
			r.ring = append(r.ring, p.Coords[k+2])
			k += 3
		case path.CmdClose:
			flush()
		}
	}
	flush()

	r.FillNonZero(&r.outline, emit)
}

// strokeRing appends the outline pieces for the closed polygon in r.ring.
func (r *Rasterizer) strokeRing(d float64) {
	pts := r.ring
	// drop repeated vertices, including a closing copy of the first one
	n := 0
	for _, pt := range pts {
		if n > 0 && pts[n-1].Sub(pt).Length() < zeroLengthThreshold {
			continue
		}
		pts[n] = pt
		n++
	}
	for n > 1 && pts[n-1].Sub(pts[0]).Length() < zeroLengthThreshold {
		n--
	}
	pts = pts[:n]
	if n < 2 {
		return
	}

	for i := range n {
		a, b := pts[i], pts[(i+1)%n]
		t := b.Sub(a)
		t = t.Mul(1 / t.Length())
		nrm := vec.Vec2{X: -t.Y, Y: t.X}.Mul(d)
		r.addPiece(a.Add(nrm), b.Add(nrm), b.Sub(nrm), a.Sub(nrm))
	}
	if n == 2 {
		return
	}

	for i := range n {
		prev, p, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
		t1 := p.Sub(prev)
		t1 = t1.Mul(1 / t1.Length())
		t2 := next.Sub(p)
		t2 = t2.Mul(1 / t2.Length())
		r.addJoin(p, t1, t2, d)
	}
}

// addJoin fills the wedge on the outer side of the corner at p, where the
// outline turns from direction t1 to direction t2.
func (r *Rasterizer) addJoin(p, t1, t2 vec.Vec2, d float64) {
	cross := t1.X*t2.Y - t1.Y*t2.X
	dot := t1.X*t2.X + t1.Y*t2.Y
	if math.Abs(cross) < collinearityThreshold && dot > 0 {
		return
	}

	// the outer side is to the right of a left turn
	s := d
	if cross > 0 {
		s = -d
	}
	n1 := vec.Vec2{X: -t1.Y, Y: t1.X}.Mul(s)
	n2 := vec.Vec2{X: -t2.Y, Y: t2.X}.Mul(s)

	switch r.Join {
	case graphics.LineJoinRound:
		r.addDisc(p, d)
	case graphics.LineJoinMiter:
		u := n1.Add(n2)
		ul := u.Length()
		// ul = 2d·cos(φ/2), the miter ratio is 1/cos(φ/2)
		if ul > zeroLengthThreshold && 2*d/ul <= r.MiterLimit {
			m := p.Add(u.Mul(2 * d * d / (ul * ul)))
			r.addPiece(p, p.Add(n1), m, p.Add(n2))
			return
		}
		r.addPiece(p, p.Add(n1), p.Add(n2))
	default:
		r.addPiece(p, p.Add(n1), p.Add(n2))
	}
}

// addDisc adds a polygonal approximation of a disc of radius d.
func (r *Rasterizer) addDisc(c vec.Vec2, d float64) {
	// scale of the CTM, to keep the flatness in device pixels
	scale := math.Sqrt(math.Abs(r.CTM[0]*r.CTM[3] - r.CTM[1]*r.CTM[2]))
	segs := 8
	if rd := d * scale; rd > defaultFlatness {
		segs = max(segs, int(math.Ceil(math.Pi/math.Acos(1-defaultFlatness/rd))))
	}
	pts := make([]vec.Vec2, segs)
	for i := range segs {
		phi := 2 * math.Pi * float64(i) / float64(segs)
		pts[i] = vec.Vec2{X: c.X + d*math.Cos(phi), Y: c.Y + d*math.Sin(phi)}
	}
	r.addPiece(pts...)
}

// addPiece appends a closed polygon to the outline, reversing it if
// necessary so that it is wound counter-clockwise.
func (r *Rasterizer) addPiece(pts ...vec.Vec2) {
	var area float64
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		area += a.X*b.Y - b.X*a.Y
	}
	if math.Abs(area) < zeroLengthThreshold {
		return
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	o := &r.outline
	o.Cmds = append(o.Cmds, path.CmdMoveTo)
	o.Coords = append(o.Coords, pts[0])
	for _, pt := range pts[1:] {
		o.Cmds = append(o.Cmds, path.CmdLineTo)
		o.Coords = append(o.Coords, pt)
	}
	o.Cmds = append(o.Cmds, path.CmdClose)
}

// AppendPolygon resets p to the closed polygon with integer device
// coordinates (xs[i], ys[i]) and returns p.
func AppendPolygon(p *path.Data, xs, ys []int) *path.Data {
	p.Cmds = p.Cmds[:0]
	p.Coords = p.Coords[:0]
	for i := range xs {
		cmd := path.CmdLineTo
		if i == 0 {
			cmd = path.CmdMoveTo
		}
		p.Cmds = append(p.Cmds, cmd)
		p.Coords = append(p.Coords, vec.Vec2{X: float64(xs[i]), Y: float64(ys[i])})
	}
	if len(xs) > 0 {
		p.Cmds = append(p.Cmds, path.CmdClose)
	}
	return p
}
