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

package view

import (
	"fmt"
	"image"
	"math"
	"strconv"
)

// Key identifies the inputs which determine the result of a render pass.
// Two passes with equal keys draw the same cells at the same positions
// with the same values.
type Key struct {
	Canvas       int
	Origin       image.Point
	Zoom         float64
	ClippedRatio float64
	Timestep     int
	Layer        int
	PanX, PanY   float64
}

// Key returns the render inputs of s.
func (s State) Key() Key {
	return Key{
		Canvas:       s.Canvas,
		Origin:       s.Origin,
		Zoom:         s.Zoom,
		ClippedRatio: s.ClippedRatio,
		Timestep:     s.Timestep,
		Layer:        s.Layer,
		PanX:         s.PanX,
		PanY:         s.PanY,
	}
}

// Geometry returns k without timestep and layer.  Cell positions, and
// therefore the cell-ID image, only depend on the remaining fields.
func (k Key) Geometry() Key {
	k.Timestep = 0
	k.Layer = 0
	return k
}

// Transformer maps normalized coordinates to pixels for one State.
type Transformer struct {
	f              float64
	lonMin, latMin float64
	panX, panY     float64
	ox, oy         int
}

// Transformer returns the coordinate mapping for s.
func (s State) Transformer() Transformer {
	return Transformer{
		f:      s.CompositeFactor(),
		lonMin: s.Data.LonMin,
		latMin: s.Data.LatMin,
		panX:   s.PanX,
		panY:   s.PanY,
		ox:     s.Origin.X,
		oy:     s.Origin.Y,
	}
}

// Factor returns the number of pixels per radian.
func (t Transformer) Factor() float64 { return t.f }

// Apply converts the polygon (lon, lat) to pixel coordinates, reusing the
// storage of xs and ys.
func (t Transformer) Apply(xs, ys []int, lon, lat []float64) ([]int, []int) {
	xs = xs[:0]
	ys = ys[:0]
	for i := range lon {
		xs = append(xs, int(math.Round((lon[i]-t.lonMin-t.panX)*t.f))+t.ox)
		ys = append(ys, int(math.Round((lat[i]-t.latMin-t.panY)*t.f))+t.oy)
	}
	return xs, ys
}

// Inverse returns the normalized coordinates of the centre of pixel p.
func (t Transformer) Inverse(p image.Point) (lon, lat float64) {
	lon = (float64(p.X-t.ox)+0.5)/t.f + t.panX + t.lonMin
	lat = (float64(p.Y-t.oy)+0.5)/t.f + t.panY + t.latMin
	return lon, lat
}

// FormatLonLat formats a position given in degrees, for example
// "(12.5E, 3.25S)".
func FormatLonLat(lonDeg, latDeg float64) string {
	ew, ns := "E", "N"
	if lonDeg < 0 {
		lonDeg, ew = -lonDeg, "W"
	}
	if latDeg < 0 {
		latDeg, ns = -latDeg, "S"
	}
	return fmt.Sprintf("(%s%s, %s%s)", formatCoord(lonDeg), ew, formatCoord(latDeg), ns)
}

// formatCoord prints up to four decimals, dropping trailing zeros.
func formatCoord(x float64) string {
	return strconv.FormatFloat(math.Round(x*1e4)/1e4, 'f', -1, 64)
}
