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

package testcases

import (
	"math"

	"seehuhn.de/go/meshrender/mesh"
)

var gridCases = []TestCase{
	withWave("grid_small", Grid(-1, -0.5, 0.25, 0.25, 8, 4), 4, 2, 400),
	withWave("global", Global(36, 18), 6, 1, 720),
}

var seamCases = []TestCase{
	withWave("seam", Seam(), 3, 1, 300),
}

var hexCases = []TestCase{
	withWave("hex", Hex(12, 8, 0.08), 4, 3, 500),
}

var poleCases = []TestCase{
	withWave("pole", Pole(), 2, 1, 400),
}

func withWave(name string, t *mesh.Tables, nt, nl, canvas int) TestCase {
	return TestCase{Name: name, Tables: t, Data: Wave(t, nt, nl), Canvas: canvas}
}

// Grid returns a regular grid of nLon×nLat rectangular cells.  The lower
// left corner is at (lon0, lat0); cell ids grow first along longitude.
func Grid(lon0, lat0, dLon, dLat float64, nLon, nLat int) *mesh.Tables {
	t := &mesh.Tables{}
	for j := range nLat + 1 {
		for i := range nLon + 1 {
			t.LonVertex = append(t.LonVertex, lon0+float64(i)*dLon)
			t.LatVertex = append(t.LatVertex, lat0+float64(j)*dLat)
		}
	}
	v := func(i, j int) int { return j*(nLon+1) + i }
	for j := range nLat {
		for i := range nLon {
			t.NEdgesOnCell = append(t.NEdgesOnCell, 4)
			t.VerticesOnCell = append(t.VerticesOnCell,
				[]int{v(i, j), v(i+1, j), v(i+1, j+1), v(i, j+1)})
		}
	}
	return t
}

// Global covers the whole sphere with nLon×nLat cells.  The first and the
// last column touch the seam.
func Global(nLon, nLat int) *mesh.Tables {
	return Grid(-math.Pi, -math.Pi/2, 2*math.Pi/float64(nLon), math.Pi/float64(nLat), nLon, nLat)
}

// Seam returns four cells: three squares and one cell whose vertices
// are at longitudes -3 and 3, so that it crosses the seam.
func Seam() *mesh.Tables {
	return &mesh.Tables{
		NEdgesOnCell: []int{4, 4, 4, 4},
		VerticesOnCell: [][]int{
			{0, 1, 4, 3},
			{1, 2, 5, 4},
			{3, 4, 7, 6},
			{9, 10, 11, 12},
		},
		LonVertex: []float64{
			-1, -0.5, 0,
			-1, -0.5, 0,
			-1, -0.5, 0,
			3.0, -3.0, -3.0, 3.0,
		},
		LatVertex: []float64{
			0, 0, 0,
			0.5, 0.5, 0.5,
			1, 1, 1,
			-0.5, -0.5, 0.5, 0.5,
		},
	}
}

// Hex returns nCols×nRows hexagons of the given circumradius.  As in MPAS
// files, vertex ids start at 1 and shared corners are stored once.
func Hex(nCols, nRows int, r float64) *mesh.Tables {
	t := &mesh.Tables{}
	ids := make(map[[2]int64]int)
	vertex := func(lon, lat float64) int {
		key := [2]int64{int64(math.Round(lon * 1e9)), int64(math.Round(lat * 1e9))}
		if id, ok := ids[key]; ok {
			return id
		}
		id := len(t.LonVertex) + 1
		ids[key] = id
		t.LonVertex = append(t.LonVertex, lon)
		t.LatVertex = append(t.LatVertex, lat)
		t.IndexToVertexID = append(t.IndexToVertexID, id)
		return id
	}

	w := math.Sqrt(3) * r
	lon0 := -float64(nCols) * w / 2
	lat0 := -float64(nRows) * 1.5 * r / 2
	for row := range nRows {
		for col := range nCols {
			cx := lon0 + float64(col)*w
			if row%2 == 1 {
				cx += w / 2
			}
			cy := lat0 + float64(row)*1.5*r
			cell := make([]int, 6)
			for k := range 6 {
				phi := math.Pi/6 + float64(k)*math.Pi/3
				cell[k] = vertex(cx+r*math.Cos(phi), cy+r*math.Sin(phi))
			}
			t.NEdgesOnCell = append(t.NEdgesOnCell, 6)
			t.VerticesOnCell = append(t.VerticesOnCell, cell)
		}
	}
	return t
}

// Pole returns a small grid with one tall cell reaching close to the
// north pole, which widens the latitude range to the full sphere.
func Pole() *mesh.Tables {
	t := Grid(0, 0, 0.2, 0.2, 5, 2)
	n := len(t.LonVertex)
	t.LonVertex = append(t.LonVertex, 1.2, 1.4, 1.4, 1.2)
	t.LatVertex = append(t.LatVertex, 0, 0, 1.5, 1.5)
	t.NEdgesOnCell = append(t.NEdgesOnCell, 4)
	t.VerticesOnCell = append(t.VerticesOnCell, []int{n, n + 1, n + 2, n + 3})
	return t
}
