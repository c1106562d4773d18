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

	"seehuhn.de/go/meshrender/cube"
	"seehuhn.de/go/meshrender/mesh"
)

// MissingEvery is the spacing of cells without data in Wave cubes.  Cell
// ids divisible by MissingEvery have missing values at even timesteps.
const MissingEvery = 7

// Wave returns positive data on the cells of t: a wave travelling east
// with time, shifted up by 10 per layer.
func Wave(t *mesh.Tables, nt, nl int) cube.Cube {
	n := len(t.NEdgesOnCell)
	lon := make([]float64, n)
	lat := make([]float64, n)
	position := make(map[int]int, len(t.IndexToVertexID))
	for pos, id := range t.IndexToVertexID {
		position[id] = pos
	}
	for i, k := range t.NEdgesOnCell {
		for _, id := range t.VerticesOnCell[i][:k] {
			pos := id
			if t.IndexToVertexID != nil {
				pos = position[id]
			}
			lon[i] += t.LonVertex[pos] / float64(k)
			lat[i] += t.LatVertex[pos] / float64(k)
		}
	}

	return &cube.Func{
		T: nt, L: nl, C: n,
		F: func(ts, layer, cell int) float64 {
			if cell%MissingEvery == 0 && ts%2 == 0 && cell > 0 {
				return cube.Missing
			}
			phase := 3*lon[cell] - 0.5*float64(ts)
			return 50 + 40*math.Sin(phase)*math.Cos(lat[cell]) + 10*float64(layer)
		},
	}
}
