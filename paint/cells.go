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

// Package paint draws mesh cells into images.
//
// Two kinds of images are produced from the same screen geometry: the
// visible image, where every cell is filled with the colour of its value,
// and the cell-ID image, where every pixel records which cell owns it.
// The cell-ID image answers "which cell is under the mouse" in constant
// time.
package paint

import (
	"image"

	"seehuhn.de/go/meshrender/colormap"
	"seehuhn.de/go/meshrender/cube"
	"seehuhn.de/go/meshrender/mesh"
	"seehuhn.de/go/meshrender/view"
)

// Cells is the screen geometry of a mesh for one view, together with the
// colour index of every cell.  The slices are reused between calls to
// Transform.
type Cells struct {
	// Key is the view the geometry was computed for.
	Key view.Key

	// Clip is the plot area on screen.
	Clip image.Rectangle

	// Factor is the number of pixels per radian.
	Factor float64

	// AvgCellDiam is copied from the mesh, in radians.
	AvgCellDiam float64

	X, Y  [][]int // pixel coordinates, indexed by cell
	Split []SplitCell

	// Index holds the colour index of every cell, -1 for cells which are
	// not drawn.
	Index []int

	scratch []int
}

// SplitCell is the screen geometry of the second half of a split cell.
// The y coordinates are those of the base cell.
type SplitCell struct {
	ID int
	X  []int
}

// Transform computes the pixel coordinates of all cells for s.
func (c *Cells) Transform(m *mesh.Mesh, s view.State) {
	tr := s.Transformer()
	w, h := s.Screen()

	c.Key = s.Key()
	c.Clip = image.Rectangle{Min: s.Origin, Max: s.Origin.Add(image.Pt(w, h))}
	c.Factor = tr.Factor()
	c.AvgCellDiam = m.AvgCellDiam

	n := len(m.Cells)
	c.X = grow(c.X, n)
	c.Y = grow(c.Y, n)
	for i, cell := range m.Cells {
		c.X[i], c.Y[i] = tr.Apply(c.X[i], c.Y[i], cell.Lon, cell.Lat)
	}

	ids := m.SplitIDs()
	if cap(c.Split) < len(ids) {
		c.Split = append(c.Split[:cap(c.Split)], make([]SplitCell, len(ids)-cap(c.Split))...)
	}
	c.Split = c.Split[:len(ids)]
	for j, id := range ids {
		half := m.Splits[id]
		c.Split[j].ID = id
		c.Split[j].X, c.scratch = tr.Apply(c.Split[j].X, c.scratch, half.Lon, m.Cells[id].Lat)
	}
}

// Colorize sets the colour index of every cell from the values of one
// timestep and layer.  With a nil map no cell is drawn.
func (c *Cells) Colorize(data cube.Cube, t, layer int, cmap *colormap.Map) {
	n := len(c.X)
	if cap(c.Index) < n {
		c.Index = make([]int, n)
	}
	c.Index = c.Index[:n]
	for i := range c.Index {
		if cmap == nil {
			c.Index[i] = -1
			continue
		}
		c.Index[i] = cmap.Index(data.Value(t, layer, i))
	}
}

func grow(s [][]int, n int) [][]int {
	if cap(s) < n {
		s = append(s[:cap(s)], make([][]int, n-cap(s))...)
	}
	return s[:n]
}
