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

package mesh

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// indexedPolygon is one cell polygon in the spatial index.
type indexedPolygon struct {
	geom.Polygon
	id int
}

// index finds cells by normalized coordinates.  Both halves of a split
// cell are indexed under the original id.
type index struct {
	tree *rtree.Rtree
}

func newIndex(m *Mesh) *index {
	tree := rtree.NewTree(25, 50)
	for _, c := range m.Cells {
		tree.Insert(&indexedPolygon{Polygon: polygon(c.Lon, c.Lat), id: c.ID})
		if half, ok := m.Splits[c.ID]; ok {
			tree.Insert(&indexedPolygon{Polygon: polygon(half.Lon, c.Lat), id: c.ID})
		}
	}
	return &index{tree: tree}
}

func polygon(lon, lat []float64) geom.Polygon {
	ring := make(geom.Path, len(lon))
	for i := range lon {
		ring[i] = geom.Point{X: lon[i], Y: lat[i]}
	}
	return geom.Polygon{ring}
}

// Polygon returns the outline of cell id in normalized coordinates.  For
// split cells both halves are returned as separate rings.
func (m *Mesh) Polygon(id int) geom.Polygon {
	c := m.Cells[id]
	p := polygon(c.Lon, c.Lat)
	if half, ok := m.Splits[id]; ok {
		p = append(p, polygon(half.Lon, c.Lat)...)
	}
	return p
}

// CellAt returns the id of the cell containing the normalized point
// (lon, lat).  Points on a shared edge resolve to the cell with the
// lowest id.
func (m *Mesh) CellAt(lon, lat float64) (int, bool) {
	pt := geom.Point{X: lon, Y: lat}
	best := -1
	for _, s := range m.index.tree.SearchIntersect(pt.Bounds()) {
		ip := s.(*indexedPolygon)
		if best >= 0 && ip.id >= best {
			continue
		}
		if pt.Within(ip.Polygon) != geom.Outside {
			best = ip.id
		}
	}
	return best, best >= 0
}
