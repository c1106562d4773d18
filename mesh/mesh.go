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

// Package mesh builds cell polygons from MPAS style vertex tables.
//
// Coordinates are kept in a normalized plate carrée space: longitudes are
// shifted by π and wrapped into [0, 2π), latitudes are negated so that
// they grow in the same direction as screen rows.  Cells which cross the
// seam at longitude 0 are split into two polygons.
package mesh

import (
	"fmt"
	"math"
)

// Options holds the thresholds used while loading a mesh.
type Options struct {
	// SplitLonSpan is the longitude extent above which a cell is taken to
	// wrap around the seam and is split.
	SplitLonSpan float64

	// PoleLatSpan is the latitude extent above which a cell is taken to
	// wrap around a pole.  The first such cell widens the latitude bounds
	// to the full range.
	PoleLatSpan float64

	// AvgCellDiam is the mean cell diameter in radians, as stored in the
	// dataset.  If zero, it is estimated from the cell extents.
	AvgCellDiam float64
}

// DefaultOptions returns the thresholds used by VERDI.
func DefaultOptions() Options {
	return Options{
		SplitLonSpan: 1.5 * math.Pi,
		PoleLatSpan:  0.4 * math.Pi,
	}
}

// Tables holds the mesh description as found in an MPAS file.
type Tables struct {
	NEdgesOnCell   []int
	VerticesOnCell [][]int // only the first NEdgesOnCell[i] entries are used
	LonVertex      []float64
	LatVertex      []float64

	// IndexToVertexID maps vertex positions to the ids used in
	// VerticesOnCell.  If nil, the ids are the positions themselves.
	IndexToVertexID []int
}

// Cell is one mesh cell.  The slices hold normalized vertex coordinates
// and must not be modified.
type Cell struct {
	ID  int
	Lon []float64
	Lat []float64
}

// SplitHalf is the second polygon of a cell which crosses the seam.  It
// shares the latitudes of the original cell and only overrides the
// longitudes.
type SplitHalf struct {
	OriginalID int
	Lon        []float64
}

// Bounds is a rectangle in normalized coordinates.
type Bounds struct {
	LonMin, LonMax float64
	LatMin, LatMax float64
}

// Width returns the longitude extent.
func (b Bounds) Width() float64 { return b.LonMax - b.LonMin }

// Height returns the latitude extent.
func (b Bounds) Height() float64 { return b.LatMax - b.LatMin }

// Ratio returns Width/Height.
func (b Bounds) Ratio() float64 { return b.Width() / b.Height() }

// Mesh is a loaded mesh.  It is not modified after Load returns and can be
// shared between goroutines.
type Mesh struct {
	Cells       []Cell
	Splits      map[int]*SplitHalf
	Bounds      Bounds
	SplitAtPole bool
	AvgCellDiam float64

	index *index
}

// GeometryError reports malformed mesh input.
type GeometryError struct {
	Cell   int
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Cell < 0 {
		return "mesh: " + e.Reason
	}
	return fmt.Sprintf("mesh: cell %d: %s", e.Cell, e.Reason)
}

// NormalizeLon maps a longitude in radians, as stored in the dataset, to
// normalized space.
func NormalizeLon(lon float64) float64 {
	x := math.Mod(lon-math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x
}

// NormalizeLat maps a latitude in radians to normalized space.
func NormalizeLat(lat float64) float64 {
	return -lat
}

// Denormalize converts normalized coordinates to degrees east and north,
// with the longitude in [-180, 180).
func Denormalize(lon, lat float64) (lonDeg, latDeg float64) {
	lonDeg = math.Mod(lon*180/math.Pi, 360)
	if lonDeg < 0 {
		lonDeg += 360
	}
	// normalized longitude 0 is 180°
	lonDeg -= 180
	return lonDeg, -lat * 180 / math.Pi
}

// Load builds the cell polygons described by t.
func Load(t *Tables, opts Options) (*Mesh, error) {
	nCells := len(t.NEdgesOnCell)
	if nCells == 0 {
		return nil, &GeometryError{Cell: -1, Reason: "no cells"}
	}
	if len(t.VerticesOnCell) != nCells {
		return nil, &GeometryError{Cell: -1, Reason: fmt.Sprintf(
			"%d vertex lists for %d cells", len(t.VerticesOnCell), nCells)}
	}
	if len(t.LonVertex) != len(t.LatVertex) {
		return nil, &GeometryError{Cell: -1, Reason: "vertex tables differ in length"}
	}

	var position map[int]int
	if t.IndexToVertexID != nil {
		position = make(map[int]int, len(t.IndexToVertexID))
		for pos, id := range t.IndexToVertexID {
			position[id] = pos
		}
	}

	m := &Mesh{
		Cells:  make([]Cell, nCells),
		Splits: make(map[int]*SplitHalf),
		Bounds: Bounds{
			LonMin: math.Inf(1), LonMax: math.Inf(-1),
			LatMin: math.Inf(1), LatMax: math.Inf(-1),
		},
	}
	split := false
	var diamSum float64
	var diamCount int

	for i := range nCells {
		n := t.NEdgesOnCell[i]
		if n <= 0 {
			return nil, &GeometryError{Cell: i, Reason: "no vertices"}
		}
		if n > len(t.VerticesOnCell[i]) {
			return nil, &GeometryError{Cell: i, Reason: fmt.Sprintf(
				"%d vertices listed, %d expected", len(t.VerticesOnCell[i]), n)}
		}

		lon := make([]float64, n)
		lat := make([]float64, n)
		for j := range n {
			id := t.VerticesOnCell[i][j]
			pos := id
			if position != nil {
				p, ok := position[id]
				if !ok {
					return nil, &GeometryError{Cell: i, Reason: fmt.Sprintf("unknown vertex id %d", id)}
				}
				pos = p
			}
			if pos < 0 || pos >= len(t.LonVertex) {
				return nil, &GeometryError{Cell: i, Reason: fmt.Sprintf("vertex %d out of range", id)}
			}
			lon[j] = NormalizeLon(t.LonVertex[pos])
			lat[j] = NormalizeLat(t.LatVertex[pos])
		}

		lonLo, lonHi := span(lon)
		latLo, latHi := span(lat)
		m.Bounds.LonMin = min(m.Bounds.LonMin, lonLo)
		m.Bounds.LonMax = max(m.Bounds.LonMax, lonHi)
		m.Bounds.LatMin = min(m.Bounds.LatMin, latLo)
		m.Bounds.LatMax = max(m.Bounds.LatMax, latHi)

		if !m.SplitAtPole && latHi-latLo > opts.PoleLatSpan {
			m.SplitAtPole = true
		}

		if lonHi-lonLo > opts.SplitLonSpan {
			split = true
			m.Splits[i] = splitCell(i, lon)
		} else {
			diamSum += max(lonHi-lonLo, latHi-latLo)
			diamCount++
		}

		m.Cells[i] = Cell{ID: i, Lon: lon, Lat: lat}
	}

	if split {
		m.Bounds.LonMin = 0
		m.Bounds.LonMax = 2 * math.Pi
	}
	if m.SplitAtPole {
		m.Bounds.LatMin = -math.Pi / 2
		m.Bounds.LatMax = math.Pi / 2
	}
	if m.Bounds.Width() <= 0 || m.Bounds.Height() <= 0 {
		return nil, &GeometryError{Cell: -1, Reason: "mesh has zero extent"}
	}

	m.AvgCellDiam = opts.AvgCellDiam
	if m.AvgCellDiam == 0 && diamCount > 0 {
		m.AvgCellDiam = diamSum / float64(diamCount)
	}

	m.index = newIndex(m)
	return m, nil
}

// splitCell forces the longitudes of a seam-crossing cell apart.  The
// vertices west of π move to 2π in the base cell (modified in place); in
// the returned half the vertices east of π move to 0.
func splitCell(id int, lon []float64) *SplitHalf {
	half := &SplitHalf{OriginalID: id, Lon: make([]float64, len(lon))}
	for j, x := range lon {
		half.Lon[j] = x
		if x < math.Pi {
			lon[j] = 2 * math.Pi
		} else if x > math.Pi {
			half.Lon[j] = 0
		}
	}
	return half
}

func span(xs []float64) (lo, hi float64) {
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return lo, hi
}

// NumPolygons returns the number of polygons drawn per frame, counting
// both halves of split cells.
func (m *Mesh) NumPolygons() int {
	return len(m.Cells) + len(m.Splits)
}

// SplitIDs returns the ids of the split cells in increasing order.
func (m *Mesh) SplitIDs() []int {
	ids := make([]int, 0, len(m.Splits))
	for _, c := range m.Cells {
		if _, ok := m.Splits[c.ID]; ok {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
