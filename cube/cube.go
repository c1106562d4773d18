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

// Package cube gives uniform access to mesh data indexed by timestep,
// layer and cell.
package cube

import (
	"errors"
	"fmt"
	"math"
)

// Missing is the missing-value sentinel.  Values less than or equal to
// Missing are excluded from statistics and are not drawn.
const Missing = -900

// IsMissing reports whether v is NaN or at or below the sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || v <= Missing
}

// Cube is a read-only (timestep, layer, cell) array.
//
// Implementations must be safe for concurrent reads, since the statistics
// engine and the render loop read from different goroutines.
type Cube interface {
	Value(t, layer, cell int) float64
	NumTimesteps() int
	NumLayers() int
	NumCells() int
}

// ErrShape is returned when the value slice does not match the dimensions.
var ErrShape = errors.New("cube: data does not match dimensions")

// dense stores a cube as one flat slice.  Axes of length one get a zero
// stride, so the index for that axis is ignored.
type dense struct {
	values               []float32
	nt, nl, nc           int
	tStride, layerStride int
}

// New wraps values, stored with the cell index varying fastest, then the
// layer, then the timestep.  A dataset without a vertical or time axis is
// given with nl == 1 or nt == 1.
func New(values []float32, nt, nl, nc int) (Cube, error) {
	if nt < 1 || nl < 1 || nc < 1 {
		return nil, fmt.Errorf("cube: invalid dimensions %d×%d×%d", nt, nl, nc)
	}
	if len(values) != nt*nl*nc {
		return nil, fmt.Errorf("%w: have %d values, want %d", ErrShape, len(values), nt*nl*nc)
	}
	d := &dense{values: values, nt: nt, nl: nl, nc: nc}
	if nl > 1 {
		d.layerStride = nc
	}
	if nt > 1 {
		d.tStride = nl * nc
	}
	return d, nil
}

func (d *dense) Value(t, layer, cell int) float64 {
	return float64(d.values[t*d.tStride+layer*d.layerStride+cell])
}

func (d *dense) NumTimesteps() int { return d.nt }
func (d *dense) NumLayers() int    { return d.nl }
func (d *dense) NumCells() int     { return d.nc }

// Func is a Cube computed on demand.
type Func struct {
	T, L, C int
	F       func(t, layer, cell int) float64
}

func (f *Func) Value(t, layer, cell int) float64 { return f.F(t, layer, cell) }
func (f *Func) NumTimesteps() int                { return f.T }
func (f *Func) NumLayers() int                   { return f.L }
func (f *Func) NumCells() int                    { return f.C }

// TimeSeries returns, for each of the given cells, the values of the
// timesteps from..to (inclusive) at the given layer.
func TimeSeries(c Cube, layer int, cells []int, from, to int) ([][]float64, error) {
	if from < 0 || to >= c.NumTimesteps() || from > to {
		return nil, fmt.Errorf("cube: invalid time range %d..%d", from, to)
	}
	if layer < 0 || layer >= c.NumLayers() {
		return nil, fmt.Errorf("cube: invalid layer %d", layer)
	}
	res := make([][]float64, len(cells))
	for i, cell := range cells {
		if cell < 0 || cell >= c.NumCells() {
			return nil, fmt.Errorf("cube: invalid cell %d", cell)
		}
		row := make([]float64, to-from+1)
		for t := from; t <= to; t++ {
			row[t-from] = c.Value(t, layer, cell)
		}
		res[i] = row
	}
	return res, nil
}

// Range returns the ids lo..hi (inclusive) as a slice, for use with
// TimeSeries.
func Range(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	ids := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		ids = append(ids, i)
	}
	return ids
}
