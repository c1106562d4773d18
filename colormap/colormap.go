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

// Package colormap assigns palette colours to data values.
package colormap

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"

	"seehuhn.de/go/meshrender/cube"
)

// Scale selects how values are spread over the palette.
type Scale int

const (
	Linear Scale = iota
	Logarithmic
)

func (s Scale) String() string {
	switch s {
	case Linear:
		return "linear"
	case Logarithmic:
		return "log"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

// ParseScale converts "linear" or "log" to a Scale.
func ParseScale(s string) (Scale, error) {
	switch s {
	case "linear", "lin":
		return Linear, nil
	case "log", "logarithmic":
		return Logarithmic, nil
	}
	return 0, fmt.Errorf("colormap: unknown scale %q", s)
}

// ErrNonPositiveLog is returned when a logarithmic map is requested for a
// range which includes values <= 0.
var ErrNonPositiveLog = errors.New("colormap: logarithmic scale needs positive values")

// Map is a palette together with its N+1 break points.  For logarithmic
// maps the break points are stored as logarithms.
//
// A Map is immutable.
type Map struct {
	Colors  []color.NRGBA
	Breaks  []float64
	Scale   Scale
	LogBase float64
}

// New spreads the colours evenly over [lo, hi].
func New(colors []color.NRGBA, lo, hi float64, scale Scale, logBase float64) (*Map, error) {
	if len(colors) == 0 {
		return nil, errors.New("colormap: empty palette")
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	m := &Map{Colors: colors, Scale: scale, LogBase: logBase}
	if scale == Logarithmic {
		if lo <= 0 {
			return nil, ErrNonPositiveLog
		}
		if logBase <= 1 {
			return nil, fmt.Errorf("colormap: invalid log base %g", logBase)
		}
		lo, hi = m.transform(lo), m.transform(hi)
	}

	n := len(colors)
	m.Breaks = make([]float64, n+1)
	delta := (hi - lo) / float64(n)
	for i := range m.Breaks {
		m.Breaks[i] = lo + float64(i)*delta
	}
	m.Breaks[n] = hi
	return m, nil
}

func (m *Map) transform(v float64) float64 {
	if m.Scale != Logarithmic {
		return v
	}
	if v <= 0 {
		return math.NaN()
	}
	return math.Log(v) / math.Log(m.LogBase)
}

// Index returns the palette index for v, or -1 if v is not drawn.
// Values outside the range of the map are clamped into the first or last
// bucket, since the map may be built from a partially known range.
// Missing values, and values <= 0 on a logarithmic scale, are not drawn.
func (m *Map) Index(v float64) int {
	if cube.IsMissing(v) {
		return -1
	}
	x := m.transform(v)
	if math.IsNaN(x) {
		return -1
	}
	if x < m.Breaks[0] {
		return 0
	}
	return IndexOfObsValue(x, m.Breaks)
}

// Color returns the colour for v.  The second result is false if v is
// not drawn.
func (m *Map) Color(v float64) (color.NRGBA, bool) {
	i := m.Index(v)
	if i < 0 {
		return color.NRGBA{}, false
	}
	return m.Colors[i], true
}

// Levels returns the break points in data units, for a legend.
func (m *Map) Levels() []float64 {
	levels := make([]float64, len(m.Breaks))
	for i, b := range m.Breaks {
		if m.Scale == Logarithmic {
			levels[i] = math.Pow(m.LogBase, b)
		} else {
			levels[i] = b
		}
	}
	return levels
}

// IndexOfObsValue returns the bucket i with breaks[i] <= v < breaks[i+1].
// Values at or above the last interior break point go into the last
// bucket.  The result is -1 for NaN, for missing values and for values
// below the first break point (Map.Index clamps the latter into bucket 0).
// If all break points are equal, the result is 0 for every value which is
// drawn at all.
func IndexOfObsValue(v float64, breaks []float64) int {
	if math.IsNaN(v) || v <= cube.Missing {
		return -1
	}
	n := len(breaks)
	if n < 2 || breaks[0] == breaks[n-1] {
		return 0
	}
	if v < breaks[0] {
		return -1
	}
	// first index with breaks[i] > v
	i := sort.Search(n, func(i int) bool { return breaks[i] > v })
	if i >= n-1 {
		return n - 2
	}
	return i - 1
}
