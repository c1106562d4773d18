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

package colormap

import (
	"image/color"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexLinear is the plain ascending scan, used as a reference.
func indexLinear(v float64, breaks []float64) int {
	if math.IsNaN(v) || v <= -900 {
		return -1
	}
	n := len(breaks)
	if breaks[0] == breaks[n-1] {
		return 0
	}
	if v < breaks[0] {
		return -1
	}
	for i := 1; i < n; i++ {
		if breaks[i] > v {
			return i - 1
		}
	}
	return n - 2
}

func TestIndexOfObsValue(t *testing.T) {
	breaks := []float64{0, 10, 20, 30}
	cases := []struct {
		v    float64
		want int
	}{
		{25, 2},
		{35, 2},
		{-5, -1},
		{0, 0},
		{9.99, 0},
		{10, 1},
		{30, 2},
		{math.NaN(), -1},
		{-900, -1},
		{-1000, -1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IndexOfObsValue(c.v, breaks), "value %g", c.v)
	}
}

func TestIndexOfObsValueSingleBucket(t *testing.T) {
	breaks := []float64{5, 5, 5}
	for _, v := range []float64{-899, 0, 5, 1e9} {
		assert.Equal(t, 0, IndexOfObsValue(v, breaks), "value %g", v)
	}
	assert.Equal(t, -1, IndexOfObsValue(math.NaN(), breaks))
	assert.Equal(t, -1, IndexOfObsValue(-901, breaks))
}

func TestIndexOfObsValueMonotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 50 {
		n := 2 + rng.IntN(20)
		breaks := make([]float64, n)
		for i := range breaks {
			breaks[i] = math.Round(rng.Float64()*200 - 50)
		}
		slices.Sort(breaks)

		vals := make([]float64, 200)
		for i := range vals {
			vals[i] = rng.Float64()*400 - 1000
			if i%2 == 0 {
				vals[i] = rng.Float64()*300 - 100
			}
		}
		slices.Sort(vals)

		prev := -1
		for _, v := range vals {
			got := IndexOfObsValue(v, breaks)
			require.Equal(t, indexLinear(v, breaks), got, "value %g, breaks %v", v, breaks)
			require.GreaterOrEqual(t, got, prev)
			require.Less(t, got, n-1)
			prev = got
		}
	}
}

func TestLinearMap(t *testing.T) {
	cols := []color.NRGBA{{R: 1, A: 255}, {R: 2, A: 255}, {R: 3, A: 255}}
	m, err := New(cols, 0, 30, Linear, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 20, 30}, m.Breaks)
	assert.Equal(t, m.Breaks, m.Levels())

	c, ok := m.Color(25)
	assert.True(t, ok)
	assert.Equal(t, cols[2], c)
	_, ok = m.Color(-950)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Index(0))
	assert.Equal(t, 2, m.Index(30))

	// out-of-range values are clamped at both ends
	assert.Equal(t, -1, IndexOfObsValue(-5, m.Breaks))
	assert.Equal(t, 0, m.Index(-5))
	assert.Equal(t, 2, m.Index(35))
	c, ok = m.Color(-5)
	assert.True(t, ok)
	assert.Equal(t, cols[0], c)

	// reversed limits are swapped
	m2, err := New(cols, 30, 0, Linear, 10)
	require.NoError(t, err)
	assert.Equal(t, m.Breaks, m2.Breaks)

	_, err = New(nil, 0, 1, Linear, 10)
	assert.Error(t, err)
}

func TestLogMap(t *testing.T) {
	cols := make([]color.NRGBA, 4)
	m, err := New(cols, 1, 10000, Logarithmic, 10)
	require.NoError(t, err)
	for i, b := range []float64{0, 1, 2, 3, 4} {
		assert.InDelta(t, b, m.Breaks[i], 1e-12)
	}
	assert.Equal(t, 0, m.Index(5))
	assert.Equal(t, 1, m.Index(50))
	assert.Equal(t, 3, m.Index(9999))
	assert.Equal(t, -1, m.Index(0))
	assert.Equal(t, -1, m.Index(-3))
	assert.InDelta(t, 100, m.Levels()[2], 1e-9)

	_, err = New(cols, 0, 10, Logarithmic, 10)
	assert.ErrorIs(t, err, ErrNonPositiveLog)
	_, err = New(cols, 1, 10, Logarithmic, 1)
	assert.Error(t, err)
}

func TestParseScale(t *testing.T) {
	s, err := ParseScale("log")
	require.NoError(t, err)
	assert.Equal(t, Logarithmic, s)
	assert.Equal(t, "log", s.String())
	s, err = ParseScale("linear")
	require.NoError(t, err)
	assert.Equal(t, Linear, s)
	_, err = ParseScale("sqrt")
	assert.Error(t, err)
}

func TestPalette(t *testing.T) {
	for _, name := range PaletteNames() {
		cols, err := Palette(name, 8)
		require.NoError(t, err, name)
		assert.Len(t, cols, 8, name)
		for _, c := range cols {
			assert.Equal(t, uint8(255), c.A, name)
		}
	}

	assert.Contains(t, PaletteNames(), "moreland")
	cols, err := Palette("moreland", 8)
	require.NoError(t, err)
	assert.Greater(t, cols[0].B, cols[0].R, "low end is blue")
	assert.Greater(t, cols[7].R, cols[7].B, "high end is red")

	one, err := Palette(DefaultPalette, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	_, err = Palette("nope", 8)
	assert.Error(t, err)
	_, err = Palette(DefaultPalette, 0)
	assert.Error(t, err)
}
