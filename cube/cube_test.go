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

package cube

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenseLayout(t *testing.T) {
	// 2 timesteps × 3 layers × 4 cells, value = 100t + 10l + c
	vals := make([]float32, 24)
	for ts := range 2 {
		for l := range 3 {
			for c := range 4 {
				vals[ts*12+l*4+c] = float32(100*ts + 10*l + c)
			}
		}
	}
	cb, err := New(vals, 2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 123.0, cb.Value(1, 2, 3))
	assert.Equal(t, 10.0, cb.Value(0, 1, 0))
	assert.Equal(t, 2, cb.NumTimesteps())
	assert.Equal(t, 3, cb.NumLayers())
	assert.Equal(t, 4, cb.NumCells())
}

func TestDegenerateAxes(t *testing.T) {
	// no layer axis: the layer index is ignored
	cb, err := New([]float32{1, 2, 3, 4}, 2, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.0, cb.Value(1, 0, 1))
	assert.Equal(t, 4.0, cb.Value(1, 5, 1))

	// no time axis
	cb, err = New([]float32{1, 2, 3, 4}, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cb.Value(7, 1, 0))
}

func TestNewErrors(t *testing.T) {
	_, err := New(make([]float32, 5), 1, 2, 3)
	assert.ErrorIs(t, err, ErrShape)
	_, err = New(nil, 0, 1, 1)
	assert.Error(t, err)
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(math.NaN()))
	assert.True(t, IsMissing(-900))
	assert.True(t, IsMissing(-1e30))
	assert.False(t, IsMissing(-899.5))
	assert.False(t, IsMissing(0))
}

func TestTimeSeries(t *testing.T) {
	cb := &Func{T: 5, L: 2, C: 3, F: func(ts, l, c int) float64 {
		return float64(ts*10 + c)
	}}
	got, err := TimeSeries(cb, 1, Range(1, 2), 2, 4)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{21, 31, 41}, {22, 32, 42}}, got)

	_, err = TimeSeries(cb, 0, []int{0}, 3, 2)
	assert.Error(t, err)
	_, err = TimeSeries(cb, 0, []int{3}, 0, 1)
	assert.Error(t, err)
	_, err = TimeSeries(cb, 2, []int{0}, 0, 1)
	assert.Error(t, err)

	assert.Nil(t, Range(3, 2))
}
