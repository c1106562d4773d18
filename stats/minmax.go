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

// Package stats computes value ranges and per-cell statistics of a data
// cube.
//
// The Engine sweeps the cube in the background and keeps running minima
// and maxima at three levels: one per (layer, timestep), one per layer,
// and one for the whole dataset.  Queries never wait for the sweep; they
// return what is known so far and the caller can register a listener to
// be told when more is known.
package stats

import (
	"fmt"
	"math"
	"sync"

	"seehuhn.de/go/meshrender/cube"
)

// Info is a snapshot of an Accumulator.
type Info struct {
	Min, Max float64

	// Count is the number of values visited so far, including missing
	// values.  Total is the number of values at this level.
	Count, Total int
}

// Percent returns the completion in percent.  The result is exactly 100
// once all values have been visited.
func (i Info) Percent() float64 {
	if i.Total <= 0 || i.Count >= i.Total {
		return 100
	}
	return 100 * float64(i.Count) / float64(i.Total)
}

// Complete reports whether all values have been visited.
func (i Info) Complete() bool {
	return i.Count >= i.Total
}

// HasRange reports whether at least one non-missing value was seen.
func (i Info) HasRange() bool {
	return i.Min <= i.Max
}

func (i Info) String() string {
	return fmt.Sprintf("[%g, %g] %.1f%%", i.Min, i.Max, i.Percent())
}

// Accumulator is a running minimum and maximum.  All methods may be
// called concurrently.
type Accumulator struct {
	mu       sync.Mutex
	min, max float64
	count    int
	total    int
}

// NewAccumulator returns an empty accumulator for total values.
func NewAccumulator(total int) *Accumulator {
	return &Accumulator{
		min:   math.Inf(1),
		max:   math.Inf(-1),
		total: total,
	}
}

// Add visits one value.  Missing values are counted but do not change
// the extremes.
func (a *Accumulator) Add(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	if cube.IsMissing(v) {
		return
	}
	a.min = min(a.min, v)
	a.max = max(a.max, v)
}

// Fold merges the extremes of a finished lower level and adds n to the
// count.
func (a *Accumulator) Fold(info Info, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count += n
	if info.HasRange() {
		a.min = min(a.min, info.Min)
		a.max = max(a.max, info.Max)
	}
}

// Snapshot returns the current state.
func (a *Accumulator) Snapshot() Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Info{Min: a.min, Max: a.max, Count: a.count, Total: a.total}
}

// StatisticsError reports a failure while computing statistics.  Such
// failures are local: the sweep continues with the next timestep.
type StatisticsError struct {
	Layer, Timestep int // -1 if not tied to a step
	Err             error
}

func (e *StatisticsError) Error() string {
	if e.Layer < 0 {
		return "stats: " + e.Err.Error()
	}
	return fmt.Sprintf("stats: layer %d, timestep %d: %v", e.Layer, e.Timestep, e.Err)
}

func (e *StatisticsError) Unwrap() error {
	return e.Err
}
