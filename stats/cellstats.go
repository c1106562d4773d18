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

package stats

import (
	"context"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"seehuhn.de/go/meshrender/cube"
)

// Statistic selects one summary of the time series of a cell.
type Statistic int

// The per-cell statistics.  Timestep results are relative to the first
// timestep of the series.
const (
	Minimum Statistic = iota
	Maximum
	Mean
	GeometricMean
	Median
	FirstQuartile
	ThirdQuartile
	StandardDeviation
	CoefficientOfVariation
	Range
	InterquartileRange
	Sum
	TimestepOfMinimum
	TimestepOfMaximum
	HoursAboveThreshold
	Maximum8HourMean
	Count

	NumStatistics = int(Count) + 1
)

var statNames = [NumStatistics][2]string{
	{"minimum", "_min"},
	{"maximum", "_max"},
	{"mean", "_mean"},
	{"geometric mean", "_geomean"},
	{"median", "_median"},
	{"first quartile", "_q1"},
	{"third quartile", "_q3"},
	{"standard deviation", "_sd"},
	{"coefficient of variation", "_cv"},
	{"range", "_range"},
	{"interquartile range", "_iqr"},
	{"sum", "_sum"},
	{"timestep of minimum", "_tmin"},
	{"timestep of maximum", "_tmax"},
	{"hours above threshold", "_hgt"},
	{"maximum 8-hour mean", "_max8"},
	{"count", "_count"},
}

func (s Statistic) String() string {
	if s < 0 || int(s) >= NumStatistics {
		return fmt.Sprintf("Statistic(%d)", int(s))
	}
	return statNames[s][0]
}

// ShortName returns a suffix for variable names, e.g. "_max8".
func (s Statistic) ShortName() string {
	if s < 0 || int(s) >= NumStatistics {
		return ""
	}
	return statNames[s][1]
}

// ParseStatistic finds a statistic by name or short name.
func ParseStatistic(name string) (Statistic, error) {
	for i, n := range statNames {
		if name == n[0] || name == n[1] || "_"+name == n[1] {
			return Statistic(i), nil
		}
	}
	return 0, fmt.Errorf("stats: unknown statistic %q", name)
}

// CellValues holds all statistics of one cell.  Statistics which are
// undefined for the series (for example the geometric mean of a series
// with negative values) are set to cube.Missing.
type CellValues [NumStatistics]float64

// CellStats summarizes the series of values of one cell.  Missing values
// are skipped.
func CellStats(series []float64, threshold, hoursPerStep float64) CellValues {
	var res CellValues

	valid := make([]float64, 0, len(series))
	steps := make([]int, 0, len(series))
	for t, v := range series {
		if !cube.IsMissing(v) {
			valid = append(valid, v)
			steps = append(steps, t)
		}
	}
	res[Count] = float64(len(valid))
	if len(valid) == 0 {
		for i := range res {
			if Statistic(i) != Count && Statistic(i) != HoursAboveThreshold {
				res[i] = cube.Missing
			}
		}
		return res
	}

	iMin, iMax := floats.MinIdx(valid), floats.MaxIdx(valid)
	res[Minimum] = valid[iMin]
	res[Maximum] = valid[iMax]
	res[TimestepOfMinimum] = float64(steps[iMin])
	res[TimestepOfMaximum] = float64(steps[iMax])
	res[Range] = valid[iMax] - valid[iMin]
	res[Sum] = floats.Sum(valid)

	mean, sd := stat.MeanStdDev(valid, nil)
	res[Mean] = mean
	res[StandardDeviation] = sd
	if len(valid) < 2 {
		res[StandardDeviation] = 0
	}
	res[CoefficientOfVariation] = cube.Missing
	if mean != 0 {
		res[CoefficientOfVariation] = res[StandardDeviation] / mean
	}

	res[GeometricMean] = cube.Missing
	if valid[iMin] > 0 {
		res[GeometricMean] = stat.GeometricMean(valid, nil)
	}

	sorted := slices.Clone(valid)
	slices.Sort(sorted)
	res[Median] = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	res[FirstQuartile] = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	res[ThirdQuartile] = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	res[InterquartileRange] = res[ThirdQuartile] - res[FirstQuartile]

	var above int
	for _, v := range valid {
		if v > threshold {
			above++
		}
	}
	res[HoursAboveThreshold] = float64(above) * hoursPerStep

	res[Maximum8HourMean] = maxRunningMean(series, windowSteps(8, hoursPerStep))
	return res
}

// windowSteps returns the number of timesteps covering the given hours.
func windowSteps(hours, hoursPerStep float64) int {
	if hoursPerStep <= 0 {
		return 1
	}
	return max(1, int(math.Round(hours/hoursPerStep)))
}

// maxRunningMean returns the largest mean over w consecutive timesteps.
// Windows containing missing values are skipped.  If the series is
// shorter than w, the mean of the whole series is used.
func maxRunningMean(series []float64, w int) float64 {
	w = min(w, len(series))
	best := math.Inf(-1)
	for start := 0; start+w <= len(series); start++ {
		window := series[start : start+w]
		if slices.ContainsFunc(window, cube.IsMissing) {
			continue
		}
		best = max(best, floats.Sum(window)/float64(w))
	}
	if math.IsInf(best, -1) {
		return cube.Missing
	}
	return best
}

// ComputeCellStats evaluates all statistics for every cell of one layer
// over all timesteps.  The result is indexed as res[statistic][cell].
// An invalid threshold text gives a *StatisticsError.
func ComputeCellStats(ctx context.Context, c cube.Cube, layer int, thresholdText string, hoursPerStep float64) ([][]float64, error) {
	threshold, err := ParseThreshold(thresholdText)
	if err != nil {
		return nil, err
	}
	if layer < 0 || layer >= c.NumLayers() {
		return nil, &StatisticsError{Layer: -1, Timestep: -1,
			Err: fmt.Errorf("invalid layer %d", layer)}
	}

	nt, nc := c.NumTimesteps(), c.NumCells()
	res := make([][]float64, NumStatistics)
	for i := range res {
		res[i] = make([]float64, nc)
	}
	series := make([]float64, nt)
	for cell := range nc {
		if cell%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for t := range nt {
			series[t] = c.Value(t, layer, cell)
		}
		vals := CellStats(series, threshold, hoursPerStep)
		for i, v := range vals {
			res[i][cell] = v
		}
	}
	return res, nil
}

// ExtremeCells returns the cells holding the smallest and the largest
// value of one step.  Ties go to the lowest cell id.  The last result is
// false if all values of the step are missing.
func ExtremeCells(c cube.Cube, layer, t int) (minCell, maxCell int, ok bool) {
	minCell, maxCell = -1, -1
	lo, hi := math.Inf(1), math.Inf(-1)
	for cell := range c.NumCells() {
		v := c.Value(t, layer, cell)
		if cube.IsMissing(v) {
			continue
		}
		if v < lo {
			lo, minCell = v, cell
		}
		if v > hi {
			hi, maxCell = v, cell
		}
	}
	return minCell, maxCell, minCell >= 0
}
