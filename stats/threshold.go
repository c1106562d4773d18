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
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
)

// ParseThreshold evaluates a threshold typed by the user.  Besides plain
// numbers, constant expressions like "120/1000" or "1e-3 * 5" are
// accepted.  Failures are reported as *StatisticsError.
func ParseThreshold(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, thresholdError(errors.New("empty threshold"))
	}
	expr, err := govaluate.NewEvaluableExpression(text)
	if err != nil {
		return 0, thresholdError(err)
	}
	if vars := expr.Vars(); len(vars) > 0 {
		return 0, thresholdError(fmt.Errorf("unknown name %q", vars[0]))
	}
	res, err := expr.Evaluate(nil)
	if err != nil {
		return 0, thresholdError(err)
	}
	x, ok := res.(float64)
	if !ok {
		return 0, thresholdError(fmt.Errorf("%q is not a number", text))
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, thresholdError(fmt.Errorf("%q is not finite", text))
	}
	return x, nil
}

func thresholdError(err error) error {
	return &StatisticsError{
		Layer:    -1,
		Timestep: -1,
		Err:      fmt.Errorf("invalid threshold: %w", err),
	}
}
