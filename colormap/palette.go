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
	"fmt"
	"image/color"
	"slices"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// DefaultPalette is the palette used when none is configured.
const DefaultPalette = "moreland"

var continuous = map[string]func() palette.ColorMap{
	"moreland":  func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"blackbody": moreland.ExtendedBlackBody,
	"kindlmann": moreland.Kindlmann,
}

// PaletteNames lists the names accepted by Palette.
func PaletteNames() []string {
	names := []string{"heat"}
	for name := range continuous {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Palette returns n colours from the named palette, ordered from low to
// high values.
func Palette(name string, n int) ([]color.NRGBA, error) {
	if n < 1 {
		return nil, fmt.Errorf("colormap: invalid palette size %d", n)
	}
	if name == "heat" {
		return toNRGBA(palette.Heat(n, 1).Colors()), nil
	}

	mk, ok := continuous[name]
	if !ok {
		return nil, fmt.Errorf("colormap: unknown palette %q", name)
	}
	cm := mk()
	cm.SetMin(0)
	cm.SetMax(1)
	cols := make([]color.Color, n)
	for i := range cols {
		v := 0.5
		if n > 1 {
			v = float64(i) / float64(n-1)
		}
		c, err := cm.At(v)
		if err != nil {
			return nil, fmt.Errorf("colormap: palette %q: %w", name, err)
		}
		cols[i] = c
	}
	return toNRGBA(cols), nil
}

func toNRGBA(cols []color.Color) []color.NRGBA {
	res := make([]color.NRGBA, len(cols))
	for i, c := range cols {
		res[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
	}
	return res
}
