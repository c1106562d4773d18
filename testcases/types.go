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

// Package testcases provides synthetic meshes and data for tests and for
// the command line tool.
package testcases

import (
	"maps"
	"slices"

	"seehuhn.de/go/meshrender/cube"
	"seehuhn.de/go/meshrender/mesh"
)

// TestCase is a mesh together with data on it.
type TestCase struct {
	Name   string       // lowercase a-z and _ only
	Tables *mesh.Tables // raw vertex tables, coordinates in radians
	Data   cube.Cube    // one value per cell
	Canvas int          // suggested canvas size in pixels
}

// Load builds the mesh with the default options.
func (tc TestCase) Load() (*mesh.Mesh, error) {
	return mesh.Load(tc.Tables, mesh.DefaultOptions())
}

// All contains all test cases, grouped by category.
var All = map[string][]TestCase{
	"grid": gridCases,
	"seam": seamCases,
	"hex":  hexCases,
	"pole": poleCases,
}

// Names returns the names of all test cases in sorted order.
func Names() []string {
	var names []string
	for _, category := range slices.Sorted(maps.Keys(All)) {
		for _, tc := range All[category] {
			names = append(names, tc.Name)
		}
	}
	return names
}

// Find returns the test case with the given name.
func Find(name string) (TestCase, bool) {
	for _, cases := range All {
		for _, tc := range cases {
			if tc.Name == name {
				return tc, true
			}
		}
	}
	return TestCase{}, false
}
