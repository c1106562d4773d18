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

// Command meshrender draws the built-in test meshes, looks up cells
// and values, and prints statistics.
//
// Settings can be given as flags, as environment variables of the form
// MESHRENDER_NAME (for example MESHRENDER_PALETTE=heat), or in a TOML
// file named by --config.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRoot().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
