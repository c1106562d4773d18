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

package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/meshrender/testcases"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRoot()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--log-level", "warn"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, `palette = "moreland"`)
	assert.Contains(t, out, "colors = 16")

	out, err = run(t, "--colors", "4", "--scale", "log", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "colors = 4")
	assert.Contains(t, out, `scale = "log"`)

	_, err = run(t, "--update-span", "soon", "config")
	assert.Error(t, err)
}

func TestConfigSources(t *testing.T) {
	t.Setenv("MESHRENDER_PALETTE", "heat")
	t.Setenv("MESHRENDER_HOURS_PER_STEP", "3")
	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, `palette = "heat"`)
	assert.Contains(t, out, "hours-per-step = 3.0")

	path := filepath.Join(t.TempDir(), "plot.toml")
	require.NoError(t, os.WriteFile(path, []byte("colors = 5\nborders = true\n"), 0o644))
	out, err = run(t, "--config", path, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "colors = 5")
	assert.Contains(t, out, "borders = true")

	// flags win over the environment
	out, err = run(t, "--palette", "blackbody", "config")
	require.NoError(t, err)
	assert.Contains(t, out, `palette = "blackbody"`)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "seam.png")
	_, err := run(t, "render", "--case", "seam", "-o", name)
	require.NoError(t, err)

	img := readPNG(t, name)
	assert.Equal(t, 300, max(img.Bounds().Dx(), img.Bounds().Dy()))

	_, err = run(t, "render", "--case", "hex", "--ids", "--width", "100", "-o", name)
	require.NoError(t, err)
	img = readPNG(t, name)
	assert.Equal(t, 100, img.Bounds().Dx())

	_, err = run(t, "render", "--case", "no_such_case", "-o", name)
	assert.Error(t, err)
	_, err = run(t, "render", "--zoom", "1,2,3", "-o", name)
	assert.Error(t, err)
}

func readPNG(t *testing.T, name string) image.Image {
	t.Helper()
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestProbeCommand(t *testing.T) {
	// centre of cell 9 of grid_small, at i=1, j=1
	lon := (-1 + 0.25*1.5) * 180 / math.Pi
	lat := (-0.5 + 0.25*1.5) * 180 / math.Pi
	out, err := run(t, "probe",
		"--lon="+strconv.FormatFloat(lon, 'f', 6, 64),
		"--lat="+strconv.FormatFloat(lat, 'f', 6, 64),
		"--timestep", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cell 9 value "), out)

	out, err = run(t, "probe", "--pixel=-10,-10")
	require.NoError(t, err)
	assert.Contains(t, out, "no cell")

	_, err = run(t, "probe")
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	out, err := run(t, "stats", "--case", "seam", "--statistic", "maximum")
	require.NoError(t, err)
	assert.Contains(t, out, "layer 0: [")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "dataset: [")
	assert.Contains(t, out, "maximum, layer 0:")
	assert.Contains(t, out, "\n3\t")

	_, err = run(t, "stats", "--statistic", "mode")
	assert.Error(t, err)
}

func TestSeriesCommand(t *testing.T) {
	tc, ok := testcases.Find("grid_small")
	require.True(t, ok)

	out, err := run(t, "series", "--cells", "6-7", "--first", "0", "--last", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "cell\tt0\tt1", lines[0])
	assert.Equal(t, "6\t"+cast.ToString(tc.Data.Value(0, 0, 6))+"\t"+cast.ToString(tc.Data.Value(1, 0, 6)), lines[1])
	assert.Equal(t, "7\tmissing\t"+cast.ToString(tc.Data.Value(1, 0, 7)), lines[2])

	out, err = run(t, "series", "--cells", "3", "--layer", "1")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, strings.Split(lines[1], "\t"), 1+tc.Data.NumTimesteps())

	for _, cells := range []string{"5-2", "x", "1-", "0-1000"} {
		_, err = run(t, "series", "--cells", cells)
		assert.Error(t, err, cells)
	}
	_, err = run(t, "series", "--last", "99")
	assert.Error(t, err)
}

func TestListCommand(t *testing.T) {
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, strings.Fields(out), "grid_small")
	assert.Contains(t, strings.Fields(out), "seam")
}
