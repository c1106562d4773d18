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
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/image/draw"

	"seehuhn.de/go/meshrender"
	"seehuhn.de/go/meshrender/colormap"
	"seehuhn.de/go/meshrender/cube"
	"seehuhn.de/go/meshrender/mesh"
	"seehuhn.de/go/meshrender/stats"
	"seehuhn.de/go/meshrender/testcases"
	"seehuhn.de/go/meshrender/view"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	v   *viper.Viper
	log *logrus.Logger
}

func newRoot() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "meshrender",
		Short: "Draw data on unstructured meshes.",
		Long: `meshrender draws data on the built-in test meshes, finds the cell
at a pixel or a position, and prints value ranges and cell statistics.

Settings can be changed by command-line flags, by environment variables
of the form 'MESHRENDER_name' (with '-' replaced by '_'), or by a TOML
configuration file given with --config.  Use "meshrender config" to see
the effective settings.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := readConfig(a.v); err != nil {
				return err
			}
			log, err := newLogger(a.v)
			if err != nil {
				return err
			}
			log.SetOutput(cmd.ErrOrStderr())
			a.log = log
			return nil
		},
	}

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Draw a built-in mesh into a PNG file",
		Args:  cobra.NoArgs,
		RunE:  a.render,
	}
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Show the cell and value at a pixel or at a position",
		Args:  cobra.NoArgs,
		RunE:  a.probe,
	}
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print value ranges and cell statistics",
		Args:  cobra.NoArgs,
		RunE:  a.stats,
	}
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Print the time series of a range of cells",
		Args:  cobra.NoArgs,
		RunE:  a.series,
	}
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective plot settings as TOML",
		Args:  cobra.NoArgs,
		RunE:  a.config,
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the built-in meshes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range testcases.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	root.AddCommand(renderCmd, probeCmd, statsCmd, seriesCmd, configCmd, listCmd)

	d := meshrender.DefaultConfig()
	plotFlags := []*pflag.FlagSet{root.PersistentFlags()}
	caseFlags := []*pflag.FlagSet{renderCmd.Flags(), probeCmd.Flags(), statsCmd.Flags(), seriesCmd.Flags()}
	viewFlags := []*pflag.FlagSet{renderCmd.Flags(), probeCmd.Flags()}
	bindOptions(a.v, []option{
		{
			name:       "config",
			usage:      "config names a TOML file with settings.",
			defaultVal: "",
			flagsets:   plotFlags,
		},
		{
			name:       "log-level",
			usage:      "log-level is one of panic, fatal, error, warn, info, debug and trace.",
			defaultVal: "info",
			flagsets:   plotFlags,
		},
		{
			name:       "palette",
			usage:      "palette is one of " + strings.Join(colormap.PaletteNames(), ", ") + ".",
			defaultVal: d.Palette,
			flagsets:   plotFlags,
		},
		{
			name:       "colors",
			usage:      "colors is the number of colours in the colour map.",
			defaultVal: d.Colors,
			flagsets:   plotFlags,
		},
		{
			name:       "scale",
			usage:      `scale is "linear" or "log".`,
			defaultVal: d.Scale,
			flagsets:   plotFlags,
		},
		{
			name:       "log-base",
			usage:      "log-base is the base of logarithmic colour scales.",
			defaultVal: d.LogBase,
			flagsets:   plotFlags,
		},
		{
			name:       "borders",
			usage:      "borders enables cell outlines for cells large enough on screen.",
			defaultVal: d.Borders,
			flagsets:   plotFlags,
		},
		{
			name: "border-cutoff",
			usage: `border-cutoff is the ratio of cell size to plot width above which
borders are drawn.`,
			defaultVal: d.BorderCutoff,
			flagsets:   plotFlags,
		},
		{
			name:       "threshold",
			usage:      "threshold is an expression giving the limit for \"hours above threshold\".",
			defaultVal: d.Threshold,
			flagsets:   plotFlags,
		},
		{
			name:       "hours-per-step",
			usage:      "hours-per-step is the length of a timestep in hours.",
			defaultVal: d.HoursPerStep,
			flagsets:   plotFlags,
		},
		{
			name: "canvas",
			usage: `canvas is the size of the longer side of the plot in pixels.  0 uses
the size suggested by the test case.`,
			defaultVal: 0,
			flagsets:   plotFlags,
		},
		{
			name:       "max-zoom",
			usage:      "max-zoom limits the zoom factor.",
			defaultVal: d.MaxZoom,
			flagsets:   plotFlags,
		},
		{
			name:       "update-span",
			usage:      "update-span is the minimum time between partial statistics updates.",
			defaultVal: d.UpdateSpan.String(),
			flagsets:   plotFlags,
		},
		{
			name:       "delay",
			usage:      "delay is the pause between animation frames.",
			defaultVal: d.Delay.String(),
			flagsets:   plotFlags,
		},
		{
			name:       "case",
			usage:      `case is the test case to use, see "meshrender list".`,
			shorthand:  "c",
			defaultVal: "grid_small",
			flagsets:   caseFlags,
		},
		{
			name:       "layer",
			usage:      "layer is the data layer to use.",
			shorthand:  "l",
			defaultVal: 0,
			flagsets:   caseFlags,
		},
		{
			name:       "timestep",
			usage:      "timestep is the timestep to show.",
			shorthand:  "t",
			defaultVal: 0,
			flagsets:   viewFlags,
		},
		{
			name:       "zoom",
			usage:      "zoom lists pixel positions to zoom in at, as x1,y1,x2,y2,...",
			defaultVal: []int{},
			flagsets:   viewFlags,
		},
		{
			name:       "output",
			usage:      `output is the PNG file to write, "-" for standard output.`,
			shorthand:  "o",
			defaultVal: "-",
			flagsets:   []*pflag.FlagSet{renderCmd.Flags()},
		},
		{
			name:       "width",
			usage:      "width scales the image to this many pixels; 0 keeps the plot size.",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{renderCmd.Flags()},
		},
		{
			name:       "ids",
			usage:      "ids writes the cell-ID image instead of the plot.",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{renderCmd.Flags()},
		},
		{
			name:       "pixel",
			usage:      "pixel is the position to probe, as x,y.",
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{probeCmd.Flags()},
		},
		{
			name:       "lon",
			usage:      "lon is the longitude to probe, in degrees east.",
			defaultVal: math.NaN(),
			flagsets:   []*pflag.FlagSet{probeCmd.Flags()},
		},
		{
			name:       "lat",
			usage:      "lat is the latitude to probe, in degrees north.",
			defaultVal: math.NaN(),
			flagsets:   []*pflag.FlagSet{probeCmd.Flags()},
		},
		{
			name:       "statistic",
			usage:      `statistic is the per-cell statistic to print, for example "maximum" or "_max8".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{statsCmd.Flags()},
		},
		{
			name:       "cells",
			usage:      `cells is the cell or range of cells to print, as "7" or "3-5".`,
			defaultVal: "0",
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags()},
		},
		{
			name:       "first",
			usage:      "first is the first timestep to print.",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags()},
		},
		{
			name:       "last",
			usage:      "last is the last timestep to print; -1 means the last one of the data.",
			defaultVal: -1,
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags()},
		},
	})

	return root
}

// frame draws the selected test case and returns everything needed to
// interpret the image.
func (a *app) frame(ctx context.Context) (*meshrender.Image, *mesh.Mesh, testcases.TestCase, view.State, error) {
	tc, m, err := a.testCase()
	if err != nil {
		return nil, nil, tc, view.State{}, err
	}
	cfg, err := plotConfig(a.v)
	if err != nil {
		return nil, nil, tc, view.State{}, err
	}
	cfg.Log = a.log

	canvas := cfg.Canvas
	if canvas <= 0 {
		canvas = tc.Canvas
	}
	s := view.New(canvas, m.Bounds)
	s.MaxZoom = cfg.MaxZoom
	s = s.WithLayer(a.v.GetInt("layer")).WithTimestep(a.v.GetInt("timestep"))
	zoom, err := cast.ToIntSliceE(a.v.Get("zoom"))
	if err != nil || len(zoom)%2 != 0 {
		return nil, nil, tc, view.State{}, fmt.Errorf("meshrender: invalid zoom positions %v", a.v.Get("zoom"))
	}
	for i := 0; i < len(zoom); i += 2 {
		s = s.ZoomIn(image.Pt(zoom[i], zoom[i+1]))
	}

	img, err := meshrender.RenderFrame(ctx, m, tc.Data, s, cfg)
	if err != nil {
		return nil, nil, tc, view.State{}, err
	}
	return img, m, tc, s, nil
}

func (a *app) testCase() (testcases.TestCase, *mesh.Mesh, error) {
	name := a.v.GetString("case")
	tc, ok := testcases.Find(name)
	if !ok {
		return tc, nil, fmt.Errorf("meshrender: unknown test case %q", name)
	}
	m, err := tc.Load()
	if err != nil {
		return tc, nil, err
	}
	a.log.WithFields(logrus.Fields{
		"case":   name,
		"cells":  len(m.Cells),
		"splits": len(m.Splits),
	}).Debug("mesh loaded")
	return tc, m, nil
}

func (a *app) render(cmd *cobra.Command, _ []string) error {
	res, _, _, _, err := a.frame(cmd.Context())
	if err != nil {
		return err
	}

	var img image.Image = res.RGBA
	scaler := draw.Scaler(draw.CatmullRom)
	if a.v.GetBool("ids") {
		img = res.IDs.RGBA()
		scaler = draw.NearestNeighbor
	}
	if width := a.v.GetInt("width"); width > 0 {
		b := img.Bounds()
		height := max(1, int(math.Round(float64(width)*float64(b.Dy())/float64(b.Dx()))))
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		scaler.Scale(scaled, scaled.Rect, img, b, draw.Src, nil)
		img = scaled
	}

	var w io.Writer = cmd.OutOrStdout()
	if name := a.v.GetString("output"); name != "-" {
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := png.Encode(w, img); err != nil {
		return err
	}
	a.log.WithField("size", img.Bounds().Size()).Info("image written")
	return nil
}

func (a *app) probe(cmd *cobra.Command, _ []string) error {
	res, m, tc, s, err := a.frame(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	pixel, err := cast.ToIntSliceE(a.v.Get("pixel"))
	if err != nil {
		return err
	}
	var id int
	var ok bool
	switch {
	case len(pixel) == 2:
		pt := image.Pt(pixel[0], pixel[1])
		lonDeg, latDeg := mesh.Denormalize(s.Transformer().Inverse(pt))
		fmt.Fprintf(out, "pixel %d,%d at %s\n", pt.X, pt.Y, view.FormatLonLat(lonDeg, latDeg))
		id, ok = res.IDs.Lookup(pt.X, pt.Y)
	case len(pixel) == 0:
		lonDeg, latDeg := a.v.GetFloat64("lon"), a.v.GetFloat64("lat")
		if math.IsNaN(lonDeg) || math.IsNaN(latDeg) {
			return fmt.Errorf("meshrender: need --pixel or both --lon and --lat")
		}
		lon := mesh.NormalizeLon(lonDeg * math.Pi / 180)
		lat := mesh.NormalizeLat(latDeg * math.Pi / 180)
		id, ok = m.CellAt(lon, lat)
	default:
		return fmt.Errorf("meshrender: invalid pixel %v", pixel)
	}
	if !ok {
		fmt.Fprintln(out, "no cell")
		return nil
	}

	v := tc.Data.Value(s.Timestep, s.Layer, id)
	value := "missing"
	if !cube.IsMissing(v) {
		value = cast.ToString(v)
	}
	fmt.Fprintf(out, "cell %d value %s\n", id, value)
	return nil
}

func (a *app) stats(cmd *cobra.Command, _ []string) error {
	tc, _, err := a.testCase()
	if err != nil {
		return err
	}
	cfg, err := plotConfig(a.v)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	e := stats.NewEngine(tc.Data, stats.WithLogger(a.log), stats.WithUpdateSpan(cfg.UpdateSpan))
	e.Start(cmd.Context())
	e.Wait()
	if err := e.Err(); err != nil {
		return err
	}
	for layer := range tc.Data.NumLayers() {
		fmt.Fprintf(out, "layer %d: %s\n", layer, e.LayerInfo(layer, nil))
	}
	fmt.Fprintf(out, "dataset: %s\n", e.DatasetInfo(nil))

	name := a.v.GetString("statistic")
	if name == "" {
		return nil
	}
	stat, err := stats.ParseStatistic(name)
	if err != nil {
		return err
	}
	layer := a.v.GetInt("layer")
	res, err := stats.ComputeCellStats(cmd.Context(), tc.Data, layer, cfg.Threshold, cfg.HoursPerStep)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s, layer %d:\n", stat, layer)
	for cell, v := range res[stat] {
		value := "missing"
		if !cube.IsMissing(v) {
			value = cast.ToString(v)
		}
		fmt.Fprintf(out, "%d\t%s\n", cell, value)
	}
	return nil
}

func (a *app) series(cmd *cobra.Command, _ []string) error {
	tc, _, err := a.testCase()
	if err != nil {
		return err
	}
	cells, err := parseCells(a.v.GetString("cells"))
	if err != nil {
		return err
	}
	from, to := a.v.GetInt("first"), a.v.GetInt("last")
	if to < 0 {
		to = tc.Data.NumTimesteps() - 1
	}
	layer := a.v.GetInt("layer")
	res, err := cube.TimeSeries(tc.Data, layer, cells, from, to)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, "cell")
	for t := from; t <= to; t++ {
		fmt.Fprintf(out, "\tt%d", t)
	}
	fmt.Fprintln(out)
	for i, row := range res {
		fmt.Fprint(out, cells[i])
		for _, v := range row {
			value := "missing"
			if !cube.IsMissing(v) {
				value = cast.ToString(v)
			}
			fmt.Fprint(out, "\t", value)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// parseCells reads a cell id or an inclusive range "lo-hi".
func parseCells(text string) ([]int, error) {
	loText, hiText, isRange := strings.Cut(strings.TrimSpace(text), "-")
	lo, err := cast.ToIntE(loText)
	if err != nil {
		return nil, fmt.Errorf("meshrender: invalid cells %q", text)
	}
	hi := lo
	if isRange {
		hi, err = cast.ToIntE(hiText)
		if err != nil || hi < lo {
			return nil, fmt.Errorf("meshrender: invalid cells %q", text)
		}
	}
	return cube.Range(lo, hi), nil
}

func (a *app) config(cmd *cobra.Command, _ []string) error {
	cfg, err := plotConfig(a.v)
	if err != nil {
		return err
	}
	return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
}
