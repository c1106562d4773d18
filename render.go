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

package meshrender

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"seehuhn.de/go/meshrender/colormap"
	"seehuhn.de/go/meshrender/cube"
	"seehuhn.de/go/meshrender/mesh"
	"seehuhn.de/go/meshrender/paint"
	"seehuhn.de/go/meshrender/stats"
	"seehuhn.de/go/meshrender/testcases"
	"seehuhn.de/go/meshrender/view"
)

// Image is a single rendered frame.
type Image struct {
	RGBA *image.RGBA
	IDs  *paint.IDImage
	Map  *colormap.Map // nil if the layer has no values
	Info stats.Info    // the value range of the layer
}

// RenderFrame draws one frame on the calling goroutine.  Unlike a Plot,
// it first determines the complete value range of the shown layer, so
// the colours do not depend on timing.
func RenderFrame(ctx context.Context, m *mesh.Mesh, c cube.Cube, s view.State, cfg Config) (*Image, error) {
	cfg = cfg.withDefaults()
	if c.NumCells() != len(m.Cells) {
		return nil, fmt.Errorf("meshrender: data has %d cells, mesh has %d",
			c.NumCells(), len(m.Cells))
	}
	if s.Layer < 0 || s.Layer >= c.NumLayers() || s.Timestep < 0 || s.Timestep >= c.NumTimesteps() {
		return nil, fmt.Errorf("meshrender: no data for timestep %d, layer %d", s.Timestep, s.Layer)
	}

	engine := stats.NewEngine(c, stats.WithLogger(cfg.Log))
	for t := range c.NumTimesteps() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		engine.StepInfo(s.Layer, t)
	}
	info := engine.LayerInfo(s.Layer, nil)
	if err := engine.Err(); err != nil {
		return nil, err
	}

	res := &Image{Info: info}
	if info.HasRange() {
		palette, err := colormap.Palette(cfg.Palette, cfg.Colors)
		if err != nil {
			return nil, fmt.Errorf("meshrender: %w", err)
		}
		scale, err := colormap.ParseScale(cfg.Scale)
		if err != nil {
			return nil, fmt.Errorf("meshrender: %w", err)
		}
		res.Map, err = colormap.New(palette, info.Min, info.Max, scale, cfg.LogBase)
		if errors.Is(err, colormap.ErrNonPositiveLog) {
			cfg.Log.WithError(err).Warn("using linear scale")
			res.Map, err = colormap.New(palette, info.Min, info.Max, colormap.Linear, cfg.LogBase)
		}
		if err != nil {
			return nil, fmt.Errorf("meshrender: %w", err)
		}
	}

	var cells paint.Cells
	cells.Transform(m, s)
	cells.Colorize(c, s.Timestep, s.Layer, res.Map)

	w, h := s.Screen()
	res.RGBA = image.NewRGBA(image.Rect(0, 0, s.Origin.X+w, s.Origin.Y+h))
	draw.Draw(res.RGBA, res.RGBA.Rect, image.NewUniform(color.White), image.Point{}, draw.Src)

	painter := paint.NewPainter()
	painter.Borders = cfg.Borders
	painter.BorderCutoff = cfg.BorderCutoff
	if res.Map != nil {
		painter.Paint(res.RGBA, &cells, res.Map.Colors, nil)
	}
	res.IDs = painter.PaintIDs(&cells)
	return res, nil
}

// RenderTestCase draws timestep t and layer of a test case, unzoomed, on
// the canvas size suggested by the test case.
func RenderTestCase(ctx context.Context, tc testcases.TestCase, t, layer int, cfg Config) (*Image, error) {
	m, err := tc.Load()
	if err != nil {
		return nil, err
	}
	s := view.New(tc.Canvas, m.Bounds).WithTimestep(t).WithLayer(layer)
	return RenderFrame(ctx, m, tc.Data, s, cfg)
}
