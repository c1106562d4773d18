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

// Package meshrender draws data on unstructured polygon meshes.
//
// A Plot combines a mesh, a data cube and a view.  Cells are coloured by
// value, using a colour map over the value range of the shown layer.  The
// value range is found by a background sweep over the data; until the
// sweep is complete the colours are based on the part seen so far.  Every
// frame comes with an image of cell ids, so that the cell under the mouse
// can be found without searching the mesh.
package meshrender

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"seehuhn.de/go/meshrender/colormap"
	"seehuhn.de/go/meshrender/cube"
	"seehuhn.de/go/meshrender/loop"
	"seehuhn.de/go/meshrender/mesh"
	"seehuhn.de/go/meshrender/paint"
	"seehuhn.de/go/meshrender/stats"
	"seehuhn.de/go/meshrender/view"
)

// Plot shows one data cube on a mesh.  All methods may be called
// concurrently.
type Plot struct {
	mesh    *mesh.Mesh
	data    cube.Cube
	cfg     Config
	log     logrus.FieldLogger
	palette []color.NRGBA

	engine *stats.Engine
	loop   *loop.Loop
	cancel context.CancelFunc

	mu      sync.Mutex
	scale   colormap.Scale
	logBase float64
	maps    []*colormap.Map
	known   []bool // the range of the layer has been requested
	counts  []int  // number of values behind maps
	clicked map[int]bool
	cells   [][]float64 // per-cell statistics, indexed by stats.Statistic
}

// New starts rendering the data c on the mesh m.  The caller must call
// Close when the plot is no longer needed.
func New(m *mesh.Mesh, c cube.Cube, cfg Config) (*Plot, error) {
	cfg = cfg.withDefaults()
	if c.NumCells() != len(m.Cells) {
		return nil, fmt.Errorf("meshrender: data has %d cells, mesh has %d",
			c.NumCells(), len(m.Cells))
	}
	if c.NumTimesteps() < 1 || c.NumLayers() < 1 {
		return nil, errors.New("meshrender: empty data cube")
	}
	palette, err := colormap.Palette(cfg.Palette, cfg.Colors)
	if err != nil {
		return nil, fmt.Errorf("meshrender: %w", err)
	}
	scale, err := colormap.ParseScale(cfg.Scale)
	if err != nil {
		return nil, fmt.Errorf("meshrender: %w", err)
	}

	p := &Plot{
		mesh:    m,
		data:    c,
		cfg:     cfg,
		log:     cfg.Log,
		palette: palette,
		scale:   scale,
		logBase: cfg.LogBase,
		maps:    make([]*colormap.Map, c.NumLayers()),
		known:   make([]bool, c.NumLayers()),
		counts:  make([]int, c.NumLayers()),
		clicked: make(map[int]bool),
	}

	p.engine = stats.NewEngine(c,
		stats.WithLogger(cfg.Log),
		stats.WithUpdateSpan(cfg.UpdateSpan))
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.engine.Start(ctx)

	painter := paint.NewPainter()
	painter.Borders = cfg.Borders
	painter.BorderCutoff = cfg.BorderCutoff

	s := view.New(cfg.Canvas, m.Bounds)
	s.MaxZoom = cfg.MaxZoom
	if cfg.FirstTimestep != 0 || cfg.LastTimestep != 0 {
		s = s.WithTimestep(cfg.FirstTimestep)
	}
	p.loop = loop.New(loop.Config{
		Mesh:          m,
		Data:          c,
		Colors:        p.colorMap,
		Clicked:       p.isClicked,
		Painter:       painter,
		Surface:       cfg.Surface,
		FirstTimestep: cfg.FirstTimestep,
		LastTimestep:  cfg.LastTimestep,
		OnPresent:     cfg.OnPresent,
		Log:           cfg.Log,
	}, s)
	p.loop.SetDelay(cfg.Delay)
	return p, nil
}

// Close stops rendering and the background statistics.
func (p *Plot) Close() {
	p.loop.Close()
	p.cancel()
	p.engine.Wait()
}

// colorMap returns the colour map of a layer, building it on first use.
func (p *Plot) colorMap(layer int) *colormap.Map {
	p.mu.Lock()
	known := p.known[layer]
	p.known[layer] = true
	cmap := p.maps[layer]
	p.mu.Unlock()
	if known {
		return cmap
	}
	return p.rebuild(layer, p.engine.LayerInfo(layer, p))
}

// rebuild replaces the colour map of a layer by one covering info.  A log
// scale which cannot cover the range falls back to a linear scale.
func (p *Plot) rebuild(layer int, info stats.Info) *colormap.Map {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info.Count < p.counts[layer] {
		// a newer update has already been applied
		return p.maps[layer]
	}
	p.counts[layer] = info.Count
	if !info.HasRange() {
		p.maps[layer] = nil
		return nil
	}
	cmap, err := colormap.New(p.palette, info.Min, info.Max, p.scale, p.logBase)
	if errors.Is(err, colormap.ErrNonPositiveLog) {
		p.log.WithFields(logrus.Fields{
			"layer": layer,
			"min":   info.Min,
		}).Warn("log scale impossible, using linear scale")
		p.scale = colormap.Linear
		clear(p.maps)
		clear(p.known)
		clear(p.counts)
		p.known[layer] = true
		p.counts[layer] = info.Count
		cmap, err = colormap.New(p.palette, info.Min, info.Max, p.scale, p.logBase)
	}
	if err != nil {
		p.log.WithError(err).WithField("layer", layer).Error("cannot build colour map")
		cmap = nil
	}
	p.maps[layer] = cmap
	return cmap
}

// LayerUpdated implements stats.LayerListener.
func (p *Plot) LayerUpdated(layer int, info stats.Info) {
	p.rebuild(layer, info)
	if p.loop.View().Layer == layer {
		p.loop.Draw()
	}
}

func (p *Plot) isClicked(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicked[id]
}

// Draw requests a new frame.
func (p *Plot) Draw() { p.loop.Draw() }

// View returns the current view.
func (p *Plot) View() view.State { return p.loop.View() }

// ZoomIn zooms in one step, centred on pixel pt.
func (p *Plot) ZoomIn(pt image.Point) {
	p.loop.Update(func(s view.State) view.State { return s.ZoomIn(pt) })
}

// ZoomOut zooms out one step, centred on pixel pt.
func (p *Plot) ZoomOut(pt image.Point) {
	p.loop.Update(func(s view.State) view.State { return s.ZoomOut(pt) })
}

// ZoomRect zooms to the pixel rectangle r.
func (p *Plot) ZoomRect(r image.Rectangle) {
	p.loop.Update(func(s view.State) view.State { return s.ZoomRect(r) })
}

// ResetZoom shows the whole mesh again.
func (p *Plot) ResetZoom() {
	p.loop.Update(func(s view.State) view.State { return s.Reset() })
}

// Pan moves the visible area by (dx, dy) pixels.
func (p *Plot) Pan(dx, dy int) {
	p.loop.Update(func(s view.State) view.State { return s.Pan(dx, dy) })
}

// SetCanvas changes the canvas size and the position of the plot area.
func (p *Plot) SetCanvas(canvas int, origin image.Point) {
	p.loop.Update(func(s view.State) view.State { return s.WithCanvas(canvas, origin) })
}

// SetTimestep shows timestep t.
func (p *Plot) SetTimestep(t int) error {
	if !p.loop.SetTimestep(t) {
		return fmt.Errorf("meshrender: timestep %d out of range", t)
	}
	return nil
}

// SetLayer shows the given layer.
func (p *Plot) SetLayer(layer int) error {
	if !p.loop.SetLayer(layer) {
		return fmt.Errorf("meshrender: layer %d out of range", layer)
	}
	return nil
}

// Step moves the timestep by delta, wrapping around at the ends.
func (p *Plot) Step(delta int) int { return p.loop.Step(delta) }

// Play starts the animation.
func (p *Plot) Play() { p.loop.Play() }

// Pause stops the animation.
func (p *Plot) Pause() { p.loop.Pause() }

// SetDelay sets the pause between animation frames.
func (p *Plot) SetDelay(d time.Duration) time.Duration { return p.loop.SetDelay(d) }

// State reports what the render loop is doing.
func (p *Plot) State() loop.State { return p.loop.State() }

// Frame returns a copy of the last frame, or nil if none has been drawn
// yet.
func (p *Plot) Frame() (*image.RGBA, view.Key) { return p.loop.Frame() }

// CellAt returns the cell shown at pixel pt of the last frame.
func (p *Plot) CellAt(pt image.Point) (int, bool) { return p.loop.CellAt(pt) }

// CellAtLonLat returns the cell containing the point given in degrees
// east and north.
func (p *Plot) CellAtLonLat(lonDeg, latDeg float64) (int, bool) {
	lon := mesh.NormalizeLon(lonDeg * math.Pi / 180)
	lat := mesh.NormalizeLat(latDeg * math.Pi / 180)
	if id, ok := p.mesh.CellAt(lon, lat); ok {
		return id, true
	}
	if lon == 0 {
		// the seam is at both ends of the normalized range
		return p.mesh.CellAt(2*math.Pi, lat)
	}
	return -1, false
}

// Hover returns the text shown for the mouse at pixel pt: the position,
// followed by the value of the cell under the mouse, if any.
func (p *Plot) Hover(pt image.Point) string {
	s := p.loop.View()
	text := view.FormatLonLat(mesh.Denormalize(s.Transformer().Inverse(pt)))
	id, ok := p.loop.CellAt(pt)
	if !ok {
		return text
	}
	v := p.data.Value(s.Timestep, s.Layer, id)
	if cube.IsMissing(v) {
		return text + " missing"
	}
	return text + " " + strconv.FormatFloat(v, 'g', 6, 64)
}

// Click toggles the highlight of the cell at pixel pt and returns its id.
func (p *Plot) Click(pt image.Point) (int, bool) {
	id, ok := p.loop.CellAt(pt)
	if !ok {
		return -1, false
	}
	p.mu.Lock()
	if p.clicked[id] {
		delete(p.clicked, id)
	} else {
		p.clicked[id] = true
	}
	p.mu.Unlock()
	p.loop.Draw()
	return id, true
}

// Clicked returns the highlighted cells in increasing order.
func (p *Plot) Clicked() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []int
	for id := range p.clicked {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ClearClicked removes all highlights.
func (p *Plot) ClearClicked() {
	p.mu.Lock()
	clear(p.clicked)
	p.mu.Unlock()
	p.loop.Draw()
}

// TimeSeries returns the values of the highlighted cells in the current
// layer, for timesteps from to to (inclusive).  The rows are in the
// order of Clicked.
func (p *Plot) TimeSeries(from, to int) ([][]float64, error) {
	return cube.TimeSeries(p.data, p.loop.View().Layer, p.Clicked(), from, to)
}

// MinMaxCells returns the cells with the smallest and the largest value
// in the current timestep and layer.
func (p *Plot) MinMaxCells() (minCell, maxCell int, ok bool) {
	s := p.loop.View()
	return stats.ExtremeCells(p.data, s.Layer, s.Timestep)
}

// Range returns the value range of the current layer found so far.
func (p *Plot) Range() stats.Info {
	return p.engine.LayerInfo(p.loop.View().Layer, nil)
}

// DatasetRange returns the value range of all layers found so far.
func (p *Plot) DatasetRange() stats.Info {
	return p.engine.DatasetInfo(nil)
}

// Stats gives access to the background statistics.
func (p *Plot) Stats() *stats.Engine { return p.engine }

// Legend describes the colour map of the current layer.
type Legend struct {
	Scale  colormap.Scale
	Levels []float64
	Colors []color.NRGBA
}

// Legend returns the colour map of the current layer.  ok is false while
// no value range is known.
func (p *Plot) Legend() (Legend, bool) {
	cmap := p.colorMap(p.loop.View().Layer)
	if cmap == nil {
		return Legend{}, false
	}
	return Legend{
		Scale:  cmap.Scale,
		Levels: cmap.Levels(),
		Colors: slices.Clone(cmap.Colors),
	}, true
}

// SetScale switches between linear and logarithmic colour maps.  If the
// value range contains non-positive values, a logarithmic scale falls
// back to linear.
func (p *Plot) SetScale(scale colormap.Scale, logBase float64) {
	p.mu.Lock()
	p.scale = scale
	if logBase > 1 {
		p.logBase = logBase
	}
	clear(p.maps)
	clear(p.known)
	clear(p.counts)
	p.mu.Unlock()
	p.loop.Draw()
}

// Scale returns the scale used for new colour maps.
func (p *Plot) Scale() colormap.Scale {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scale
}

// ComputeStatistics computes the per-cell statistics of the current layer
// over all timesteps.  If this fails while a logarithmic scale is used,
// the plot falls back to a linear scale and is redrawn.
func (p *Plot) ComputeStatistics(ctx context.Context) ([][]float64, error) {
	layer := p.loop.View().Layer
	res, err := stats.ComputeCellStats(ctx, p.data, layer, p.cfg.Threshold, p.cfg.HoursPerStep)

	var statsErr *stats.StatisticsError
	if errors.As(err, &statsErr) && p.Scale() == colormap.Logarithmic {
		p.log.WithError(err).Warn("statistics failed, using linear scale")
		p.SetScale(colormap.Linear, 0)
	}
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cells = res
	p.mu.Unlock()
	return res, nil
}

// CellStatistic returns one statistic of a cell, as computed by the last
// call to ComputeStatistics.
func (p *Plot) CellStatistic(s stats.Statistic, cell int) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cells == nil || cell < 0 || cell >= len(p.cells[s]) {
		return 0, false
	}
	return p.cells[s][cell], true
}
