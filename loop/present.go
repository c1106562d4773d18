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

package loop

import (
	"errors"
	"image"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/image/draw"

	"seehuhn.de/go/meshrender/paint"
	"seehuhn.de/go/meshrender/view"
)

// ErrSurfaceUnavailable is returned by Config.Surface while there is
// nothing to draw into.  The pass is skipped and retried later.
var ErrSurfaceUnavailable = errors.New("drawing surface unavailable")

var errSuperseded = errors.New("pass superseded")

// surfaceRetries is the number of immediate retries when acquiring the
// drawing surface, before the pass is skipped.
const surfaceRetries = 3

// pass runs one complete render pass for the current view.
func (l *Loop) pass() error {
	l.pending.Store(0)
	l.counters.passes.Add(1)

	s := l.View()
	bounds, err := l.acquire(s)
	if err != nil {
		l.pending.Add(1)
		l.counters.skipped.Add(1)
		return err
	}

	key := s.Key()
	if !l.shaped || l.cells.Key.Geometry() != key.Geometry() {
		l.cells.Transform(l.cfg.Mesh, s)
		l.shaped = true
		l.counters.transforms.Add(1)
	}
	if l.superseded() {
		return l.discard()
	}

	cmap := l.cfg.Colors(s.Layer)
	want := coloring{valid: true, key: key.Geometry(), t: s.Timestep, layer: s.Layer, cmap: cmap}
	if l.colored != want {
		l.colored = coloring{}
		l.cells.Colorize(l.cfg.Data, s.Timestep, s.Layer, cmap)
		l.colored = want
	}
	ids := l.idImage(key.Geometry())
	if l.superseded() {
		return l.discard()
	}

	back := l.backBuffer(bounds)
	draw.Draw(back, back.Rect, image.NewUniform(l.cfg.Background), image.Point{}, draw.Src)
	if cmap != nil {
		l.painter.Paint(back, &l.cells, cmap.Colors, l.cfg.Clicked)
	}
	if l.superseded() {
		return l.discard()
	}

	l.present(key, ids)
	return nil
}

func (l *Loop) superseded() bool {
	return l.pending.Load() > 0 || l.isClosed()
}

func (l *Loop) discard() error {
	l.counters.discarded.Add(1)
	return errSuperseded
}

// acquire returns the bounds of the drawing surface.
func (l *Loop) acquire(s view.State) (image.Rectangle, error) {
	if l.cfg.Surface == nil {
		w, h := s.Screen()
		return image.Rect(0, 0, s.Origin.X+w, s.Origin.Y+h), nil
	}

	var r image.Rectangle
	op := func() error {
		var err error
		r, err = l.cfg.Surface()
		if err == nil && r.Empty() {
			err = ErrSurfaceUnavailable
		}
		return err
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(l.cfg.RetryDelay/4), surfaceRetries)
	err := backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		l.log.WithError(err).Debugf("surface not ready, retrying in %v", d)
	})
	if err != nil {
		l.log.WithError(err).Warn("skipping render pass")
		if !errors.Is(err, ErrSurfaceUnavailable) {
			err = errors.Join(ErrSurfaceUnavailable, err)
		}
		return image.Rectangle{}, err
	}
	return r, nil
}

// idImage returns the cell-ID image for the current geometry, from the
// cache if possible.
func (l *Loop) idImage(geometry view.Key) *paint.IDImage {
	if v, ok := l.idCache.Get(geometry); ok {
		return v.(*paint.IDImage)
	}
	ids := l.painter.PaintIDs(&l.cells)
	l.idCache.Add(geometry, ids)
	l.counters.idRenders.Add(1)
	return ids
}

func (l *Loop) backBuffer(bounds image.Rectangle) *image.RGBA {
	if l.back == nil || l.back.Rect != bounds {
		l.back = image.NewRGBA(bounds)
	}
	return l.back
}

// present swaps the back buffer to the front and publishes the matching
// cell-ID image.
func (l *Loop) present(key view.Key, ids *paint.IDImage) {
	l.presentMu.Lock()
	l.front, l.back = l.back, l.front
	l.frontKey = key
	l.ids.Store(ids)
	l.presentMu.Unlock()

	l.counters.presented.Add(1)
	if l.cfg.OnPresent != nil {
		l.cfg.OnPresent(key)
	}
}

// Frame returns a copy of the last presented frame and the view it shows.
// The result is nil until the first frame has been presented.
func (l *Loop) Frame() (*image.RGBA, view.Key) {
	l.presentMu.Lock()
	defer l.presentMu.Unlock()
	if l.front == nil {
		return nil, view.Key{}
	}
	img := image.NewRGBA(l.front.Rect)
	draw.Draw(img, img.Rect, l.front, img.Rect.Min, draw.Src)
	return img, l.frontKey
}

// Present calls fn with the last presented frame.  The frame must not be
// retained after fn returns.  Present does nothing before the first frame.
func (l *Loop) Present(fn func(img *image.RGBA, key view.Key)) {
	l.presentMu.Lock()
	defer l.presentMu.Unlock()
	if l.front != nil {
		fn(l.front, l.frontKey)
	}
}

// IDImage returns the cell-ID image of the last presented frame, or nil.
func (l *Loop) IDImage() *paint.IDImage {
	return l.ids.Load()
}

// CellAt returns the id of the cell shown at pixel p in the last
// presented frame.
func (l *Loop) CellAt(p image.Point) (int, bool) {
	return l.ids.Load().Lookup(p.X, p.Y)
}
