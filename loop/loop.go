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

// Package loop runs the render passes of a mesh plot on a dedicated
// goroutine.
//
// Requests from other goroutines only change the view state and set a
// flag; any number of requests made while a pass is running are served
// by a single following pass.  A pass which is overtaken by a newer
// request is abandoned at the next stage boundary and never presented.
package loop

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"

	"seehuhn.de/go/meshrender/colormap"
	"seehuhn.de/go/meshrender/cube"
	"seehuhn.de/go/meshrender/mesh"
	"seehuhn.de/go/meshrender/paint"
	"seehuhn.de/go/meshrender/view"
)

// State describes what the render goroutine is doing.
type State int

const (
	Idle State = iota
	RenderOnce
	RenderContinuous
	Ending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RenderOnce:
		return "render once"
	case RenderContinuous:
		return "render continuous"
	case Ending:
		return "ending"
	}
	return "unknown"
}

const (
	// DefaultDelay is the pause between two animation frames.
	DefaultDelay = 50 * time.Millisecond

	// MaxDelay is the longest allowed pause between animation frames.
	MaxDelay = 3 * time.Second

	defaultCacheSize  = 8
	defaultRetryDelay = 100 * time.Millisecond
)

// Config describes the plot drawn by a Loop.
type Config struct {
	Mesh *mesh.Mesh
	Data cube.Cube

	// Colors returns the colour map for a layer.  A nil map hides all
	// cells.
	Colors func(layer int) *colormap.Map

	// Clicked reports which cells are highlighted.  May be nil.
	Clicked func(id int) bool

	// Painter draws the cells.  If nil, paint.NewPainter() is used.
	Painter *paint.Painter

	// Surface reports the bounds of the image to draw into.  It returns
	// ErrSurfaceUnavailable while the surface is not ready.  If nil, the
	// image just covers the plot area.
	Surface func() (image.Rectangle, error)

	Background color.Color

	// FirstTimestep and LastTimestep bound the animation.  If both are
	// zero, all timesteps of Data are used.
	FirstTimestep, LastTimestep int

	// CacheSize is the number of cell-ID images kept for reuse.
	CacheSize int

	// RetryDelay is the wait before a skipped pass is retried.
	RetryDelay time.Duration

	// OnPresent is called on the render goroutine after a new frame has
	// been presented.
	OnPresent func(key view.Key)

	Log logrus.FieldLogger
}

// Counters reports what the render goroutine has done so far.
type Counters struct {
	Passes     uint64 // passes started
	Presented  uint64 // frames presented
	Discarded  uint64 // passes abandoned for a newer request
	Skipped    uint64 // passes skipped because the surface was unavailable
	Transforms uint64 // geometry recomputations
	IDRenders  uint64 // cell-ID images rendered (not taken from the cache)
}

// Loop owns the render goroutine of one plot.
type Loop struct {
	cfg     Config
	log     logrus.FieldLogger
	painter *paint.Painter

	mu      sync.Mutex
	view    view.State
	playing bool
	delay   time.Duration
	closed  bool

	pending atomic.Int64
	busy    atomic.Bool
	wake    chan struct{}
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once

	// used by the render goroutine only
	cells    paint.Cells
	shaped   bool
	colored  coloring
	idCache  *lru.Cache
	back     *image.RGBA
	counters struct {
		passes, presented, discarded, skipped, transforms, idRenders atomic.Uint64
	}

	presentMu sync.Mutex
	front     *image.RGBA
	frontKey  view.Key
	ids       atomic.Pointer[paint.IDImage]
}

// coloring records the inputs of the last Cells.Colorize call.
type coloring struct {
	valid    bool
	key      view.Key
	t, layer int
	cmap     *colormap.Map
}

// New starts the render goroutine for the view s.  The first frame is
// drawn right away.
func New(cfg Config, s view.State) *Loop {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Painter == nil {
		cfg.Painter = paint.NewPainter()
	}
	if cfg.Colors == nil {
		cfg.Colors = func(int) *colormap.Map { return nil }
	}
	if cfg.Background == nil {
		cfg.Background = color.Transparent
	}
	if cfg.FirstTimestep == 0 && cfg.LastTimestep == 0 {
		cfg.LastTimestep = cfg.Data.NumTimesteps() - 1
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	l := &Loop{
		cfg:     cfg,
		log:     cfg.Log,
		painter: cfg.Painter,
		view:    s,
		delay:   DefaultDelay,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		idCache: lru.New(cfg.CacheSize),
	}
	go l.run()
	l.Draw()
	return l
}

// Draw requests a render pass.  Requests made before the pass starts are
// served together.
func (l *Loop) Draw() {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return
	}
	l.pending.Add(1)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// View returns the current view state.
func (l *Loop) View() view.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view
}

// Update replaces the view state by f(current) and requests a pass.
func (l *Loop) Update(f func(view.State) view.State) view.State {
	l.mu.Lock()
	l.view = f(l.view)
	s := l.view
	l.mu.Unlock()
	l.Draw()
	return s
}

// SetView replaces the view state and requests a pass.
func (l *Loop) SetView(s view.State) {
	l.Update(func(view.State) view.State { return s })
}

// SetTimestep shows timestep t.  Values outside the animation range are
// ignored and false is returned.
func (l *Loop) SetTimestep(t int) bool {
	if t < l.cfg.FirstTimestep || t > l.cfg.LastTimestep {
		return false
	}
	l.Update(func(s view.State) view.State { return s.WithTimestep(t) })
	return true
}

// Step moves the timestep by delta, wrapping around at the ends of the
// animation range.
func (l *Loop) Step(delta int) int {
	s := l.Update(func(s view.State) view.State {
		return s.WithTimestep(NextValue(delta, s.Timestep, l.cfg.FirstTimestep, l.cfg.LastTimestep))
	})
	return s.Timestep
}

// SetLayer shows the given layer.  Invalid layers are ignored and false
// is returned.
func (l *Loop) SetLayer(layer int) bool {
	if layer < 0 || layer >= l.cfg.Data.NumLayers() {
		return false
	}
	l.Update(func(s view.State) view.State { return s.WithLayer(layer) })
	return true
}

// Play starts the animation.
func (l *Loop) Play() {
	l.mu.Lock()
	l.playing = !l.closed
	l.mu.Unlock()
	l.Draw()
}

// Pause stops the animation after the current frame.
func (l *Loop) Pause() {
	l.mu.Lock()
	l.playing = false
	l.mu.Unlock()
}

// SetDelay sets the pause between animation frames, clamped to
// [0, MaxDelay].
func (l *Loop) SetDelay(d time.Duration) time.Duration {
	d = max(0, min(d, MaxDelay))
	l.mu.Lock()
	l.delay = d
	l.mu.Unlock()
	return d
}

// Delay returns the pause between animation frames.
func (l *Loop) Delay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.delay
}

// State returns what the render goroutine is doing.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.closed:
		return Ending
	case l.playing:
		return RenderContinuous
	case l.pending.Load() > 0 || l.busy.Load():
		return RenderOnce
	}
	return Idle
}

// Counters returns statistics about the passes run so far.
func (l *Loop) Counters() Counters {
	c := &l.counters
	return Counters{
		Passes:     c.passes.Load(),
		Presented:  c.presented.Load(),
		Discarded:  c.discarded.Load(),
		Skipped:    c.skipped.Load(),
		Transforms: c.transforms.Load(),
		IDRenders:  c.idRenders.Load(),
	}
}

// Close stops the render goroutine and waits for it to exit.  A closed
// Loop cannot be restarted; the last frame remains available.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.playing = false
		l.mu.Unlock()
		close(l.quit)
	})
	<-l.done
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loop) run() {
	defer close(l.done)

	var tick, retry <-chan time.Time
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		case <-tick:
			tick = nil
			l.advance()
		case <-retry:
			retry = nil
		}

		for l.pending.Load() > 0 && !l.isClosed() {
			l.busy.Store(true)
			err := l.pass()
			l.busy.Store(false)
			if errors.Is(err, ErrSurfaceUnavailable) {
				retry = time.After(l.cfg.RetryDelay)
				break
			}
		}

		l.mu.Lock()
		playing, delay := l.playing, l.delay
		l.mu.Unlock()
		if playing && tick == nil {
			tick = time.After(delay)
		}
	}
}

// advance moves the animation to the next timestep.
func (l *Loop) advance() {
	l.mu.Lock()
	if !l.playing {
		l.mu.Unlock()
		return
	}
	t := NextValue(1, l.view.Timestep, l.cfg.FirstTimestep, l.cfg.LastTimestep)
	l.view = l.view.WithTimestep(t)
	l.mu.Unlock()
	l.Draw()
}

// NextValue returns current+delta, wrapped into [lo, hi].
func NextValue(delta, current, lo, hi int) int {
	res := current + delta
	if res < lo {
		res = hi - (lo - res) + 1
	} else if res > hi {
		res = lo + (res - hi) - 1
	}
	return res
}
