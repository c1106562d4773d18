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
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/meshrender/colormap"
	"seehuhn.de/go/meshrender/mesh"
	"seehuhn.de/go/meshrender/testcases"
	"seehuhn.de/go/meshrender/view"
)

const timeout = 5 * time.Second

type fixture struct {
	loop     *Loop
	presents chan view.Key
	mesh     *mesh.Mesh
	view     view.State
	cmap     *colormap.Map
}

func setup(t *testing.T, modify func(*Config)) *fixture {
	t.Helper()
	tc, ok := testcases.Find("grid_small")
	require.True(t, ok)
	m, err := tc.Load()
	require.NoError(t, err)
	pal, err := colormap.Palette(colormap.DefaultPalette, 8)
	require.NoError(t, err)
	cmap, err := colormap.New(pal, 0, 120, colormap.Linear, 10)
	require.NoError(t, err)
	log, _ := test.NewNullLogger()

	f := &fixture{
		presents: make(chan view.Key, 4096),
		mesh:     m,
		view:     view.New(tc.Canvas, m.Bounds),
		cmap:     cmap,
	}
	cfg := Config{
		Mesh:       m,
		Data:       tc.Data,
		Colors:     func(int) *colormap.Map { return cmap },
		RetryDelay: 4 * time.Millisecond,
		Log:        log,
		OnPresent: func(key view.Key) {
			select {
			case f.presents <- key:
			default:
			}
		},
	}
	if modify != nil {
		modify(&cfg)
	}
	f.loop = New(cfg, f.view)
	t.Cleanup(f.loop.Close)
	return f
}

// waitFor waits until a frame for key has been presented.
func (f *fixture) waitFor(t *testing.T, key view.Key) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case k := <-f.presents:
			if k == key {
				return
			}
		case <-deadline:
			t.Fatalf("no frame presented for %+v", key)
		}
	}
}

func centre(c mesh.Cell) (float64, float64) {
	var x, y float64
	for i := range c.Lon {
		x += c.Lon[i]
		y += c.Lat[i]
	}
	return x / float64(len(c.Lon)), y / float64(len(c.Lat))
}

func TestNextValue(t *testing.T) {
	cases := []struct {
		delta, current, lo, hi, want int
	}{
		{1, 0, 0, 3, 1},
		{1, 3, 0, 3, 0},
		{-1, 0, 0, 3, 3},
		{2, 3, 0, 3, 1},
		{-2, 1, 1, 5, 4},
		{1, 5, 5, 5, 5},
		{0, 2, 0, 3, 2},
	}
	for _, c := range cases {
		got := NextValue(c.delta, c.current, c.lo, c.hi)
		assert.Equal(t, c.want, got, "%+v", c)
	}
}

func TestFirstFrame(t *testing.T) {
	f := setup(t, nil)
	f.waitFor(t, f.view.Key())

	img, key := f.loop.Frame()
	require.NotNil(t, img)
	assert.Equal(t, f.view.Key(), key)
	w, h := f.view.Screen()
	assert.Equal(t, image.Rect(0, 0, w, h), img.Rect)

	ids := f.loop.IDImage()
	require.NotNil(t, ids)
	tr := f.view.Transformer()
	data := f.loop.cfg.Data
	for _, c := range f.mesh.Cells {
		lon, lat := centre(c)
		xs, ys := tr.Apply(nil, nil, []float64{lon}, []float64{lat})
		p := image.Pt(xs[0], ys[0])

		id, ok := f.loop.CellAt(p)
		assert.True(t, ok)
		assert.Equal(t, c.ID, id)

		got := color.NRGBAModel.Convert(img.At(p.X, p.Y))
		want, visible := f.cmap.Color(data.Value(0, 0, c.ID))
		if !visible {
			want = color.NRGBA{}
		}
		assert.Equal(t, want, got, "cell %d", c.ID)
	}

	_, ok := f.loop.CellAt(image.Pt(-1, -1))
	assert.False(t, ok)
}

// TestCoalesce checks that requests arriving during a pass abandon the
// pass and are served by a single new one.
func TestCoalesce(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var gate sync.Once
	f := setup(t, func(cfg *Config) {
		colors := cfg.Colors
		cfg.Colors = func(layer int) *colormap.Map {
			gate.Do(func() {
				close(entered)
				<-release
			})
			return colors(layer)
		}
	})

	<-entered
	for range 5 {
		f.loop.Draw()
	}
	require.True(t, f.loop.SetTimestep(2))
	assert.Equal(t, RenderOnce, f.loop.State())
	close(release)

	want := f.view.WithTimestep(2).Key()
	f.waitFor(t, want)
	c := f.loop.Counters()
	assert.Equal(t, uint64(2), c.Passes)
	assert.Equal(t, uint64(1), c.Discarded)
	assert.Equal(t, uint64(1), c.Presented)
	assert.Equal(t, uint64(1), c.Transforms)
	assert.Equal(t, uint64(1), c.IDRenders)

	_, key := f.loop.Frame()
	assert.Equal(t, want, key)
}

func TestIDImageCache(t *testing.T) {
	f := setup(t, nil)
	f.waitFor(t, f.view.Key())
	first := f.loop.IDImage()

	zoomed := f.view.ZoomIn(image.Pt(100, 50))
	f.loop.SetView(zoomed)
	f.waitFor(t, zoomed.Key())
	assert.NotSame(t, first, f.loop.IDImage())

	f.loop.SetView(f.view.WithTimestep(1))
	f.waitFor(t, f.view.WithTimestep(1).Key())
	assert.Same(t, first, f.loop.IDImage())

	c := f.loop.Counters()
	assert.Equal(t, uint64(3), c.Transforms)
	assert.Equal(t, uint64(2), c.IDRenders)
}

func TestSurfaceUnavailable(t *testing.T) {
	var ready atomic.Bool
	var calls atomic.Int64
	surface := image.Rect(0, 0, 500, 300)
	f := setup(t, func(cfg *Config) {
		cfg.Surface = func() (image.Rectangle, error) {
			calls.Add(1)
			if !ready.Load() {
				return image.Rectangle{}, ErrSurfaceUnavailable
			}
			return surface, nil
		}
	})

	require.Eventually(t, func() bool {
		return f.loop.Counters().Skipped >= 2
	}, timeout, time.Millisecond)
	img, _ := f.loop.Frame()
	assert.Nil(t, img)
	assert.GreaterOrEqual(t, calls.Load(), int64(2*(surfaceRetries+1)))

	ready.Store(true)
	f.waitFor(t, f.view.Key())
	img, _ = f.loop.Frame()
	require.NotNil(t, img)
	assert.Equal(t, surface, img.Rect)
}

func TestPlay(t *testing.T) {
	f := setup(t, nil)
	f.waitFor(t, f.view.Key())
	assert.Equal(t, Idle, f.loop.State())

	f.loop.SetDelay(time.Millisecond)
	f.loop.Play()
	assert.Equal(t, RenderContinuous, f.loop.State())

	// timesteps must run 1, 2, 3 and then wrap around to 0
	var seen []int
	deadline := time.After(timeout)
	for len(seen) < 4 {
		select {
		case k := <-f.presents:
			if len(seen) == 0 || seen[len(seen)-1] != k.Timestep {
				seen = append(seen, k.Timestep)
			}
		case <-deadline:
			t.Fatalf("animation stalled after %v", seen)
		}
	}
	for i := 1; i < len(seen); i++ {
		assert.Equal(t, NextValue(1, seen[i-1], 0, 3), seen[i], "%v", seen)
	}

	f.loop.Pause()
	require.Eventually(t, func() bool {
		return f.loop.State() == Idle
	}, timeout, time.Millisecond)
}

func TestSettings(t *testing.T) {
	f := setup(t, nil)

	assert.Equal(t, DefaultDelay, f.loop.Delay())
	assert.Equal(t, time.Duration(0), f.loop.SetDelay(-time.Second))
	assert.Equal(t, MaxDelay, f.loop.SetDelay(time.Hour))
	assert.Equal(t, MaxDelay, f.loop.Delay())

	assert.False(t, f.loop.SetTimestep(-1))
	assert.False(t, f.loop.SetTimestep(4))
	assert.False(t, f.loop.SetLayer(2))
	assert.True(t, f.loop.SetLayer(1))
	assert.Equal(t, 1, f.loop.View().Layer)

	assert.Equal(t, 3, f.loop.Step(-1))
	assert.Equal(t, 0, f.loop.Step(1))
}

func TestClose(t *testing.T) {
	f := setup(t, nil)
	f.waitFor(t, f.view.Key())

	f.loop.Close()
	f.loop.Close()
	assert.Equal(t, Ending, f.loop.State())

	before := f.loop.Counters()
	f.loop.Draw()
	f.loop.Play()
	assert.Equal(t, before, f.loop.Counters())

	img, _ := f.loop.Frame()
	assert.NotNil(t, img)
}
