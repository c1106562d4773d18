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
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"seehuhn.de/go/meshrender/colormap"
	"seehuhn.de/go/meshrender/loop"
	"seehuhn.de/go/meshrender/paint"
	"seehuhn.de/go/meshrender/stats"
	"seehuhn.de/go/meshrender/view"
)

// Config holds the settings of a Plot.
type Config struct {
	Palette string  `toml:"palette"`
	Colors  int     `toml:"colors"`
	Scale   string  `toml:"scale"`
	LogBase float64 `toml:"log-base"`

	Borders      bool    `toml:"borders"`
	BorderCutoff float64 `toml:"border-cutoff"`

	// Threshold is an arithmetic expression, used for the "hours above
	// threshold" cell statistic.
	Threshold    string  `toml:"threshold"`
	HoursPerStep float64 `toml:"hours-per-step"`

	Canvas  int     `toml:"canvas"`
	MaxZoom float64 `toml:"max-zoom"`

	UpdateSpan time.Duration `toml:"update-span"`
	Delay      time.Duration `toml:"delay"`

	// FirstTimestep and LastTimestep bound the animation.  If both are
	// zero, all timesteps are used.
	FirstTimestep int `toml:"first-timestep"`
	LastTimestep  int `toml:"last-timestep"`

	// Surface reports the bounds of the target image, see
	// loop.Config.Surface.
	Surface func() (image.Rectangle, error) `toml:"-"`

	// OnPresent is called on the render goroutine for every new frame.
	OnPresent func(key view.Key) `toml:"-"`

	Log logrus.FieldLogger `toml:"-"`
}

// DefaultConfig returns the settings used for fields left at their zero
// value.
func DefaultConfig() Config {
	return Config{
		Palette:      colormap.DefaultPalette,
		Colors:       16,
		Scale:        colormap.Linear.String(),
		LogBase:      10,
		BorderCutoff: paint.DefaultBorderCutoff,
		Threshold:    "0",
		HoursPerStep: 1,
		Canvas:       600,
		MaxZoom:      view.DefaultMaxZoom,
		UpdateSpan:   stats.DefaultUpdateSpan,
		Delay:        loop.DefaultDelay,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Palette == "" {
		c.Palette = d.Palette
	}
	if c.Colors <= 0 {
		c.Colors = d.Colors
	}
	if c.Scale == "" {
		c.Scale = d.Scale
	}
	if c.LogBase <= 1 {
		c.LogBase = d.LogBase
	}
	if c.BorderCutoff <= 0 {
		c.BorderCutoff = d.BorderCutoff
	}
	if c.Threshold == "" {
		c.Threshold = d.Threshold
	}
	if c.HoursPerStep <= 0 {
		c.HoursPerStep = d.HoursPerStep
	}
	if c.Canvas <= 0 {
		c.Canvas = d.Canvas
	}
	if c.MaxZoom < view.MinZoom {
		c.MaxZoom = d.MaxZoom
	}
	if c.UpdateSpan <= 0 {
		c.UpdateSpan = d.UpdateSpan
	}
	if c.Delay == 0 {
		c.Delay = d.Delay
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	return c
}
