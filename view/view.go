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

// Package view maps normalized mesh coordinates to screen pixels.
//
// A State is an immutable snapshot of everything that determines where a
// cell is drawn.  All operations return a new State, so a render pass can
// keep using its snapshot while the user keeps zooming.
package view

import (
	"image"
	"math"

	"seehuhn.de/go/meshrender/mesh"
)

const (
	// MinZoom is the smallest zoom factor; at this zoom the whole data
	// width is visible.
	MinZoom = 1.0

	// DefaultMaxZoom is the default upper limit for the zoom factor.
	DefaultMaxZoom = 1e6

	zoomStep  = 4.0 / 3.0
	ratioStep = 1.25
)

// State describes the view of the mesh.
type State struct {
	// Canvas is the size of the longer side of the plot area in pixels.
	Canvas int

	// Origin is the pixel position of the upper left data corner.
	Origin image.Point

	Zoom         float64
	MaxZoom      float64
	ClippedRatio float64 // width/height of the visible data area
	PanX, PanY   float64 // offset of the visible area, in radians

	Timestep int
	Layer    int

	// Data is the extent of the mesh.
	Data mesh.Bounds
}

// New returns the unzoomed view of data on a canvas of the given size.
func New(canvas int, data mesh.Bounds) State {
	return State{
		Canvas:       canvas,
		Zoom:         MinZoom,
		MaxZoom:      DefaultMaxZoom,
		ClippedRatio: data.Ratio(),
		Data:         data,
	}
}

// ScreenDimensions returns the size of the plot area for a canvas and
// an aspect ratio.  The longer side gets the full canvas size.
func ScreenDimensions(canvas int, ratio float64) (width, height int) {
	if ratio > 1 {
		width = canvas
		height = int(math.Round(float64(width) / ratio))
	} else {
		height = canvas
		width = int(math.Round(float64(height) * ratio))
	}
	return width, height
}

// Screen returns the size of the plot area in pixels.
func (s State) Screen() (width, height int) {
	return ScreenDimensions(s.Canvas, s.ClippedRatio)
}

// CompositeFactor returns the number of pixels per radian.
func (s State) CompositeFactor() float64 {
	w, _ := s.Screen()
	return float64(w) / s.Data.Width() * s.Zoom
}

// Visible returns the size of the visible data area in radians.
func (s State) Visible() (width, height float64) {
	w, h := s.Screen()
	f := s.CompositeFactor()
	return float64(w) / f, float64(h) / f
}

// WithCanvas returns s for a different canvas size and origin.
func (s State) WithCanvas(canvas int, origin image.Point) State {
	s.Canvas = canvas
	s.Origin = origin
	return s.clamp()
}

// WithTimestep returns s showing timestep t.
func (s State) WithTimestep(t int) State {
	s.Timestep = t
	return s
}

// WithLayer returns s showing the given layer.
func (s State) WithLayer(layer int) State {
	s.Layer = layer
	return s
}

// ZoomIn magnifies by 4/3 and centres the view on pixel p.
func (s State) ZoomIn(p image.Point) State {
	f := s.CompositeFactor()
	s.Zoom = min(s.Zoom*zoomStep, s.maxZoom())
	return s.centreOn(p, f)
}

// ZoomOut shrinks by 4/3 and centres the view on pixel p.  Once the
// minimum zoom is reached, further steps widen the clipped aspect ratio
// towards the ratio of the data.
func (s State) ZoomOut(p image.Point) State {
	f := s.CompositeFactor()
	if s.Zoom > MinZoom {
		s.Zoom = max(s.Zoom/zoomStep, MinZoom)
	} else {
		s.Zoom = MinZoom
		dataRatio := s.Data.Ratio()
		if s.ClippedRatio < dataRatio {
			s.ClippedRatio = min(s.ClippedRatio*ratioStep, dataRatio)
		} else if s.ClippedRatio > dataRatio {
			s.ClippedRatio = max(s.ClippedRatio/ratioStep, dataRatio)
		}
	}
	return s.centreOn(p, f)
}

// ZoomRect zooms into the rectangle r, given in pixels.  The new aspect
// ratio is that of r.  Empty rectangles leave the view unchanged.
func (s State) ZoomRect(r image.Rectangle) State {
	r = r.Canon()
	if r.Dx() == 0 || r.Dy() == 0 {
		return s
	}
	f := s.CompositeFactor()
	w, _ := s.Screen()
	s.PanX += float64(r.Min.X-s.Origin.X) / f
	s.PanY += float64(r.Min.Y-s.Origin.Y) / f
	s.Zoom = max(MinZoom, min(s.Zoom*float64(w)/float64(r.Dx()), s.maxZoom()))
	s.ClippedRatio = float64(r.Dx()) / float64(r.Dy())
	return s.clamp()
}

// Pan moves the view by (dx, dy) pixels.
func (s State) Pan(dx, dy int) State {
	f := s.CompositeFactor()
	s.PanX += float64(dx) / f
	s.PanY += float64(dy) / f
	return s.clamp()
}

// Reset returns to the unzoomed view, keeping canvas, timestep and layer.
func (s State) Reset() State {
	s.Zoom = MinZoom
	s.ClippedRatio = s.Data.Ratio()
	s.PanX, s.PanY = 0, 0
	return s
}

// centreOn moves the view so that the point under pixel p, located with
// the pixel scale f from before the zoom, is in the centre.
func (s State) centreOn(p image.Point, f float64) State {
	x := float64(p.X-s.Origin.X)/f + s.PanX
	y := float64(p.Y-s.Origin.Y)/f + s.PanY
	vw, vh := s.Visible()
	s.PanX = x - vw/2
	s.PanY = y - vh/2
	return s.clamp()
}

// clamp keeps the visible area inside the data.  If the visible area is
// larger than the data, the view is anchored at the upper left corner.
func (s State) clamp() State {
	vw, vh := s.Visible()
	s.PanX = max(0, min(s.PanX, s.Data.Width()-vw))
	s.PanY = max(0, min(s.PanY, s.Data.Height()-vh))
	return s
}

func (s State) maxZoom() float64 {
	if s.MaxZoom <= 0 {
		return DefaultMaxZoom
	}
	return s.MaxZoom
}
