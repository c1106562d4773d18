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

package paint

import (
	"image"
	"image/color"
)

const (
	// NoCell marks pixels outside every cell.
	NoCell = -1

	// IDBias is added to cell ids when they are encoded as colours, so
	// that no cell is encoded as transparent black.
	IDBias = 1

	// MaxID is the largest cell id which can be encoded in 24 bits.
	MaxID = 1<<24 - 1 - IDBias
)

// IDImage records the cell which owns each pixel.
//
// An IDImage is not modified after it has been published, so it can be
// read from any goroutine.
type IDImage struct {
	Rect image.Rectangle
	Pix  []int32
}

// NewIDImage returns an image of the given size where no pixel belongs to
// a cell.
func NewIDImage(r image.Rectangle) *IDImage {
	pix := make([]int32, r.Dx()*r.Dy())
	for i := range pix {
		pix[i] = NoCell
	}
	return &IDImage{Rect: r, Pix: pix}
}

// Lookup returns the cell at pixel (x, y).
func (m *IDImage) Lookup(x, y int) (int, bool) {
	if m == nil || !image.Pt(x, y).In(m.Rect) {
		return NoCell, false
	}
	id := m.Pix[(y-m.Rect.Min.Y)*m.Rect.Dx()+(x-m.Rect.Min.X)]
	return int(id), id != NoCell
}

func (m *IDImage) set(x, y, id int) {
	m.Pix[(y-m.Rect.Min.Y)*m.Rect.Dx()+(x-m.Rect.Min.X)] = int32(id)
}

// RGBA encodes the image as colours: the red, green and blue channels hold
// the biased cell id, pixels outside all cells are transparent.
func (m *IDImage) RGBA() *image.RGBA {
	img := image.NewRGBA(m.Rect)
	for i, id := range m.Pix {
		if id == NoCell {
			continue
		}
		c := EncodeID(int(id))
		img.Pix[4*i] = c.R
		img.Pix[4*i+1] = c.G
		img.Pix[4*i+2] = c.B
		img.Pix[4*i+3] = c.A
	}
	return img
}

// EncodeID returns the colour used for cell id.
func EncodeID(id int) color.RGBA {
	v := id + IDBias
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// DecodeID inverts EncodeID.  Transparent pixels give (NoCell, false).
func DecodeID(c color.RGBA) (int, bool) {
	if c.A == 0 {
		return NoCell, false
	}
	v := int(c.R)<<16 | int(c.G)<<8 | int(c.B)
	return v - IDBias, true
}
