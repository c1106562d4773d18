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

package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"

	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
)

// hexGrid returns the integer vertex lists of a grid of hexagonal cells
// covering a size×size canvas.
func hexGrid(size int) (xs, ys [][]int) {
	const radius = 6.0
	dx := radius * math.Sqrt(3)
	for row := 0; float64(row)*1.5*radius < float64(size)+radius; row++ {
		off := 0.0
		if row%2 == 1 {
			off = dx / 2
		}
		for col := 0; float64(col)*dx < float64(size)+dx; col++ {
			cx := off + float64(col)*dx
			cy := float64(row) * 1.5 * radius
			hx := make([]int, 6)
			hy := make([]int, 6)
			for i := range 6 {
				phi := math.Pi/6 + float64(i)*math.Pi/3
				hx[i] = int(math.Round(cx + radius*math.Cos(phi)))
				hy[i] = int(math.Round(cy + radius*math.Sin(phi)))
			}
			xs = append(xs, hx)
			ys = append(ys, hy)
		}
	}
	return xs, ys
}

// BenchmarkMesh fills every cell of a hexagonal mesh, reusing one
// Rasterizer as a render pass does.
func BenchmarkMesh(b *testing.B) {
	for _, size := range []int{100, 500, 2000} {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			xs, ys := hexGrid(size)
			clip := rect.Rect{URx: float64(size), URy: float64(size)}
			r := NewRasterizer(clip)
			dst := image.NewAlpha(image.Rect(0, 0, size, size))
			p := &path.Data{}

			b.ReportAllocs()
			for b.Loop() {
				for i := range xs {
					r.FillNonZero(AppendPolygon(p, xs[i], ys[i]), func(y, xMin int, coverage []float32) {
						row := dst.Pix[y*dst.Stride+xMin:]
						for j, c := range coverage {
							row[j] = uint8(c * 255)
						}
					})
				}
			}
		})
	}
}

// BenchmarkVectorMesh draws the same mesh with x/image/vector.
func BenchmarkVectorMesh(b *testing.B) {
	for _, size := range []int{100, 500, 2000} {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			xs, ys := hexGrid(size)
			r := vector.NewRasterizer(size, size)
			dst := image.NewAlpha(image.Rect(0, 0, size, size))
			src := image.NewUniform(color.Alpha{A: 255})

			b.ReportAllocs()
			for b.Loop() {
				for i := range xs {
					r.Reset(size, size)
					r.MoveTo(float32(xs[i][0]), float32(ys[i][0]))
					for j := 1; j < len(xs[i]); j++ {
						r.LineTo(float32(xs[i][j]), float32(ys[i][j]))
					}
					r.ClosePath()
					r.Draw(dst, dst.Bounds(), src, image.Point{})
				}
			}
		})
	}
}
