package fractal

import (
	"math"

	"github.com/joshvictor1024/mandelbrot-explorer/pkg/types"
)

// Viewport is the rectangle of the complex plane shown on a
// width x height pixel surface. Pixel (0, 0) maps to (XMin, YMin).
type Viewport struct {
	XMin float64 `json:"xmin" mapstructure:"xmin"`
	XMax float64 `json:"xmax" mapstructure:"xmax"`
	YMin float64 `json:"ymin" mapstructure:"ymin"`
	YMax float64 `json:"ymax" mapstructure:"ymax"`
}

// Reset returns the canonical initial viewport.
func Reset() Viewport {
	return Viewport{XMin: -2, XMax: 1, YMin: -1.5, YMax: 1.5}
}

// Valid reports whether v is a finite, non-degenerate rectangle.
func (v Viewport) Valid() bool {
	for _, f := range [...]float64{v.XMin, v.XMax, v.YMin, v.YMax} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return v.XMin < v.XMax && v.YMin < v.YMax
}

func (v Viewport) Width() float64 {
	return v.XMax - v.XMin
}

func (v Viewport) Height() float64 {
	return v.YMax - v.YMin
}

func (v Viewport) Rect() types.Rectf64 {
	return types.Rectf64{X: v.XMin, Y: v.YMin, W: v.Width(), H: v.Height()}
}

// PixelToComplex maps pixel position p on a width x height surface onto the plane.
func (v Viewport) PixelToComplex(width, height int, p types.Pointf64) (re, im float64) {
	re = v.XMin + p.X*(v.XMax-v.XMin)/float64(width)
	im = v.YMin + p.Y*(v.YMax-v.YMin)/float64(height)
	return re, im
}

// ComplexToPixel is the inverse of PixelToComplex.
func (v Viewport) ComplexToPixel(width, height int, re, im float64) types.Pointf64 {
	return types.Pointf64{
		X: (re - v.XMin) * float64(width) / (v.XMax - v.XMin),
		Y: (im - v.YMin) * float64(height) / (v.YMax - v.YMin),
	}
}

// Zoom scales the rectangle by factor while keeping the plane point under
// pivot fixed. factor < 1 zooms in, factor > 1 zooms out. A transform that
// would leave an invalid viewport (non-positive factor, or a span that
// collapses under floating point) returns v unchanged.
func (v Viewport) Zoom(width, height int, pivot types.Pointf64, factor float64) Viewport {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return v
	}
	xRatio := pivot.X / float64(width)
	yRatio := pivot.Y / float64(height)
	w, h := v.Width(), v.Height()

	next := Viewport{
		XMin: v.XMin + (1-factor)*xRatio*w,
		XMax: v.XMax - (1-factor)*(1-xRatio)*w,
		YMin: v.YMin + (1-factor)*yRatio*h,
		YMax: v.YMax - (1-factor)*(1-yRatio)*h,
	}
	if !next.Valid() {
		return v
	}
	return next
}

// Pan translates the rectangle against a pixel drag of delta, scaled by
// sensitivity. The rectangle keeps its size.
func (v Viewport) Pan(width, height int, delta types.Pointf64, sensitivity float64) Viewport {
	dx := delta.X * sensitivity * v.Width() / float64(width)
	dy := delta.Y * sensitivity * v.Height() / float64(height)
	next := Viewport{
		XMin: v.XMin - dx,
		XMax: v.XMax - dx,
		YMin: v.YMin - dy,
		YMax: v.YMax - dy,
	}
	if !next.Valid() {
		return v
	}
	return next
}

// Lerp moves each bound from v towards to by t in [0, 1].
func (v Viewport) Lerp(to Viewport, t float64) Viewport {
	if t <= 0 {
		return v
	}
	if t >= 1 {
		return to
	}
	return Viewport{
		XMin: v.XMin + (to.XMin-v.XMin)*t,
		XMax: v.XMax + (to.XMax-v.XMax)*t,
		YMin: v.YMin + (to.YMin-v.YMin)*t,
		YMax: v.YMax + (to.YMax-v.YMax)*t,
	}
}
