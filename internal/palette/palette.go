// Package palette maps escape-time iteration counts to opaque RGBA colors.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Palette is a closed set of color mappings. The zero value is Grayscale.
type Palette int

const (
	Grayscale Palette = iota
	Rainbow
	Fire
	Ocean
	Forest
	Plasma
	Aurora

	numPalettes
)

var ErrUnknown = errors.New("unknown palette")

var inside = color.RGBA{A: 255}

// shade maps an intensity in [0, 1) to unrounded channel values.
type shade func(intensity float64) (r, g, b float64)

var shades = [numPalettes]shade{
	Grayscale: grayscale,
	Rainbow:   rainbow,
	Fire:      linear(255, 100, 50),
	Ocean:     linear(50, 100, 255),
	Forest:    linear(50, 255, 50),
	Plasma:    plasma,
	Aurora:    aurora,
}

var names = [numPalettes]string{
	Grayscale: "grayscale",
	Rainbow:   "rainbow",
	Fire:      "fire",
	Ocean:     "ocean",
	Forest:    "forest",
	Plasma:    "plasma",
	Aurora:    "aurora",
}

// All returns every palette in display order.
func All() []Palette {
	all := make([]Palette, numPalettes)
	for i := range all {
		all[i] = Palette(i)
	}
	return all
}

func (p Palette) Valid() bool {
	return p >= 0 && p < numPalettes
}

func (p Palette) String() string {
	if !p.Valid() {
		return fmt.Sprintf("palette(%d)", int(p))
	}
	return names[p]
}

// Parse accepts a palette name, case-insensitively.
func Parse(s string) (Palette, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range names {
		if name == key {
			return Palette(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, s)
}

func (p Palette) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(p))
	}
	return []byte(names[p]), nil
}

func (p *Palette) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Colorize returns the color of a pixel that ran it iterations out of maxIt.
// Points that reached maxIt are inside the set and are black.
// An invalid palette falls back to Grayscale.
func (p Palette) Colorize(it, maxIt uint32) color.RGBA {
	if it >= maxIt {
		return inside
	}
	if !p.Valid() {
		p = Grayscale
	}
	r, g, b := shades[p](float64(it) / float64(maxIt))
	return color.RGBA{R: channel(r), G: channel(g), B: channel(b), A: 255}
}

// Fill colors iters into pix, four bytes (R, G, B, A) per entry.
// pix must hold at least 4*len(iters) bytes.
func (p Palette) Fill(pix []uint8, iters []uint32, maxIt uint32) {
	for i, it := range iters {
		c := p.Colorize(it, maxIt)
		o := 4 * i
		pix[o+0] = c.R
		pix[o+1] = c.G
		pix[o+2] = c.B
		pix[o+3] = c.A
	}
}

// channel rounds to the nearest integer and clamps to [0, 255].
func channel(v float64) uint8 {
	v = math.Round(v)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

func grayscale(intensity float64) (float64, float64, float64) {
	v := intensity * 255
	return v, v, v
}

func linear(r, g, b float64) shade {
	return func(intensity float64) (float64, float64, float64) {
		return r * intensity, g * intensity, b * intensity
	}
}

// rainbow walks the hue circle once with full saturation and value.
func rainbow(intensity float64) (float64, float64, float64) {
	hue := intensity * 360
	x := 1 - math.Abs(math.Mod(hue/60, 2)-1)

	var r, g, b float64
	switch {
	case hue < 60:
		r, g, b = 1, x, 0
	case hue < 120:
		r, g, b = x, 1, 0
	case hue < 180:
		r, g, b = 0, 1, x
	case hue < 240:
		r, g, b = 0, x, 1
	case hue < 300:
		r, g, b = x, 0, 1
	default:
		r, g, b = 1, 0, x
	}
	return r * 255, g * 255, b * 255
}

// plasma channels go negative near the ends of the interval; channel clamps them.
func plasma(intensity float64) (float64, float64, float64) {
	a := intensity * math.Pi
	return 255 * math.Sin(a),
		255 * math.Sin(a+2*math.Pi/3),
		255 * math.Sin(a+4*math.Pi/3)
}

func aurora(intensity float64) (float64, float64, float64) {
	return 255 * math.Exp(-2*intensity),
		255 * math.Exp(-1.5*intensity),
		255 * math.Exp(-intensity)
}
