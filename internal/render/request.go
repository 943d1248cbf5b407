package render

import (
	"fmt"
	"math"

	"github.com/joshvictor1024/mandelbrot-explorer/internal/fractal"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/palette"
)

// Request is an immutable snapshot of everything one frame depends on.
type Request struct {
	Viewport      fractal.Viewport
	Width         int
	Height        int
	MaxIterations uint32
	Palette       palette.Palette
}

func NewRequest(vp fractal.Viewport, width, height, maxIterations int, p palette.Palette) (Request, error) {
	if maxIterations <= 0 || uint64(maxIterations) > math.MaxUint32 {
		return Request{}, fmt.Errorf("%w: %d", ErrInvalidIterations, maxIterations)
	}
	req := Request{
		Viewport:      vp,
		Width:         width,
		Height:        height,
		MaxIterations: uint32(maxIterations),
		Palette:       p,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (r Request) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, r.Width, r.Height)
	}
	// width*height*4 bytes must be addressable
	if r.Width > math.MaxInt32/4/r.Height {
		return fmt.Errorf("%w: %dx%d overflows", ErrInvalidSize, r.Width, r.Height)
	}
	if !r.Viewport.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidViewport, r.Viewport)
	}
	if r.MaxIterations == 0 {
		return fmt.Errorf("%w: 0", ErrInvalidIterations)
	}
	if !r.Palette.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownPalette, r.Palette)
	}
	return nil
}

func (r Request) Pixels() int {
	return r.Width * r.Height
}
