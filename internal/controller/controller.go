// Package controller owns the interactive view state and turns input into
// render requests.
package controller

import (
	"fmt"
	"math"
	"time"

	"github.com/joshvictor1024/mandelbrot-explorer/internal/config"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/fractal"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/palette"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/render"
	"github.com/joshvictor1024/mandelbrot-explorer/pkg/types"
	"github.com/sirupsen/logrus"
)

// Submitter is satisfied by *render.Scheduler.
type Submitter interface {
	Submit(req render.Request) *render.Handle
}

type Options struct {
	Width, Height int

	MaxIterations   int
	MinIterations   int
	IterationsLimit int
	IterationsStep  int
	Palette         palette.Palette

	PanSensitivity float64
	ZoomIn         float64
	ZoomOut        float64
	ResetDuration  time.Duration

	Logger logrus.FieldLogger
}

// OptionsFromConfig copies the window and view settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Width:           cfg.Window.Width,
		Height:          cfg.Window.Height,
		MaxIterations:   cfg.View.MaxIterations,
		MinIterations:   cfg.View.MinIterations,
		IterationsLimit: cfg.View.IterationsLimit,
		IterationsStep:  cfg.View.IterationsStep,
		Palette:         cfg.Palette(),
		PanSensitivity:  cfg.View.PanSensitivity,
		ZoomIn:          cfg.View.ZoomIn,
		ZoomOut:         cfg.View.ZoomOut,
		ResetDuration:   cfg.View.ResetDuration,
	}
}

func (o *Options) setDefaults() {
	if o.MinIterations <= 0 {
		o.MinIterations = 50
	}
	if o.IterationsLimit < o.MinIterations {
		o.IterationsLimit = max(1000, o.MinIterations)
	}
	if o.IterationsStep <= 0 {
		o.IterationsStep = 50
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 100
	}
	if !o.Palette.Valid() {
		o.Palette = palette.Grayscale
	}
	if o.PanSensitivity <= 0 {
		o.PanSensitivity = 0.5
	}
	if !(o.ZoomIn > 0 && o.ZoomIn < 1) {
		o.ZoomIn = 0.98
	}
	if !(o.ZoomOut > 1) {
		o.ZoomOut = 1.02
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

type animation struct {
	from  fractal.Viewport
	start time.Time
}

// Controller is the single owner of the viewport, surface size, iteration
// bound and palette. Every change submits a new request. It is meant to be
// driven from one goroutine.
type Controller struct {
	sub  Submitter
	opts Options
	log  logrus.FieldLogger

	vp         fractal.Viewport
	width      int
	height     int
	iterations int
	palette    palette.Palette

	anim *animation
	last *render.Handle

	now func() time.Time
}

func New(sub Submitter, opts Options) *Controller {
	opts.setDefaults()
	c := &Controller{
		sub:     sub,
		opts:    opts,
		log:     opts.Logger.WithField("component", "controller"),
		vp:      fractal.Reset(),
		width:   opts.Width,
		height:  opts.Height,
		palette: opts.Palette,
		now:     time.Now,
	}
	c.iterations = c.clampIterations(opts.MaxIterations)
	return c
}

func (c *Controller) Viewport() fractal.Viewport {
	return c.vp
}

func (c *Controller) Size() (width, height int) {
	return c.width, c.height
}

func (c *Controller) Iterations() int {
	return c.iterations
}

func (c *Controller) Palette() palette.Palette {
	return c.palette
}

// Last returns the handle of the most recent submission, or nil.
func (c *Controller) Last() *render.Handle {
	return c.last
}

// Request snapshots the current state.
func (c *Controller) Request() (render.Request, error) {
	return render.NewRequest(c.vp, c.width, c.height, c.iterations, c.palette)
}

// Render submits the current state as is.
func (c *Controller) Render() (*render.Handle, error) {
	req, err := c.Request()
	if err != nil {
		c.log.WithError(err).Warn("not rendering invalid view")
		return nil, err
	}
	c.last = c.sub.Submit(req)
	return c.last, nil
}

// Coordinates returns the plane point under surface pixel (px, py).
func (c *Controller) Coordinates(px, py float64) (re, im float64) {
	return c.vp.PixelToComplex(c.width, c.height, types.Pointf64{X: px, Y: py})
}

// Pan moves the view against a drag of (dx, dy) pixels.
func (c *Controller) Pan(dx, dy float64) (*render.Handle, error) {
	c.anim = nil
	c.vp = c.vp.Pan(c.width, c.height, types.Pointf64{X: dx, Y: dy}, c.opts.PanSensitivity)
	return c.Render()
}

// Zoom applies one wheel tick around pivot.
func (c *Controller) Zoom(pivot types.Pointf64, in bool) (*render.Handle, error) {
	factor := c.opts.ZoomOut
	if in {
		factor = c.opts.ZoomIn
	}
	return c.ZoomBy(pivot, factor)
}

func (c *Controller) ZoomBy(pivot types.Pointf64, factor float64) (*render.Handle, error) {
	c.anim = nil
	c.vp = c.vp.Zoom(c.width, c.height, pivot, factor)
	return c.Render()
}

// Reset jumps to the canonical viewport.
func (c *Controller) Reset() (*render.Handle, error) {
	c.anim = nil
	c.vp = fractal.Reset()
	return c.Render()
}

// StartReset begins an eased transition to the canonical viewport. Tick
// advances it. Without a reset duration it behaves like Reset.
func (c *Controller) StartReset() (*render.Handle, error) {
	if c.opts.ResetDuration <= 0 {
		return c.Reset()
	}
	c.anim = &animation{from: c.vp, start: c.now()}
	return nil, nil
}

func (c *Controller) Animating() bool {
	return c.anim != nil
}

// Tick advances a running reset animation and submits the new frame. It
// returns a nil handle when nothing is animating.
func (c *Controller) Tick() (*render.Handle, error) {
	if c.anim == nil {
		return nil, nil
	}
	t := float64(c.now().Sub(c.anim.start)) / float64(c.opts.ResetDuration)
	if t >= 1 {
		c.anim = nil
		c.vp = fractal.Reset()
		return c.Render()
	}
	c.vp = c.anim.from.Lerp(fractal.Reset(), easeOutCubic(t))
	return c.Render()
}

func easeOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}

func (c *Controller) clampIterations(n int) int {
	return min(max(n, c.opts.MinIterations), c.opts.IterationsLimit)
}

// SetIterations changes the bound, clamped to the configured range. An
// unchanged bound submits nothing.
func (c *Controller) SetIterations(n int) (*render.Handle, error) {
	n = c.clampIterations(n)
	if n == c.iterations {
		return nil, nil
	}
	c.iterations = n
	return c.Render()
}

// StepIterations moves the bound by steps slider increments.
func (c *Controller) StepIterations(steps int) (*render.Handle, error) {
	return c.SetIterations(c.iterations + steps*c.opts.IterationsStep)
}

func (c *Controller) SetPalette(p palette.Palette) (*render.Handle, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %s", render.ErrUnknownPalette, p)
	}
	if p == c.palette {
		return nil, nil
	}
	c.palette = p
	return c.Render()
}

// Resize adopts a new surface size. The viewport is kept, so the image
// stretches to the new aspect.
func (c *Controller) Resize(width, height int) (*render.Handle, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", render.ErrInvalidSize, width, height)
	}
	if width == c.width && height == c.height {
		return nil, nil
	}
	c.width, c.height = width, height
	return c.Render()
}
