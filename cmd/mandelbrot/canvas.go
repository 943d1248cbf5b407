package main

import (
	"fmt"

	"github.com/joshvictor1024/mandelbrot-explorer/internal/render"
	"github.com/joshvictor1024/mandelbrot-explorer/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

// canvas mirrors the newest session's pixels into a streaming texture.
type canvas struct {
	renderer *sdl.Renderer
	texture  *sdl.Texture
	w        int
	h        int
	log      logrus.FieldLogger

	pix   []uint8 // RGBA, 4*w per row
	dirty bool

	session uint64 // session currently allowed to draw
	percent int
	err     error
}

func newCanvas(r *sdl.Renderer, w, h int, log logrus.FieldLogger) (*canvas, error) {
	c := &canvas{renderer: r, log: log}
	if err := c.resize(w, h); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *canvas) resize(w, h int) error {
	if w == c.w && h == c.h && c.texture != nil {
		return nil
	}
	// ABGR8888 is R, G, B, A in memory on little endian, the layout of image.RGBA
	t, err := c.renderer.CreateTexture(
		sdl.PIXELFORMAT_ABGR8888,
		sdl.TEXTUREACCESS_STREAMING, // only textures with TEXTUREACCESS_STREAMING can be locked
		int32(w),
		int32(h),
	)
	if err != nil {
		return fmt.Errorf("create %dx%d texture: %w", w, h, err)
	}
	if c.texture != nil {
		c.texture.Destroy()
	}
	c.texture, c.w, c.h = t, w, h
	c.pix = make([]uint8, 4*w*h)
	c.dirty = true
	return nil
}

func (c *canvas) close() {
	if c.texture != nil {
		c.texture.Destroy()
		c.texture = nil
	}
}

// drain applies every queued render event without blocking, then uploads
// the result.
func (c *canvas) drain(outbox *types.ControlledQueue[render.Event]) {
	for {
		canRecv, e, ok := outbox.AttemptRecv(false)
		if !ok || !canRecv {
			break
		}
		c.apply(e)
	}
	if err := c.flush(); err != nil {
		c.log.WithError(err).Warn("texture upload failed")
	}
}

// apply updates the mirror. Only the newest started session draws, and
// its start wipes the previous frame.
func (c *canvas) apply(e render.Event) {
	if e.Request.Width != c.w || e.Request.Height != c.h {
		// rendered for a surface size that is gone
		return
	}
	switch e.Kind {
	case render.EventStarted:
		if e.Session > c.session {
			c.session, c.percent, c.err = e.Session, 0, nil
			clear(c.pix)
			c.dirty = true
		}
	case render.EventProgress:
		if e.Session != c.session {
			return
		}
		c.percent = e.Percent
		copy(c.pix[4*e.Chunk.Start:], e.Pix)
		c.dirty = true
	case render.EventCompleted:
		if e.Session != c.session {
			return
		}
		c.percent = 100
		copy(c.pix, e.Frame.Pix)
		c.dirty = true
	case render.EventFailed:
		if e.Session >= c.session {
			c.err = e.Err
		}
	}
}

func (c *canvas) flush() error {
	if !c.dirty {
		return nil
	}
	data, pitch, err := c.texture.Lock(nil)
	if err != nil {
		return err
	}
	defer c.texture.Unlock()
	blit(data, pitch, c.w, 0, c.pix)
	c.dirty = false
	return nil
}

func (c *canvas) draw() {
	c.renderer.Copy(c.texture, nil, nil)
}

// blit writes pix, a run of RGBA pixels beginning at linear index start on a
// surface w pixels wide, into rows of pitch bytes.
func blit(dst []byte, pitch, w, start int, pix []uint8) {
	for len(pix) > 0 {
		x, y := start%w, start/w
		n := min(w-x, len(pix)/4)
		if n == 0 {
			return
		}
		off := y*pitch + 4*x
		if off+4*n > len(dst) {
			return
		}
		copy(dst[off:off+4*n], pix[:4*n])
		pix = pix[4*n:]
		start += n
	}
}
