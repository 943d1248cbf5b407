package main

import (
	"errors"
	"image"
	"testing"

	"github.com/joshvictor1024/mandelbrot-explorer/internal/palette"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/render"
	"github.com/stretchr/testify/assert"
)

func rgba(n int, base byte) []uint8 {
	pix := make([]uint8, 4*n)
	for i := range pix {
		pix[i] = base + byte(i)
	}
	return pix
}

func TestBlitTightPitch(t *testing.T) {
	dst := make([]byte, 4*3*2)
	pix := rgba(6, 1)
	blit(dst, 12, 3, 0, pix)
	assert.Equal(t, pix, dst)
}

func TestBlitPaddedRows(t *testing.T) {
	// 3 pixels wide, 16 byte rows
	dst := make([]byte, 16*2)
	blit(dst, 16, 3, 2, rgba(3, 1))

	want := make([]byte, 16*2)
	copy(want[8:12], []byte{1, 2, 3, 4})
	copy(want[16:24], []byte{5, 6, 7, 8, 9, 10, 11, 12})
	assert.Equal(t, want, dst)
}

func TestBlitClipsOverflow(t *testing.T) {
	dst := make([]byte, 8)
	assert.NotPanics(t, func() { blit(dst, 8, 2, 1, rgba(4, 1)) })
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4}, dst)
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t,
		"Mandelbrot | 42% | -0.500000 - 0.250000i | 100 iterations | fire",
		statusLine("Mandelbrot", 42, nil, -0.5, -0.25, 100, palette.Fire))
	assert.Equal(t,
		"M | failed: boom | 1.000000 + 0.000000i | 50 iterations | grayscale",
		statusLine("M", 10, errors.New("boom"), 1, 0, 50, palette.Grayscale))
}

func TestCanvasNewSessionWipesOldFrame(t *testing.T) {
	c := &canvas{w: 2, h: 1, pix: make([]uint8, 8)}
	req := render.Request{Width: 2, Height: 1}

	old := image.NewRGBA(image.Rect(0, 0, 2, 1))
	copy(old.Pix, []uint8{9, 9, 9, 255, 9, 9, 9, 255})
	c.apply(render.Event{Kind: render.EventStarted, Session: 1, Request: req})
	c.apply(render.Event{Kind: render.EventCompleted, Session: 1, Request: req, Frame: old})
	assert.Equal(t, old.Pix, c.pix)
	assert.Equal(t, 100, c.percent)

	c.dirty = false
	c.apply(render.Event{Kind: render.EventStarted, Session: 2, Request: req})
	assert.Equal(t, make([]uint8, 8), c.pix)
	assert.Zero(t, c.percent)
	assert.True(t, c.dirty)

	// late chunk of the first session
	c.apply(render.Event{Kind: render.EventProgress, Session: 1, Request: req,
		Chunk: render.Chunk{Start: 0, End: 1}, Pix: []uint8{7, 7, 7, 255}})
	assert.Equal(t, make([]uint8, 8), c.pix)

	c.apply(render.Event{Kind: render.EventProgress, Session: 2, Request: req, Percent: 50,
		Chunk: render.Chunk{Index: 1, Start: 1, End: 2}, Pix: []uint8{1, 2, 3, 255}})
	assert.Equal(t, []uint8{0, 0, 0, 0, 1, 2, 3, 255}, c.pix)
	assert.Equal(t, 50, c.percent)
}

func TestCanvasFailureKeepsFrame(t *testing.T) {
	c := &canvas{w: 1, h: 1, pix: []uint8{5, 5, 5, 255}, session: 3}
	req := render.Request{Width: 1, Height: 1}

	c.apply(render.Event{Kind: render.EventFailed, Session: 4, Request: req, Err: render.ErrFrameTooLarge})
	assert.ErrorIs(t, c.err, render.ErrFrameTooLarge)
	assert.Equal(t, []uint8{5, 5, 5, 255}, c.pix)

	c.apply(render.Event{Kind: render.EventStarted, Session: 5, Request: render.Request{Width: 2, Height: 1}})
	assert.Equal(t, uint64(3), c.session, "events for another surface size are ignored")
}
