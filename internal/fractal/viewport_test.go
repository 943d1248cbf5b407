package fractal

import (
	"testing"

	"github.com/joshvictor1024/mandelbrot-explorer/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func assertViewportEqual(t *testing.T, want, got Viewport) {
	t.Helper()
	assert.InDelta(t, want.XMin, got.XMin, eps, "xmin")
	assert.InDelta(t, want.XMax, got.XMax, eps, "xmax")
	assert.InDelta(t, want.YMin, got.YMin, eps, "ymin")
	assert.InDelta(t, want.YMax, got.YMax, eps, "ymax")
}

func TestReset(t *testing.T) {
	assert.Equal(t, Viewport{XMin: -2, XMax: 1, YMin: -1.5, YMax: 1.5}, Reset())

	v := Reset().Zoom(640, 480, types.Pointf64{X: 10, Y: 400}, 0.3)
	v = v.Pan(640, 480, types.Pointf64{X: 33, Y: -12}, 0.5)
	assert.NotEqual(t, Reset(), v)
	assert.Equal(t, Viewport{XMin: -2, XMax: 1, YMin: -1.5, YMax: 1.5}, Reset())
}

func TestPixelToComplex(t *testing.T) {
	v := Viewport{XMin: -1, XMax: 1, YMin: 0, YMax: 0.0001}
	re, im := v.PixelToComplex(2, 1, types.Pointf64{X: 0, Y: 0})
	assert.Equal(t, -1.0, re)
	assert.Equal(t, 0.0, im)
	re, im = v.PixelToComplex(2, 1, types.Pointf64{X: 1, Y: 0})
	assert.Equal(t, 0.0, re)
	assert.Equal(t, 0.0, im)
}

func TestPixelToComplexRoundTrip(t *testing.T) {
	v := Viewport{XMin: -0.75, XMax: -0.7, YMin: 0.1, YMax: 0.13}
	const w, h = 320, 200
	for px := 0; px < w; px += 7 {
		for py := 0; py < h; py += 5 {
			p := types.Pointf64{X: float64(px), Y: float64(py)}
			re, im := v.PixelToComplex(w, h, p)
			back := v.ComplexToPixel(w, h, re, im)
			assert.InDelta(t, p.X, back.X, 1e-6)
			assert.InDelta(t, p.Y, back.Y, 1e-6)
		}
	}
}

func TestZoomCentre(t *testing.T) {
	v := Reset().Zoom(100, 100, types.Pointf64{X: 50, Y: 50}, 0.5)
	assertViewportEqual(t, Viewport{XMin: -1.25, XMax: 0.25, YMin: -0.75, YMax: 0.75}, v)
	assert.InDelta(t, Reset().Width()/2, v.Width(), eps)
	assert.InDelta(t, Reset().Height()/2, v.Height(), eps)
}

func TestZoomKeepsPivotFixed(t *testing.T) {
	start := Reset()
	pivot := types.Pointf64{X: 123, Y: 45}
	re0, im0 := start.PixelToComplex(400, 300, pivot)
	for _, f := range []float64{0.98, 1.02, 0.5, 3} {
		v := start.Zoom(400, 300, pivot, f)
		re, im := v.PixelToComplex(400, 300, pivot)
		assert.InDelta(t, re0, re, eps)
		assert.InDelta(t, im0, im, eps)
	}
}

func TestZoomReciprocal(t *testing.T) {
	start := Viewport{XMin: -0.8, XMax: -0.6, YMin: 0.0, YMax: 0.15}
	pivot := types.Pointf64{X: 17, Y: 211}
	for _, f := range []float64{0.95, 0.98, 1.02, 0.25, 4} {
		v := start.Zoom(640, 480, pivot, f).Zoom(640, 480, pivot, 1/f)
		assertViewportEqual(t, start, v)
	}
}

func TestZoomRejectsBadFactor(t *testing.T) {
	start := Reset()
	for _, f := range []float64{0, -1} {
		assert.Equal(t, start, start.Zoom(10, 10, types.Pointf64{X: 5, Y: 5}, f))
	}
}

func TestPan(t *testing.T) {
	start := Reset()
	v := start.Pan(300, 300, types.Pointf64{X: 100, Y: -50}, 0.5)
	assert.InDelta(t, start.Width(), v.Width(), eps)
	assert.InDelta(t, start.Height(), v.Height(), eps)
	assert.InDelta(t, start.XMin-100*0.5*3/300, v.XMin, eps)
	assert.InDelta(t, start.YMin+50*0.5*3/300, v.YMin, eps)
	require.True(t, v.Valid())
}

func TestValid(t *testing.T) {
	assert.True(t, Reset().Valid())
	assert.False(t, Viewport{XMin: 1, XMax: 1, YMin: 0, YMax: 1}.Valid())
	assert.False(t, Viewport{XMin: 0, XMax: 1, YMin: 2, YMax: 1}.Valid())
}

func TestLerp(t *testing.T) {
	from := Viewport{XMin: 0, XMax: 2, YMin: 0, YMax: 2}
	to := Reset()
	assert.Equal(t, from, from.Lerp(to, 0))
	assert.Equal(t, to, from.Lerp(to, 1))
	assertViewportEqual(t, Viewport{XMin: -1, XMax: 1.5, YMin: -0.75, YMax: 1.75}, from.Lerp(to, 0.5))
}
