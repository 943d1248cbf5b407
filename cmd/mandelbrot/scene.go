package main

import (
	"fmt"
	"time"

	"github.com/joshvictor1024/mandelbrot-explorer/internal/controller"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/palette"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/render"
	"github.com/joshvictor1024/mandelbrot-explorer/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

// scene turns raw window input into controller calls and keeps the title
// bar up to date.
type scene struct {
	window *sdl.Window
	canvas *canvas
	ctl    *controller.Controller
	log    logrus.FieldLogger
	title  string

	dragging  bool
	lastMouse types.Pointi
	cursor    types.Pointi
}

var paletteKeys = map[sdl.Keycode]palette.Palette{
	sdl.K_1: palette.Grayscale,
	sdl.K_2: palette.Rainbow,
	sdl.K_3: palette.Fire,
	sdl.K_4: palette.Ocean,
	sdl.K_5: palette.Forest,
	sdl.K_6: palette.Plasma,
	sdl.K_7: palette.Aurora,
}

// handle reports false once the user asked to quit.
func (s *scene) handle(e sdl.Event) bool {
	var err error
	switch t := e.(type) {
	case *sdl.QuitEvent:
		s.log.Info("quit event")
		return false

	case *sdl.MouseButtonEvent:
		if t.Button != sdl.BUTTON_LEFT {
			break
		}
		if t.Type == sdl.MOUSEBUTTONDOWN {
			if t.Clicks == 2 {
				s.dragging = false
				_, err = s.ctl.StartReset()
				break
			}
			s.dragging = true
			s.lastMouse = types.Pointi{X: int(t.X), Y: int(t.Y)}
		} else if t.Type == sdl.MOUSEBUTTONUP {
			s.dragging = false
		}

	case *sdl.MouseMotionEvent:
		s.cursor = types.Pointi{X: int(t.X), Y: int(t.Y)}
		if s.dragging {
			delta := types.Pointf64{
				X: float64(s.cursor.X - s.lastMouse.X),
				Y: float64(s.cursor.Y - s.lastMouse.Y),
			}
			s.lastMouse = s.cursor
			_, err = s.ctl.Pan(delta.X, delta.Y)
		}

	case *sdl.MouseWheelEvent:
		y := t.Y
		if t.Direction == sdl.MOUSEWHEEL_FLIPPED {
			y = -y
		}
		if y != 0 {
			pivot := types.Pointf64{X: float64(s.cursor.X), Y: float64(s.cursor.Y)}
			_, err = s.ctl.Zoom(pivot, y > 0)
		}

	case *sdl.KeyboardEvent:
		if t.Type != sdl.KEYDOWN {
			break
		}
		switch sym := t.Keysym.Sym; sym {
		case sdl.K_ESCAPE:
			s.log.Info("esc event")
			return false
		case sdl.K_r:
			_, err = s.ctl.StartReset()
		case sdl.K_f:
			err = s.toggleFullscreen()
		case sdl.K_PLUS, sdl.K_EQUALS, sdl.K_KP_PLUS:
			_, err = s.ctl.StepIterations(1)
		case sdl.K_MINUS, sdl.K_KP_MINUS:
			_, err = s.ctl.StepIterations(-1)
		default:
			if p, ok := paletteKeys[sym]; ok {
				_, err = s.ctl.SetPalette(p)
			}
		}

	case *sdl.WindowEvent:
		if t.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			err = s.resize(int(t.Data1), int(t.Data2))
		}
	}
	if err != nil {
		s.log.WithError(err).Warn("input ignored")
	}
	return true
}

func (s *scene) resize(w, h int) error {
	if err := s.canvas.resize(w, h); err != nil {
		return err
	}
	_, err := s.ctl.Resize(w, h)
	return err
}

func (s *scene) toggleFullscreen() error {
	if s.window.GetFlags()&sdl.WINDOW_FULLSCREEN_DESKTOP != 0 {
		return s.window.SetFullscreen(0)
	}
	return s.window.SetFullscreen(sdl.WINDOW_FULLSCREEN_DESKTOP)
}

// update advances animations, applies finished chunks and refreshes the title.
func (s *scene) update(outbox *types.ControlledQueue[render.Event]) {
	if s.ctl.Animating() {
		if _, err := s.ctl.Tick(); err != nil {
			s.log.WithError(err).Warn("reset animation")
		}
	}
	s.canvas.drain(outbox)
	s.window.SetTitle(s.status())
}

func (s *scene) status() string {
	re, im := s.ctl.Coordinates(float64(s.cursor.X), float64(s.cursor.Y))
	return statusLine(s.title, s.canvas.percent, s.canvas.err, re, im, s.ctl.Iterations(), s.ctl.Palette())
}

func statusLine(title string, percent int, err error, re, im float64, iterations int, p palette.Palette) string {
	state := fmt.Sprintf("%d%%", percent)
	if err != nil {
		state = "failed: " + err.Error()
	}
	sign := "+"
	if im < 0 {
		sign, im = "-", -im
	}
	return fmt.Sprintf("%s | %s | %.6f %s %.6fi | %d iterations | %s",
		title, state, re, sign, im, iterations, p)
}

func (s *scene) draw(r *sdl.Renderer) {
	r.SetDrawColor(0, 0, 0, 255)
	r.Clear()
	s.canvas.draw()
	r.Present()
}

const frameInterval = 16 * time.Millisecond
