package main

import (
	"os"
	"runtime"

	"github.com/joshvictor1024/mandelbrot-explorer/internal/config"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/controller"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/render"
	"github.com/joshvictor1024/mandelbrot-explorer/pkg/logger"
	"github.com/joshvictor1024/mandelbrot-explorer/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	// SDL video calls must stay on the thread that did INIT_VIDEO
	runtime.LockOSThread()
}

func sdlInit(title string, w, h int) (*sdl.Window, *sdl.Renderer, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_TIMER); err != nil {
		return nil, nil, err
	}
	sdl.StopTextInput()

	window, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(w), int32(h), sdl.WINDOW_OPENGL|sdl.WINDOW_RESIZABLE,
	)
	if err != nil {
		sdl.Quit()
		return nil, nil, err
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, nil, err
	}

	return window, renderer, nil
}

func sdlClose(window *sdl.Window, renderer *sdl.Renderer) {
	renderer.Destroy()
	window.Destroy()
	sdl.Quit()
}

func main() {
	fs := pflag.NewFlagSet("mandelbrot", pflag.ExitOnError)
	config.RegisterFlags(fs)
	fs.Parse(os.Args[1:])
	path, _ := fs.GetString("config")

	cfg, err := config.Load(path, fs)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	// start SDL
	window, renderer, err := sdlInit(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		log.WithError(err).Fatal("sdl init")
	}
	defer sdlClose(window, renderer)

	c, err := newCanvas(renderer, cfg.Window.Width, cfg.Window.Height, log.WithField("component", "canvas"))
	if err != nil {
		log.WithError(err).Error("canvas")
		return
	}
	defer c.close()

	pool := render.NewPool(cfg.Render.Workers, log)
	pool.SetMemoryBudget(cfg.Render.MemoryBudget)
	defer pool.Close()

	outbox := types.NewControlledQueue[render.Event]()
	defer outbox.Close()
	sched := render.NewScheduler(pool, render.Options{
		ChunkSize: cfg.Render.ChunkSize,
		Throttle:  cfg.Render.Throttle,
		MaxPixels: cfg.Render.MaxPixels,
		Watchdog:  cfg.Render.Watchdog,
		OnEvent:   func(e render.Event) { outbox.Send(e) },
		Logger:    log,
	})
	defer sched.Close()

	opts := controller.OptionsFromConfig(cfg)
	opts.Logger = log
	ctl := controller.New(sched, opts)

	s := &scene{
		window: window,
		canvas: c,
		ctl:    ctl,
		log:    log,
		title:  cfg.Window.Title,
	}
	if _, err := ctl.Render(); err != nil {
		log.WithError(err).Error("first render")
	}
	log.WithFields(logrus.Fields{
		"width":   cfg.Window.Width,
		"height":  cfg.Window.Height,
		"workers": pool.Workers(),
	}).Info("window open")

	// start loop
	for run := true; run; {
		// wake at least once per frame to pick up render progress
		for e := sdl.WaitEventTimeout(int(frameInterval.Milliseconds())); e != nil; e = sdl.PollEvent() {
			if !s.handle(e) {
				run = false
				break
			}
		}
		s.update(outbox)
		s.draw(renderer)
	}
}
