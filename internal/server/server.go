// Package server exposes frame rendering over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/config"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/fractal"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/palette"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/render"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

type Options struct {
	MaxWidth       int
	MaxHeight      int
	MinIterations  int
	MaxIterations  int
	RenderTimeout  time.Duration
	AllowedOrigins []string
	ChunkSize      int
	MaxPixels      int
	Logger         logrus.FieldLogger
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxWidth:       cfg.Server.MaxWidth,
		MaxHeight:      cfg.Server.MaxHeight,
		MinIterations:  cfg.View.MinIterations,
		MaxIterations:  cfg.View.IterationsLimit,
		RenderTimeout:  cfg.Server.RenderTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ChunkSize:      cfg.Render.ChunkSize,
		MaxPixels:      cfg.Render.MaxPixels,
	}
}

type Server struct {
	pool *render.Pool
	opts Options
	log  logrus.FieldLogger
}

// New serves renders on pool. The pool is shared with the caller and is
// not closed by the server.
func New(pool *render.Pool, opts Options) *Server {
	if opts.MinIterations <= 0 {
		opts.MinIterations = 50
	}
	if opts.MaxIterations < opts.MinIterations {
		opts.MaxIterations = max(1000, opts.MinIterations)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Server{
		pool: pool,
		opts: opts,
		log:  opts.Logger.WithField("component", "server"),
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(s.accessLog())
	router.Use(cors.New(s.corsConfig()))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/palettes", s.palettes)
	router.GET("/render", s.render)
	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(s.opts.AllowedOrigins) == 0 || slices.Contains(s.opts.AllowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.opts.AllowedOrigins
	}
	return cfg
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		}).Info("request")
	}
}

func (s *Server) palettes(c *gin.Context) {
	names := make([]string, 0, len(palette.All()))
	for _, p := range palette.All() {
		names = append(names, p.String())
	}
	c.JSON(http.StatusOK, gin.H{"palettes": names})
}

type renderQuery struct {
	Width      int     `form:"width" binding:"required,gt=0"`
	Height     int     `form:"height" binding:"required,gt=0"`
	XMin       float64 `form:"xmin,default=-2"`
	XMax       float64 `form:"xmax,default=1"`
	YMin       float64 `form:"ymin,default=-1.5"`
	YMax       float64 `form:"ymax,default=1.5"`
	Iterations int     `form:"iterations,default=100" binding:"gt=0"`
	Palette    string  `form:"palette,default=grayscale"`
}

func (s *Server) render(c *gin.Context) {
	var q renderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	if q.Width > s.opts.MaxWidth || q.Height > s.opts.MaxHeight {
		s.abort(c, http.StatusBadRequest,
			errors.New("frame exceeds the server limit"))
		return
	}
	if q.Iterations < s.opts.MinIterations || q.Iterations > s.opts.MaxIterations {
		s.abort(c, http.StatusBadRequest, fmt.Errorf("%w: %d outside [%d, %d]",
			render.ErrInvalidIterations, q.Iterations, s.opts.MinIterations, s.opts.MaxIterations))
		return
	}
	p, err := palette.Parse(q.Palette)
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	vp := fractal.Viewport{XMin: q.XMin, XMax: q.XMax, YMin: q.YMin, YMax: q.YMax}
	req, err := render.NewRequest(vp, q.Width, q.Height, q.Iterations, p)
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}

	log := s.log.WithField("request_id", c.GetString(requestIDKey))
	// one scheduler per request so that concurrent requests never supersede each other
	sched := render.NewScheduler(s.pool, render.Options{
		ChunkSize: s.opts.ChunkSize,
		MaxPixels: s.opts.MaxPixels,
		Logger:    log,
	})
	defer sched.Close()

	ctx := c.Request.Context()
	if s.opts.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RenderTimeout)
		defer cancel()
	}
	frame, err := sched.Submit(req).Wait(ctx)
	if err != nil {
		s.abort(c, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		s.abort(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, render.ErrInvalidSize),
		errors.Is(err, render.ErrInvalidViewport),
		errors.Is(err, render.ErrInvalidIterations),
		errors.Is(err, render.ErrUnknownPalette):
		return http.StatusBadRequest
	case errors.Is(err, render.ErrFrameTooLarge),
		errors.Is(err, render.ErrAllocation),
		errors.Is(err, render.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, render.ErrRenderTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString(requestIDKey),
	})
}
