package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/config"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/render"
	"github.com/joshvictor1024/mandelbrot-explorer/internal/server"
	"github.com/joshvictor1024/mandelbrot-explorer/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("mandelserve", pflag.ExitOnError)
	config.RegisterFlags(fs)
	fs.Parse(os.Args[1:])
	path, _ := fs.GetString("config")

	cfg, err := config.Load(path, fs)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	pool := render.NewPool(cfg.Render.Workers, log)
	pool.SetMemoryBudget(cfg.Render.MemoryBudget)
	opts := server.OptionsFromConfig(cfg)
	opts.Logger = log

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(pool, opts).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Server.Addr,
			"workers": pool.Workers(),
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.RenderTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	if err := pool.Close(); err != nil {
		log.WithError(err).Error("stop workers")
	}
	log.Info("stopped")
}
