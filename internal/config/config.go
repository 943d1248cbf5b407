package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshvictor1024/mandelbrot-explorer/internal/palette"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "MANDELBROT"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Window WindowConfig `mapstructure:"window"`
	Render RenderConfig `mapstructure:"render"`
	View   ViewConfig   `mapstructure:"view"`
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
}

type WindowConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
}

type RenderConfig struct {
	ChunkSize int           `mapstructure:"chunk_size"`
	Workers   int           `mapstructure:"workers"`
	Throttle  time.Duration `mapstructure:"throttle"`
	MaxPixels int           `mapstructure:"max_pixels"`
	// MemoryBudget caps frame buffer bytes held by all renders at once.
	MemoryBudget int64         `mapstructure:"memory_budget"`
	Watchdog     time.Duration `mapstructure:"watchdog"`
}

type ViewConfig struct {
	MaxIterations   int           `mapstructure:"max_iterations"`
	MinIterations   int           `mapstructure:"min_iterations"`
	IterationsLimit int           `mapstructure:"iterations_limit"`
	IterationsStep  int           `mapstructure:"iterations_step"`
	Palette         string        `mapstructure:"palette"`
	PanSensitivity  float64       `mapstructure:"pan_sensitivity"`
	ZoomIn          float64       `mapstructure:"zoom_in"`
	ZoomOut         float64       `mapstructure:"zoom_out"`
	ResetDuration   time.Duration `mapstructure:"reset_duration"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	MaxWidth       int           `mapstructure:"max_width"`
	MaxHeight      int           `mapstructure:"max_height"`
	RenderTimeout  time.Duration `mapstructure:"render_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("window.width", 920)
	v.SetDefault("window.height", 690)
	v.SetDefault("window.title", "Mandelbrot")

	v.SetDefault("render.chunk_size", 1_000_000)
	v.SetDefault("render.workers", 0)
	v.SetDefault("render.throttle", 50*time.Millisecond)
	v.SetDefault("render.max_pixels", 32<<20)
	v.SetDefault("render.memory_budget", int64(1<<30))
	v.SetDefault("render.watchdog", time.Duration(0))

	v.SetDefault("view.max_iterations", 100)
	v.SetDefault("view.min_iterations", 50)
	v.SetDefault("view.iterations_limit", 1000)
	v.SetDefault("view.iterations_step", 50)
	v.SetDefault("view.palette", palette.Grayscale.String())
	v.SetDefault("view.pan_sensitivity", 0.5)
	v.SetDefault("view.zoom_in", 0.98)
	v.SetDefault("view.zoom_out", 1.02)
	v.SetDefault("view.reset_duration", 2*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_width", 4096)
	v.SetDefault("server.max_height", 4096)
	v.SetDefault("server.render_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
}

// flag name -> config key
var flagKeys = map[string]string{
	"width":      "window.width",
	"height":     "window.height",
	"iterations": "view.max_iterations",
	"palette":    "view.palette",
	"workers":    "render.workers",
	"chunk-size": "render.chunk_size",
	"log-level":  "log.level",
	"log-format": "log.format",
	"addr":       "server.addr",
}

// RegisterFlags defines the command line flags Load understands.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.Int("width", 0, "window width in pixels")
	fs.Int("height", 0, "window height in pixels")
	fs.Int("iterations", 0, "initial iteration bound")
	fs.String("palette", "", "initial palette")
	fs.Int("workers", 0, "render workers (0 = GOMAXPROCS)")
	fs.Int("chunk-size", 0, "pixels per render chunk")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-format", "", "text or json")
	fs.String("addr", "", "HTTP listen address")
}

// Load reads configuration from defaults, the optional file at path,
// MANDELBROT_* environment variables and, when fs is not nil, flags that
// were set explicitly, in increasing order of precedence.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d", c.Window.Width, c.Window.Height)
	check(c.Render.ChunkSize >= 1, "render.chunk_size %d", c.Render.ChunkSize)
	check(c.Render.Workers >= 0, "render.workers %d", c.Render.Workers)
	check(c.Render.Throttle >= 0, "render.throttle %s", c.Render.Throttle)
	check(c.Render.MaxPixels >= 0, "render.max_pixels %d", c.Render.MaxPixels)
	check(c.Render.MemoryBudget >= 0, "render.memory_budget %d", c.Render.MemoryBudget)
	check(c.Render.Watchdog >= 0, "render.watchdog %s", c.Render.Watchdog)

	check(c.View.MinIterations > 0 && c.View.MinIterations <= c.View.IterationsLimit,
		"view iteration bounds [%d, %d]", c.View.MinIterations, c.View.IterationsLimit)
	check(c.View.MaxIterations >= c.View.MinIterations && c.View.MaxIterations <= c.View.IterationsLimit,
		"view.max_iterations %d outside [%d, %d]", c.View.MaxIterations, c.View.MinIterations, c.View.IterationsLimit)
	check(c.View.IterationsStep > 0, "view.iterations_step %d", c.View.IterationsStep)
	_, err := palette.Parse(c.View.Palette)
	check(err == nil, "view.palette %q", c.View.Palette)
	check(c.View.PanSensitivity > 0, "view.pan_sensitivity %v", c.View.PanSensitivity)
	check(c.View.ZoomIn > 0 && c.View.ZoomIn < 1, "view.zoom_in %v", c.View.ZoomIn)
	check(c.View.ZoomOut > 1, "view.zoom_out %v", c.View.ZoomOut)
	check(c.View.ResetDuration >= 0, "view.reset_duration %s", c.View.ResetDuration)

	check(c.Server.MaxWidth > 0 && c.Server.MaxHeight > 0, "server max size %dx%d", c.Server.MaxWidth, c.Server.MaxHeight)
	check(c.Server.RenderTimeout >= 0, "server.render_timeout %s", c.Server.RenderTimeout)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Palette returns the configured initial palette. Validate has checked it.
func (c *Config) Palette() palette.Palette {
	p, _ := palette.Parse(c.View.Palette)
	return p
}
