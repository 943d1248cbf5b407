package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joshvictor1024/mandelbrot-explorer/internal/palette"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 920, cfg.Window.Width)
	assert.Equal(t, 690, cfg.Window.Height)
	assert.Equal(t, 1_000_000, cfg.Render.ChunkSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Render.Throttle)
	assert.Equal(t, int64(1<<30), cfg.Render.MemoryBudget)
	assert.Equal(t, 100, cfg.View.MaxIterations)
	assert.Equal(t, 0.5, cfg.View.PanSensitivity)
	assert.Equal(t, 0.98, cfg.View.ZoomIn)
	assert.Equal(t, 1.02, cfg.View.ZoomOut)
	assert.Equal(t, 2*time.Second, cfg.View.ResetDuration)
	assert.Equal(t, palette.Grayscale, cfg.Palette())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
window:
  width: 640
  height: 480
view:
  palette: fire
  max_iterations: 300
render:
  throttle: 10ms
log:
  level: debug
`), 0o644))

	t.Setenv("MANDELBROT_VIEW_PALETTE", "aurora")
	t.Setenv("MANDELBROT_RENDER_WORKERS", "3")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--width", "800", "--iterations", "500"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Window.Width, "flag beats file")
	assert.Equal(t, 480, cfg.Window.Height, "file beats default")
	assert.Equal(t, 500, cfg.View.MaxIterations)
	assert.Equal(t, palette.Aurora, cfg.Palette(), "env beats file")
	assert.Equal(t, 3, cfg.Render.Workers)
	assert.Equal(t, 10*time.Millisecond, cfg.Render.Throttle)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestUnsetFlagsDoNotOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 920, cfg.Window.Width)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	bad := *cfg
	bad.View.Palette = "sepia"
	bad.View.ZoomIn = 1.5
	bad.Render.ChunkSize = 0
	err = bad.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "sepia")
	assert.Contains(t, err.Error(), "zoom_in")
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
