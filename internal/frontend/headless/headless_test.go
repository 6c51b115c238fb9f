package headless

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/caffeineduck/wasmplay/internal/app"
	"github.com/caffeineduck/wasmplay/internal/config"
	"github.com/caffeineduck/wasmplay/internal/demo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
)

func newApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Canvas.Width = 100
	cfg.Canvas.Height = 80
	cfg.Runtime.DiskCache = false

	a, err := app.New(context.Background(), app.Options{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestParseKeys(t *testing.T) {
	evs, err := ParseKeys("1+ArrowRight, 30-ArrowRight,5+Space,,7+-")
	require.NoError(t, err)
	assert.Equal(t, []KeyEvent{
		{Frame: 1, Key: "ArrowRight", Pressed: true},
		{Frame: 30, Key: "ArrowRight", Pressed: false},
		{Frame: 5, Key: " ", Pressed: true},
		{Frame: 7, Key: "-", Pressed: true},
	}, evs)

	for _, bad := range []string{"x+a", "+a", "3a", "0+a", "4+"} {
		_, err := ParseKeys(bad)
		assert.Error(t, err, bad)
	}
}

func TestRunFrames(t *testing.T) {
	a := newApp(t)
	out := filepath.Join(t.TempDir(), "frame.png")

	keys, err := ParseKeys("1+d")
	require.NoError(t, err)
	require.NoError(t, Run(context.Background(), a, Options{Frames: 11, TPS: 100, Keys: keys, Out: out}))
	assert.Equal(t, uint64(11), a.Scheduler.Frames())

	// 10 ms per frame after the first, 0.3 px/ms
	x := api.DecodeF64(a.Instance.Module().ExportedGlobal(demo.GlobalPlayerX).Get())
	assert.InDelta(t, 50+0.3*100, x, 1e-9)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}

func TestRunCancelled(t *testing.T) {
	a := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Run(ctx, a, Options{Frames: 3}), context.Canceled)
}

func TestSavePNGBadPath(t *testing.T) {
	a := newApp(t)
	assert.Error(t, SavePNG(a, filepath.Join(t.TempDir(), "missing", "x.png")))
}
