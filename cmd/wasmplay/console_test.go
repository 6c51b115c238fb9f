package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/caffeineduck/wasmplay/internal/app"
	"github.com/caffeineduck/wasmplay/internal/config"
	"github.com/caffeineduck/wasmplay/internal/demo"
	"github.com/caffeineduck/wasmplay/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Canvas.Width = 100
	cfg.Canvas.Height = 60
	cfg.Canvas.TPS = 100
	cfg.Runtime.DiskCache = false

	a, err := app.New(context.Background(), app.Options{Config: cfg, Metrics: metrics.New()})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func playerX(a *app.App) float64 {
	return api.DecodeF64(a.Instance.Module().ExportedGlobal(demo.GlobalPlayerX).Get())
}

func TestConsoleTickAndKeys(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer
	c, err := newConsole(a, &out)
	require.NoError(t, err)

	require.NoError(t, c.exec("key down ArrowLeft"))
	require.NoError(t, c.exec("tick 3"))
	assert.Contains(t, out.String(), "frame 3")
	// two 10 ms steps after the first frame
	assert.InDelta(t, 50-0.3*20, playerX(a), 1e-9)

	require.NoError(t, c.exec("key up ArrowLeft"))
	require.NoError(t, c.exec("tick"))
	assert.InDelta(t, 50-0.3*20, playerX(a), 1e-9)
	assert.Equal(t, 4, c.frame)

	require.NoError(t, c.exec("   "))
	assert.ErrorIs(t, c.exec("exit"), errQuit)
}

func TestConsolePads(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer
	c, err := newConsole(a, &out)
	require.NoError(t, err)

	require.NoError(t, c.exec("pad connect 1 Generic Pad standard"))
	assert.Contains(t, out.String(), "controller 1 connected (standard)")
	require.NoError(t, c.exec("pad connect 2 Xbox 360 Controller"))
	assert.Contains(t, out.String(), "controller 2 connected (axis)")
	require.NoError(t, c.exec("pad connect 3 Mystery"))
	assert.Contains(t, out.String(), "controller 3 ignored")

	require.NoError(t, c.exec("pad button 1 15 true"))
	require.NoError(t, c.exec("pad axis 2 6 -1"))
	out.Reset()
	require.NoError(t, c.exec("snapshot"))
	assert.Contains(t, out.String(), "left=true right=true shoot=false")
	assert.Contains(t, out.String(), `"Generic Pad"`)

	require.NoError(t, c.exec("pad disconnect 2"))
	assert.Len(t, a.Input.Active(), 1)
	assert.Error(t, c.exec("pad disconnect 2"))
	assert.Error(t, c.exec("pad axis 2 6 0"))
}

func TestConsoleErrors(t *testing.T) {
	a := newTestApp(t)
	c, err := newConsole(a, &bytes.Buffer{})
	require.NoError(t, err)

	for _, line := range []string{
		"tick zero",
		"tick 0",
		"key sideways a",
		"key down",
		"pad",
		"pad connect x Name",
		"pad connect 1",
		"pad button 9 0 1",
		"pad warp 1",
		"save",
		"frobnicate",
	} {
		assert.Error(t, c.exec(line), line)
	}

	require.NoError(t, c.exec("pad connect 1 Pad standard"))
	assert.Error(t, c.exec("pad button 1 0 maybe"))
	assert.Error(t, c.exec("pad axis 1 -1 0.5"))
	assert.Error(t, c.exec("pad axis 1 0 fast"))
}

func TestConsoleHandlesAndSave(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer
	c, err := newConsole(a, &out)
	require.NoError(t, err)

	require.NoError(t, c.exec("tick"))
	require.NoError(t, c.exec("handles"))
	assert.Contains(t, out.String(), "2 live handles")

	path := filepath.Join(t.TempDir(), "canvas.png")
	require.NoError(t, c.exec("save "+path))
	assert.FileExists(t, path)
}
