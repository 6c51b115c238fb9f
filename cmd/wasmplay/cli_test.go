package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caffeineduck/wasmplay/executor"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wippyai/wasm-runtime/wat"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// captureExit records the status passed to exit instead of terminating.
func captureExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exit
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = old })
	return &code
}

func TestCLIHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPhrases := []string{
		"wasmplay",
		"WebAssembly",
		"run",
		"inspect",
		"console",
		"serve",
		"--no-cache",
		"--metrics-addr",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("help output should contain %q", phrase)
		}
	}
}

func TestCLIRunHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "run", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPhrases := []string{
		"--headless",
		"--frames",
		"--out",
		"--keys",
		"--scale",
		"--memory",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("run help output should contain %q", phrase)
		}
	}
}

func TestCLIConsoleHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "console", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPhrases := []string{
		"--history",
		"tick [n]",
		"pad connect",
		"snapshot",
		"Command history",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("console help output should contain %q", phrase)
		}
	}
}

func TestCLIServeHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "serve", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, phrase := range []string{"--port", "/tick", "/key", "/frame.png", "/health"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("serve help output should contain %q", phrase)
		}
	}
}

func TestParseMemoryLimit(t *testing.T) {
	tests := map[string]uint32{
		"1mb":   executor.MemoryLimit1MB,
		"16MB":  executor.MemoryLimit16MB,
		"64mb":  executor.MemoryLimit64MB,
		"256mb": executor.MemoryLimit256MB,
		"1gb":   executor.MemoryLimit1GB,
		"2gb":   0,
		"":      0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseMemoryLimit(in), in)
	}
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("no-cache", false, "")
	flags.String("memory", "", "")
	flags.String("log-level", "", "")
	flags.String("metrics-addr", "", "")
	flags.Int("width", 0, "")
	flags.Int("height", 0, "")
	flags.Float64("scale", 0, "")
	return flags
}

func TestLoadConfigFlags(t *testing.T) {
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{
		"--no-cache", "--memory", "16mb", "--log-level", "debug",
		"--metrics-addr", ":9100", "--width", "320", "--height", "200", "--scale", "2",
	}))

	cfg, err := loadConfig(flags)
	require.NoError(t, err)
	assert.False(t, cfg.Runtime.DiskCache)
	assert.Equal(t, executor.MemoryLimit16MB, cfg.Runtime.MemoryLimitPages)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, 320, cfg.Canvas.Width)
	assert.Equal(t, 200, cfg.Canvas.Height)
	assert.Equal(t, 2.0, cfg.Canvas.Scale)
}

func TestLoadConfigDefaults(t *testing.T) {
	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := loadConfig(flags)
	require.NoError(t, err)
	assert.True(t, cfg.Runtime.DiskCache)
	assert.Equal(t, 800, cfg.Canvas.Width)
	assert.Equal(t, 1.0, cfg.Canvas.Scale)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("WASMPLAY_CANVAS_WIDTH", "640")
	t.Setenv("WASMPLAY_TPS", "30")
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--width", "320"}))

	cfg, err := loadConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Canvas.Width)
	assert.Equal(t, 30, cfg.Canvas.TPS)
}

func TestLoadConfigInvalid(t *testing.T) {
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--width", "-5"}))
	_, err := loadConfig(flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canvas size")

	flags = testFlags()
	require.NoError(t, flags.Parse([]string{"--memory", "3mb"}))
	_, err = loadConfig(flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid memory limit")
}

func TestCLIRunHeadless(t *testing.T) {
	code := captureExit(t)
	out := filepath.Join(t.TempDir(), "frame.png")

	_, err := executeCommand(rootCmd, "run", "--headless", "--frames", "5", "--keys", "1+d",
		"--out", out, "--width", "64", "--height", "48", "--no-cache", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, -1, *code)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestCLIRunMissingFile(t *testing.T) {
	code := captureExit(t)

	output, _ := executeCommand(rootCmd, "run", "--headless", "--no-cache", "--log-level", "error",
		filepath.Join(t.TempDir(), "missing.wasm"))
	assert.Equal(t, 1, *code)
	assert.Contains(t, output, "Error: ")
}

func TestCLIInspectDemo(t *testing.T) {
	code := captureExit(t)

	output, err := executeCommand(rootCmd, "inspect", "--no-cache", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, -1, *code)

	for _, phrase := range []string{
		"module: built-in demo",
		"host.get_context(i32, i32, i32, i32) -> i32",
		"game_update(i32, f64)",
		"memories: memory",
		"ok",
	} {
		assert.Contains(t, output, phrase)
	}
}

func TestCLIInspectProblems(t *testing.T) {
	code := captureExit(t)

	wasm, err := wat.Compile(`(module
		(import "host" "no_such_thing" (func (param i32)))
		(memory (export "memory") 1)
		(func (export "hello") (param i32 i32)))`)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "broken.wasm")
	require.NoError(t, os.WriteFile(path, wasm, 0o644))

	output, _ := executeCommand(rootCmd, "inspect", "--no-cache", "--log-level", "error", path)
	assert.Equal(t, 1, *code)
	assert.Contains(t, output, "problems:")
	assert.Contains(t, output, "unknown import: host.no_such_thing(i32)")
	assert.Contains(t, output, "game_new")
	assert.Contains(t, output, "Error: "+path)
}
