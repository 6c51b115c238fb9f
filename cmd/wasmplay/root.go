package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/caffeineduck/wasmplay/executor"
	"github.com/caffeineduck/wasmplay/internal/app"
	"github.com/caffeineduck/wasmplay/internal/config"
	"github.com/caffeineduck/wasmplay/internal/logging"
	"github.com/caffeineduck/wasmplay/internal/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "wasmplay [module.wasm]",
	Short: "Run WebAssembly games against a browser-like canvas host",
	Long: `wasmplay - Load a WebAssembly game module and drive it with keyboard and
gamepad input, drawing to a canvas in a window or headless.

Without a module argument the built-in demo game is used. Settings are read
from WASMPLAY_* environment variables; flags override them.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun, // Default to run command behavior
}

// exit is replaced in tests.
var exit = os.Exit

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable compilation cache")
	rootCmd.PersistentFlags().String("memory", "", "Guest memory limit: 1mb, 16mb, 64mb, 256mb, 1gb")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().Int("width", 0, "Canvas width in pixels")
	rootCmd.PersistentFlags().Int("height", 0, "Canvas height in pixels")
	rootCmd.PersistentFlags().Int64("seed", 0, "Seed for Math.random (default: random)")

	addRunFlags(rootCmd)
}

func fatal(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	exit(1)
}

func parseMemoryLimit(s string) uint32 {
	switch strings.ToLower(s) {
	case "1mb":
		return executor.MemoryLimit1MB
	case "16mb":
		return executor.MemoryLimit16MB
	case "64mb":
		return executor.MemoryLimit64MB
	case "256mb":
		return executor.MemoryLimit256MB
	case "1gb":
		return executor.MemoryLimit1GB
	default:
		return 0 // use default
	}
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.Runtime.DiskCache = false
	}
	if mem, _ := flags.GetString("memory"); mem != "" {
		pages := parseMemoryLimit(mem)
		if pages == 0 {
			return nil, fmt.Errorf("invalid memory limit %q (expected 1mb, 16mb, 64mb, 256mb or 1gb)", mem)
		}
		cfg.Runtime.MemoryLimitPages = pages
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if addr, _ := flags.GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if w, _ := flags.GetInt("width"); w != 0 {
		cfg.Canvas.Width = w
	}
	if h, _ := flags.GetInt("height"); h != 0 {
		cfg.Canvas.Height = h
	}
	if flags.Lookup("scale") != nil {
		if s, _ := flags.GetFloat64("scale"); s != 0 {
			cfg.Canvas.Scale = s
		}
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
}

func readModule(args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return os.ReadFile(args[0])
}

// newApp builds the App shared by run, console and serve. The returned
// cleanup closes the App and stops the metrics server.
func newApp(cmd *cobra.Command, args []string) (*app.App, func(), error) {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	wasm, err := readModule(args)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	opts := app.Options{Config: cfg, Logger: log, Metrics: m, Module: wasm}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetInt64("seed")
		opts.Seed = &seed
	}
	a, err := app.New(ctx, opts)
	if err != nil {
		cancel()
		log.Sync()
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			log.Warn("close", zap.Error(err))
		}
		cancel()
		log.Sync()
	}, nil
}
