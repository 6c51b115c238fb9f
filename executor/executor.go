package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caffeineduck/wasmplay/capability"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

var (
	// ErrClosed is returned by calls on a closed Executor or Instance.
	ErrClosed = errors.New("executor closed")

	// ErrGameFreed is returned by calls on a freed Game.
	ErrGameFreed = errors.New("game freed")
)

// Executor manages the WebAssembly runtime and compiled module caching.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[string]wazero.CompiledModule
	log      *zap.Logger
	mu       sync.RWMutex
	closed   bool
}

// New creates an Executor.
func New(opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		if cache != nil {
			cache.Close(ctx)
		}
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	e := &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: make(map[string]wazero.CompiledModule),
		log:      cfg.logger.Named("executor"),
	}

	for _, wasm := range cfg.precompile {
		if _, err := e.Compile(ctx, wasm); err != nil {
			e.Close()
			return nil, fmt.Errorf("precompile: %w", err)
		}
	}

	return e, nil
}

// Runtime returns the underlying wazero runtime.
func (e *Executor) Runtime() wazero.Runtime {
	return e.runtime
}

// Compile returns a cached compiled module, compiling if necessary.
// Modules are keyed by the SHA-256 of their binary.
func (e *Executor) Compile(ctx context.Context, wasm []byte) (wazero.CompiledModule, error) {
	sum := sha256.Sum256(wasm)
	key := hex.EncodeToString(sum[:])

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[key]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[key]; ok {
		return compiled, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}

	e.log.Debug("compiled module", zap.String("sha256", key[:12]), zap.Int("bytes", len(wasm)))
	e.compiled[key] = compiled
	return compiled, nil
}

// Load compiles wasm, checks its exports, registers the bridge of shim and
// instantiates the guest against it. Only one Instance may be live per
// Executor at a time since the bridge module name is fixed.
func (e *Executor) Load(ctx context.Context, shim *capability.Shim, wasm []byte) (*Instance, error) {
	compiled, err := e.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}
	if err := CheckExports(compiled); err != nil {
		return nil, err
	}

	hostMod, err := shim.Instantiate(ctx, e.runtime)
	if err != nil {
		return nil, err
	}

	guestLog := e.log.Named("guest")
	moduleConfig := wazero.NewModuleConfig().
		WithStdout(&zapio.Writer{Log: guestLog, Level: zapcore.InfoLevel}).
		WithStderr(&zapio.Writer{Log: guestLog, Level: zapcore.WarnLevel}).
		WithName("")

	mod, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
	if err != nil {
		hostMod.Close(ctx)
		return nil, fmt.Errorf("instantiate guest: %w", err)
	}

	if _, err := shim.AttachModule(mod); err != nil {
		mod.Close(ctx)
		hostMod.Close(ctx)
		return nil, fmt.Errorf("attach guest: %w", err)
	}

	inst := &Instance{
		shim:  shim,
		host:  hostMod,
		guest: mod,
		fns:   make(map[string]api.Function, len(RequiredExports)),
		log:   e.log.Named("instance"),
	}
	for _, exp := range RequiredExports {
		if exp.Name == ExportMemory {
			continue
		}
		inst.fns[exp.Name] = mod.ExportedFunction(exp.Name)
	}
	e.log.Info("guest loaded", zap.Uint32("memory_bytes", mod.Memory().Size()))
	return inst, nil
}

// Close releases all resources held by the Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()

	var errs []error
	if err := e.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.cache != nil {
		if err := e.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "wasmplay")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "wasmplay")
	}
	return filepath.Join(os.TempDir(), "wasmplay-cache")
}
