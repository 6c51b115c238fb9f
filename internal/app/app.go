// Package app builds and owns every component of a running simulation.
// There is no global state: frontends receive an *App and drive it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/caffeineduck/wasmplay/capability"
	"github.com/caffeineduck/wasmplay/executor"
	"github.com/caffeineduck/wasmplay/host"
	"github.com/caffeineduck/wasmplay/input"
	"github.com/caffeineduck/wasmplay/internal/config"
	"github.com/caffeineduck/wasmplay/internal/demo"
	"github.com/caffeineduck/wasmplay/internal/metrics"
	"github.com/caffeineduck/wasmplay/scheduler"
	"go.uber.org/zap"
)

// DefaultGreeting is passed to the guest's hello entry point at startup.
const DefaultGreeting = "world"

// Options configures New.
type Options struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Module is the guest binary. Nil loads the built-in demo.
	Module []byte

	// Greeting is passed to hello after load. Empty uses DefaultGreeting.
	Greeting string

	// Seed makes Math.random deterministic when non-nil.
	Seed *int64

	// Executor is used instead of creating one. The App does not close it.
	Executor *executor.Executor
}

// App is the bootstrap context of one simulation.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Metrics   *metrics.Metrics
	Realm     *host.Realm
	Canvas    *host.Canvas
	Shim      *capability.Shim
	Instance  *executor.Instance
	Game      *executor.Game
	Input     *input.Aggregator
	Keyboard  *input.Keyboard
	Scheduler *scheduler.Scheduler

	exec     *executor.Executor
	ownsExec bool
	ctx      context.Context
	closed   bool
}

// New loads the guest, creates the game on the configured canvas and
// prepares, but does not start, the frame loop. ctx is used for every guest
// call the App makes afterwards. Any failure here is fatal and no frame is
// scheduled.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		Metrics: opts.Metrics,
		ctx:     ctx,
	}

	realmOpts := []host.Option{host.WithLogger(log)}
	if opts.Seed != nil {
		realmOpts = append(realmOpts, host.WithSeed(*opts.Seed))
	}
	realm, err := host.NewRealm(realmOpts...)
	if err != nil {
		return nil, err
	}
	a.Realm = realm
	a.Canvas = realm.AddCanvas(cfg.Canvas.ID, cfg.Canvas.Width, cfg.Canvas.Height)

	table, err := capability.Resolve(realm, capability.Required)
	if err != nil {
		return nil, fmt.Errorf("resolve capabilities: %w", err)
	}
	a.Shim, err = capability.New(realm, table,
		capability.WithLogger(log),
		capability.WithFaultHook(a.Metrics.RecordFault))
	if err != nil {
		return nil, err
	}

	wasm := opts.Module
	if wasm == nil {
		if wasm, err = demo.Module(); err != nil {
			return nil, err
		}
	}

	if opts.Executor != nil {
		a.exec = opts.Executor
	} else {
		execOpts := []executor.ExecutorOption{
			executor.WithLogger(log),
			executor.WithMemoryLimit(cfg.Runtime.MemoryLimitPages),
			executor.WithPrecompile(wasm),
		}
		if cfg.Runtime.DiskCache {
			execOpts = append(execOpts, executor.WithDiskCache(cfg.Runtime.CacheDir))
		}
		a.exec, err = executor.New(execOpts...)
		if err != nil {
			return nil, err
		}
		a.ownsExec = true
	}

	if err := a.load(wasm, opts.Greeting); err != nil {
		a.Close()
		return nil, err
	}

	a.Input = input.NewAggregator(
		input.WithLogger(log.Named("input")),
		input.WithAxisDevices(cfg.Input.AxisDevices...),
		input.WithActiveHook(a.Metrics.SetControllersActive))
	a.Keyboard = input.NewKeyboard(a.keyEvent, log.Named("keyboard"))
	a.Scheduler = scheduler.New(realm.Frames(), a.Input, a.Game,
		scheduler.WithLogger(log),
		scheduler.WithMetrics(a.Metrics))
	return a, nil
}

func (a *App) load(wasm []byte, greeting string) error {
	inst, err := a.exec.Load(a.ctx, a.Shim, wasm)
	if err != nil {
		return err
	}
	a.Instance = inst

	if greeting == "" {
		greeting = DefaultGreeting
	}
	if err := inst.Hello(a.ctx, greeting); err != nil {
		return err
	}

	el := a.Realm.ElementByID(a.Config.Canvas.ID)
	if el == nil {
		return fmt.Errorf("canvas %q not found", a.Config.Canvas.ID)
	}
	a.Game, err = inst.NewGame(a.ctx, a.Shim.Box(el))
	return err
}

// keyEvent wraps key in a KeyboardEvent and hands it to the guest, which
// owns and drops the handle.
func (a *App) keyEvent(pressed bool, key string) error {
	ev := a.Realm.NewKeyboardEvent(key)
	return a.Game.KeyboardEvent(a.ctx, pressed, a.Shim.Box(ev))
}

// Start requests the first frame.
func (a *App) Start() error {
	return a.Scheduler.Start(a.ctx)
}

// Frame dispatches one animation frame at ts milliseconds. It returns the
// error that stopped the scheduler, if any.
func (a *App) Frame(ts float64) error {
	a.Realm.Frames().Dispatch(ts)
	a.Metrics.SetLiveHandles(a.Shim.Handles().Live())
	return a.Scheduler.Err()
}

// Running reports whether frames are still being scheduled.
func (a *App) Running() bool {
	return a.Scheduler != nil && !a.Scheduler.Stopped()
}

// Close stops the frame loop and releases the game, the guest and the
// executor if the App created it.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	var errs []error
	if a.Game != nil {
		if err := a.Game.Free(context.Background()); err != nil && !errors.Is(err, executor.ErrGameFreed) {
			errs = append(errs, fmt.Errorf("free game: %w", err))
		}
	}
	if a.Instance != nil {
		errs = append(errs, a.Instance.Close(context.Background()))
	}
	if a.ownsExec && a.exec != nil {
		errs = append(errs, a.exec.Close())
	}
	return errors.Join(errs...)
}
