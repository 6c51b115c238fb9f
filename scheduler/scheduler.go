// Package scheduler drives the per-frame cycle: poll input, push the merged
// snapshot to the simulation, update, render and request the next frame.
//
// The scheduler never calls itself. Each frame is requested from a [Frames]
// queue whose dispatch runs callbacks registered during a dispatch on the
// following one.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caffeineduck/wasmplay/host"
	"github.com/caffeineduck/wasmplay/input"
	"github.com/caffeineduck/wasmplay/internal/metrics"
	"go.uber.org/zap"
)

// ErrStopped is returned by Start once the scheduler has been stopped.
var ErrStopped = errors.New("scheduler stopped")

// Frames registers animation frame callbacks.
type Frames interface {
	Request(cb host.FrameCallback) uint64
	Cancel(id uint64)
}

// Poller produces the merged controller snapshot for a frame.
type Poller interface {
	Poll() input.Snapshot
}

// Simulation is the per-frame surface of a running game.
type Simulation interface {
	SetGamepadState(ctx context.Context, left, right, shoot bool) error
	Update(ctx context.Context, ts float64) error
	Render(ctx context.Context) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithMetrics records frame counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// Scheduler runs one simulation frame per dispatched animation frame.
// It is not safe for concurrent use.
type Scheduler struct {
	frames  Frames
	input   Poller
	sim     Simulation
	log     *zap.Logger
	metrics *metrics.Metrics

	ctx     context.Context
	pending uint64
	started bool
	stopped bool
	err     error
	count   uint64
}

// New returns a scheduler that has not requested any frame yet.
func New(frames Frames, in Poller, sim Simulation, opts ...Option) *Scheduler {
	s := &Scheduler{
		frames: frames,
		input:  in,
		sim:    sim,
		log:    zap.NewNop(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("scheduler")
	return s
}

// Start requests the first frame. ctx is used for every guest call made by
// later ticks. Starting twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.started = true
	s.ctx = ctx
	s.pending = s.frames.Request(s.Tick)
	s.log.Debug("started")
	return nil
}

// Tick runs one frame at timestamp ts in milliseconds and requests the next.
// It does nothing once the scheduler is stopped.
func (s *Scheduler) Tick(ts float64) {
	s.pending = 0
	if s.stopped {
		return
	}
	if err := s.ctx.Err(); err != nil {
		s.fail(err)
		return
	}

	start := time.Now()
	snap := s.input.Poll()
	if err := s.sim.SetGamepadState(s.ctx, snap.Left, snap.Right, snap.Shoot); err != nil {
		s.fail(fmt.Errorf("set gamepad state: %w", err))
		return
	}
	if err := s.sim.Update(s.ctx, ts); err != nil {
		s.fail(fmt.Errorf("update: %w", err))
		return
	}
	if err := s.sim.Render(s.ctx); err != nil {
		s.fail(fmt.Errorf("render: %w", err))
		return
	}

	elapsed := time.Since(start)
	s.count++
	s.metrics.RecordFrame(elapsed)
	s.log.Debug("frame",
		zap.Uint64("frame", s.count),
		zap.Float64("ts", ts),
		zap.Stringer("input", snap),
		zap.Duration("took", elapsed))

	if !s.stopped {
		s.pending = s.frames.Request(s.Tick)
	}
}

func (s *Scheduler) fail(err error) {
	s.err = err
	s.log.Error("frame failed, stopping", zap.Error(err))
	s.Stop()
}

// Stop cancels the pending frame. Later ticks do nothing and Start returns
// ErrStopped.
func (s *Scheduler) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	if s.pending != 0 {
		s.frames.Cancel(s.pending)
		s.pending = 0
	}
	s.log.Debug("stopped", zap.Uint64("frames", s.count))
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool {
	return s.stopped
}

// Err returns the error that stopped the scheduler, if any.
func (s *Scheduler) Err() error {
	return s.err
}

// Frames returns the number of completed frames.
func (s *Scheduler) Frames() uint64 {
	return s.count
}
