package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/caffeineduck/wasmplay/host"
	"github.com/caffeineduck/wasmplay/input"
	"github.com/caffeineduck/wasmplay/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
	snap  input.Snapshot
	fail  string
}

func (r *recorder) Poll() input.Snapshot {
	r.calls = append(r.calls, "poll")
	return r.snap
}

func (r *recorder) SetGamepadState(_ context.Context, left, right, shoot bool) error {
	r.calls = append(r.calls, fmt.Sprintf("pad %t %t %t", left, right, shoot))
	return r.err("pad")
}

func (r *recorder) Update(_ context.Context, ts float64) error {
	r.calls = append(r.calls, fmt.Sprintf("update %.1f", ts))
	return r.err("update")
}

func (r *recorder) Render(context.Context) error {
	r.calls = append(r.calls, "render")
	return r.err("render")
}

func (r *recorder) err(step string) error {
	if r.fail == step {
		return errors.New(step + " broke")
	}
	return nil
}

func TestFrameOrdering(t *testing.T) {
	frames := host.NewFrameQueue()
	rec := &recorder{snap: input.Snapshot{Left: true}}
	s := New(frames, rec, rec)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, frames.Pending())

	for _, ts := range []float64{16.6, 33.2, 50.0} {
		assert.Equal(t, 1, frames.Dispatch(ts))
	}

	assert.Equal(t, []string{
		"poll", "pad true false false", "update 16.6", "render",
		"poll", "pad true false false", "update 33.2", "render",
		"poll", "pad true false false", "update 50.0", "render",
	}, rec.calls)
	assert.Equal(t, uint64(3), s.Frames())
	assert.Equal(t, 1, frames.Pending())
}

func TestTickRequestsNextFrameWithoutRecursion(t *testing.T) {
	frames := host.NewFrameQueue()
	rec := &recorder{}
	s := New(frames, rec, rec)
	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, 1, frames.Dispatch(1))
	assert.Equal(t, uint64(1), s.Frames())
}

func TestStartTwice(t *testing.T) {
	frames := host.NewFrameQueue()
	rec := &recorder{}
	s := New(frames, rec, rec)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, frames.Pending())
}

func TestStop(t *testing.T) {
	frames := host.NewFrameQueue()
	rec := &recorder{}
	s := New(frames, rec, rec)
	require.NoError(t, s.Start(context.Background()))
	frames.Dispatch(16.6)

	s.Stop()
	assert.True(t, s.Stopped())
	assert.Equal(t, 0, frames.Pending())
	assert.Equal(t, 0, frames.Dispatch(33.2))

	s.Tick(50)
	assert.Len(t, rec.calls, 4)
	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
	assert.NoError(t, s.Err())
}

func TestStopDuringFrame(t *testing.T) {
	frames := host.NewFrameQueue()
	rec := &recorder{}
	var s *Scheduler
	sim := &stopping{recorder: rec, stop: func() { s.Stop() }}
	s = New(frames, rec, sim)
	require.NoError(t, s.Start(context.Background()))

	frames.Dispatch(16.6)
	assert.True(t, s.Stopped())
	assert.Equal(t, 0, frames.Pending())
}

type stopping struct {
	*recorder
	stop func()
}

func (s *stopping) Render(ctx context.Context) error {
	s.stop()
	return s.recorder.Render(ctx)
}

func TestGuestFailureStops(t *testing.T) {
	for _, step := range []string{"pad", "update", "render"} {
		t.Run(step, func(t *testing.T) {
			frames := host.NewFrameQueue()
			rec := &recorder{fail: step}
			s := New(frames, rec, rec)
			require.NoError(t, s.Start(context.Background()))

			frames.Dispatch(16.6)
			assert.True(t, s.Stopped())
			require.Error(t, s.Err())
			assert.Contains(t, s.Err().Error(), step+" broke")
			assert.Equal(t, 0, frames.Pending())
			assert.Equal(t, uint64(0), s.Frames())
		})
	}
}

func TestUpdateFailureSkipsRender(t *testing.T) {
	frames := host.NewFrameQueue()
	rec := &recorder{fail: "update"}
	s := New(frames, rec, rec)
	require.NoError(t, s.Start(context.Background()))
	frames.Dispatch(16.6)
	assert.NotContains(t, rec.calls, "render")
}

func TestCancelledContextStops(t *testing.T) {
	frames := host.NewFrameQueue()
	rec := &recorder{}
	s := New(frames, rec, rec)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	frames.Dispatch(16.6)
	assert.Empty(t, rec.calls)
	assert.ErrorIs(t, s.Err(), context.Canceled)
	assert.True(t, s.Stopped())
}

func TestMetricsRecorded(t *testing.T) {
	frames := host.NewFrameQueue()
	rec := &recorder{}
	m := metrics.New()
	s := New(frames, rec, rec, WithMetrics(m))
	require.NoError(t, s.Start(context.Background()))

	frames.Dispatch(1)
	frames.Dispatch(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesTotal))
}
