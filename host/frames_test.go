package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameQueueDispatchOrder(t *testing.T) {
	q := NewFrameQueue()
	var got []string

	q.Request(func(float64) { got = append(got, "a") })
	q.Request(func(float64) { got = append(got, "b") })

	assert.Equal(t, 2, q.Dispatch(16))
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Zero(t, q.Pending())
}

func TestFrameQueueRequestDuringDispatchRunsNextFrame(t *testing.T) {
	q := NewFrameQueue()
	var stamps []float64

	var loop FrameCallback
	loop = func(ts float64) {
		stamps = append(stamps, ts)
		q.Request(loop)
	}
	q.Request(loop)

	q.Dispatch(1)
	assert.Equal(t, []float64{1}, stamps)
	assert.Equal(t, 1, q.Pending())

	q.Dispatch(2)
	assert.Equal(t, []float64{1, 2}, stamps)
}

func TestFrameQueueCancel(t *testing.T) {
	q := NewFrameQueue()
	ran := false

	id := q.Request(func(float64) { ran = true })
	q.Cancel(id)
	q.Cancel(999)

	assert.Zero(t, q.Dispatch(1))
	assert.False(t, ran)
}

func TestFrameQueueCancelWithinBatch(t *testing.T) {
	q := NewFrameQueue()
	ran := false

	var second uint64
	q.Request(func(float64) { q.Cancel(second) })
	second = q.Request(func(float64) { ran = true })

	assert.Equal(t, 1, q.Dispatch(1))
	assert.False(t, ran)
}
