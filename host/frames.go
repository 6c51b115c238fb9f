package host

// FrameCallback receives the timestamp of the frame in milliseconds.
type FrameCallback func(ts float64)

// FrameQueue holds animation frame requests until the frontend dispatches the
// next frame. A callback requested while a dispatch is running is queued for
// the following dispatch, so a callback that re-requests itself never recurses.
type FrameQueue struct {
	next    uint64
	order   []uint64
	pending map[uint64]FrameCallback
}

// NewFrameQueue returns an empty queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{pending: make(map[uint64]FrameCallback)}
}

// Request registers cb for the next dispatch and returns its id. Ids start at 1.
func (q *FrameQueue) Request(cb FrameCallback) uint64 {
	q.next++
	q.pending[q.next] = cb
	q.order = append(q.order, q.next)
	return q.next
}

// Cancel removes a pending request. Unknown ids are ignored.
func (q *FrameQueue) Cancel(id uint64) {
	delete(q.pending, id)
}

// Pending reports the number of registered callbacks.
func (q *FrameQueue) Pending() int {
	return len(q.pending)
}

// Dispatch runs every callback registered before the call, in request order,
// and returns how many ran.
func (q *FrameQueue) Dispatch(ts float64) int {
	batch := q.order
	q.order = nil
	ran := 0
	for _, id := range batch {
		cb, ok := q.pending[id]
		if !ok {
			continue
		}
		delete(q.pending, id)
		cb(ts)
		ran++
	}
	return ran
}
