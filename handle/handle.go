// Package handle implements the table of opaque integer handles that a guest
// module uses to refer to host objects.
//
// The guest never sees a host reference, only a [Handle]. The first
// [ReservedCount] slots are fixed at construction and are never reissued:
//
//	0..31  undefined (scratch range)
//	32     undefined
//	33     null
//	34     true
//	35     false
//
// Dynamically added objects always receive an index >= ReservedCount. Freed
// slots are reused most-recently-freed first.
//
// A Table is not safe for concurrent use. It is meant to be mutated from the
// single goroutine that drives the guest.
package handle

// Handle is an index into a [Table].
type Handle = uint32

// Reserved handles.
const (
	Undefined Handle = 32
	Null      Handle = 33
	True      Handle = 34
	False     Handle = 35

	// ReservedCount is the size of the protected range [0, ReservedCount).
	ReservedCount = 36
)

// Constants supplies the values stored in the reserved slots.
type Constants[T any] struct {
	Undefined T
	Null      T
	True      T
	False     T
}

type slot[T any] struct {
	value T
	live  bool
}

// Table maps handles to host objects of type T.
type Table[T any] struct {
	slots []slot[T]
	free  []Handle
	zero  T
	live  int
}

// New returns a table with the reserved range populated from c.
func New[T any](c Constants[T]) *Table[T] {
	t := &Table[T]{slots: make([]slot[T], ReservedCount, 64)}
	for i := 0; i < int(Undefined); i++ {
		t.slots[i] = slot[T]{value: c.Undefined, live: true}
	}
	t.slots[Undefined] = slot[T]{value: c.Undefined, live: true}
	t.slots[Null] = slot[T]{value: c.Null, live: true}
	t.slots[True] = slot[T]{value: c.True, live: true}
	t.slots[False] = slot[T]{value: c.False, live: true}
	return t
}

// Add stores obj and returns its handle.
func (t *Table[T]) Add(obj T) Handle {
	t.live++
	if n := len(t.free); n > 0 {
		h := t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[h] = slot[T]{value: obj, live: true}
		return h
	}
	t.slots = append(t.slots, slot[T]{value: obj, live: true})
	return Handle(len(t.slots) - 1)
}

// Get borrows the object behind h. h must be live; a freed or unknown handle
// yields the zero value.
func (t *Table[T]) Get(h Handle) T {
	if int(h) >= len(t.slots) {
		return t.zero
	}
	return t.slots[h].value
}

// Lookup is the checked form of Get.
func (t *Table[T]) Lookup(h Handle) (T, bool) {
	if int(h) >= len(t.slots) || !t.slots[h].live {
		return t.zero, false
	}
	return t.slots[h].value, true
}

// Clone adds a second handle for the object behind h.
func (t *Table[T]) Clone(h Handle) Handle {
	return t.Add(t.Get(h))
}

// Drop releases h. Reserved handles and handles that are not live are ignored.
func (t *Table[T]) Drop(h Handle) {
	if Reserved(h) || int(h) >= len(t.slots) || !t.slots[h].live {
		return
	}
	t.slots[h] = slot[T]{}
	t.free = append(t.free, h)
	t.live--
}

// Live reports the number of dynamically added handles currently in use.
func (t *Table[T]) Live() int {
	return t.live
}

// Len reports the size of the arena including reserved and free slots.
func (t *Table[T]) Len() int {
	return len(t.slots)
}

// Reserved reports whether h lies in the protected range.
func Reserved(h Handle) bool {
	return h < ReservedCount
}
