package marshal

import (
	"encoding/binary"
	"fmt"
)

// Memory is the guest linear memory. It is satisfied by wazero's api.Memory.
//
// Read must return a slice that aliases the memory buffer; writes through it
// are visible to the guest until the buffer is replaced by a grow.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
}

// View is a cached byte window over guest memory. The cached slice is dropped
// whenever the memory size differs from the size it was derived at, or when
// Invalidate is called after a guest call that may have grown memory.
type View struct {
	mem  Memory
	buf  []byte
	size uint32
}

// NewView returns a view over mem. Nothing is derived until first use.
func NewView(mem Memory) *View {
	return &View{mem: mem}
}

// Invalidate forces the next access to re-derive the buffer.
func (v *View) Invalidate() {
	v.buf = nil
}

// Bytes returns the current buffer, re-deriving it when stale.
func (v *View) Bytes() []byte {
	size := v.mem.Size()
	if v.buf == nil || size != v.size {
		buf, ok := v.mem.Read(0, size)
		if !ok {
			return nil
		}
		v.buf = buf
		v.size = size
	}
	return v.buf
}

func (v *View) span(offset, n uint32) ([]byte, error) {
	buf := v.Bytes()
	end := uint64(offset) + uint64(n)
	if end > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: [%d, %d) exceeds %d bytes", ErrOutOfRange, offset, end, len(buf))
	}
	return buf[offset:end], nil
}

// Read copies n bytes starting at offset.
func (v *View) Read(offset, n uint32) ([]byte, error) {
	b, err := v.span(offset, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Write copies p into memory at offset.
func (v *View) Write(offset uint32, p []byte) error {
	b, err := v.span(offset, uint32(len(p)))
	if err != nil {
		return err
	}
	copy(b, p)
	return nil
}

// Uint32 reads a little-endian word.
func (v *View) Uint32(offset uint32) (uint32, error) {
	b, err := v.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PutUint32 writes a little-endian word.
func (v *View) PutUint32(offset, val uint32) error {
	b, err := v.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, val)
	return nil
}

// PutUint8 writes one byte.
func (v *View) PutUint8(offset uint32, val uint8) error {
	b, err := v.span(offset, 1)
	if err != nil {
		return err
	}
	b[0] = val
	return nil
}
