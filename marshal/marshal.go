// Package marshal moves strings and scalars between host values and guest
// linear memory.
//
// Strings cross as (pointer, length) pairs of UTF-8 bytes. A string encoded
// for the guest lives in a block returned by the guest's own allocator and is
// owned by the guest from then on. A string decoded from the guest is copied
// out and shares nothing with guest memory.
//
// Any call into the guest can grow its memory and replace the buffer, so the
// [Codec] drops its cached [View] after every allocation.
package marshal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/caffeineduck/wasmplay/handle"
)

var (
	// ErrOutOfRange is returned when an access falls outside guest memory.
	ErrOutOfRange = errors.New("marshal: access outside guest memory")

	// ErrAllocFailed is returned when the guest allocator yields no block.
	ErrAllocFailed = errors.New("marshal: guest allocation failed")
)

// Allocator is the guest's exported allocator.
type Allocator interface {
	Malloc(ctx context.Context, size uint32) (uint32, error)
	Free(ctx context.Context, ptr, size uint32) error
}

// Codec encodes and decodes values against one guest instance.
type Codec struct {
	view  *View
	alloc Allocator
}

// New returns a codec over mem that allocates through alloc.
func New(mem Memory, alloc Allocator) *Codec {
	return &Codec{view: NewView(mem), alloc: alloc}
}

// View exposes the codec's memory view.
func (c *Codec) View() *View {
	return c.view
}

// EncodeString copies s into a fresh guest block and returns its location.
// The empty string is returned as (0, 0) without allocating.
func (c *Codec) EncodeString(ctx context.Context, s string) (ptr, n uint32, err error) {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	if len(s) == 0 {
		return 0, 0, nil
	}
	n = uint32(len(s))
	ptr, err = c.alloc.Malloc(ctx, n)
	c.view.Invalidate()
	if err != nil {
		return 0, 0, fmt.Errorf("encode string: %w", err)
	}
	if ptr == 0 {
		return 0, 0, fmt.Errorf("encode string: %w (%d bytes)", ErrAllocFailed, n)
	}
	if err := c.view.Write(ptr, []byte(s)); err != nil {
		return 0, 0, fmt.Errorf("encode string: %w", err)
	}
	return ptr, n, nil
}

// DecodeString copies n bytes at ptr out of guest memory. Invalid UTF-8 is
// replaced with U+FFFD.
func (c *Codec) DecodeString(ptr, n uint32) (string, error) {
	if n == 0 {
		return "", nil
	}
	b, err := c.view.Read(ptr, n)
	if err != nil {
		return "", fmt.Errorf("decode string: %w", err)
	}
	if !utf8.Valid(b) {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError)), nil
	}
	return string(b), nil
}

// FreeString returns a block obtained from EncodeString to the guest.
func (c *Codec) FreeString(ctx context.Context, ptr, n uint32) error {
	if n == 0 {
		return nil
	}
	err := c.alloc.Free(ctx, ptr, n)
	c.view.Invalidate()
	return err
}

// WriteStringResult encodes s and stores (ptr, len) as two words at retptr.
func (c *Codec) WriteStringResult(ctx context.Context, retptr uint32, s string) error {
	ptr, n, err := c.EncodeString(ctx, s)
	if err != nil {
		return err
	}
	if err := c.view.PutUint32(retptr, ptr); err != nil {
		return err
	}
	return c.view.PutUint32(retptr+4, n)
}

// WriteException records a fault in the two-word slot at exnptr.
func (c *Codec) WriteException(exnptr uint32, h handle.Handle) error {
	if err := c.view.PutUint32(exnptr, 1); err != nil {
		return fmt.Errorf("write exception slot: %w", err)
	}
	if err := c.view.PutUint32(exnptr+4, h); err != nil {
		return fmt.Errorf("write exception slot: %w", err)
	}
	return nil
}

// ReadU32 reads a word at offset.
func (c *Codec) ReadU32(offset uint32) (uint32, error) {
	return c.view.Uint32(offset)
}

// WriteU32 writes a word at offset.
func (c *Codec) WriteU32(offset, v uint32) error {
	return c.view.PutUint32(offset, v)
}

// WriteU8 writes a byte at offset.
func (c *Codec) WriteU8(offset uint32, v uint8) error {
	return c.view.PutUint8(offset, v)
}

// Bool converts a guest i32 to a bool.
func Bool(v uint32) bool {
	return v != 0
}

// FromBool converts a bool to a guest i32.
func FromBool(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
