package executor

import (
	"context"

	"github.com/caffeineduck/wasmplay/handle"
	"github.com/caffeineduck/wasmplay/marshal"
	"github.com/tetratelabs/wazero/api"
)

// Game is a simulation created by the guest. All calls run on the caller's
// goroutine and must not overlap.
type Game struct {
	inst  *Instance
	ptr   uint32
	freed bool
}

// Ptr returns the guest address of the game.
func (g *Game) Ptr() uint32 {
	return g.ptr
}

func (g *Game) call(ctx context.Context, name string, params ...uint64) error {
	if g.freed {
		return ErrGameFreed
	}
	_, err := g.inst.call(ctx, name, append([]uint64{api.EncodeU32(g.ptr)}, params...)...)
	return err
}

// KeyboardEvent forwards one key transition. Ownership of ev passes to the
// guest.
func (g *Game) KeyboardEvent(ctx context.Context, pressed bool, ev handle.Handle) error {
	return g.call(ctx, ExportGameKeyboard, api.EncodeU32(marshal.FromBool(pressed)), api.EncodeU32(ev))
}

// Update advances the simulation to timestamp ts in milliseconds.
func (g *Game) Update(ctx context.Context, ts float64) error {
	return g.call(ctx, ExportGameUpdate, api.EncodeF64(ts))
}

// Render draws the current state.
func (g *Game) Render(ctx context.Context) error {
	return g.call(ctx, ExportGameRender)
}

// SetGamepadState pushes the merged controller snapshot.
func (g *Game) SetGamepadState(ctx context.Context, left, right, shoot bool) error {
	return g.call(ctx, ExportGameSetGamepad,
		api.EncodeU32(marshal.FromBool(left)),
		api.EncodeU32(marshal.FromBool(right)),
		api.EncodeU32(marshal.FromBool(shoot)))
}

// Free releases the game. The game counts as freed even when the guest
// traps. Later calls return ErrGameFreed.
func (g *Game) Free(ctx context.Context) error {
	if g.freed {
		return ErrGameFreed
	}
	err := g.call(ctx, ExportGameFree)
	g.freed = true
	return err
}
