package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/caffeineduck/wasmplay/capability"
	"github.com/caffeineduck/wasmplay/handle"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Instance is a loaded guest bound to a capability shim.
type Instance struct {
	shim   *capability.Shim
	host   api.Module
	guest  api.Module
	fns    map[string]api.Function
	log    *zap.Logger
	closed bool
}

// Module returns the guest module.
func (i *Instance) Module() api.Module {
	return i.guest
}

// Shim returns the shim the guest calls into.
func (i *Instance) Shim() *capability.Shim {
	return i.shim
}

// MemoryPages returns the current size of guest memory in 64KiB pages.
func (i *Instance) MemoryPages() uint32 {
	return i.guest.Memory().Size() / 65536
}

func (i *Instance) call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.closed {
		return nil, ErrClosed
	}
	res, err := i.fns[name].Call(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}

// Hello passes name to the guest's greeting entry point. The string is
// released once the call returns.
func (i *Instance) Hello(ctx context.Context, name string) error {
	if i.closed {
		return ErrClosed
	}
	codec := i.shim.Codec()
	ptr, n, err := codec.EncodeString(ctx, name)
	if err != nil {
		return fmt.Errorf("encode name: %w", err)
	}
	_, callErr := i.call(ctx, ExportHello, api.EncodeU32(ptr), api.EncodeU32(n))
	if err := codec.FreeString(ctx, ptr, n); err != nil {
		return errors.Join(callErr, fmt.Errorf("free name: %w", err))
	}
	return callErr
}

// NewGame creates a game drawing to canvas. Ownership of the canvas handle
// passes to the guest.
func (i *Instance) NewGame(ctx context.Context, canvas handle.Handle) (*Game, error) {
	res, err := i.call(ctx, ExportGameNew, api.EncodeU32(canvas))
	if err != nil {
		return nil, err
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return nil, fmt.Errorf("%s: guest returned a null game", ExportGameNew)
	}
	i.log.Debug("game created", zap.Uint32("ptr", ptr))
	return &Game{inst: i, ptr: ptr}, nil
}

// Close releases the guest and its bridge module.
func (i *Instance) Close(ctx context.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	return errors.Join(i.guest.Close(ctx), i.host.Close(ctx))
}
