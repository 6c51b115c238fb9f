// Package executor loads simulation modules into a WebAssembly runtime and
// exposes their entry points as Go methods.
//
// # Overview
//
// The executor manages module compilation, caching and instantiation. A
// loaded [Instance] is bound to a [capability.Shim], which provides the
// "host" import module; the guest must export the entry points listed in
// [RequiredExports].
//
// # Basic Usage
//
//	exec, err := executor.New(executor.WithDiskCache())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	inst, err := exec.Load(ctx, shim, wasm)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	game, err := inst.NewGame(ctx, canvasHandle)
//	game.SetGamepadState(ctx, false, true, false)
//	game.Update(ctx, 16.6)
//	game.Render(ctx)
//
// # Errors
//
// Missing or mistyped exports fail the load with errors wrapping
// [ErrRequiredExportMissing]. A guest that calls the throw intrinsic traps
// with a [capability.GuestError], which can be recovered with errors.As.
package executor
