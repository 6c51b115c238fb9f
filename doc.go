// Package wasmplay runs WebAssembly game modules against a browser-like host.
//
// # Overview
//
// A guest module imports a small set of canvas, keyboard and console
// functions from the "host" module and exports a game API (game_new,
// game_update, game_render and friends). wasmplay loads the module with
// wazero, serves those imports from a goja realm that models the DOM
// objects a browser would hand out, and drives the game from a window, a
// headless loop, a console or an HTTP server.
//
// # Basic Usage
//
//	a, err := app.New(ctx, app.Options{Module: wasm})
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	a.Start()
//	a.Keyboard.Down("ArrowRight")
//	for i := 1; i <= 60; i++ {
//	    a.Frame(float64(i) * 1000 / 60)
//	}
//
// # Packages
//
// The [handle] package maps host objects to 32-bit handles, [marshal] moves
// strings across guest memory, [capability] resolves host functions once
// and exposes them as wazero imports, [executor] compiles and loads guests,
// [input] merges keyboard and controller state and [scheduler] runs the
// per-frame poll, update and render cycle.
package wasmplay
