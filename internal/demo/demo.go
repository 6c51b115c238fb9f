// Package demo holds the built-in simulation module used when no module file
// is given. It is written in WebAssembly text format and compiled on first use.
package demo

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/wippyai/wasm-runtime/wat"
)

//go:embed demo.wat
var source string

// Exported globals the demo maintains for observers.
const (
	GlobalFrames  = "frames"
	GlobalFaults  = "faults"
	GlobalPlayerX = "player_x"
	GlobalShotY   = "shot_y"
)

var compile = sync.OnceValues(func() ([]byte, error) {
	bin, err := wat.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile demo module: %w", err)
	}
	return bin, nil
})

// Source returns the module text.
func Source() string {
	return source
}

// Module returns the compiled module binary.
func Module() ([]byte, error) {
	return compile()
}
