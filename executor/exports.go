package executor

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// ErrRequiredExportMissing is returned when a guest lacks an entry point the
// host calls, or exports it with the wrong signature.
var ErrRequiredExportMissing = errors.New("required export missing")

// Guest exports called by the host.
const (
	ExportMemory         = "memory"
	ExportMalloc         = "malloc"
	ExportFree           = "free"
	ExportHello          = "hello"
	ExportGameNew        = "game_new"
	ExportGameKeyboard   = "game_keyboard_event"
	ExportGameUpdate     = "game_update"
	ExportGameRender     = "game_render"
	ExportGameSetGamepad = "game_set_gamepad_state"
	ExportGameFree       = "game_free"
)

// Export describes one required guest export. Memory has no signature.
type Export struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

var (
	i32 = api.ValueTypeI32
	f64 = api.ValueTypeF64
)

// RequiredExports lists the guest exports checked at load.
var RequiredExports = []Export{
	{Name: ExportMemory},
	{Name: ExportMalloc, Params: []api.ValueType{i32}, Results: []api.ValueType{i32}},
	{Name: ExportFree, Params: []api.ValueType{i32, i32}},
	{Name: ExportHello, Params: []api.ValueType{i32, i32}},
	{Name: ExportGameNew, Params: []api.ValueType{i32}, Results: []api.ValueType{i32}},
	{Name: ExportGameKeyboard, Params: []api.ValueType{i32, i32, i32}},
	{Name: ExportGameUpdate, Params: []api.ValueType{i32, f64}},
	{Name: ExportGameRender, Params: []api.ValueType{i32}},
	{Name: ExportGameSetGamepad, Params: []api.ValueType{i32, i32, i32, i32}},
	{Name: ExportGameFree, Params: []api.ValueType{i32}},
}

// ExportError describes one unusable guest export.
type ExportError struct {
	Name   string
	Reason string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %q: %s", e.Name, e.Reason)
}

func (e *ExportError) Unwrap() error {
	return ErrRequiredExportMissing
}

// CheckExports reports every required export that compiled lacks or declares
// with a different signature.
func CheckExports(compiled wazero.CompiledModule) error {
	funcs := compiled.ExportedFunctions()
	var errs []error
	for _, want := range RequiredExports {
		if want.Name == ExportMemory {
			if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
				errs = append(errs, &ExportError{Name: want.Name, Reason: "not exported"})
			}
			continue
		}
		def, ok := funcs[want.Name]
		if !ok {
			errs = append(errs, &ExportError{Name: want.Name, Reason: "not exported"})
			continue
		}
		if !slices.Equal(def.ParamTypes(), want.Params) || !slices.Equal(def.ResultTypes(), want.Results) {
			errs = append(errs, &ExportError{
				Name: want.Name,
				Reason: fmt.Sprintf("signature %s, want %s",
					Signature(def.ParamTypes(), def.ResultTypes()),
					Signature(want.Params, want.Results)),
			})
		}
	}
	return errors.Join(errs...)
}

// Signature formats a function type as "(i32, f64) -> i32".
func Signature(params, results []api.ValueType) string {
	names := func(ts []api.ValueType) string {
		s := make([]string, len(ts))
		for i, t := range ts {
			s[i] = api.ValueTypeName(t)
		}
		return strings.Join(s, ", ")
	}
	sig := "(" + names(params) + ")"
	if len(results) > 0 {
		sig += " -> " + names(results)
	}
	return sig
}
