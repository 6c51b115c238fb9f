package executor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/caffeineduck/wasmplay/capability"
	"github.com/tetratelabs/wazero/api"
)

// ErrUnknownImport is reported for guest imports the bridge does not provide.
var ErrUnknownImport = errors.New("unknown import")

// Symbol is one imported or exported function of a module.
type Symbol struct {
	Module  string
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

func (s Symbol) String() string {
	name := s.Name
	if s.Module != "" {
		name = s.Module + "." + s.Name
	}
	return name + Signature(s.Params, s.Results)
}

// Report describes a module's interface and how it matches the bridge.
type Report struct {
	Imports  []Symbol
	Exports  []Symbol
	Memories []string
	Problems []error
}

// OK reports whether the module can be loaded.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Inspect compiles wasm and checks its imports and exports against the
// bridge. Problems are collected in the report; the returned error is set
// only when the module cannot be compiled.
func (e *Executor) Inspect(ctx context.Context, wasm []byte) (*Report, error) {
	compiled, err := e.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}

	bridge := make(map[string]capability.Import)
	for _, imp := range capability.Signatures() {
		bridge[imp.Name] = imp
	}

	r := &Report{}
	for _, def := range compiled.ImportedFunctions() {
		mod, name, _ := def.Import()
		sym := Symbol{Module: mod, Name: name, Params: def.ParamTypes(), Results: def.ResultTypes()}
		r.Imports = append(r.Imports, sym)

		if mod != capability.ModuleName {
			continue
		}
		want, ok := bridge[name]
		switch {
		case !ok:
			r.Problems = append(r.Problems, fmt.Errorf("%w: %s", ErrUnknownImport, sym))
		case !slices.Equal(want.Params, sym.Params) || !slices.Equal(want.Results, sym.Results):
			r.Problems = append(r.Problems, fmt.Errorf("import %s: want %s", sym, Signature(want.Params, want.Results)))
		}
	}

	for name, def := range compiled.ExportedFunctions() {
		r.Exports = append(r.Exports, Symbol{Name: name, Params: def.ParamTypes(), Results: def.ResultTypes()})
	}
	sort.Slice(r.Exports, func(i, j int) bool { return r.Exports[i].Name < r.Exports[j].Name })
	for name := range compiled.ExportedMemories() {
		r.Memories = append(r.Memories, name)
	}
	sort.Strings(r.Memories)

	if err := CheckExports(compiled); err != nil {
		r.Problems = append(r.Problems, unjoin(err)...)
	}
	return r, nil
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
