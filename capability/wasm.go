package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/caffeineduck/wasmplay/marshal"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// ModuleName is the import module name guests use for the bridge.
const ModuleName = "host"

// Guest allocator exports.
const (
	ExportMalloc = "malloc"
	ExportFree   = "free"
)

var (
	i32 = api.ValueTypeI32
	f64 = api.ValueTypeF64
)

var (
	// ErrNoAllocator is returned when a guest does not export malloc and free.
	ErrNoAllocator = errors.New("guest does not export malloc/free")

	// ErrNoMemory is returned when a guest does not export its memory.
	ErrNoMemory = errors.New("guest does not export memory")
)

// GuestAllocator calls the guest's exported allocator.
type GuestAllocator struct {
	malloc api.Function
	free   api.Function
}

// NewGuestAllocator looks up the allocator exports of mod.
func NewGuestAllocator(mod api.Module) (*GuestAllocator, error) {
	malloc := mod.ExportedFunction(ExportMalloc)
	free := mod.ExportedFunction(ExportFree)
	if malloc == nil || free == nil {
		return nil, ErrNoAllocator
	}
	return &GuestAllocator{malloc: malloc, free: free}, nil
}

// Malloc allocates size bytes in guest memory.
func (a *GuestAllocator) Malloc(ctx context.Context, size uint32) (uint32, error) {
	res, err := a.malloc.Call(ctx, api.EncodeU32(size))
	if err != nil {
		return 0, fmt.Errorf("guest malloc(%d): %w", size, err)
	}
	return api.DecodeU32(res[0]), nil
}

// Free releases a block obtained from Malloc.
func (a *GuestAllocator) Free(ctx context.Context, ptr, size uint32) error {
	if _, err := a.free.Call(ctx, api.EncodeU32(ptr), api.EncodeU32(size)); err != nil {
		return fmt.Errorf("guest free(%d, %d): %w", ptr, size, err)
	}
	return nil
}

// Import describes one host function the bridge exports to guests.
type Import struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	fn      api.GoModuleFunc
}

// Imports lists the bridge functions in export order.
func (s *Shim) Imports() []Import {
	u32 := func(stack []uint64, i int) uint32 { return api.DecodeU32(stack[i]) }
	f := func(stack []uint64, i int) float64 { return api.DecodeF64(stack[i]) }

	return []Import{
		{"get_context", []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.bind(mod)
			h, err := s.GetContext(u32(stack, 0), u32(stack, 1), u32(stack, 2), u32(stack, 3))
			must(err)
			stack[0] = api.EncodeU32(h)
		}},
		{"canvas_width", []api.ValueType{i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			w, err := s.Width(u32(stack, 0))
			must(err)
			stack[0] = api.EncodeI32(w)
		}},
		{"canvas_height", []api.ValueType{i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			h, err := s.Height(u32(stack, 0))
			must(err)
			stack[0] = api.EncodeI32(h)
		}},
		{"set_fill_style", []api.ValueType{i32, i32, i32}, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.bind(mod)
			must(s.SetFillStyle(u32(stack, 0), u32(stack, 1), u32(stack, 2)))
		}},
		{"set_font", []api.ValueType{i32, i32, i32}, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.bind(mod)
			must(s.SetFont(u32(stack, 0), u32(stack, 1), u32(stack, 2)))
		}},
		{"clear_rect", []api.ValueType{i32, f64, f64, f64, f64}, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			must(s.ClearRect(u32(stack, 0), f(stack, 1), f(stack, 2), f(stack, 3), f(stack, 4)))
		}},
		{"fill_rect", []api.ValueType{i32, f64, f64, f64, f64}, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			must(s.FillRect(u32(stack, 0), f(stack, 1), f(stack, 2), f(stack, 3), f(stack, 4)))
		}},
		{"fill_text", []api.ValueType{i32, i32, i32, f64, f64, i32}, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.bind(mod)
			must(s.FillText(u32(stack, 0), u32(stack, 1), u32(stack, 2), f(stack, 3), f(stack, 4), u32(stack, 5)))
		}},
		{"key", []api.ValueType{i32, i32}, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.bind(mod)
			must(s.Key(ctx, u32(stack, 0), u32(stack, 1)))
		}},
		{"log", []api.ValueType{i32}, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			must(s.Log(u32(stack, 0)))
		}},
		{"random", nil, []api.ValueType{f64}, func(ctx context.Context, mod api.Module, stack []uint64) {
			r, err := s.Random()
			must(err)
			stack[0] = api.EncodeF64(r)
		}},
		{"object_drop_ref", []api.ValueType{i32}, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.DropRef(u32(stack, 0))
		}},
		{"object_clone_ref", []api.ValueType{i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(s.CloneRef(u32(stack, 0)))
		}},
		{"string_new", []api.ValueType{i32, i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.bind(mod)
			h, err := s.StringNew(u32(stack, 0), u32(stack, 1))
			must(err)
			stack[0] = api.EncodeU32(h)
		}},
		{"number_get", []api.ValueType{i32, i32}, []api.ValueType{f64}, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.bind(mod)
			n, err := s.NumberGet(u32(stack, 0), u32(stack, 1))
			must(err)
			stack[0] = api.EncodeF64(n)
		}},
		{"boolean_get", []api.ValueType{i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(s.BooleanGet(u32(stack, 0)))
		}},
		{"is_null", []api.ValueType{i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(marshal.FromBool(s.IsNull(u32(stack, 0))))
		}},
		{"is_undefined", []api.ValueType{i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(marshal.FromBool(s.IsUndefined(u32(stack, 0))))
		}},
		{"is_symbol", []api.ValueType{i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(marshal.FromBool(s.IsSymbol(u32(stack, 0))))
		}},
		{"string_get", []api.ValueType{i32, i32}, []api.ValueType{i32}, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.bind(mod)
			ptr, err := s.StringGet(ctx, u32(stack, 0), u32(stack, 1))
			must(err)
			stack[0] = api.EncodeU32(ptr)
		}},
		{"throw", []api.ValueType{i32, i32}, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			s.bind(mod)
			panic(s.Throw(u32(stack, 0), u32(stack, 1)))
		}},
	}
}

// Instantiate registers the bridge as the "host" module in rt. It must be
// instantiated before any guest that imports it.
func (s *Shim) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	b := rt.NewHostModuleBuilder(ModuleName)
	for _, imp := range s.Imports() {
		b.NewFunctionBuilder().
			WithGoModuleFunction(imp.fn, imp.Params, imp.Results).
			Export(imp.Name)
	}
	mod, err := b.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s module: %w", ModuleName, err)
	}
	return mod, nil
}

// AttachModule binds the shim to the memory and allocator of a guest.
func (s *Shim) AttachModule(mod api.Module) (*marshal.Codec, error) {
	if s.codec != nil && s.bound == mod {
		return s.codec, nil
	}
	mem := mod.Memory()
	if mem == nil {
		return nil, ErrNoMemory
	}
	alloc, err := NewGuestAllocator(mod)
	if err != nil {
		return nil, err
	}
	s.codec = marshal.New(mem, alloc)
	s.bound = mod
	return s.codec, nil
}

// bind attaches the calling guest on first use.
func (s *Shim) bind(mod api.Module) {
	_, err := s.AttachModule(mod)
	must(err)
}

// must turns bridge errors into a guest trap.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Signatures lists the bridge imports without a shim behind them. The
// returned entries must not be instantiated.
func Signatures() []Import {
	return (&Shim{}).Imports()
}
