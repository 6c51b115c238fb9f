package capability

import (
	"errors"
	"fmt"

	"github.com/caffeineduck/wasmplay/host"
	"github.com/dop251/goja"
)

// ErrCapabilityMissing is wrapped by every [ResolveError].
var ErrCapabilityMissing = errors.New("required host capability missing")

// Kind says which part of a property descriptor a capability binds to.
type Kind int

const (
	Method Kind = iota
	Getter
	Setter
)

func (k Kind) String() string {
	switch k {
	case Method:
		return "method"
	case Getter:
		return "getter"
	case Setter:
		return "setter"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

func (k Kind) field() string {
	switch k {
	case Getter:
		return "get"
	case Setter:
		return "set"
	default:
		return "value"
	}
}

// Requirement names one host capability and where to find it. Interface is
// a prototype name from the realm, or a global object name when Global is set.
type Requirement struct {
	Name      string
	Interface string
	Member    string
	Kind      Kind
	Global    bool
}

// Capability names.
const (
	CanvasGetContext = "canvas.getContext"
	CanvasWidth      = "canvas.width"
	CanvasHeight     = "canvas.height"
	CanvasFillStyle  = "canvas.fillStyle"
	CanvasFont       = "canvas.font"
	CanvasClearRect  = "canvas.clearRect"
	CanvasFillRect   = "canvas.fillRect"
	CanvasFillText   = "canvas.fillText"
	KeyboardKey      = "keyboard.key"
	ConsoleLog       = "console.log"
	MathRandom       = "math.random"
)

// Required is the fixed set of capabilities a guest may invoke.
var Required = []Requirement{
	{CanvasGetContext, host.ProtoCanvasElement, "getContext", Method, false},
	{CanvasWidth, host.ProtoCanvasElement, "width", Getter, false},
	{CanvasHeight, host.ProtoCanvasElement, "height", Getter, false},
	{CanvasFillStyle, host.ProtoRenderContext2D, "fillStyle", Setter, false},
	{CanvasFont, host.ProtoRenderContext2D, "font", Setter, false},
	{CanvasClearRect, host.ProtoRenderContext2D, "clearRect", Method, false},
	{CanvasFillRect, host.ProtoRenderContext2D, "fillRect", Method, false},
	{CanvasFillText, host.ProtoRenderContext2D, "fillText", Method, false},
	{KeyboardKey, host.ProtoKeyboardEvent, "key", Getter, false},
	{ConsoleLog, "console", "log", Method, true},
	{MathRandom, "Math", "random", Method, true},
}

// ResolveError reports a capability that could not be bound.
type ResolveError struct {
	Capability string
	Interface  string
	Member     string
	Kind       Kind
	Reason     string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: %s.%s (%s): %s", e.Capability, e.Interface, e.Member, e.Kind, e.Reason)
}

func (e *ResolveError) Unwrap() error {
	return ErrCapabilityMissing
}

// Binding is a resolved capability. Receiver is fixed for global
// capabilities and nil for prototype members, which take the receiver at
// call time.
type Binding struct {
	Requirement
	Fn       goja.Callable
	Receiver goja.Value
}

// Table holds resolved capabilities. It is read-only once built.
type Table struct {
	bindings map[string]Binding
	order    []string
}

// Lookup returns the binding for name.
func (t *Table) Lookup(name string) (Binding, bool) {
	b, ok := t.bindings[name]
	return b, ok
}

// Names lists the bound capabilities in resolution order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Resolve binds every requirement against realm. All failures are reported
// together; the returned error matches [ErrCapabilityMissing].
func Resolve(realm *host.Realm, reqs []Requirement) (*Table, error) {
	vm := realm.VM()
	getOwn, err := descriptorLookup(vm)
	if err != nil {
		return nil, err
	}

	t := &Table{bindings: make(map[string]Binding, len(reqs))}
	var errs []error
	for _, req := range reqs {
		b, err := resolveOne(vm, realm, getOwn, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.bindings[req.Name] = b
		t.order = append(t.order, req.Name)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func descriptorLookup(vm *goja.Runtime) (goja.Callable, error) {
	object := vm.Get("Object")
	if object == nil {
		return nil, errors.New("resolve: Object is not defined")
	}
	fn, ok := goja.AssertFunction(object.ToObject(vm).Get("getOwnPropertyDescriptor"))
	if !ok {
		return nil, errors.New("resolve: Object.getOwnPropertyDescriptor is not a function")
	}
	return fn, nil
}

func resolveOne(vm *goja.Runtime, realm *host.Realm, getOwn goja.Callable, req Requirement) (Binding, error) {
	fail := func(reason string) (Binding, error) {
		return Binding{}, &ResolveError{
			Capability: req.Name,
			Interface:  req.Interface,
			Member:     req.Member,
			Kind:       req.Kind,
			Reason:     reason,
		}
	}

	var start *goja.Object
	var receiver goja.Value
	if req.Global {
		v := vm.Get(req.Interface)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			return fail("global object not defined")
		}
		start = v.ToObject(vm)
		receiver = start
	} else {
		start = realm.Prototype(req.Interface)
		if start == nil {
			return fail("interface not defined")
		}
	}

	for obj := start; obj != nil; obj = obj.Prototype() {
		d, err := getOwn(goja.Undefined(), obj, vm.ToValue(req.Member))
		if err != nil {
			return fail(err.Error())
		}
		if goja.IsUndefined(d) {
			continue
		}
		fn, ok := goja.AssertFunction(d.ToObject(vm).Get(req.Kind.field()))
		if !ok {
			return fail(fmt.Sprintf("property has no %s function", req.Kind.field()))
		}
		return Binding{Requirement: req, Fn: fn, Receiver: receiver}, nil
	}
	return fail("not found on prototype chain")
}
