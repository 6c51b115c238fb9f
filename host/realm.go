package host

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/caffeineduck/wasmplay/handle"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

const bootstrapScript = `
(function (g) {
	function illegal() { throw new TypeError("Illegal constructor"); }
	class EventTarget { constructor() { illegal(); } }
	class Node extends EventTarget {}
	class Element extends Node {}
	class HTMLElement extends Element {}
	class HTMLCanvasElement extends HTMLElement {}
	class Document extends Node {}
	class Event { constructor() { illegal(); } }
	class UIEvent extends Event {}
	class KeyboardEvent extends UIEvent {}
	class CanvasRenderingContext2D { constructor() { illegal(); } }
	const classes = { EventTarget, Node, Element, HTMLElement, HTMLCanvasElement,
		Document, Event, UIEvent, KeyboardEvent, CanvasRenderingContext2D };
	for (const name of Object.keys(classes)) {
		Object.defineProperty(classes[name].prototype, Symbol.toStringTag, { value: name });
	}
	Object.assign(g, classes);
	g.window = g;
})(globalThis);
`

// Interface names defined by the realm.
const (
	ProtoEventTarget     = "EventTarget"
	ProtoNode            = "Node"
	ProtoElement         = "Element"
	ProtoHTMLElement     = "HTMLElement"
	ProtoCanvasElement   = "HTMLCanvasElement"
	ProtoDocument        = "Document"
	ProtoKeyboardEvent   = "KeyboardEvent"
	ProtoRenderContext2D = "CanvasRenderingContext2D"
)

// Option configures a Realm.
type Option func(*realmConfig)

type realmConfig struct {
	logger *zap.Logger
	seed   int64
	seeded bool
}

// WithLogger sets the logger. console output goes to its "guest" child.
func WithLogger(l *zap.Logger) Option {
	return func(c *realmConfig) {
		c.logger = l
	}
}

// WithSeed makes Math.random deterministic.
func WithSeed(seed int64) Option {
	return func(c *realmConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// Realm is a goja runtime with the DOM-like host environment installed.
type Realm struct {
	vm       *goja.Runtime
	log      *zap.Logger
	guest    *zap.Logger
	frames   *FrameQueue
	document *goja.Object
	protos   map[string]*goja.Object
	elements map[string]*goja.Object
	canvases map[*goja.Object]*Canvas
	contexts map[*goja.Object]*Context2D
	keySlot  *goja.Symbol
}

// NewRealm creates a realm with an empty document.
func NewRealm(opts ...Option) (*Realm, error) {
	cfg := realmConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	r := &Realm{
		vm:       goja.New(),
		log:      cfg.logger.Named("realm"),
		guest:    cfg.logger.Named("guest"),
		frames:   NewFrameQueue(),
		protos:   make(map[string]*goja.Object),
		elements: make(map[string]*goja.Object),
		canvases: make(map[*goja.Object]*Canvas),
		contexts: make(map[*goja.Object]*Context2D),
		keySlot:  goja.NewSymbol("key"),
	}
	if cfg.seeded {
		r.vm.SetRandSource(rand.New(rand.NewSource(cfg.seed)).Float64)
	}

	if _, err := r.vm.RunString(bootstrapScript); err != nil {
		return nil, fmt.Errorf("bootstrap realm: %w", err)
	}
	for _, name := range []string{
		ProtoEventTarget, ProtoNode, ProtoElement, ProtoHTMLElement, ProtoCanvasElement,
		ProtoDocument, ProtoKeyboardEvent, ProtoRenderContext2D,
	} {
		ctor := r.vm.Get(name)
		if ctor == nil || goja.IsUndefined(ctor) {
			return nil, fmt.Errorf("bootstrap realm: %s not defined", name)
		}
		r.protos[name] = ctor.ToObject(r.vm).Get("prototype").ToObject(r.vm)
	}

	r.installElement()
	r.installCanvas()
	r.installContext2D()
	r.installKeyboardEvent()
	r.installDocument()
	r.installConsole()
	r.installAnimationFrames()

	return r, nil
}

// VM returns the underlying runtime.
func (r *Realm) VM() *goja.Runtime { return r.vm }

// Frames returns the animation frame queue.
func (r *Realm) Frames() *FrameQueue { return r.frames }

// Document returns the global document object.
func (r *Realm) Document() *goja.Object { return r.document }

// Prototype returns the prototype object of the named interface, or nil.
func (r *Realm) Prototype(name string) *goja.Object {
	return r.protos[name]
}

// Constants returns the values stored in the reserved handle slots.
func (r *Realm) Constants() handle.Constants[goja.Value] {
	return handle.Constants[goja.Value]{
		Undefined: goja.Undefined(),
		Null:      goja.Null(),
		True:      r.vm.ToValue(true),
		False:     r.vm.ToValue(false),
	}
}

// Run evaluates script in the realm.
func (r *Realm) Run(script string) (goja.Value, error) {
	return r.vm.RunString(script)
}

// ElementByID returns the element registered under id, or nil.
func (r *Realm) ElementByID(id string) *goja.Object {
	return r.elements[id]
}

// NewKeyboardEvent creates a KeyboardEvent carrying key.
func (r *Realm) NewKeyboardEvent(key string) *goja.Object {
	ev := r.newInstance(ProtoKeyboardEvent)
	if err := ev.DefineDataPropertySymbol(r.keySlot, r.vm.ToValue(key), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
		panic(err)
	}
	return ev
}

// Describe renders v the way console.log would.
func (r *Realm) Describe(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}

func (r *Realm) newInstance(proto string) *goja.Object {
	obj := r.vm.NewObject()
	if err := obj.SetPrototype(r.protos[proto]); err != nil {
		panic(err)
	}
	return obj
}

func (r *Realm) fn(f func(goja.FunctionCall) goja.Value) goja.Value {
	return r.vm.ToValue(f)
}

func (r *Realm) defineGetter(proto, name string, get func(goja.FunctionCall) goja.Value) {
	r.defineAccessor(proto, name, get, nil)
}

func (r *Realm) defineAccessor(proto, name string, get, set func(goja.FunctionCall) goja.Value) {
	var setter goja.Value
	if set != nil {
		setter = r.fn(set)
	}
	if err := r.protos[proto].DefineAccessorProperty(name, r.fn(get), setter, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
		panic(err)
	}
}

func (r *Realm) defineMethod(proto, name string, f func(goja.FunctionCall) goja.Value) {
	if err := r.protos[proto].Set(name, f); err != nil {
		panic(err)
	}
}

func (r *Realm) requireArgs(call goja.FunctionCall, iface, method string, n int) {
	if len(call.Arguments) < n {
		noun := "arguments"
		if n == 1 {
			noun = "argument"
		}
		panic(r.vm.NewTypeError("Failed to execute '%s' on '%s': %d %s required, but only %d present.",
			method, iface, n, noun, len(call.Arguments)))
	}
}

func (r *Realm) illegalInvocation() *goja.Object {
	return r.vm.NewTypeError("Illegal invocation")
}

func (r *Realm) installElement() {
	r.defineGetter(ProtoElement, "id", func(call goja.FunctionCall) goja.Value {
		obj, _ := call.This.(*goja.Object)
		if c, ok := r.canvases[obj]; ok {
			return r.vm.ToValue(c.ID)
		}
		panic(r.illegalInvocation())
	})
}

func (r *Realm) installKeyboardEvent() {
	r.defineGetter(ProtoKeyboardEvent, "key", func(call goja.FunctionCall) goja.Value {
		obj, _ := call.This.(*goja.Object)
		if obj == nil {
			panic(r.illegalInvocation())
		}
		key := obj.GetSymbol(r.keySlot)
		if key == nil || goja.IsUndefined(key) {
			panic(r.illegalInvocation())
		}
		return key
	})
}

func (r *Realm) installDocument() {
	r.document = r.newInstance(ProtoDocument)
	r.defineMethod(ProtoDocument, "getElementById", func(call goja.FunctionCall) goja.Value {
		r.requireArgs(call, ProtoDocument, "getElementById", 1)
		if el, ok := r.elements[call.Argument(0).String()]; ok {
			return el
		}
		return goja.Null()
	})
	if err := r.vm.Set("document", r.document); err != nil {
		panic(err)
	}
}

func (r *Realm) installConsole() {
	console := r.vm.NewObject()
	logAt := func(level func(string, ...zap.Field)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = r.Describe(arg)
			}
			level(strings.Join(parts, " "))
			return goja.Undefined()
		}
	}
	_ = console.Set("log", logAt(r.guest.Info))
	_ = console.Set("info", logAt(r.guest.Info))
	_ = console.Set("debug", logAt(r.guest.Debug))
	_ = console.Set("warn", logAt(r.guest.Warn))
	_ = console.Set("error", logAt(r.guest.Error))
	if err := r.vm.Set("console", console); err != nil {
		panic(err)
	}
}

func (r *Realm) installAnimationFrames() {
	_ = r.vm.Set("requestAnimationFrame", func(call goja.FunctionCall) goja.Value {
		cb, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(r.vm.NewTypeError("Failed to execute 'requestAnimationFrame' on 'Window': The callback provided as parameter 1 is not a function."))
		}
		id := r.frames.Request(func(ts float64) {
			if _, err := cb(goja.Undefined(), r.vm.ToValue(ts)); err != nil {
				r.log.Error("animation frame callback failed", zap.Error(err))
			}
		})
		return r.vm.ToValue(id)
	})
	_ = r.vm.Set("cancelAnimationFrame", func(call goja.FunctionCall) goja.Value {
		r.frames.Cancel(uint64(call.Argument(0).ToInteger()))
		return goja.Undefined()
	})
}
