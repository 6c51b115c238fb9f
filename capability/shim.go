package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/caffeineduck/wasmplay/handle"
	"github.com/caffeineduck/wasmplay/host"
	"github.com/caffeineduck/wasmplay/marshal"
	"github.com/dop251/goja"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// GuestError is raised when the guest calls the throw intrinsic.
type GuestError struct {
	Message string
}

func (e *GuestError) Error() string {
	return "guest threw: " + e.Message
}

// Option configures a Shim.
type Option func(*Shim)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Shim) {
		s.log = l
	}
}

// WithFaultHook registers fn to be called whenever a host call throws and the
// fault is reported through an exception slot.
func WithFaultHook(fn func(capability string)) Option {
	return func(s *Shim) {
		s.onFault = fn
	}
}

// Shim forwards guest calls to resolved host capabilities, converting
// arguments and results through the handle table and the memory codec.
type Shim struct {
	realm   *host.Realm
	vm      *goja.Runtime
	table   *Table
	handles *handle.Table[goja.Value]
	codec   *marshal.Codec
	bound   api.Module
	typeOf  goja.Callable
	log     *zap.Logger
	onFault func(string)
}

// New returns a shim over a resolved table.
func New(realm *host.Realm, table *Table, opts ...Option) (*Shim, error) {
	s := &Shim{
		realm:   realm,
		vm:      realm.VM(),
		table:   table,
		handles: handle.New(realm.Constants()),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("shim")

	v, err := realm.Run(`(function (v) { return typeof v; })`)
	if err != nil {
		return nil, fmt.Errorf("install typeof: %w", err)
	}
	s.typeOf, _ = goja.AssertFunction(v)
	return s, nil
}

// Attach binds the shim to a guest's memory codec. The codec is not tied
// to a module, so the next host call from a guest rebinds it.
func (s *Shim) Attach(c *marshal.Codec) {
	s.codec = c
	s.bound = nil
}

// Codec returns the attached codec, or nil.
func (s *Shim) Codec() *marshal.Codec {
	return s.codec
}

// Handles returns the handle table shared with the guest.
func (s *Shim) Handles() *handle.Table[goja.Value] {
	return s.handles
}

// Box stores v in the handle table. Ownership of the handle passes to
// whoever receives it.
func (s *Shim) Box(v goja.Value) handle.Handle {
	return s.handles.Add(v)
}

// value returns the object behind h, or undefined for an unknown handle.
func (s *Shim) value(h handle.Handle) goja.Value {
	if v := s.handles.Get(h); v != nil {
		return v
	}
	return goja.Undefined()
}

func (s *Shim) call(name string, this goja.Value, args ...goja.Value) (goja.Value, error) {
	b, ok := s.table.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrCapabilityMissing)
	}
	if b.Receiver != nil {
		this = b.Receiver
	}
	if this == nil {
		this = goja.Undefined()
	}
	return b.Fn(this, args...)
}

// forward calls a capability that is not expected to throw. A throw is
// reported as an error and traps the guest.
func (s *Shim) forward(name string, this goja.Value, args ...goja.Value) (goja.Value, error) {
	v, err := s.call(name, this, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// guarded calls a capability that may throw. A throw is boxed and written to
// the exception slot at exnptr; ok is false in that case.
func (s *Shim) guarded(name string, exnptr uint32, this goja.Value, args ...goja.Value) (v goja.Value, ok bool, err error) {
	v, err = s.call(name, this, args...)
	if err == nil {
		return v, true, nil
	}
	if errors.Is(err, ErrCapabilityMissing) {
		return nil, false, err
	}

	var thrown goja.Value
	var exc *goja.Exception
	if errors.As(err, &exc) {
		thrown = exc.Value()
	} else {
		thrown = s.vm.NewGoError(err)
	}

	h := s.handles.Add(thrown)
	if err := s.codec.WriteException(exnptr, h); err != nil {
		s.handles.Drop(h)
		return nil, false, fmt.Errorf("%s: %w", name, err)
	}
	s.log.Debug("host call threw",
		zap.String("capability", name),
		zap.Uint32("handle", h),
		zap.String("thrown", s.realm.Describe(thrown)))
	if s.onFault != nil {
		s.onFault(name)
	}
	return nil, false, nil
}

// GetContext returns a handle to the drawing context of kind for the canvas,
// or 0 when the host has none.
func (s *Shim) GetContext(canvas handle.Handle, kindPtr, kindLen, exnptr uint32) (handle.Handle, error) {
	kind, err := s.codec.DecodeString(kindPtr, kindLen)
	if err != nil {
		return 0, err
	}
	v, ok, err := s.guarded(CanvasGetContext, exnptr, s.value(canvas), s.vm.ToValue(kind))
	if err != nil || !ok {
		return 0, err
	}
	if v == nil || goja.IsNull(v) || goja.IsUndefined(v) {
		return 0, nil
	}
	return s.handles.Add(v), nil
}

// Width returns the canvas width in pixels.
func (s *Shim) Width(canvas handle.Handle) (int32, error) {
	v, err := s.forward(CanvasWidth, s.value(canvas))
	if err != nil {
		return 0, err
	}
	return int32(v.ToInteger()), nil
}

// Height returns the canvas height in pixels.
func (s *Shim) Height(canvas handle.Handle) (int32, error) {
	v, err := s.forward(CanvasHeight, s.value(canvas))
	if err != nil {
		return 0, err
	}
	return int32(v.ToInteger()), nil
}

func (s *Shim) setString(name string, target handle.Handle, ptr, n uint32) error {
	str, err := s.codec.DecodeString(ptr, n)
	if err != nil {
		return err
	}
	_, err = s.forward(name, s.value(target), s.vm.ToValue(str))
	return err
}

// SetFillStyle assigns a CSS color string to the context.
func (s *Shim) SetFillStyle(ctx2d handle.Handle, ptr, n uint32) error {
	return s.setString(CanvasFillStyle, ctx2d, ptr, n)
}

// SetFont assigns a CSS font string to the context.
func (s *Shim) SetFont(ctx2d handle.Handle, ptr, n uint32) error {
	return s.setString(CanvasFont, ctx2d, ptr, n)
}

func (s *Shim) rect(name string, ctx2d handle.Handle, x, y, w, h float64) error {
	_, err := s.forward(name, s.value(ctx2d),
		s.vm.ToValue(x), s.vm.ToValue(y), s.vm.ToValue(w), s.vm.ToValue(h))
	return err
}

// ClearRect clears a rectangle.
func (s *Shim) ClearRect(ctx2d handle.Handle, x, y, w, h float64) error {
	return s.rect(CanvasClearRect, ctx2d, x, y, w, h)
}

// FillRect fills a rectangle with the current fill style.
func (s *Shim) FillRect(ctx2d handle.Handle, x, y, w, h float64) error {
	return s.rect(CanvasFillRect, ctx2d, x, y, w, h)
}

// FillText draws text at (x, y). A host exception is reported through exnptr.
func (s *Shim) FillText(ctx2d handle.Handle, ptr, n uint32, x, y float64, exnptr uint32) error {
	text, err := s.codec.DecodeString(ptr, n)
	if err != nil {
		return err
	}
	_, _, err = s.guarded(CanvasFillText, exnptr, s.value(ctx2d),
		s.vm.ToValue(text), s.vm.ToValue(x), s.vm.ToValue(y))
	return err
}

// Key writes the key name of a keyboard event as (ptr, len) at retptr.
func (s *Shim) Key(ctx context.Context, retptr uint32, ev handle.Handle) error {
	v, err := s.forward(KeyboardKey, s.value(ev))
	if err != nil {
		return err
	}
	return s.codec.WriteStringResult(ctx, retptr, v.String())
}

// Log writes the value behind h to the host console.
func (s *Shim) Log(h handle.Handle) error {
	_, err := s.forward(ConsoleLog, nil, s.value(h))
	return err
}

// Random returns a uniform float in [0, 1).
func (s *Shim) Random() (float64, error) {
	v, err := s.forward(MathRandom, nil)
	if err != nil {
		return 0, err
	}
	return v.ToFloat(), nil
}

// DropRef releases a handle owned by the guest.
func (s *Shim) DropRef(h handle.Handle) {
	s.handles.Drop(h)
}

// CloneRef returns a second handle to the object behind h.
func (s *Shim) CloneRef(h handle.Handle) handle.Handle {
	return s.handles.Clone(h)
}

// StringNew boxes a guest string as a host string.
func (s *Shim) StringNew(ptr, n uint32) (handle.Handle, error) {
	str, err := s.codec.DecodeString(ptr, n)
	if err != nil {
		return 0, err
	}
	return s.handles.Add(s.vm.ToValue(str)), nil
}

func (s *Shim) kind(h handle.Handle) string {
	v, err := s.typeOf(goja.Undefined(), s.value(h))
	if err != nil {
		return ""
	}
	return v.String()
}

// NumberGet returns the number behind h. For other values it writes 1 to the
// byte at invalidPtr and returns 0.
func (s *Shim) NumberGet(h handle.Handle, invalidPtr uint32) (float64, error) {
	if s.kind(h) == "number" {
		return s.value(h).ToFloat(), nil
	}
	return 0, s.codec.WriteU8(invalidPtr, 1)
}

// BooleanGet returns 1 or 0 for booleans and 2 for anything else.
func (s *Shim) BooleanGet(h handle.Handle) uint32 {
	if s.kind(h) != "boolean" {
		return 2
	}
	return marshal.FromBool(s.value(h).ToBoolean())
}

// IsNull reports whether h is null.
func (s *Shim) IsNull(h handle.Handle) bool {
	return goja.IsNull(s.value(h))
}

// IsUndefined reports whether h is undefined.
func (s *Shim) IsUndefined(h handle.Handle) bool {
	return goja.IsUndefined(s.value(h))
}

// IsSymbol reports whether h is a symbol.
func (s *Shim) IsSymbol(h handle.Handle) bool {
	return s.kind(h) == "symbol"
}

// StringGet copies the string behind h into guest memory, writes its length
// at lenPtr and returns the pointer. Non-strings return 0. The empty string is
// returned as the dangling pointer 1, so it stays distinguishable from 0.
func (s *Shim) StringGet(ctx context.Context, h handle.Handle, lenPtr uint32) (uint32, error) {
	if s.kind(h) != "string" {
		return 0, nil
	}
	ptr, n, err := s.codec.EncodeString(ctx, s.value(h).String())
	if err != nil {
		return 0, err
	}
	if n == 0 {
		ptr = 1
	}
	if err := s.codec.WriteU32(lenPtr, n); err != nil {
		return 0, err
	}
	return ptr, nil
}

// Throw decodes the guest's message into a GuestError.
func (s *Shim) Throw(ptr, n uint32) error {
	msg, err := s.codec.DecodeString(ptr, n)
	if err != nil {
		return err
	}
	return &GuestError{Message: msg}
}
