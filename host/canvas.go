package host

import (
	"image/color"

	"github.com/dop251/goja"
)

const (
	defaultFillStyle = "#000000"
	defaultFont      = "10px sans-serif"
	defaultFontPx    = 10
)

// Canvas is the Go side of an HTMLCanvasElement.
type Canvas struct {
	ID      string
	obj     *goja.Object
	surface *Surface
	ctx     *Context2D
}

// Object returns the element as seen by scripts.
func (c *Canvas) Object() *goja.Object { return c.obj }

// Surface returns the canvas pixels.
func (c *Canvas) Surface() *Surface { return c.surface }

// Context2D holds the drawing state of a canvas' 2d context.
type Context2D struct {
	canvas *Canvas
	obj    *goja.Object
	fill   color.NRGBA
	font   string
	fontPx float64
}

// FillStyle returns the current fill color.
func (x *Context2D) FillStyle() color.NRGBA { return x.fill }

// Font returns the current font shorthand.
func (x *Context2D) Font() string { return x.font }

// AddCanvas creates a canvas element and registers it with the document
// under id.
func (r *Realm) AddCanvas(id string, width, height int) *Canvas {
	c := &Canvas{
		ID:      id,
		obj:     r.newInstance(ProtoCanvasElement),
		surface: NewSurface(width, height),
	}
	r.canvases[c.obj] = c
	r.elements[id] = c.obj
	return c
}

// CanvasOf returns the canvas behind obj.
func (r *Realm) CanvasOf(obj *goja.Object) (*Canvas, bool) {
	c, ok := r.canvases[obj]
	return c, ok
}

// ContextOf returns the 2d context behind obj.
func (r *Realm) ContextOf(obj *goja.Object) (*Context2D, bool) {
	x, ok := r.contexts[obj]
	return x, ok
}

func (r *Realm) thisCanvas(call goja.FunctionCall) *Canvas {
	obj, _ := call.This.(*goja.Object)
	c, ok := r.canvases[obj]
	if !ok {
		panic(r.illegalInvocation())
	}
	return c
}

func (r *Realm) thisContext(call goja.FunctionCall) *Context2D {
	obj, _ := call.This.(*goja.Object)
	x, ok := r.contexts[obj]
	if !ok {
		panic(r.illegalInvocation())
	}
	return x
}

func (r *Realm) installCanvas() {
	r.defineMethod(ProtoCanvasElement, "getContext", func(call goja.FunctionCall) goja.Value {
		c := r.thisCanvas(call)
		r.requireArgs(call, ProtoCanvasElement, "getContext", 1)
		if call.Argument(0).String() != "2d" {
			return goja.Null()
		}
		if c.ctx == nil {
			c.ctx = &Context2D{
				canvas: c,
				obj:    r.newInstance(ProtoRenderContext2D),
				font:   defaultFont,
				fontPx: defaultFontPx,
			}
			c.ctx.fill, _ = ParseColor(defaultFillStyle)
			r.contexts[c.ctx.obj] = c.ctx
		}
		return c.ctx.obj
	})

	r.defineAccessor(ProtoCanvasElement, "width", func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(r.thisCanvas(call).surface.Width())
	}, func(call goja.FunctionCall) goja.Value {
		s := r.thisCanvas(call).surface
		s.Resize(dimension(call.Argument(0)), s.Height())
		return goja.Undefined()
	})
	r.defineAccessor(ProtoCanvasElement, "height", func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(r.thisCanvas(call).surface.Height())
	}, func(call goja.FunctionCall) goja.Value {
		s := r.thisCanvas(call).surface
		s.Resize(s.Width(), dimension(call.Argument(0)))
		return goja.Undefined()
	})
}

func dimension(v goja.Value) int {
	n := v.ToInteger()
	if n < 0 {
		return 0
	}
	return int(n)
}

func (r *Realm) installContext2D() {
	const iface = ProtoRenderContext2D

	r.defineGetter(iface, "canvas", func(call goja.FunctionCall) goja.Value {
		return r.thisContext(call).canvas.obj
	})

	r.defineAccessor(iface, "fillStyle", func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(FormatColor(r.thisContext(call).fill))
	}, func(call goja.FunctionCall) goja.Value {
		x := r.thisContext(call)
		if c, ok := ParseColor(call.Argument(0).String()); ok {
			x.fill = c
		}
		return goja.Undefined()
	})

	r.defineAccessor(iface, "font", func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(r.thisContext(call).font)
	}, func(call goja.FunctionCall) goja.Value {
		x := r.thisContext(call)
		s := call.Argument(0).String()
		if px, ok := ParseFont(s); ok {
			x.font = s
			x.fontPx = px
		}
		return goja.Undefined()
	})

	rect := func(method string, draw func(*Context2D, float64, float64, float64, float64)) {
		r.defineMethod(iface, method, func(call goja.FunctionCall) goja.Value {
			x := r.thisContext(call)
			r.requireArgs(call, iface, method, 4)
			draw(x,
				call.Argument(0).ToFloat(),
				call.Argument(1).ToFloat(),
				call.Argument(2).ToFloat(),
				call.Argument(3).ToFloat())
			return goja.Undefined()
		})
	}
	rect("clearRect", func(x *Context2D, a, b, w, h float64) {
		x.canvas.surface.Clear(a, b, w, h)
	})
	rect("fillRect", func(x *Context2D, a, b, w, h float64) {
		x.canvas.surface.Fill(a, b, w, h, x.fill)
	})

	r.defineMethod(iface, "fillText", func(call goja.FunctionCall) goja.Value {
		x := r.thisContext(call)
		r.requireArgs(call, iface, "fillText", 3)
		x.canvas.surface.Text(call.Argument(0).String(),
			call.Argument(1).ToFloat(),
			call.Argument(2).ToFloat(),
			x.fontPx, x.fill)
		return goja.Undefined()
	})
}
