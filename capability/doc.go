// Package capability binds the host capabilities a guest module may call and
// exposes them to the guest as wazero host functions.
//
// # Resolution
//
// [Resolve] looks up every [Requirement] exactly once, before any guest code
// runs. Members are searched along the prototype chain, so a getter defined on
// HTMLCanvasElement.prototype is found for any canvas element. A missing
// member fails with a [*ResolveError]; nothing is replaced by a no-op.
//
// # Calling convention
//
// Objects cross the boundary as handles from the shim's handle table, strings
// as (pointer, length) pairs in guest memory, numbers and booleans by value.
// Capabilities that may throw (getContext, fillText) take an exception slot
// pointer: when the host throws, the thrown value is boxed into a handle and
// the slot is set to (1, handle). The guest decides what to do with it.
//
// # Imports
//
// The guest imports the following functions from module "host":
//
//	get_context(canvas, kind_ptr, kind_len, exn) -> ctx
//	canvas_width(canvas) -> i32
//	canvas_height(canvas) -> i32
//	set_fill_style(ctx, ptr, len)
//	set_font(ctx, ptr, len)
//	clear_rect(ctx, x, y, w, h)
//	fill_rect(ctx, x, y, w, h)
//	fill_text(ctx, ptr, len, x, y, exn)
//	key(ret, event)
//	log(value)
//	random() -> f64
//
// and the handle intrinsics object_drop_ref, object_clone_ref, string_new,
// number_get, boolean_get, is_null, is_undefined, is_symbol, string_get and
// throw.
package capability
