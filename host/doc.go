// Package host provides the scripting environment a guest module draws into
// and reads input from.
//
// A [Realm] is a goja JavaScript runtime preloaded with a small DOM-like
// object model:
//
//	EventTarget > Node > Element > HTMLElement > HTMLCanvasElement
//	EventTarget > Node > Document
//	Event > UIEvent > KeyboardEvent
//	CanvasRenderingContext2D
//
// together with document.getElementById, console, Math.random and
// requestAnimationFrame. Members live on the prototypes, as they do in a
// browser, so callers must resolve them through the prototype chain.
//
// Canvas pixels are kept in a [Surface] that a frontend presents. Animation
// frames are queued in a [FrameQueue] that the frontend dispatches once per
// display frame.
//
// A Realm is not safe for concurrent use.
package host
