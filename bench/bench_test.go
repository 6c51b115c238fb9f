// Package bench measures load and per-frame costs of the demo guest.
//
// Benchmarks: go test -bench=. -benchtime=3x ./bench/
package bench

import (
	"context"
	"testing"

	"github.com/caffeineduck/wasmplay/executor"
	"github.com/caffeineduck/wasmplay/handle"
	"github.com/caffeineduck/wasmplay/internal/app"
	"github.com/caffeineduck/wasmplay/internal/config"
	"github.com/caffeineduck/wasmplay/internal/demo"
)

func benchConfig() *config.Config {
	cfg := config.Default()
	cfg.Runtime.DiskCache = false
	return cfg
}

// --- Cold start: new runtime, compile and load every time ---

func BenchmarkColdStart(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		a, err := app.New(ctx, app.Options{Config: benchConfig()})
		if err != nil {
			b.Fatal(err)
		}
		a.Close()
	}
}

// --- Warm start: compiled module reused from the executor cache ---

func BenchmarkWarmStart(b *testing.B) {
	ctx := context.Background()
	exec, err := executor.New()
	if err != nil {
		b.Fatal(err)
	}
	defer exec.Close()

	wasm, err := demo.Module()
	if err != nil {
		b.Fatal(err)
	}
	if _, err := exec.Compile(ctx, wasm); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a, err := app.New(ctx, app.Options{Config: benchConfig(), Executor: exec})
		if err != nil {
			b.Fatal(err)
		}
		a.Close()
	}
}

// --- Per-frame: poll, update and render through the bridge ---

func newApp(b *testing.B) *app.App {
	b.Helper()
	a, err := app.New(context.Background(), app.Options{Config: benchConfig()})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { a.Close() })
	if err := a.Start(); err != nil {
		b.Fatal(err)
	}
	return a
}

func BenchmarkFrame(b *testing.B) {
	a := newApp(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := a.Frame(float64(i) * 16.6); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkKeyboardEvent(b *testing.B) {
	a := newApp(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := a.Keyboard.Down("ArrowLeft"); err != nil {
			b.Fatal(err)
		}
		if err := a.Keyboard.Up("ArrowLeft"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHello(b *testing.B) {
	a := newApp(b)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := a.Instance.Hello(ctx, "benchmark"); err != nil {
			b.Fatal(err)
		}
	}
}

// --- Handle table churn ---

func BenchmarkHandleAddDrop(b *testing.B) {
	t := handle.New(handle.Constants[int]{Undefined: 0, Null: 1, True: 2, False: 3})
	for i := 0; i < b.N; i++ {
		t.Drop(t.Add(i))
	}
}
