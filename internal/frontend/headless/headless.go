// Package headless drives an App without a window: a fixed number of frames
// at a fixed rate, with optional scripted key presses and a PNG of the last
// frame.
package headless

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caffeineduck/wasmplay/internal/app"
	"go.uber.org/zap"
)

// KeyEvent is a key transition delivered before the given frame.
type KeyEvent struct {
	Frame   int
	Key     string
	Pressed bool
}

// Options configures Run.
type Options struct {
	Frames int
	TPS    int
	Keys   []KeyEvent
	Out    string // PNG path, empty to skip
}

// ParseKeys parses a comma separated script of "<frame>+<key>" (press) and
// "<frame>-<key>" (release) entries, e.g. "1+ArrowRight,30-ArrowRight".
func ParseKeys(s string) ([]KeyEvent, error) {
	var out []KeyEvent
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.IndexAny(part, "+-")
		if i <= 0 || i == len(part)-1 {
			return nil, fmt.Errorf("invalid key event %q (expected <frame>+<key> or <frame>-<key>)", part)
		}
		frame, err := strconv.Atoi(part[:i])
		if err != nil || frame < 1 {
			return nil, fmt.Errorf("invalid frame in key event %q", part)
		}
		key := part[i+1:]
		if key == "Space" {
			key = " "
		}
		out = append(out, KeyEvent{Frame: frame, Key: key, Pressed: part[i] == '+'})
	}
	return out, nil
}

// Run starts a and dispatches opts.Frames frames, 1-based, at timestamps
// frame*1000/TPS milliseconds. It stops early when ctx is done or the frame
// loop fails.
func Run(ctx context.Context, a *app.App, opts Options) error {
	tps := opts.TPS
	if tps <= 0 {
		tps = 60
	}
	if err := a.Start(); err != nil {
		return err
	}

	byFrame := make(map[int][]KeyEvent)
	for _, ev := range opts.Keys {
		byFrame[ev.Frame] = append(byFrame[ev.Frame], ev)
	}

	for frame := 1; frame <= opts.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, ev := range byFrame[frame] {
			var err error
			if ev.Pressed {
				err = a.Keyboard.Down(ev.Key)
			} else {
				err = a.Keyboard.Up(ev.Key)
			}
			if err != nil {
				return fmt.Errorf("frame %d: key %q: %w", frame, ev.Key, err)
			}
		}
		if err := a.Frame(float64(frame) * 1000 / float64(tps)); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
	}

	a.Log.Info("headless run finished", zap.Uint64("frames", a.Scheduler.Frames()))
	if opts.Out != "" {
		return SavePNG(a, opts.Out)
	}
	return nil
}

// SavePNG writes the current canvas to path.
func SavePNG(a *app.App, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.Canvas.Surface().EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
