package main

import (
	"context"

	"github.com/caffeineduck/wasmplay/internal/frontend/headless"
	"github.com/caffeineduck/wasmplay/internal/frontend/window"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [module.wasm]",
	Short: "Run a game module",
	Long: `Load a game module and run it.

By default the game opens in a window and reads the keyboard and any
connected gamepads. With --headless it runs a fixed number of frames without
a window:
  - Built-in demo:    wasmplay run
  - Window:           wasmplay run game.wasm --scale 2
  - Headless:         wasmplay run game.wasm --headless --frames 120 --out frame.png
  - Scripted keys:    wasmplay run --headless --keys "1+ArrowRight,30-ArrowRight"`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("scale", 0, "Window scale factor")
	cmd.Flags().Bool("headless", false, "Run without a window")
	cmd.Flags().Int("frames", 60, "Frames to run in headless mode")
	cmd.Flags().String("out", "", "Write the last frame as PNG (headless)")
	cmd.Flags().String("keys", "", "Scripted key events <frame>+<key>,<frame>-<key> (headless)")
}

func runRun(cmd *cobra.Command, args []string) {
	headlessMode, _ := cmd.Flags().GetBool("headless")
	frames, _ := cmd.Flags().GetInt("frames")
	out, _ := cmd.Flags().GetString("out")
	keyScript, _ := cmd.Flags().GetString("keys")

	keys, err := headless.ParseKeys(keyScript)
	if err != nil {
		fatal(cmd, err)
		return
	}

	a, cleanup, err := newApp(cmd, args)
	if err != nil {
		fatal(cmd, err)
		return
	}
	defer cleanup()

	if headlessMode {
		err = headless.Run(context.Background(), a, headless.Options{
			Frames: frames,
			TPS:    a.Config.Canvas.TPS,
			Keys:   keys,
			Out:    out,
		})
	} else {
		err = window.Run(a)
	}
	if err != nil {
		cleanup()
		fatal(cmd, err)
	}
}
