package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caffeineduck/wasmplay/input"
	"github.com/caffeineduck/wasmplay/internal/app"
	"github.com/caffeineduck/wasmplay/internal/frontend/headless"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console [module.wasm]",
	Short: "Step a game interactively",
	Long: `Start an interactive console that drives a game one frame at a time.

Commands:
  tick [n]                           Run n frames (default 1)
  key down|up <key>                  Send a keyboard event ("Space" for " ")
  pad connect <id> <name> [standard] Attach a virtual controller
  pad disconnect <id>                Detach a virtual controller
  pad button <id> <index> <0|1>      Set a controller button
  pad axis <id> <index> <value>      Set a controller axis
  snapshot                           Show the merged controller state
  handles                            Show the number of live handles
  save <file.png>                    Write the canvas as PNG
  exit                               Quit

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)`,
	Args: cobra.MaximumNArgs(1),
	Run:  runConsole,
}

func init() {
	consoleCmd.Flags().String("history", "", "History file path (default: ~/.wasmplay_history)")
	rootCmd.AddCommand(consoleCmd)
}

var errQuit = errors.New("quit")

// console interprets debugging commands against one App.
type console struct {
	app   *app.App
	out   io.Writer
	frame int
	pads  map[int]*input.VirtualPad
}

func newConsole(a *app.App, out io.Writer) (*console, error) {
	if err := a.Start(); err != nil {
		return nil, err
	}
	return &console{app: a, out: out, pads: make(map[int]*input.VirtualPad)}, nil
}

// exec runs one command line. It returns errQuit on exit.
func (c *console) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "exit", "quit":
		return errQuit
	case "tick":
		n := 1
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil || v < 1 {
				return fmt.Errorf("invalid frame count %q", fields[1])
			}
			n = v
		}
		return c.tick(n)
	case "key":
		if len(fields) != 3 || (fields[1] != "down" && fields[1] != "up") {
			return errors.New("usage: key down|up <key>")
		}
		key := fields[2]
		if key == "Space" {
			key = " "
		}
		if fields[1] == "down" {
			return c.app.Keyboard.Down(key)
		}
		return c.app.Keyboard.Up(key)
	case "pad":
		return c.pad(fields[1:])
	case "snapshot":
		fmt.Fprintln(c.out, c.app.Input.Poll())
		for _, st := range c.app.Input.Active() {
			fmt.Fprintf(c.out, "  %d %q %s axes=%v buttons=%v\n", st.ID, st.Name, st.Kind, st.Axes, st.Buttons)
		}
		return nil
	case "handles":
		fmt.Fprintf(c.out, "%d live handles\n", c.app.Shim.Handles().Live())
		return nil
	case "save":
		if len(fields) != 2 {
			return errors.New("usage: save <file.png>")
		}
		if err := headless.SavePNG(c.app, fields[1]); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "saved %s\n", fields[1])
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func (c *console) tick(n int) error {
	tps := float64(c.app.Config.Canvas.TPS)
	for i := 0; i < n; i++ {
		c.frame++
		if err := c.app.Frame(float64(c.frame) * 1000 / tps); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.out, "frame %d\n", c.frame)
	return nil
}

func (c *console) pad(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: pad connect|disconnect|button|axis <id> ...")
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid controller id %q", args[1])
	}

	switch args[0] {
	case "connect":
		if len(args) < 3 {
			return errors.New("usage: pad connect <id> <name> [standard]")
		}
		name := args[2:]
		standard := name[len(name)-1] == "standard"
		if standard && len(name) > 1 {
			name = name[:len(name)-1]
		}
		p := input.NewVirtualPad(id, strings.Join(name, " "), standard)
		kind, ok := c.app.Input.Connect(p)
		if !ok {
			fmt.Fprintf(c.out, "controller %d ignored: unknown mapping\n", id)
			return nil
		}
		c.pads[id] = p
		fmt.Fprintf(c.out, "controller %d connected (%s)\n", id, kind)
		return nil
	case "disconnect":
		delete(c.pads, id)
		if !c.app.Input.Disconnect(id) {
			return fmt.Errorf("controller %d not connected", id)
		}
		fmt.Fprintf(c.out, "controller %d disconnected\n", id)
		return nil
	case "button", "axis":
		p, ok := c.pads[id]
		if !ok {
			return fmt.Errorf("controller %d not connected", id)
		}
		if len(args) != 4 {
			return fmt.Errorf("usage: pad %s <id> <index> <value>", args[0])
		}
		index, err := strconv.Atoi(args[2])
		if err != nil || index < 0 {
			return fmt.Errorf("invalid index %q", args[2])
		}
		if args[0] == "button" {
			pressed, err := strconv.ParseBool(args[3])
			if err != nil {
				return fmt.Errorf("invalid button value %q", args[3])
			}
			p.SetButton(index, pressed)
			return nil
		}
		v, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid axis value %q", args[3])
		}
		p.SetAxis(index, v)
		return nil
	default:
		return fmt.Errorf("unknown pad command %q", args[0])
	}
}

func runConsole(cmd *cobra.Command, args []string) {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".wasmplay_history")
	}

	a, cleanup, err := newApp(cmd, args)
	if err != nil {
		fatal(cmd, err)
		return
	}
	defer cleanup()

	c, err := newConsole(a, cmd.OutOrStdout())
	if err != nil {
		cleanup()
		fatal(cmd, err)
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "wasmplay> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error initializing readline: %v\n", err)
		cleanup()
		exit(1)
		return
	}
	defer rl.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "wasmplay console (type 'exit' to quit, Ctrl+D to exit)")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(cmd.OutOrStdout())
				break
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading input: %v\n", err)
			break
		}

		err = c.exec(line)
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		if !a.Running() {
			fmt.Fprintln(cmd.ErrOrStderr(), "frame loop stopped")
			break
		}
	}
}
