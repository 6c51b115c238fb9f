package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/caffeineduck/wasmplay/executor"
	"github.com/caffeineduck/wasmplay/internal/demo"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [module.wasm]",
	Short: "Show a module's imports and exports",
	Long: `Compile a module and list its imports, exports and memories.

Imports from the "host" module are checked against the bridge, and the
required game exports are checked for presence and signature. The command
exits with status 1 when a problem is found.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		fatal(cmd, err)
		return
	}
	wasm, err := readModule(args)
	if err != nil {
		fatal(cmd, err)
		return
	}
	name := "built-in demo"
	if wasm == nil {
		if wasm, err = demo.Module(); err != nil {
			fatal(cmd, err)
			return
		}
	} else {
		name = args[0]
	}

	var execOpts []executor.ExecutorOption
	if cfg.Runtime.DiskCache {
		execOpts = append(execOpts, executor.WithDiskCache(cfg.Runtime.CacheDir))
	}
	exec, err := executor.New(execOpts...)
	if err != nil {
		fatal(cmd, err)
		return
	}
	defer exec.Close()

	report, err := exec.Inspect(context.Background(), wasm)
	if err != nil {
		exec.Close()
		fatal(cmd, err)
		return
	}
	printReport(cmd.OutOrStdout(), name, report)
	if !report.OK() {
		exec.Close()
		fatal(cmd, fmt.Errorf("%s: %d problem(s)", name, len(report.Problems)))
	}
}

func printReport(w io.Writer, name string, r *executor.Report) {
	fmt.Fprintf(w, "module: %s\n", name)
	fmt.Fprintf(w, "imports (%d):\n", len(r.Imports))
	for _, s := range r.Imports {
		fmt.Fprintf(w, "  %s\n", s)
	}
	fmt.Fprintf(w, "exports (%d):\n", len(r.Exports))
	for _, s := range r.Exports {
		fmt.Fprintf(w, "  %s\n", s)
	}
	fmt.Fprintf(w, "memories: %s\n", strings.Join(r.Memories, ", "))
	if r.OK() {
		fmt.Fprintln(w, "ok")
		return
	}
	fmt.Fprintln(w, "problems:")
	for _, p := range r.Problems {
		fmt.Fprintf(w, "  - %v\n", p)
	}
}
