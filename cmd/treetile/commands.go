package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/ipc"
	"github.com/1broseidon/treetile/internal/tiling"
	"github.com/1broseidon/treetile/internal/wm"
)

// newFlagSet builds a subcommand flag set with the shared usage layout.
func newFlagSet(name, usage, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: treetile "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, summary)
		if fs.HasFlags() {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Flags:")
			fs.PrintDefaults()
		}
	}
	return fs
}

// parse returns an exit code when the command should stop.
func parse(fs *flag.FlagSet, args []string, maxArgs int) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() > maxArgs {
		fmt.Fprintf(os.Stderr, "%s takes at most %d argument(s)\n", fs.Name(), maxArgs)
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fail(err)
	}
	return 0
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "status [--json]", "Show daemon status via IPC.")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if code, ok := parse(fs, args, 0); !ok {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return printJSON(status)
	}
	fmt.Printf("daemon_running:    %v\n", status.DaemonRunning)
	fmt.Printf("uptime_seconds:    %d\n", status.UptimeSeconds)
	fmt.Printf("monitors:          %d\n", status.Monitors)
	fmt.Printf("workspaces:        %d\n", status.Workspaces)
	fmt.Printf("windows:           %d\n", status.Windows)
	fmt.Printf("focused_workspace: %s\n", status.FocusedWorkspace)
	if status.FocusedWindow != 0 {
		fmt.Printf("focused_window:    %d\n", status.FocusedWindow)
	}
	return 0
}

func runTree(args []string) int {
	fs := newFlagSet("tree", "tree [--json]", "Show monitors, workspaces, split containers and windows.")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	plain := fs.Bool("plain", false, "Disable colors")
	if code, ok := parse(fs, args, 0); !ok {
		return code
	}

	tree, err := ipc.NewClient().GetTree()
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return printJSON(tree)
	}
	fmt.Println(renderTree(tree.Monitors, !*plain))
	return 0
}

func runWatch(args []string) int {
	fs := newFlagSet("watch", "watch [--json]", "Stream every event the daemon dispatches until interrupted.")
	jsonOut := fs.Bool("json", false, "Print raw event payloads")
	if code, ok := parse(fs, args, 0); !ok {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := ipc.NewClient().Subscribe(ctx, func(ev ipc.EventData) error {
		if *jsonOut {
			line, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			fmt.Println(string(line))
			return nil
		}
		fmt.Printf("%-24s %s\n", ev.Name, string(ev.Event))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fail(err)
	}
	return 0
}

func runFocus(args []string) int {
	fs := newFlagSet("focus", "focus [next|prev]", "Focus the next or previous window on the focused workspace.")
	if code, ok := parse(fs, args, 1); !ok {
		return code
	}
	dir := "next"
	if fs.NArg() == 1 {
		dir = fs.Arg(0)
	}
	if _, err := wm.ParseDirection(dir); err != nil {
		return fail(err)
	}

	w, err := ipc.NewClient().FocusCycle(dir)
	if err != nil {
		return fail(err)
	}
	if w != nil && w.Handle != 0 {
		fmt.Printf("focused %d (%s)\n", w.Handle, w.State)
	}
	return 0
}

func runState(args []string) int {
	fs := newFlagSet("state", "state [--window ID] <state>",
		"Transition a window to tiling, floating, maximized, fullscreen or minimized.")
	window := fs.Uint32("window", 0, "Window handle (default: focused window)")
	if code, ok := parse(fs, args, 1); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "state requires <state>")
		fs.Usage()
		return 2
	}
	if _, err := container.ParseState(fs.Arg(0)); err != nil {
		return fail(err)
	}

	w, err := ipc.NewClient().SetState(*window, fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	fmt.Printf("window %d: %s\n", w.Handle, w.State)
	return 0
}

func runBorders(args []string) int {
	fs := newFlagSet("borders", "borders [--window ID] [--left N] [--top N] [--right N] [--bottom N]",
		"Add pixel offsets to a window's border delta.")
	window := fs.Uint32("window", 0, "Window handle (default: focused window)")
	left := fs.Int("left", 0, "Left offset")
	top := fs.Int("top", 0, "Top offset")
	right := fs.Int("right", 0, "Right offset")
	bottom := fs.Int("bottom", 0, "Bottom offset")
	if code, ok := parse(fs, args, 0); !ok {
		return code
	}
	if *left == 0 && *top == 0 && *right == 0 && *bottom == 0 {
		fmt.Fprintln(os.Stderr, "borders requires at least one non-zero offset")
		fs.Usage()
		return 2
	}

	if err := ipc.NewClient().ResizeBorders(*window, *left, *top, *right, *bottom); err != nil {
		return fail(err)
	}
	return 0
}

func runSplit(args []string) int {
	fs := newFlagSet("split", "split [--window ID] <horizontal|vertical>",
		"Set the tiling direction used for the next window opened beside this one.")
	window := fs.Uint32("window", 0, "Window handle (default: focused window)")
	if code, ok := parse(fs, args, 1); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "split requires <orientation>")
		fs.Usage()
		return 2
	}
	if _, err := tiling.ParseOrientation(fs.Arg(0)); err != nil {
		return fail(err)
	}

	if err := ipc.NewClient().Split(*window, fs.Arg(0)); err != nil {
		return fail(err)
	}
	return 0
}

func runResize(args []string) int {
	fs := newFlagSet("resize", "resize [--window ID] --delta N",
		"Grow (positive) or shrink (negative) a tiling window's share of its parent.")
	window := fs.Uint32("window", 0, "Window handle (default: focused window)")
	delta := fs.Float64("delta", 0, "Share change, e.g. 0.1 or -0.1")
	if code, ok := parse(fs, args, 1); !ok {
		return code
	}
	if fs.NArg() == 1 {
		v, err := strconv.ParseFloat(fs.Arg(0), 64)
		if err != nil {
			return fail(fmt.Errorf("invalid delta %q: %w", fs.Arg(0), err))
		}
		*delta = v
	}
	if *delta == 0 {
		fmt.Fprintln(os.Stderr, "resize requires a non-zero delta")
		fs.Usage()
		return 2
	}

	if err := ipc.NewClient().Resize(*window, *delta); err != nil {
		return fail(err)
	}
	return 0
}

func runMove(args []string) int {
	fs := newFlagSet("move", "move [--window ID] [next|prev]", "Swap a tiling window with its next or previous sibling.")
	window := fs.Uint32("window", 0, "Window handle (default: focused window)")
	if code, ok := parse(fs, args, 1); !ok {
		return code
	}
	dir := "next"
	if fs.NArg() == 1 {
		dir = fs.Arg(0)
	}
	if _, err := wm.ParseDirection(dir); err != nil {
		return fail(err)
	}

	if err := ipc.NewClient().Move(*window, dir); err != nil {
		return fail(err)
	}
	return 0
}
