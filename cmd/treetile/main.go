package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "tree":
		os.Exit(runTree(os.Args[2:]))
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	case "focus":
		os.Exit(runFocus(os.Args[2:]))
	case "state":
		os.Exit(runState(os.Args[2:]))
	case "borders":
		os.Exit(runBorders(os.Args[2:]))
	case "split":
		os.Exit(runSplit(os.Args[2:]))
	case "resize":
		os.Exit(runResize(os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: treetile <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the treetile daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  tree                Show the container tree")
	fmt.Fprintln(w, "  watch               Stream dispatched events")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  focus [next|prev]   Cycle focus on the focused workspace")
	fmt.Fprintln(w, "  state <state>       Set a window's state (tiling, floating, maximized, fullscreen, minimized)")
	fmt.Fprintln(w, "  borders             Adjust a window's border delta")
	fmt.Fprintln(w, "  split <orientation> Set the tiling direction at a window")
	fmt.Fprintln(w, "  resize --delta N    Change a window's size share")
	fmt.Fprintln(w, "  move [next|prev]    Swap a window with its sibling")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config init         Write default configuration")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'treetile <command> --help' for command-specific options.")
}

func isHelp(args []string) bool {
	return len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help")
}
