// Package mcp exposes the running daemon to MCP tool clients over stdio.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/treetile/internal/ipc"
)

const (
	ServerName    = "treetile"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools call.
type Daemon interface {
	GetTree() (*ipc.TreeData, error)
	FocusCycle(direction string) (*ipc.WindowData, error)
	SetState(handle uint32, state string) (*ipc.WindowData, error)
	ResizeBorders(handle uint32, left, top, right, bottom int) error
	Split(handle uint32, orientation string) error
	Resize(handle uint32, delta float64) error
	Move(handle uint32, direction string) error
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for treetile.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates a server whose tools talk to daemon.
func NewServer(daemon Daemon) *Server {
	s := &Server{daemon: daemon}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_tree",
		Description: "Return the container tree: monitors, their workspaces, split containers and managed windows with state, rect and size share. The focused window is marked focused.",
	}, s.handleGetTree)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_cycle",
		Description: "Focus the next or previous non-minimized window on the focused workspace, wrapping around.",
	}, s.handleFocusCycle)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_state",
		Description: "Transition a window to tiling, floating, maximized, fullscreen or minimized. A window restored to tiling is inserted after the last focused tiling window of its workspace.",
	}, s.handleSetWindowState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resize_borders",
		Description: "Add pixel offsets to a window's border delta, compensating for decorations the window system draws around it.",
	}, s.handleResizeBorders)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "split_window",
		Description: "Set the tiling direction at a window: the next window opened beside it tiles along the given orientation.",
	}, s.handleSplitWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resize_window",
		Description: "Grow or shrink a tiling window's share of its parent; siblings absorb the difference.",
	}, s.handleResizeWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Swap a tiling window with its next or previous sibling.",
	}, s.handleMoveWindow)
}
