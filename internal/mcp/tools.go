package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/ipc"
)

func (s *Server) handleGetTree(_ context.Context, _ *mcpsdk.CallToolRequest, args GetTreeInput) (*mcpsdk.CallToolResult, GetTreeOutput, error) {
	tree, err := s.daemon.GetTree()
	if err != nil {
		return nil, GetTreeOutput{}, err
	}

	var out GetTreeOutput
	for _, m := range tree.Monitors {
		if args.Workspace == "" {
			out.Nodes = flatten(out.Nodes, m, "", 0)
			continue
		}
		for _, ws := range m.Children {
			if ws.Name == args.Workspace {
				only := m
				only.Children = []container.Node{ws}
				out.Nodes = flatten(out.Nodes, only, "", 0)
			}
		}
	}
	if args.Workspace != "" && len(out.Nodes) == 0 {
		return nil, GetTreeOutput{}, fmt.Errorf("unknown workspace %q", args.Workspace)
	}
	return nil, out, nil
}

func flatten(out []TreeEntry, n container.Node, parent string, depth int) []TreeEntry {
	out = append(out, TreeEntry{
		ID:             n.ID,
		Parent:         parent,
		Depth:          depth,
		Kind:           n.Kind,
		Name:           n.Name,
		DeviceName:     n.DeviceName,
		Displayed:      n.Displayed,
		Orientation:    n.Orientation,
		Handle:         n.Handle,
		State:          n.State,
		SizePercentage: n.SizePercentage,
		Rect:           n.Rect,
		BorderDelta:    n.BorderDelta,
		Focused:        n.Focused,
	})
	for _, child := range n.Children {
		out = flatten(out, child, n.ID, depth+1)
	}
	return out
}

func (s *Server) handleFocusCycle(_ context.Context, _ *mcpsdk.CallToolRequest, args FocusCycleInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	w, err := s.daemon.FocusCycle(args.Direction)
	if err != nil {
		return nil, WindowOutput{}, err
	}
	return nil, windowOutput(w), nil
}

func (s *Server) handleSetWindowState(_ context.Context, _ *mcpsdk.CallToolRequest, args SetWindowStateInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	if _, err := container.ParseState(args.State); err != nil {
		return nil, WindowOutput{}, err
	}
	w, err := s.daemon.SetState(args.Handle, args.State)
	if err != nil {
		return nil, WindowOutput{}, err
	}
	return nil, windowOutput(w), nil
}

func (s *Server) handleResizeBorders(_ context.Context, _ *mcpsdk.CallToolRequest, args ResizeBordersInput) (*mcpsdk.CallToolResult, OKOutput, error) {
	if args.Left == 0 && args.Top == 0 && args.Right == 0 && args.Bottom == 0 {
		return nil, OKOutput{}, fmt.Errorf("at least one of left, top, right, bottom must be non-zero")
	}
	if err := s.daemon.ResizeBorders(args.Handle, args.Left, args.Top, args.Right, args.Bottom); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{OK: true}, nil
}

func (s *Server) handleSplitWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args SplitWindowInput) (*mcpsdk.CallToolResult, OKOutput, error) {
	if err := s.daemon.Split(args.Handle, args.Orientation); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{OK: true}, nil
}

func (s *Server) handleResizeWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args ResizeWindowInput) (*mcpsdk.CallToolResult, OKOutput, error) {
	if args.Delta == 0 {
		return nil, OKOutput{}, fmt.Errorf("delta must be non-zero")
	}
	if err := s.daemon.Resize(args.Handle, args.Delta); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{OK: true}, nil
}

func (s *Server) handleMoveWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveWindowInput) (*mcpsdk.CallToolResult, OKOutput, error) {
	if err := s.daemon.Move(args.Handle, args.Direction); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{OK: true}, nil
}

func windowOutput(w *ipc.WindowData) WindowOutput {
	if w == nil {
		return WindowOutput{}
	}
	return WindowOutput{Handle: w.Handle, State: w.State}
}
