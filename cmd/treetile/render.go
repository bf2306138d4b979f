package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/1broseidon/treetile/internal/container"
)

type treeStyles struct {
	enumerator lipgloss.Style
	monitor    lipgloss.Style
	workspace  lipgloss.Style
	hidden     lipgloss.Style
	split      lipgloss.Style
	window     lipgloss.Style
	focused    lipgloss.Style
	dim        lipgloss.Style
}

func newTreeStyles(color bool) treeStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return treeStyles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return treeStyles{
		enumerator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		monitor:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		workspace:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		hidden:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		split:      lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		window:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		focused:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// renderTree draws every monitor as its own rooted tree.
func renderTree(monitors []container.Node, color bool) string {
	if len(monitors) == 0 {
		return "(no monitors)"
	}
	st := newTreeStyles(color)
	parts := make([]string, 0, len(monitors))
	for _, m := range monitors {
		parts = append(parts, buildTree(m, st).String())
	}
	return strings.Join(parts, "\n\n")
}

func buildTree(n container.Node, st treeStyles) *tree.Tree {
	t := tree.Root(nodeLabel(n, st)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(st.enumerator)
	for _, child := range n.Children {
		if len(child.Children) == 0 {
			t.Child(nodeLabel(child, st))
			continue
		}
		t.Child(buildTree(child, st))
	}
	return t
}

func nodeLabel(n container.Node, st treeStyles) string {
	rect := st.dim.Render(fmt.Sprintf("%dx%d+%d+%d", n.Rect.Width, n.Rect.Height, n.Rect.X, n.Rect.Y))
	switch n.Kind {
	case "monitor":
		return st.monitor.Render("monitor "+n.DeviceName) + " " + rect
	case "workspace":
		label := fmt.Sprintf("workspace %s [%s]", n.Name, n.Orientation)
		if !n.Displayed {
			return st.hidden.Render(label + " (hidden)")
		}
		return st.workspace.Render(label) + " " + rect
	case "split":
		return st.split.Render(fmt.Sprintf("split [%s] %s", n.Orientation, share(n.SizePercentage))) + " " + rect
	case "window":
		label := fmt.Sprintf("%d %s", n.Handle, n.State)
		if n.State == "tiling" {
			label += " " + share(n.SizePercentage)
		}
		if n.BorderDelta != nil {
			d := n.BorderDelta
			label += fmt.Sprintf(" borders(%d,%d,%d,%d)", d.DeltaLeft, d.DeltaTop, d.DeltaRight, d.DeltaBottom)
		}
		if n.Focused {
			return st.focused.Render("* "+label) + " " + rect
		}
		return st.window.Render(label) + " " + rect
	default:
		return n.Kind
	}
}

func share(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct*100)
}
