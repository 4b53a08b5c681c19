package main

import (
	"fmt"

	"Tether/pkg/types"
)

// Type aliases from the shared types package so the transports under
// mcp/ use the same definitions.
type (
	Bounds        = types.Bounds
	NodeInfo      = types.NodeInfo
	GesturePoint  = types.GesturePoint
	CommandRecord = types.CommandRecord
)

// NodeID derives a display identifier for a node: resource id (or class name
// when the id is empty) plus the top-left corner. It is not stable across
// tree mutations and must never be used as a cross-call handle.
func NodeID(n Node) string {
	base := n.ResourceID()
	if base == "" {
		base = n.ClassName()
	}
	b := n.Bounds()
	return fmt.Sprintf("%s_%d_%d", base, b.Left, b.Top)
}

// describeNode copies a node's attributes into a detached record, without
// children. The handle stays owned by the caller.
func describeNode(n Node) *NodeInfo {
	return &NodeInfo{
		ID:            NodeID(n),
		Text:          n.Text(),
		Description:   n.Description(),
		ClassName:     n.ClassName(),
		PackageName:   n.PackageName(),
		ResourceID:    n.ResourceID(),
		Bounds:        n.Bounds(),
		Clickable:     n.Clickable(),
		LongClickable: n.LongClickable(),
		Scrollable:    n.Scrollable(),
		Editable:      n.Editable(),
		Focusable:     n.Focusable(),
		Enabled:       n.Enabled(),
		Checked:       n.Checked(),
		Selected:      n.Selected(),
	}
}
