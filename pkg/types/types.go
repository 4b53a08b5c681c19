// Package types holds the data types shared between the bridge core and its
// transports. Keeping them here avoids duplicating definitions in mcp/.
package types

import "fmt"

// Bounds is a node's on-screen rectangle in pixel coordinates.
type Bounds struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the horizontal extent of the rectangle.
func (b Bounds) Width() int {
	return b.Right - b.Left
}

// Height returns the vertical extent of the rectangle.
func (b Bounds) Height() int {
	return b.Bottom - b.Top
}

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() (int, int) {
	return b.Left + (b.Right-b.Left)/2, b.Top + (b.Bottom-b.Top)/2
}

// Valid reports whether left<=right and top<=bottom.
func (b Bounds) Valid() bool {
	return b.Left <= b.Right && b.Top <= b.Bottom
}

// Empty reports whether the rectangle has zero area. A node with no geometry
// cannot be targeted by a pointer gesture.
func (b Bounds) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Contains checks if point (x, y) is inside the bounds.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.Left && x <= b.Right && y >= b.Top && y <= b.Bottom
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", b.Left, b.Top, b.Right, b.Bottom)
}

// NodeInfo is a serialized snapshot of one accessibility node plus its
// subtree. It is detached from the live tree: the handles used to build it
// have already been released by the time a NodeInfo reaches a caller.
type NodeInfo struct {
	ID            string      `json:"id"`
	Text          string      `json:"text"`
	Description   string      `json:"description"`
	ClassName     string      `json:"className"`
	PackageName   string      `json:"packageName"`
	ResourceID    string      `json:"resourceId"`
	Bounds        Bounds      `json:"bounds"`
	Clickable     bool        `json:"clickable"`
	LongClickable bool        `json:"longClickable"`
	Scrollable    bool        `json:"scrollable"`
	Editable      bool        `json:"editable"`
	Focusable     bool        `json:"focusable"`
	Enabled       bool        `json:"enabled"`
	Checked       bool        `json:"checked"`
	Selected      bool        `json:"selected"`
	Children      []*NodeInfo `json:"children,omitempty"`
}

// GesturePoint is a screen coordinate in pixel space.
type GesturePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CommandRecord is one audited command round trip.
type CommandRecord struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	Params     string `json:"params"`
	Result     string `json:"result"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
	CreatedAt  int64  `json:"createdAt"`
}
