package main

import (
	"errors"
	"time"
)

// ========================================
// Platform Surface
// The accessibility tree, gesture dispatcher and launcher are owned by the
// platform. The bridge only holds capability handles to them.
// ========================================

// ErrServiceNotRunning is returned when the bridge has no attached platform
// handle. This is a normal, checked condition: the service connects and
// disconnects outside our control.
var ErrServiceNotRunning = errors.New("accessibility service not running")

// ErrNoActiveWindow is returned by RootNode when the platform has no active
// window. Distinct from a window with zero children.
var ErrNoActiveWindow = errors.New("no active window")

// NodeAction is a per-node accessibility action.
type NodeAction int

const (
	ActionClick NodeAction = iota
	ActionLongClick
	ActionSetText
	ActionScrollForward
	ActionScrollBackward
)

func (a NodeAction) String() string {
	switch a {
	case ActionClick:
		return "click"
	case ActionLongClick:
		return "longClick"
	case ActionSetText:
		return "setText"
	case ActionScrollForward:
		return "scrollForward"
	case ActionScrollBackward:
		return "scrollBackward"
	default:
		return "unknown"
	}
}

// GlobalAction is a system-level action not tied to a specific element.
type GlobalAction int

const (
	GlobalBack GlobalAction = iota
	GlobalHome
	GlobalRecents
	GlobalNotifications
	GlobalQuickSettings
)

func (a GlobalAction) String() string {
	switch a {
	case GlobalBack:
		return "back"
	case GlobalHome:
		return "home"
	case GlobalRecents:
		return "recents"
	case GlobalNotifications:
		return "notifications"
	case GlobalQuickSettings:
		return "quickSettings"
	default:
		return "unknown"
	}
}

// Node is a live handle into the platform accessibility tree. Handles come
// from a bounded platform-side pool: every handle obtained through RootNode
// or Child must be given back with Recycle once it is no longer needed.
// A handle may go stale at any time; actions on a stale handle report false.
type Node interface {
	Text() string
	Description() string
	ClassName() string
	PackageName() string
	ResourceID() string
	Bounds() Bounds

	Clickable() bool
	LongClickable() bool
	Scrollable() bool
	Editable() bool
	Focusable() bool
	Enabled() bool
	Checked() bool
	Selected() bool

	// ChildCount and Child enumerate children in their native sibling order.
	// Child returns nil when the child is gone from the live tree.
	ChildCount() int
	Child(i int) Node

	// Perform invokes action on the node. arg carries the text for
	// ActionSetText and is ignored otherwise. The returned boolean is the
	// platform's own success signal, passed through unmodified.
	Perform(action NodeAction, arg string) bool

	// Recycle releases the handle back to the platform pool.
	Recycle()
}

// GesturePath is an ordered sequence of >=2 screen points with a per-segment
// duration. Segment i connects Points[i] to Points[i+1] and takes
// Durations[i]; len(Durations) == len(Points)-1.
type GesturePath struct {
	Points    []GesturePoint
	Durations []time.Duration
}

// Service is the capability handle for the platform automation surface,
// injected into the bridge at attach time.
type Service interface {
	// RootNode returns the root of the active window's tree, or
	// ErrNoActiveWindow. The caller owns the returned handle.
	RootNode() (Node, error)

	// GlobalAction invokes a system action and returns the platform's
	// success signal.
	GlobalAction(action GlobalAction) bool

	// DispatchGesture starts an asynchronous pointer gesture. The returned
	// channel resolves exactly once: true for completion, false for
	// cancellation. A rejected concurrent gesture manifests as an immediate
	// cancellation.
	DispatchGesture(path GesturePath) (<-chan bool, error)

	// LaunchPackage starts the launchable activity of a package.
	LaunchPackage(pkg string) error

	// OpenURL opens a URL with the platform's default handler.
	OpenURL(url string) error

	// ScreenSize returns the display size in pixels.
	ScreenSize() (width, height int, err error)

	// ForegroundApp returns the package and activity currently in front.
	ForegroundApp() (pkg, activity string, err error)
}
