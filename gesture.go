package main

import (
	"context"
	"fmt"
	"time"
)

// ========================================
// Gesture Builder
// Converts point sequences into pointer paths and bridges the platform's
// callback-style completion into a single awaited boolean.
// ========================================

const (
	// defaultSwipeDuration is used for a two-point swipe without an explicit
	// duration.
	defaultSwipeDuration = 300 * time.Millisecond
	// defaultGestureDuration is the per-segment default for a multi-point
	// gesture.
	defaultGestureDuration = 500 * time.Millisecond
	// tapDuration is the press time of a degenerate zero-displacement tap.
	tapDuration = 100 * time.Millisecond
)

// BuildGesturePath builds a pointer path that moves to the first point and
// draws straight line segments to each subsequent point in order. Every
// segment takes perSegment; pass 0 to apply the default (300ms for a
// two-point path, 500ms otherwise). Fewer than two points is rejected;
// single-point taps are expressed as a degenerate path via TapPath, not
// handled here.
func BuildGesturePath(points []GesturePoint, perSegment time.Duration) (GesturePath, error) {
	if len(points) < 2 {
		return GesturePath{}, fmt.Errorf("need at least 2 points for a gesture, got %d", len(points))
	}
	if perSegment <= 0 {
		if len(points) == 2 {
			perSegment = defaultSwipeDuration
		} else {
			perSegment = defaultGestureDuration
		}
	}
	durations := make([]time.Duration, len(points)-1)
	for i := range durations {
		durations[i] = perSegment
	}
	return GesturePath{Points: points, Durations: durations}, nil
}

// TapPath is the degenerate same-point path for a tap at (x, y): a move with
// a zero-length 100ms stroke.
func TapPath(x, y float64) GesturePath {
	p := GesturePoint{X: x, Y: y}
	return GesturePath{
		Points:    []GesturePoint{p, p},
		Durations: []time.Duration{tapDuration},
	}
}

// DispatchGesture hands path to the platform and awaits the terminal
// outcome. The platform resolves the channel exactly once: completed (true)
// or cancelled (false). When ctx expires before either terminal state the
// call resolves to false without blocking further; the whole-command timeout
// applied by the router is the usual source of that bound.
//
// Concurrent dispatches are not coalesced or queued here; a platform that
// rejects a second concurrent gesture reports an immediate cancellation.
func DispatchGesture(ctx context.Context, svc Service, path GesturePath) (bool, error) {
	done, err := svc.DispatchGesture(path)
	if err != nil {
		return false, err
	}
	select {
	case ok := <-done:
		return ok, nil
	case <-ctx.Done():
		LogWarn("gesture").
			Int("points", len(path.Points)).
			Msg("gesture did not resolve before deadline")
		return false, nil
	}
}
