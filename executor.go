package main

// ========================================
// Action Executor
// Thin pass-through to the platform's per-node action invocation.
// ========================================

// PerformNodeAction invokes action on node and returns the platform's own
// success signal unmodified. No success is inferred from side effects and no
// waiting or polling happens here; the node may have gone stale since lookup,
// which the platform reports as false.
//
// ActionSetText does not itself require the node to be editable; callers
// selecting a target should check Editable first to avoid ambiguous
// failures.
func PerformNodeAction(node Node, action NodeAction, arg string) bool {
	if node == nil {
		return false
	}
	ok := node.Perform(action, arg)
	LogDebug("executor").
		Str("action", action.String()).
		Str("node", NodeID(node)).
		Bool("success", ok).
		Msg("node action")
	return ok
}
