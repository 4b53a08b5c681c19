package main

// ========================================
// Hierarchy Serializer
// ========================================

// SnapshotTree serializes the subtree under root into detached NodeInfo
// records mirroring the live tree at call time. Child handles are recycled
// as soon as their subtree has been serialized; the root handle stays owned
// by the caller.
//
// The live tree mutates underneath us, so the snapshot is best-effort: a
// child that vanishes mid-walk is simply absent from the result.
func SnapshotTree(root Node) *NodeInfo {
	if root == nil {
		return nil
	}
	info := describeNode(root)
	count := root.ChildCount()
	for i := 0; i < count; i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		if sub := SnapshotTree(child); sub != nil {
			info.Children = append(info.Children, sub)
		}
		child.Recycle()
	}
	return info
}
