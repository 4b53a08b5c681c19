package main

import "strings"

// ========================================
// Node Matcher
// Pre-order search over the live tree. First match wins.
// ========================================

// matchesText evaluates the search predicate against one node. Partial match
// is case-insensitive substring containment in text or description; exact
// match is case-sensitive equality against either field.
func matchesText(n Node, query string, partial bool) bool {
	if partial {
		q := strings.ToLower(query)
		return strings.Contains(strings.ToLower(n.Text()), q) ||
			strings.Contains(strings.ToLower(n.Description()), q)
	}
	return n.Text() == query || n.Description() == query
}

// FindByText searches the subtree under root in pre-order and returns the
// first node matching query, or nil when the whole subtree has no match.
// "No match" is an empty result, not an error; a failed lookup (no active
// window) is distinguished upstream.
func FindByText(root Node, query string, partial bool) Node {
	return findNode(root, func(n Node) bool {
		return matchesText(n, query, partial)
	})
}

// findNode walks the subtree under root in pre-order (node before children,
// children in native sibling order) and returns the first node satisfying
// pred. The search stops at the first match.
//
// Ownership: root stays owned by the caller. Every child handle obtained
// during the search is recycled before the next sibling is visited, except
// the returned match, which the caller must recycle after use. Handles are a
// bounded platform resource; a leaked handle degrades later queries.
func findNode(root Node, pred func(Node) bool) Node {
	if root == nil {
		return nil
	}
	if pred(root) {
		return root
	}
	count := root.ChildCount()
	for i := 0; i < count; i++ {
		child := root.Child(i)
		if child == nil {
			// Sibling vanished between enumeration and access; the tree is
			// live and this is not an error.
			continue
		}
		if found := findNode(child, pred); found != nil {
			if found != child {
				child.Recycle()
			}
			return found
		}
		child.Recycle()
	}
	return nil
}
