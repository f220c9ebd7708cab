package cst

// snapshotItem pairs a source view with the record being filled for it.
type snapshotItem struct {
	view View
	node *Node
}

// Snapshot copies a tree view into an independently owned [Node] graph.
//
// Nodes are visited in preorder, children left to right. Leaves copy their
// decoded text; non-terminals get a non-nil child slice. The result shares no
// memory with the view, so the engine tree may be released afterwards.
func Snapshot(root View) *Node {
	if root == nil {
		return nil
	}

	out := newRecord(root)
	stack := []snapshotItem{{view: root, node: out}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.node.IsLeaf() {
			continue
		}

		count := item.view.ChildCount()
		children := make([]*Node, count)
		views := make([]View, count)

		for idx := range count {
			views[idx] = item.view.Child(idx)
			children[idx] = newRecord(views[idx])
		}

		item.node.Children = children

		// Push in reverse so the leftmost child is expanded first.
		for idx := count - 1; idx >= 0; idx-- {
			stack = append(stack, snapshotItem{view: views[idx], node: children[idx]})
		}
	}

	return out
}

// SnapshotTree snapshots root and pairs it with its source text.
func SnapshotTree(source string, root View) *SyntaxTree {
	return &SyntaxTree{SourceCode: source, Root: Snapshot(root)}
}

func newRecord(view View) *Node {
	if view.IsLeaf() {
		return NewLeaf(view.Kind(), view.StartPoint(), view.EndPoint(), view.LeafText())
	}

	return NewBranch(view.Kind(), view.StartPoint(), view.EndPoint())
}
