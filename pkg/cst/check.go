package cst

import (
	"errors"
	"fmt"
)

// Structural violations reported by Check.
var (
	ErrEmptyType        = errors.New("node type is empty")
	ErrInvertedSpan     = errors.New("node ends before it starts")
	ErrChildOutsideSpan = errors.New("child span exceeds parent span")
	ErrChildOverlap     = errors.New("child overlaps its previous sibling")
	ErrBranchWithText   = errors.New("non-terminal carries text")
	ErrNilNode          = errors.New("nil node")
)

type checkItem struct {
	node *Node
	path string
}

// Check verifies the structural invariants of a snapshot: non-empty types,
// start <= end, children contained in their parent and ordered without
// overlap, and no text on non-terminals. All violations are returned joined.
func Check(root *Node) error {
	if root == nil {
		return ErrNilNode
	}

	var errs []error

	stack := []checkItem{{node: root, path: "ast"}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		errs = append(errs, checkNode(item)...)

		for idx := len(item.node.Children) - 1; idx >= 0; idx-- {
			child := item.node.Children[idx]
			childPath := fmt.Sprintf("%s.children[%d]", item.path, idx)

			if child == nil {
				errs = append(errs, fmt.Errorf("%s: %w", childPath, ErrNilNode))

				continue
			}

			stack = append(stack, checkItem{node: child, path: childPath})
		}
	}

	return errors.Join(errs...)
}

func checkNode(item checkItem) []error {
	var errs []error

	node := item.node

	if node.Type == "" {
		errs = append(errs, fmt.Errorf("%s: %w", item.path, ErrEmptyType))
	}

	if node.End.Before(node.Start) {
		errs = append(errs, fmt.Errorf("%s: %w: %s > %s", item.path, ErrInvertedSpan, node.Start, node.End))
	}

	if !node.IsLeaf() && node.Text != "" {
		errs = append(errs, fmt.Errorf("%s: %w", item.path, ErrBranchWithText))
	}

	var prev *Node

	for idx, child := range node.Children {
		if child == nil {
			continue
		}

		if child.Start.Before(node.Start) || node.End.Before(child.End) {
			errs = append(errs, fmt.Errorf("%s.children[%d]: %w: [%s, %s) not in [%s, %s)",
				item.path, idx, ErrChildOutsideSpan, child.Start, child.End, node.Start, node.End))
		}

		if prev != nil && child.Start.Before(prev.End) {
			errs = append(errs, fmt.Errorf("%s.children[%d]: %w", item.path, idx, ErrChildOverlap))
		}

		prev = child
	}

	return errs
}

// TreeStats summarizes a snapshot.
type TreeStats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
}

type statsItem struct {
	node  *Node
	depth int
}

// Stats counts nodes and leaves and measures the deepest level (root is 0).
func Stats(root *Node) TreeStats {
	var stats TreeStats

	if root == nil {
		return stats
	}

	stack := []statsItem{{node: root}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		stats.Nodes++

		if item.node.IsLeaf() {
			stats.Leaves++
		}

		stats.MaxDepth = max(stats.MaxDepth, item.depth)

		for _, child := range item.node.Children {
			if child != nil {
				stack = append(stack, statsItem{node: child, depth: item.depth + 1})
			}
		}
	}

	return stats
}
