// Package cst holds the language-agnostic concrete syntax tree snapshot produced
// from a grammar engine, together with its serializer, renderer and checks.
//
// Every traversal in this package uses an explicit work-list, so tree depth is
// bounded by available memory rather than by the goroutine stack.
package cst

// View is read-only access to a concrete syntax tree node. Both a live
// engine tree and a [Node] snapshot implement it, so the serializer and the
// renderer accept either.
type View interface {
	// Kind returns the grammar symbol name.
	Kind() string
	// StartPoint returns the inclusive start position.
	StartPoint() Point
	// EndPoint returns the exclusive end position.
	EndPoint() Point
	// IsLeaf reports whether the node carries text instead of children.
	IsLeaf() bool
	// ChildCount returns the number of children (zero for leaves).
	ChildCount() int
	// Child returns the i-th child in source order.
	Child(i int) View
	// LeafText returns the decoded source slice covered by a leaf.
	LeafText() string
}

// Node is an immutable snapshot of one syntax tree element.
//
// A nil Children slice marks a leaf, which carries Text. Non-terminals always
// have a non-nil, possibly empty, Children slice and no Text.
type Node struct {
	Type     string
	Text     string
	Children []*Node
	Start    Point
	End      Point
}

// NewLeaf builds a leaf node.
func NewLeaf(typ string, start, end Point, text string) *Node {
	return &Node{Type: typ, Start: start, End: end, Text: text}
}

// NewBranch builds a non-terminal node. Passing no children yields an empty,
// non-nil child list.
func NewBranch(typ string, start, end Point, children ...*Node) *Node {
	if children == nil {
		children = []*Node{}
	}

	return &Node{Type: typ, Start: start, End: end, Children: children}
}

// Kind implements [View].
func (n *Node) Kind() string { return n.Type }

// StartPoint implements [View].
func (n *Node) StartPoint() Point { return n.Start }

// EndPoint implements [View].
func (n *Node) EndPoint() Point { return n.End }

// IsLeaf implements [View].
func (n *Node) IsLeaf() bool { return n.Children == nil }

// ChildCount implements [View].
func (n *Node) ChildCount() int { return len(n.Children) }

// Child implements [View].
func (n *Node) Child(i int) View { return n.Children[i] }

// LeafText implements [View].
func (n *Node) LeafText() string { return n.Text }

// SyntaxTree pairs the source text with the root of its snapshot.
// It holds no reference into parser memory.
type SyntaxTree struct {
	Root       *Node
	SourceCode string
}
